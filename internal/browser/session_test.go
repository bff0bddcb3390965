package browser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velib_runs/internal/config"
)

func TestSnapshotScript(t *testing.T) {
	script := snapshotScript(config.Selectors{
		Pagination: "ul.pagination > li > a",
		Entries:    `div[data-kind="run"]`,
		Date:       "div.operation-date",
		Distance:   "div:nth-child(2)",
		Duration:   "div:nth-child(3)",
	})

	assert.Contains(t, script, `document.querySelectorAll("ul.pagination > li > a")`)
	assert.Contains(t, script, `document.querySelectorAll("div[data-kind=\"run\"]")`)
	assert.Contains(t, script, `date: text(e, "div.operation-date")`)
	assert.Contains(t, script, `distance: text(e, "div:nth-child(2)")`)
	assert.Contains(t, script, `duration: text(e, "div:nth-child(3)")`)
	assert.True(t, strings.HasPrefix(script, "(() => {"))
	assert.True(t, strings.HasSuffix(script, "})()"))
}

func TestJSString(t *testing.T) {
	assert.Equal(t, `"a"`, jsString("a"))
	assert.Equal(t, `"input[name=\"_username\"]"`, jsString(`input[name="_username"]`))
	assert.Equal(t, `"line\nbreak"`, jsString("line\nbreak"))
	assert.Equal(t, `"ul.pagination > li > a"`, jsString("ul.pagination > li > a"))
	assert.Equal(t, `"a[href*=\"a&b\"]"`, jsString(`a[href*="a&b"]`))
}

func TestIsLoginPage(t *testing.T) {
	login := config.DefaultLoginURL

	tests := []struct {
		location string
		want     bool
	}{
		{location: "https://www.velib-metropole.fr/login", want: true},
		{location: "https://www.velib-metropole.fr/login/", want: true},
		{location: "https://www.velib-metropole.fr/login?error=1", want: true},
		{location: "https://www.velib-metropole.fr/login#/", want: true},
		{location: "https://www.velib-metropole.fr/private/account#/my-runs", want: false},
		{location: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, isLoginPage(tt.location, login))
		})
	}
}

func TestSession_Bind(t *testing.T) {
	tab, cancelTab := context.WithCancel(context.Background())
	defer cancelTab()
	s := &Session{tab: tab}

	t.Run("caller cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		runCtx, release := s.bind(ctx, 0)
		defer release()

		cancel()
		select {
		case <-runCtx.Done():
		case <-time.After(time.Second):
			t.Fatal("bound context not canceled with caller")
		}
	})

	t.Run("caller deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		want, _ := ctx.Deadline()

		runCtx, release := s.bind(ctx, 0)
		defer release()

		got, ok := runCtx.Deadline()
		require.True(t, ok)
		assert.True(t, got.Equal(want))
	})

	t.Run("own timeout is the earlier deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()

		runCtx, release := s.bind(ctx, 10*time.Millisecond)
		defer release()

		select {
		case <-runCtx.Done():
			assert.ErrorIs(t, runCtx.Err(), context.DeadlineExceeded)
		case <-time.After(time.Second):
			t.Fatal("timeout not applied")
		}
	})

	t.Run("release leaves tab alive", func(t *testing.T) {
		_, release := s.bind(context.Background(), 0)
		release()
		assert.NoError(t, tab.Err())
	})
}
