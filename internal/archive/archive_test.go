package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velib_runs/internal/runs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SaveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	started := time.UnixMilli(1700000000123)
	sc := Scrape{
		ID:         uuid.New(),
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		Pages:      2,
		Complete:   true,
		Records: []runs.Record{
			{Date: "b", Distance: 12.34, Duration: 225},
			{Date: "a", Distance: 5, Duration: 40},
			{Date: "c", Distance: 0.5, Duration: 1},
		},
	}
	require.NoError(t, store.Save(ctx, sc))

	got, err := store.Get(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.ID, got.ID)
	assert.True(t, got.StartedAt.Equal(sc.StartedAt))
	assert.True(t, got.FinishedAt.Equal(sc.FinishedAt))
	assert.Equal(t, 2, got.Pages)
	assert.True(t, got.Complete)
	assert.Equal(t, sc.Records, got.Records, "records keep traversal order")
}

func TestStore_GetMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_List(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := Scrape{ID: uuid.New(), StartedAt: time.UnixMilli(1000), FinishedAt: time.UnixMilli(2000), Pages: 1, Complete: true,
		Records: []runs.Record{{Date: "x", Distance: 1, Duration: 1}}}
	newer := Scrape{ID: uuid.New(), StartedAt: time.UnixMilli(5000), FinishedAt: time.UnixMilli(6000), Pages: 3}
	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, newer))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, newer.ID, list[0].ID)
	assert.False(t, list[0].Complete)
	assert.Equal(t, 0, list[0].Records)

	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, 1, list[1].Records)
}

func TestStore_DuplicateID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sc := Scrape{ID: uuid.New(), StartedAt: time.Now(), FinishedAt: time.Now()}
	require.NoError(t, store.Save(ctx, sc))
	require.Error(t, store.Save(ctx, sc))
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	store, err := Open(path)
	require.NoError(t, err)
	sc := Scrape{ID: uuid.New(), StartedAt: time.Now(), FinishedAt: time.Now(), Complete: true}
	require.NoError(t, store.Save(context.Background(), sc))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(context.Background(), sc.ID)
	require.NoError(t, err)
}
