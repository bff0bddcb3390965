package runs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxPage(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   int
	}{
		{name: "prev and next ignored", labels: []string{"prev", "1", "2", "3", "next"}, want: 3},
		{name: "unordered", labels: []string{"«", "4", "12", "7", "»"}, want: 12},
		{name: "padded labels", labels: []string{"  1 ", "\n2\n", "»"}, want: 2},
		{name: "label with text", labels: []string{"1", "Page 9 (current)"}, want: 9},
		{name: "digit inside word only", labels: []string{"p2p", "1"}, want: 1},
		{name: "no numeric labels", labels: []string{"«", "»"}, want: 0},
		{name: "empty", labels: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxPage(tt.labels))
		})
	}
}
