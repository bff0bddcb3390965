package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velib_runs/internal/runs"
)

var sample = []runs.Record{
	{Date: "Le 02/03/2021 à 18:04", Distance: 12.34, Duration: 225},
	{Date: "Le 01/03/2021 à 08:15", Distance: 5, Duration: 40},
	{Date: "with, comma", Distance: 0.5, Duration: 0},
}

func TestFormatDistance(t *testing.T) {
	tests := map[float64]string{
		12.34: "12.34",
		5:     "5.0",
		0.5:   "0.5",
		0:     "0.0",
		100.1: "100.1",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatDistance(in))
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	require.NoError(t, WriteCSV(path, sample))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, len(sample)+1)
	assert.Equal(t, []string{"date", "distance", "duration"}, rows[0])
	for i, r := range sample {
		assert.Equal(t, Row(r), rows[i+1])
	}
	assert.Equal(t, []string{"Le 02/03/2021 à 18:04", "12.34", "225"}, rows[1])
	assert.Equal(t, []string{"Le 01/03/2021 à 08:15", "5.0", "40"}, rows[2])
}

func TestWriteCSV_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("stale\n", 100)), 0o644))

	require.NoError(t, WriteCSV(path, sample[:1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,distance,duration\r\nLe 02/03/2021 à 18:04,12.34,225\r\n", string(data))
}

func TestWriteCSV_NoRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	require.NoError(t, WriteCSV(path, nil))

	records, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	require.NoError(t, WriteCSV(path, sample))

	records, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, sample, records)
}

func TestReadCSV_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{name: "empty file", content: "", errSubstr: "unexpected CSV header"},
		{name: "wrong header", content: "a,b,c\n", errSubstr: "unexpected CSV header"},
		{name: "bad distance", content: "date,distance,duration\nd,12;3,4\n", errSubstr: "line 2: invalid distance"},
		{name: "bad duration", content: "date,distance,duration\nd,1.0,x\n", errSubstr: "line 2: invalid duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := ReadCSV(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, sample[:2])

	out := buf.String()
	assert.Contains(t, out, "date")
	assert.Contains(t, out, "distance")
	assert.Contains(t, out, "duration")
	assert.Contains(t, out, "Le 02/03/2021 à 18:04")
	assert.Contains(t, out, "12.34")
	assert.Contains(t, out, "5.0")
	assert.Contains(t, out, "225")
	assert.True(t, strings.HasSuffix(out, "(2 runs)\n"))

	// header row comes before data rows
	assert.Less(t, strings.Index(out, "distance"), strings.Index(out, "12.34"))
}
