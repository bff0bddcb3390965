// Package output renders run records as a console table and a CSV file.
package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"velib_runs/internal/runs"
)

// Header is the first CSV row and the table header.
var Header = []string{"date", "distance", "duration"}

var ErrBadHeader = errors.New("unexpected CSV header")

// FormatDistance prints kilometers as a decimal that always has a
// fractional part: 5 -> "5.0", 12.34 -> "12.34".
func FormatDistance(km float64) string {
	s := strconv.FormatFloat(km, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Row is the CSV form of a record.
func Row(r runs.Record) []string {
	return []string{r.Date, FormatDistance(r.Distance), strconv.Itoa(r.Duration)}
}

// WriteCSV truncates path and writes the header plus one row per record,
// with CRLF line endings.
func WriteCSV(path string, records []runs.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	w.UseCRLF = true
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(Row(r)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

// ReadCSV loads records written by WriteCSV.
func ReadCSV(path string) ([]runs.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) == 0 || !slices.Equal(rows[0], Header) {
		return nil, fmt.Errorf("%w in %s", ErrBadHeader, path)
	}

	records := make([]runs.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		distance, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid distance: %w", path, i+2, err)
		}
		duration, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid duration: %w", path, i+2, err)
		}
		records = append(records, runs.Record{Date: row[0], Distance: distance, Duration: duration})
	}
	return records, nil
}
