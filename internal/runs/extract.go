package runs

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrFieldMissing   = errors.New("field not found in run entry")
	ErrDistanceFormat = errors.New("no distance in text")
	ErrDurationFormat = errors.New("no duration in text")
)

var (
	distancePattern    = regexp.MustCompile(`\d+,\d+`)
	minSecPattern      = regexp.MustCompile(`(\d+)min (\d+)sec`)
	secondsOnlyPattern = regexp.MustCompile(`(\d+)sec`)
)

// ExtractError locates a failed entry within the walk.
type ExtractError struct {
	Page  int // 1-based
	Index int // 0-based position on the page
	Field string
	Err   error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("page %d entry %d: %s: %v", e.Page, e.Index, e.Field, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// ParseDistance reads a comma-decimal kilometer value such as "12,34 km".
func ParseDistance(text string) (float64, error) {
	m := distancePattern.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("%w: %q", ErrDistanceFormat, text)
	}
	return strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
}

// ParseDuration reads "<m>min <s>sec" or, for runs under a minute, "<s>sec".
func ParseDuration(text string) (int, error) {
	if m := minSecPattern.FindStringSubmatch(text); m != nil {
		minutes, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrDurationFormat, text, err)
		}
		seconds, err := strconv.Atoi(m[2])
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrDurationFormat, text, err)
		}
		if minutes > (math.MaxInt-seconds)/60 {
			return 0, fmt.Errorf("%w: %q is out of range", ErrDurationFormat, text)
		}
		return minutes*60 + seconds, nil
	}
	if m := secondsOnlyPattern.FindStringSubmatch(text); m != nil {
		seconds, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrDurationFormat, text, err)
		}
		return seconds, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrDurationFormat, text)
}

// ParseEntry converts a raw entry into a Record. The returned error names
// the failing field; callers attach the position.
func ParseEntry(e RawEntry) (Record, string, error) {
	if e.Date == nil {
		return Record{}, "date", ErrFieldMissing
	}
	if e.Distance == nil {
		return Record{}, "distance", ErrFieldMissing
	}
	if e.Duration == nil {
		return Record{}, "duration", ErrFieldMissing
	}

	distance, err := ParseDistance(*e.Distance)
	if err != nil {
		return Record{}, "distance", err
	}
	duration, err := ParseDuration(*e.Duration)
	if err != nil {
		return Record{}, "duration", err
	}

	return Record{Date: *e.Date, Distance: distance, Duration: duration}, "", nil
}
