package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"velib_runs/internal/metrics"
)

var (
	ErrRenderTimeout = errors.New("listing did not finish rendering")
	ErrNoNextControl = errors.New("no next pagination control")
)

const (
	DefaultRenderTimeout = 10 * time.Second
	DefaultPollInterval  = 250 * time.Millisecond
)

// Page is the rendered listing the walker reads from and clicks through.
type Page interface {
	// Snapshot reads the current pagination labels and run entries.
	Snapshot(ctx context.Context) (Snapshot, error)
	// Activate clicks the pagination control at the given index.
	Activate(ctx context.Context, control int) error
}

// Walker reads every listing page in order.
type Walker struct {
	Page   Page
	Logger *slog.Logger

	RenderTimeout time.Duration
	PollInterval  time.Duration

	// SkipInvalid logs and drops entries that fail to parse instead of
	// aborting the walk.
	SkipInvalid bool

	// OnPages is called once with the discovered page count.
	OnPages func(total int)
	// OnPage is called after each page with its 1-based number.
	OnPage func(page, records int)
}

// Walk discovers the page count and extracts every page, following the
// "next" control between pages. On error the records gathered so far are
// returned alongside it.
func (w *Walker) Walk(ctx context.Context) ([]Record, error) {
	logger := w.logger()

	first, err := w.waitReady(ctx, nil, false)
	if err != nil {
		return nil, fmt.Errorf("waiting for pagination: %w", err)
	}

	maxPage := MaxPage(first.Controls)
	logger.Debug("pagination discovered", "controls", first.Controls, "max_page", maxPage)
	if maxPage == 0 {
		logger.Warn("no numeric pagination label, no page will be read", "controls", first.Controls)
	}
	if w.OnPages != nil {
		w.OnPages(maxPage)
	}

	var records []Record
	var prev []RawEntry
	for i := 0; i < maxPage; i++ {
		page := i + 1

		snap, err := w.waitReady(ctx, prev, true)
		if err != nil {
			return records, fmt.Errorf("page %d: %w", page, err)
		}

		pageRecords, err := w.extractPage(page, snap.Entries)
		records = append(records, pageRecords...)
		if err != nil {
			return records, err
		}
		metrics.RecordPage(len(pageRecords))
		if w.OnPage != nil {
			w.OnPage(page, len(pageRecords))
		}

		if i == maxPage-1 {
			break
		}

		// The last control is the jump-to-end link; "next" sits just before it
		next := len(snap.Controls) - 2
		if next < 0 {
			return records, fmt.Errorf("page %d: %w among %d controls", page, ErrNoNextControl, len(snap.Controls))
		}
		if err := w.Page.Activate(ctx, next); err != nil {
			return records, fmt.Errorf("page %d: failed to activate next control: %w", page, err)
		}
		prev = snap.Entries
	}

	return records, nil
}

func (w *Walker) extractPage(page int, entries []RawEntry) ([]Record, error) {
	out := make([]Record, 0, len(entries))
	for idx, entry := range entries {
		rec, field, err := ParseEntry(entry)
		if err != nil {
			metrics.RecordExtractError(field)
			xerr := &ExtractError{Page: page, Index: idx, Field: field, Err: err}
			if w.SkipInvalid {
				w.logger().Warn("skipping run entry", "error", xerr)
				continue
			}
			return out, xerr
		}
		out = append(out, rec)
	}
	return out, nil
}

// waitReady polls the page until it shows pagination (and entries, when
// needEntries is set) that differ from prev and read the same twice in a row.
func (w *Walker) waitReady(ctx context.Context, prev []RawEntry, needEntries bool) (Snapshot, error) {
	timeout := w.RenderTimeout
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	interval := w.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var last *Snapshot
	var readErr error
	for {
		snap, err := w.Page.Snapshot(waitCtx)
		if err != nil {
			// Reads fail while the document is being replaced; keep polling
			if waitCtx.Err() == nil {
				w.logger().Debug("listing read failed, retrying", "error", err)
				readErr = err
			}
			last = nil
		} else {
			readErr = nil
			if ready(snap, prev, needEntries) && last != nil && sameSnapshot(*last, snap) {
				metrics.RecordRenderWait(time.Since(start))
				return snap, nil
			}
			last = &snap
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return Snapshot{}, ctx.Err()
			}
			if readErr != nil {
				return Snapshot{}, fmt.Errorf("%w within %s: %w", ErrRenderTimeout, timeout, readErr)
			}
			return Snapshot{}, fmt.Errorf("%w within %s", ErrRenderTimeout, timeout)
		case <-time.After(interval):
		}
	}
}

func (w *Walker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func ready(snap Snapshot, prev []RawEntry, needEntries bool) bool {
	if len(snap.Controls) == 0 {
		return false
	}
	if !needEntries {
		return true
	}
	if len(snap.Entries) == 0 {
		return false
	}
	return prev == nil || !sameEntries(prev, snap.Entries)
}

func sameSnapshot(a, b Snapshot) bool {
	return slices.Equal(a.Controls, b.Controls) && sameEntries(a.Entries, b.Entries)
}

func sameEntries(a, b []RawEntry) bool {
	return slices.EqualFunc(a, b, func(x, y RawEntry) bool {
		return sameText(x.Date, y.Date) && sameText(x.Distance, y.Distance) && sameText(x.Duration, y.Duration)
	})
}

func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
