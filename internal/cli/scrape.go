package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"velib_runs/internal/archive"
	"velib_runs/internal/browser"
	"velib_runs/internal/config"
	"velib_runs/internal/metrics"
	"velib_runs/internal/output"
	"velib_runs/internal/runs"
)

// session is the part of *browser.Session a scrape needs.
type session interface {
	runs.Page
	Login(ctx context.Context, username, password string) error
	OpenListing(ctx context.Context) error
	Close()
}

// newSession is replaced in tests.
var newSession = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session, error) {
	return browser.New(ctx, cfg, logger)
}

// runScrape logs in, walks the listing and writes the outputs.
func runScrape(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	id := uuid.New()
	started := time.Now()
	logger = logger.With("scrape", id)

	if cfg.MetricsFile != "" {
		defer func() {
			if merr := metrics.WriteTextfile(cfg.MetricsFile); merr != nil {
				logger.Warn("failed to write metrics", "path", cfg.MetricsFile, "error", merr)
			}
		}()
	}

	sess, err := newSession(ctx, cfg, logger.With("component", "browser"))
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return err
	}
	if err := sess.OpenListing(ctx); err != nil {
		return err
	}

	pages := 0
	walker := &runs.Walker{
		Page:          sess,
		Logger:        logger.With("component", "walker"),
		RenderTimeout: cfg.RenderTimeout,
		PollInterval:  cfg.PollInterval,
		SkipInvalid:   cfg.SkipInvalid,
		OnPages: func(total int) {
			fmt.Fprintf(stdout, "Will process %d pages\n", total)
		},
		OnPage: func(page, _ int) {
			pages = page
			fmt.Fprintf(stdout, "Got page %d runs\n", page)
		},
	}

	records, walkErr := walker.Walk(ctx)
	if walkErr != nil {
		if !cfg.WritePartial {
			return walkErr
		}
		logger.Warn("walk failed, writing partial results", "records", len(records), "error", walkErr)
	}

	output.RenderTable(stdout, records)

	if err := output.WriteCSV(cfg.Output, records); err != nil {
		return errors.Join(walkErr, err)
	}
	logger.Info("wrote runs", "path", cfg.Output, "records", len(records), "pages", pages)

	if cfg.Archive != "" {
		if err := saveScrape(ctx, cfg.Archive, archive.Scrape{
			ID:         id,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Pages:      pages,
			Complete:   walkErr == nil,
			Records:    records,
		}); err != nil {
			return errors.Join(walkErr, err)
		}
		logger.Debug("scrape archived", "path", cfg.Archive)
	}

	if walkErr != nil {
		return walkErr
	}
	metrics.RecordSuccess(time.Now(), len(records))
	return nil
}

func saveScrape(ctx context.Context, path string, sc archive.Scrape) error {
	store, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(ctx, sc)
}
