// Package archive keeps a SQLite history of scrapes next to the CSV export.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"velib_runs/internal/runs"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrNotFound = errors.New("scrape not found")

// Scrape is one execution of the scraper and the records it produced.
type Scrape struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Pages      int
	// Complete is false when the walk failed and only part of the
	// history was saved.
	Complete bool
	Records  []runs.Record
}

// Summary describes a stored scrape without its records.
type Summary struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Pages      int
	Complete   bool
	Records    int
}

type Store struct {
	db *sql.DB
}

// Open opens the SQLite database and runs migrations
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set dialect: %w", err)
	}
	goose.SetLogger(goose.NopLogger())

	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a scrape and its records in traversal order.
func (s *Store) Save(ctx context.Context, sc Scrape) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scrapes (id, started_at, finished_at, pages, complete) VALUES (?, ?, ?, ?, ?)`,
		sc.ID.String(), sc.StartedAt.UnixMilli(), sc.FinishedAt.UnixMilli(), sc.Pages, sc.Complete,
	); err != nil {
		return fmt.Errorf("failed to insert scrape: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO runs (scrape_id, position, date, distance_km, duration_s) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare run insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range sc.Records {
		if _, err := stmt.ExecContext(ctx, sc.ID.String(), i, r.Date, r.Distance, r.Duration); err != nil {
			return fmt.Errorf("failed to insert run %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scrape: %w", err)
	}
	return nil
}

// Get loads a scrape with its records.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Scrape, error) {
	sc := Scrape{ID: id}
	var started, finished int64
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, finished_at, pages, complete FROM scrapes WHERE id = ?`, id.String(),
	).Scan(&started, &finished, &sc.Pages, &sc.Complete)
	if errors.Is(err, sql.ErrNoRows) {
		return Scrape{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Scrape{}, fmt.Errorf("failed to load scrape: %w", err)
	}
	sc.StartedAt = time.UnixMilli(started)
	sc.FinishedAt = time.UnixMilli(finished)

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, distance_km, duration_s FROM runs WHERE scrape_id = ? ORDER BY position`, id.String())
	if err != nil {
		return Scrape{}, fmt.Errorf("failed to load runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r runs.Record
		if err := rows.Scan(&r.Date, &r.Distance, &r.Duration); err != nil {
			return Scrape{}, fmt.Errorf("failed to scan run: %w", err)
		}
		sc.Records = append(sc.Records, r)
	}
	if err := rows.Err(); err != nil {
		return Scrape{}, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return sc, nil
}

// List returns every stored scrape, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.started_at, s.finished_at, s.pages, s.complete, COUNT(r.position)
		FROM scrapes s LEFT JOIN runs r ON r.scrape_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrapes: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum               Summary
			id                string
			started, finished int64
		)
		if err := rows.Scan(&id, &started, &finished, &sum.Pages, &sum.Complete, &sum.Records); err != nil {
			return nil, fmt.Errorf("failed to scan scrape: %w", err)
		}
		if sum.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid scrape id %q: %w", id, err)
		}
		sum.StartedAt = time.UnixMilli(started)
		sum.FinishedAt = time.UnixMilli(finished)
		out = append(out, sum)
	}
	return out, rows.Err()
}
