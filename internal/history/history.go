// history persists a record of every batch annotation job into a small
// sqlite database next to the workspace, so reductions and auto-annotation
// runs stay auditable after the fact.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Entry is one recorded job.
type Entry struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Mode          string
	Total         int
	Processed     int
	Added         int
	SkippedDupes  int
	SkippedImages int
	Cancelled     bool
}

// DB wraps the job history database.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database and brings its
// schema up to date.
func Open(filename string) (*DB, error) {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("while opening history database %s: %w", filename, err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("while loading embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("while preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("while preparing migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("while migrating history database: %w", err)
	}
	return nil
}

func (h *DB) Close() error {
	return h.db.Close()
}

// Record stores a finished job. The returned ID identifies the row.
// Times are stored as integer unix seconds.
func (h *DB) Record(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	log.Printf("History: recording %s job %s", e.Mode, e.ID)
	_, err := h.db.ExecContext(ctx, `
insert into jobs (id, started_at, finished_at, mode, total, processed, added, skipped_dupes, skipped_images, cancelled)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.StartedAt.Unix(), e.FinishedAt.Unix(), e.Mode,
		e.Total, e.Processed, e.Added, e.SkippedDupes, e.SkippedImages, boolToInt(e.Cancelled))
	if err != nil {
		return "", fmt.Errorf("while recording job %s: %w", e.ID, err)
	}
	return e.ID, nil
}

// List returns the most recent jobs, newest first.
func (h *DB) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := h.db.QueryContext(ctx, `
select id, started_at, finished_at, mode, total, processed, added, skipped_dupes, skipped_images, cancelled
from jobs order by started_at desc, id limit ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("while listing jobs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var started, finished int64
		var cancelled int
		err := rows.Scan(&e.ID, &started, &finished, &e.Mode,
			&e.Total, &e.Processed, &e.Added, &e.SkippedDupes, &e.SkippedImages, &cancelled)
		if err != nil {
			return nil, fmt.Errorf("while scanning job row: %w", err)
		}
		e.StartedAt = time.Unix(started, 0)
		e.FinishedAt = time.Unix(finished, 0)
		e.Cancelled = cancelled != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
