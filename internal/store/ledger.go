// Package store keeps a ledger of converted input sets in SQLite so repeated
// conversion jobs can be detected and earlier results looked up.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/wxprofiler-etl/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned by Lookup when no conversion has the digest.
var ErrNotFound = errors.New("conversion not found")

// Entry is one recorded conversion.
type Entry struct {
	RunID       uuid.UUID         `json:"run_id"`
	Digest      string            `json:"digest"`
	Instrument  domain.Instrument `json:"instrument"`
	Times       int               `json:"times"`
	Ranges      int               `json:"ranges"`
	Variables   []string          `json:"variables"`
	Warnings    []string          `json:"warnings"`
	ProcessedAt time.Time         `json:"processed_at"`
	RecordedAt  time.Time         `json:"recorded_at"`
}

// Ledger is a SQLite-backed record of conversions keyed by input digest.
type Ledger struct {
	db    *sql.DB
	clock clockwork.Clock
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the clock used for RecordedAt timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// Open opens (or creates) the ledger database at path and applies pending
// schema migrations.
func Open(path string, opts ...Option) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	l := &Ledger{db: db, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load ledger migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// m is not closed: closing it would close db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Seen reports whether a conversion with the digest has been recorded.
func (l *Ledger) Seen(ctx context.Context, digest string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM conversions WHERE digest = ?`, digest).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return n > 0, nil
}

// Record stores a conversion result. Recording a digest twice keeps the first
// entry and returns it.
func (l *Ledger) Record(ctx context.Context, res domain.ConversionResult) (Entry, error) {
	vars, err := json.Marshal(nonNil(res.Variables))
	if err != nil {
		return Entry{}, fmt.Errorf("encode variables: %w", err)
	}
	warns, err := json.Marshal(nonNil(res.Warnings))
	if err != nil {
		return Entry{}, fmt.Errorf("encode warnings: %w", err)
	}

	runID := uuid.New()
	recordedAt := l.clock.Now().UTC()
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO conversions (
			digest, run_id, instrument, times, ranges,
			variables, warnings, processed_at, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO NOTHING
	`,
		res.Digest,
		runID.String(),
		string(res.Instrument),
		res.Times,
		res.Ranges,
		string(vars),
		string(warns),
		res.ProcessedAt.UTC().Format(time.RFC3339Nano),
		recordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert conversion %s: %w", res.Digest, err)
	}
	return l.Lookup(ctx, res.Digest)
}

// Lookup returns the entry recorded for digest, or ErrNotFound.
func (l *Ledger) Lookup(ctx context.Context, digest string) (Entry, error) {
	var (
		e                   Entry
		runID, instrument   string
		vars, warns         string
		processed, recorded string
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT digest, run_id, instrument, times, ranges,
		       variables, warnings, processed_at, recorded_at
		FROM conversions WHERE digest = ?
	`, digest).Scan(&e.Digest, &runID, &instrument, &e.Times, &e.Ranges, &vars, &warns, &processed, &recorded)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("lookup conversion %s: %w", digest, err)
	}

	if e.RunID, err = uuid.Parse(runID); err != nil {
		return Entry{}, fmt.Errorf("decode run id: %w", err)
	}
	e.Instrument = domain.Instrument(instrument)
	if err := json.Unmarshal([]byte(vars), &e.Variables); err != nil {
		return Entry{}, fmt.Errorf("decode variables: %w", err)
	}
	if err := json.Unmarshal([]byte(warns), &e.Warnings); err != nil {
		return Entry{}, fmt.Errorf("decode warnings: %w", err)
	}
	if e.ProcessedAt, err = time.Parse(time.RFC3339Nano, processed); err != nil {
		return Entry{}, fmt.Errorf("decode processed_at: %w", err)
	}
	if e.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
		return Entry{}, fmt.Errorf("decode recorded_at: %w", err)
	}
	return e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
