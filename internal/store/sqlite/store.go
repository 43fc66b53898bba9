// Package sqlite implements the store interfaces on SQLite (modernc, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/listenupapp/readtrack/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store provides SQLite-backed persistence.
//
// Writes go through a single connection whose transactions begin IMMEDIATE,
// so read-modify-write sequences hold the database write lock from the first
// statement. Reads use a separate pool of deferred transactions.
type Store struct {
	db     *sql.DB
	readDB *sql.DB
	logger *slog.Logger
}

var _ store.Backend = (*Store)(nil)

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer (SQLite limitation).
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	// Run schema migration.
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	readDB, err := sql.Open("sqlite", dsn(path, false))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite reader: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(2)
	readDB.SetConnMaxLifetime(time.Hour)

	if logger != nil {
		logger.Info("SQLite database opened successfully", "path", path)
	}
	return &Store{db: db, readDB: readDB, logger: logger}, nil
}

// dsn applies pragmas per connection, since pooled connections do not share them.
func dsn(path string, writer bool) string {
	q := url.Values{}
	for _, pragma := range []string{
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
		"foreign_keys(ON)",
		"busy_timeout(5000)",
	} {
		q.Add("_pragma", pragma)
	}
	if writer {
		q.Set("_txlock", "immediate")
	}
	return "file:" + path + "?" + q.Encode()
}

// Close closes both connection pools.
func (s *Store) Close() error {
	return errors.Join(s.readDB.Close(), s.db.Close())
}

// Ping checks both connection pools.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	return s.readDB.PingContext(ctx)
}

// Update runs fn in an IMMEDIATE transaction and commits if fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translate(fmt.Errorf("begin tx: %w", err))
	}
	if err := fn(&sqlTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return translate(err)
	}
	if err := tx.Commit(); err != nil {
		return translate(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// View runs fn in a read transaction; its snapshot is fixed at the first read.
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.readDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // read-only
	return fn(&sqlTx{tx: tx})
}

// translate maps lock contention and the open-session index to store.ErrConflict.
func translate(err error) error {
	if err == nil || errors.Is(err, store.ErrConflict) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "SQLITE_BUSY"), strings.Contains(msg, "database is locked"):
		return store.ErrConflict.WithCause(err)
	case isOpenSessionViolation(msg):
		return store.ErrConflict.WithMessage("an open session already exists for this book").WithCause(err)
	}
	return err
}

func isOpenSessionViolation(msg string) bool {
	return strings.Contains(msg, "UNIQUE constraint failed: reading_sessions.user_id, reading_sessions.book_id")
}

// formatTime formats a time.Time for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseNullableTime parses an optional time string.
func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullTimeString returns a sql.NullString from a *time.Time.
func nullTimeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// sqlTx implements store.Tx over one database transaction.
type sqlTx struct {
	tx *sql.Tx
}

var _ store.Tx = (*sqlTx)(nil)
