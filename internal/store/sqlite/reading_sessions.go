package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/listenupapp/readtrack/internal/domain"
	"github.com/listenupapp/readtrack/internal/store"
)

// readingSessionColumns is the ordered list of columns selected in reading session queries.
// Must match the scan order in scanReadingSession.
const readingSessionColumns = `id, user_id, book_id, started_at, ended_at,
	duration_seconds, pages_read, created_at, updated_at`

// scanReadingSession scans a sql.Row (or sql.Rows via its Scan method) into a domain.ReadingSession.
func scanReadingSession(scanner interface{ Scan(dest ...any) error }) (*domain.ReadingSession, error) {
	var rs domain.ReadingSession

	var (
		startedAt string
		endedAt   sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&rs.ID,
		&rs.UserID,
		&rs.BookID,
		&startedAt,
		&endedAt,
		&rs.DurationSeconds,
		&rs.PagesRead,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rs.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if rs.EndedAt, err = parseNullableTime(endedAt); err != nil {
		return nil, err
	}
	if rs.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rs.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (t *sqlTx) querySessions(ctx context.Context, query string, args ...any) ([]*domain.ReadingSession, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.ReadingSession
	for rows.Next() {
		rs, err := scanReadingSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession retrieves a single reading session by ID.
func (t *sqlTx) GetSession(ctx context.Context, id string) (*domain.ReadingSession, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+readingSessionColumns+` FROM reading_sessions WHERE id = ?`, id)

	rs, err := scanReadingSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, store.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return rs, nil
}

// ListOpenSessions returns unfinished sessions for a user and book, most recent first.
func (t *sqlTx) ListOpenSessions(ctx context.Context, userID, bookID string) ([]*domain.ReadingSession, error) {
	sessions, err := t.querySessions(ctx,
		`SELECT `+readingSessionColumns+` FROM reading_sessions
		WHERE user_id = ? AND book_id = ? AND ended_at IS NULL
		ORDER BY started_at DESC`,
		userID, bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding open sessions for user %s book %s: %w", userID, bookID, err)
	}
	return sessions, nil
}

// CreateSession inserts a new reading session.
// The partial unique index rejects a second open session for the same slot.
func (t *sqlTx) CreateSession(ctx context.Context, session *domain.ReadingSession) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO reading_sessions (
			id, user_id, book_id, started_at, ended_at,
			duration_seconds, pages_read, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.BookID,
		formatTime(session.StartedAt),
		nullTimeString(session.EndedAt),
		session.DurationSeconds,
		session.PagesRead,
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		msg := err.Error()
		switch {
		case isOpenSessionViolation(msg):
			return store.ErrConflict.WithMessage("an open session already exists for this book").WithCause(err)
		case strings.Contains(msg, "UNIQUE constraint failed"):
			return fmt.Errorf("session %s: %w", session.ID, store.ErrAlreadyExists)
		}
		return fmt.Errorf("creating session %s: %w", session.ID, err)
	}
	return nil
}

// UpdateSession performs a full row update of the mutable session fields.
func (t *sqlTx) UpdateSession(ctx context.Context, session *domain.ReadingSession) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE reading_sessions SET
			ended_at = ?,
			duration_seconds = ?,
			pages_read = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ? AND book_id = ?`,
		nullTimeString(session.EndedAt),
		session.DurationSeconds,
		session.PagesRead,
		formatTime(session.UpdatedAt),
		session.ID,
		session.UserID,
		session.BookID,
	)
	if err != nil {
		return fmt.Errorf("updating session %s: %w", session.ID, translate(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", session.ID, store.ErrSessionNotFound)
	}
	return nil
}

// ListUserSessions returns a user's sessions started at or after since, oldest first.
func (t *sqlTx) ListUserSessions(ctx context.Context, userID string, since time.Time) ([]*domain.ReadingSession, error) {
	query := `SELECT ` + readingSessionColumns + ` FROM reading_sessions WHERE user_id = ?`
	args := []any{userID}
	if !since.IsZero() {
		query += ` AND started_at >= ?`
		args = append(args, formatTime(since))
	}
	query += ` ORDER BY started_at ASC`

	sessions, err := t.querySessions(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding sessions for user %s: %w", userID, err)
	}
	return sessions, nil
}
