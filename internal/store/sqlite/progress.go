package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/listenupapp/readtrack/internal/domain"
	"github.com/listenupapp/readtrack/internal/store"
)

const progressColumns = `user_id, book_id, last_location, current_page, percent,
	total_time_seconds, completed, last_opened_at, created_at, updated_at`

func scanProgress(scanner interface{ Scan(dest ...any) error }) (*domain.ReadingProgress, error) {
	var (
		p            domain.ReadingProgress
		completed    int
		lastOpenedAt string
		createdAt    string
		updatedAt    string
	)

	err := scanner.Scan(
		&p.UserID,
		&p.BookID,
		&p.LastLocation,
		&p.CurrentPage,
		&p.Percent,
		&p.TotalTimeSeconds,
		&completed,
		&lastOpenedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Completed = completed != 0
	if p.LastOpenedAt, err = parseTime(lastOpenedAt); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProgress retrieves the progress row for a user and book.
func (t *sqlTx) GetProgress(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM reading_progress WHERE user_id = ? AND book_id = ?`,
		userID, bookID)

	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("progress %s/%s: %w", userID, bookID, store.ErrProgressNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting progress %s/%s: %w", userID, bookID, err)
	}
	return p, nil
}

// SaveProgress upserts the progress row. created_at is kept from the first insert.
func (t *sqlTx) SaveProgress(ctx context.Context, p *domain.ReadingProgress) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO reading_progress (`+progressColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, book_id) DO UPDATE SET
			last_location = excluded.last_location,
			current_page = excluded.current_page,
			percent = excluded.percent,
			total_time_seconds = excluded.total_time_seconds,
			completed = excluded.completed,
			last_opened_at = excluded.last_opened_at,
			updated_at = excluded.updated_at`,
		p.UserID,
		p.BookID,
		p.LastLocation,
		p.CurrentPage,
		p.Percent,
		p.TotalTimeSeconds,
		boolToInt(p.Completed),
		formatTime(p.LastOpenedAt),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving progress %s/%s: %w", p.UserID, p.BookID, err)
	}
	return nil
}

// ListUserProgress returns every progress row for a user.
func (t *sqlTx) ListUserProgress(ctx context.Context, userID string) ([]*domain.ReadingProgress, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM reading_progress WHERE user_id = ? ORDER BY book_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing progress for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []*domain.ReadingProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
