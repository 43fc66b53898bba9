// Package store defines the persistence interfaces for reading activity and
// implements them on Badger.
package store

import (
	"context"
	"time"

	"github.com/listenupapp/readtrack/internal/domain"
)

// SessionStore persists reading sessions.
type SessionStore interface {
	// GetSession returns ErrSessionNotFound when id is unknown.
	GetSession(ctx context.Context, id string) (*domain.ReadingSession, error)
	// ListOpenSessions returns every open session for (userID, bookID), newest start first.
	ListOpenSessions(ctx context.Context, userID, bookID string) ([]*domain.ReadingSession, error)
	// CreateSession stores a new open session. Returns ErrConflict if another
	// open session already holds the (user, book) slot.
	CreateSession(ctx context.Context, session *domain.ReadingSession) error
	// UpdateSession overwrites an existing session. Returns ErrSessionNotFound when absent.
	UpdateSession(ctx context.Context, session *domain.ReadingSession) error
	// ListUserSessions returns a user's sessions with StartedAt >= since,
	// ordered by StartedAt ascending. A zero since returns all sessions.
	ListUserSessions(ctx context.Context, userID string, since time.Time) ([]*domain.ReadingSession, error)
}

// ProgressStore persists one ReadingProgress per (user, book).
type ProgressStore interface {
	// GetProgress returns ErrProgressNotFound when no record exists yet.
	GetProgress(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error)
	// SaveProgress inserts or replaces the record.
	SaveProgress(ctx context.Context, progress *domain.ReadingProgress) error
	// ListUserProgress returns every progress record for a user.
	ListUserProgress(ctx context.Context, userID string) ([]*domain.ReadingProgress, error)
}

// Tx is a transaction scope over sessions and progress.
type Tx interface {
	SessionStore
	ProgressStore
}

// ReadingStore runs functions inside transactions.
//
// Update commits when fn returns nil and translates backend write conflicts
// to ErrConflict. View runs fn against a consistent read-only snapshot.
type ReadingStore interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Catalog is the book lookup collaborator.
type Catalog interface {
	// GetPublishedBook returns ErrBookNotFound when the book is missing or unpublished.
	GetPublishedBook(ctx context.Context, id string) (*domain.Book, error)
	// GetBooks returns the books that exist among ids, keyed by ID.
	GetBooks(ctx context.Context, ids []string) (map[string]*domain.Book, error)
	// GetCategories returns the categories that exist among ids, keyed by ID.
	GetCategories(ctx context.Context, ids []string) (map[string]*domain.Category, error)
	SaveBook(ctx context.Context, book *domain.Book) error
	SaveCategory(ctx context.Context, category *domain.Category) error
}

// Backend is a complete persistence implementation.
type Backend interface {
	ReadingStore
	Catalog
	Ping(ctx context.Context) error
	Close() error
}
