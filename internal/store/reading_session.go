package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/listenupapp/readtrack/internal/domain"
)

// initSessions indexes sessions by user_book (open-session lookup) and user (history).
// Index keys include the session ID so one (user, book) can hold many sessions.
func (s *Store) initSessions() {
	s.sessions = NewEntity[domain.ReadingSession](sessionPrefix).
		WithIndex("user_book", func(session *domain.ReadingSession) []string {
			return []string{pairKey(session.UserID, session.BookID) + session.ID}
		}).
		WithIndex("user", func(session *domain.ReadingSession) []string {
			return []string{idPart(session.UserID) + session.ID}
		})
}

// GetSession retrieves a reading session by ID.
func (t *badgerTx) GetSession(ctx context.Context, id string) (*domain.ReadingSession, error) {
	session, err := t.store.sessions.Get(ctx, t.txn, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return session, nil
}

// ListOpenSessions scans the user_book index for unfinished sessions.
// The open pointer is read as well so that two transactions racing to fill
// the same empty slot conflict at commit.
func (t *badgerTx) ListOpenSessions(ctx context.Context, userID, bookID string) ([]*domain.ReadingSession, error) {
	if _, err := t.txn.Get(openKey(userID, bookID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("reading open pointer: %w", err)
	}

	all, err := t.store.sessions.ScanIndex(ctx, t.txn, "user_book", pairKey(userID, bookID))
	if err != nil {
		return nil, fmt.Errorf("finding sessions for user %s book %s: %w", userID, bookID, err)
	}

	open := slices.DeleteFunc(all, func(s *domain.ReadingSession) bool { return !s.IsOpen() })
	if len(open) > 1 && t.store.logger != nil {
		t.store.logger.Warn("multiple open sessions found for user+book",
			"user_id", userID,
			"book_id", bookID,
			"count", len(open))
	}
	slices.SortFunc(open, func(a, b *domain.ReadingSession) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return open, nil
}

// CreateSession stores a new open session and claims the (user, book) open pointer.
func (t *badgerTx) CreateSession(ctx context.Context, session *domain.ReadingSession) error {
	ptr := openKey(session.UserID, session.BookID)
	if session.IsOpen() {
		holder, err := t.openHolder(ctx, ptr)
		if err != nil {
			return err
		}
		if holder.IsOpen() {
			return ErrConflict.WithMessage("an open session already exists for this book")
		}
	}

	if err := t.store.sessions.Create(ctx, t.txn, session.ID, session); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return fmt.Errorf("session %s: %w", session.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("creating session %s: %w", session.ID, err)
	}

	if session.IsOpen() {
		if err := t.txn.Set(ptr, []byte(session.ID)); err != nil {
			return fmt.Errorf("setting open pointer: %w", err)
		}
	}
	return nil
}

// openHolder returns the session named by the open pointer, or nil when the
// pointer is unset or dangling.
func (t *badgerTx) openHolder(ctx context.Context, ptr []byte) (*domain.ReadingSession, error) {
	item, err := t.txn.Get(ptr)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading open pointer: %w", err)
	}
	id, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	holder, err := t.store.sessions.Get(ctx, t.txn, string(id))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return holder, err
}

// UpdateSession overwrites a session and keeps the open pointer in step with it.
func (t *badgerTx) UpdateSession(ctx context.Context, session *domain.ReadingSession) error {
	existing, err := t.GetSession(ctx, session.ID)
	if err != nil {
		return err
	}
	if existing.UserID != session.UserID || existing.BookID != session.BookID {
		return fmt.Errorf("session %s owned by %s/%s: %w", session.ID, existing.UserID, existing.BookID, ErrSessionNotFound)
	}

	if err := t.store.sessions.Put(ctx, t.txn, session.ID, session); err != nil {
		return fmt.Errorf("updating session %s: %w", session.ID, err)
	}

	ptr := openKey(session.UserID, session.BookID)
	if session.IsOpen() {
		return t.txn.Set(ptr, []byte(session.ID))
	}

	holder, err := t.openHolder(ctx, ptr)
	if err != nil {
		return err
	}
	if holder == nil || holder.ID == session.ID {
		return t.txn.Delete(ptr)
	}
	return nil
}

// ListUserSessions returns sessions started at or after since, oldest first.
func (t *badgerTx) ListUserSessions(ctx context.Context, userID string, since time.Time) ([]*domain.ReadingSession, error) {
	sessions, err := t.store.sessions.ScanIndex(ctx, t.txn, "user", idPart(userID))
	if err != nil {
		return nil, fmt.Errorf("finding sessions for user %s: %w", userID, err)
	}

	if !since.IsZero() {
		sessions = slices.DeleteFunc(sessions, func(s *domain.ReadingSession) bool {
			return s.StartedAt.Before(since)
		})
	}
	slices.SortFunc(sessions, func(a, b *domain.ReadingSession) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return sessions, nil
}
