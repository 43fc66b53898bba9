package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/listenupapp/readtrack/internal/domain"
	"github.com/listenupapp/readtrack/internal/id"
	"github.com/listenupapp/readtrack/internal/metrics"
	"github.com/listenupapp/readtrack/internal/store"
)

// StartResult is the outcome of StartOrResumeSession.
type StartResult struct {
	Session *domain.ReadingSession
	Resumed bool
}

// SessionManager owns the reading session lifecycle.
type SessionManager struct {
	store   store.ReadingStore
	catalog store.Catalog
	locks   *KeyLocker
	logger  *slog.Logger
	now     func() time.Time
}

// NewSessionManager creates a session manager. locks is shared with the
// ProgressTracker so both serialize on the same (user, book) keys.
func NewSessionManager(rs store.ReadingStore, catalog store.Catalog, locks *KeyLocker, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		store:   rs,
		catalog: catalog,
		locks:   locks,
		logger:  logger,
		now:     time.Now,
	}
}

// StartOrResumeSession returns the open session for (user, book), creating one
// if none exists. Surplus open sessions are closed so exactly one remains.
func (s *SessionManager) StartOrResumeSession(ctx context.Context, userID, bookID string) (*StartResult, error) {
	if _, err := s.catalog.GetPublishedBook(ctx, bookID); err != nil {
		return nil, translateStoreError(err, "start_session")
	}

	unlock := s.locks.Lock(pairKey(userID, bookID))
	defer unlock()

	now := s.now()
	var result domain.TransitionResult

	err := s.store.Update(ctx, func(tx store.Tx) error {
		open, err := tx.ListOpenSessions(ctx, userID, bookID)
		if err != nil {
			return fmt.Errorf("list open sessions: %w", err)
		}

		var current *domain.ReadingSession
		if len(open) > 0 {
			current = open[0]
			for _, extra := range open[1:] {
				s.logger.Warn("closing surplus open session",
					"session_id", extra.ID,
					"user_id", userID,
					"book_id", bookID)
				extra.Close(now)
				if err := tx.UpdateSession(ctx, extra); err != nil {
					return fmt.Errorf("close surplus session: %w", err)
				}
			}
		}

		var newID string
		if current.State() != domain.SessionStateOpen {
			newID, err = id.Generate(id.PrefixSession)
			if err != nil {
				return fmt.Errorf("generate session ID: %w", err)
			}
		}

		result, err = domain.Transition(current, domain.EventStart, userID, bookID, newID, now)
		if err != nil {
			return err
		}
		if result.Created {
			if err := tx.CreateSession(ctx, result.Session); err != nil {
				return fmt.Errorf("create session: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("start session failed",
			"user_id", userID,
			"book_id", bookID,
			"error", err)
		return nil, translateStoreError(err, "start_session")
	}

	outcome := "created"
	if result.Resumed {
		outcome = "resumed"
	}
	metrics.SessionsStarted.WithLabelValues(outcome).Inc()

	s.logger.Debug("reading session started",
		"session_id", result.Session.ID,
		"user_id", userID,
		"book_id", bookID,
		"resumed", result.Resumed)

	return &StartResult{Session: result.Session, Resumed: result.Resumed}, nil
}

// EndSession closes an open session owned by userID. A second call for the
// same session returns NotFound.
func (s *SessionManager) EndSession(ctx context.Context, sessionID, userID string) (*domain.ReadingSession, error) {
	peek, err := s.peekOpenSession(ctx, sessionID, userID)
	if err != nil {
		return nil, translateStoreError(err, "end_session")
	}

	unlock := s.locks.Lock(pairKey(userID, peek.BookID))
	defer unlock()

	var closed *domain.ReadingSession
	err = s.store.Update(ctx, func(tx store.Tx) error {
		session, err := openOwnedSession(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}

		res, err := domain.Transition(session, domain.EventEnd, userID, session.BookID, "", s.now())
		if errors.Is(err, domain.ErrSessionNotOpen) {
			return errSessionNotOpen
		}
		if err != nil {
			return err
		}
		if err := tx.UpdateSession(ctx, res.Session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		closed = res.Session
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err, "end_session")
	}

	metrics.SessionsEnded.Inc()
	metrics.SessionDuration.Observe(float64(closed.DurationSeconds))

	s.logger.Info("reading session ended",
		"session_id", closed.ID,
		"user_id", userID,
		"book_id", closed.BookID,
		"duration_seconds", closed.DurationSeconds,
		"pages_read", closed.PagesRead)

	return closed, nil
}

// RecordHeartbeat reports the persisted and current durations of an open
// session without writing anything.
func (s *SessionManager) RecordHeartbeat(ctx context.Context, sessionID, userID string, now time.Time) (oldDuration, newDuration int64, err error) {
	session, err := s.peekOpenSession(ctx, sessionID, userID)
	if err != nil {
		return 0, 0, translateStoreError(err, "heartbeat")
	}
	return session.DurationSeconds, session.ElapsedSeconds(now), nil
}

func (s *SessionManager) peekOpenSession(ctx context.Context, sessionID, userID string) (*domain.ReadingSession, error) {
	var session *domain.ReadingSession
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		session, err = openOwnedSession(ctx, tx, sessionID, userID)
		return err
	})
	return session, err
}

// openOwnedSession loads a session that is open and owned by userID.
// Anything else is reported as not found.
func openOwnedSession(ctx context.Context, tx store.Tx, sessionID, userID string) (*domain.ReadingSession, error) {
	session, err := tx.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID || !session.IsOpen() {
		return nil, errSessionNotOpen
	}
	return session, nil
}

// heartbeatDelta returns the seconds to attribute to progress and the
// duration to persist. The persisted duration never shrinks.
func heartbeatDelta(session *domain.ReadingSession, now time.Time) (delta, duration int64) {
	old := session.DurationSeconds
	elapsed := session.ElapsedSeconds(now)
	if elapsed <= old {
		return 0, old
	}
	return elapsed - old, elapsed
}
