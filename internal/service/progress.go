package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/listenupapp/readtrack/internal/domain"
	domainerrors "github.com/listenupapp/readtrack/internal/errors"
	"github.com/listenupapp/readtrack/internal/metrics"
	"github.com/listenupapp/readtrack/internal/store"
)

// shelfSize caps each list in a ReadingOverview.
const shelfSize = 10

// HeartbeatResult is the state after one progress update.
type HeartbeatResult struct {
	Session          *domain.ReadingSession  `json:"session"`
	Progress         *domain.ReadingProgress `json:"progress"`
	TimeDeltaSeconds int64                   `json:"time_delta_seconds"`
	PageDelta        int                     `json:"page_delta"`
}

// ProgressTracker applies heartbeats to sessions and progress.
type ProgressTracker struct {
	store   store.ReadingStore
	catalog store.Catalog
	locks   *KeyLocker
	logger  *slog.Logger
	now     func() time.Time
}

// NewProgressTracker creates a progress tracker.
func NewProgressTracker(rs store.ReadingStore, catalog store.Catalog, locks *KeyLocker, logger *slog.Logger) *ProgressTracker {
	return &ProgressTracker{
		store:   rs,
		catalog: catalog,
		locks:   locks,
		logger:  logger,
		now:     time.Now,
	}
}

// ApplyUpdate attributes elapsed time and forward page movement from one
// heartbeat. Time is charged as the difference between the session's current
// and persisted durations, so repeated heartbeats never double count.
func (t *ProgressTracker) ApplyUpdate(ctx context.Context, sessionID, userID string, update domain.ProgressUpdate) (*HeartbeatResult, error) {
	start := time.Now()
	defer func() { metrics.HeartbeatDuration.Observe(time.Since(start).Seconds()) }()

	if err := validateUpdate(update); err != nil {
		metrics.Heartbeats.WithLabelValues("rejected").Inc()
		return nil, err
	}

	result, err := t.applyUpdate(ctx, sessionID, userID, update)
	if err != nil {
		metrics.Heartbeats.WithLabelValues("error").Inc()
		return nil, translateStoreError(err, "heartbeat")
	}
	metrics.Heartbeats.WithLabelValues("ok").Inc()
	return result, nil
}

func (t *ProgressTracker) applyUpdate(ctx context.Context, sessionID, userID string, update domain.ProgressUpdate) (*HeartbeatResult, error) {
	var peek *domain.ReadingSession
	if err := t.store.View(ctx, func(tx store.Tx) error {
		var err error
		peek, err = openOwnedSession(ctx, tx, sessionID, userID)
		return err
	}); err != nil {
		return nil, err
	}

	book, err := t.catalog.GetPublishedBook(ctx, peek.BookID)
	if err != nil {
		return nil, err
	}

	unlock := t.locks.Lock(pairKey(userID, peek.BookID))
	defer unlock()

	now := t.now()
	result := &HeartbeatResult{}
	var completedNow bool

	err = t.store.Update(ctx, func(tx store.Tx) error {
		// 1. The session must still be open once the lock is held.
		session, err := openOwnedSession(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}

		// 2. Charge only the time since the last persisted duration.
		timeDelta, duration := heartbeatDelta(session, now)
		session.DurationSeconds = duration

		// 3.
		progress, err := loadOrCreateProgress(ctx, tx, userID, session.BookID, now)
		if err != nil {
			return err
		}
		wasComplete := progress.Completed

		// 4. Backward navigation earns no pages.
		pageDelta := 0
		if update.CurrentPage != nil {
			pageDelta = max(0, *update.CurrentPage-progress.CurrentPage)
			session.PagesRead += pageDelta
		}
		session.UpdatedAt = now
		if err := tx.UpdateSession(ctx, session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}

		// 5. Time accrues even when the position did not move.
		if timeDelta > 0 {
			progress.TotalTimeSeconds += timeDelta
		}

		// 6. A known page count wins over a supplied percent.
		percent := progress.Percent
		if update.CurrentPage != nil && book.HasPageCount() {
			percent, _ = domain.PercentFromPage(*update.CurrentPage, book.PageCount)
		} else if update.Percent != nil {
			percent = *update.Percent
		}

		// 7.
		if update.CurrentPage != nil {
			progress.CurrentPage = *update.CurrentPage
		}
		if update.Location != nil {
			progress.LastLocation = *update.Location
		}
		progress.LastOpenedAt = now
		progress.UpdatedAt = now

		// 8.
		progress.SetPercent(percent)

		// 9.
		if err := tx.SaveProgress(ctx, progress); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}

		completedNow = progress.Completed && !wasComplete
		result.Session = session
		result.Progress = progress
		result.TimeDeltaSeconds = timeDelta
		result.PageDelta = pageDelta
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completedNow {
		metrics.BooksCompleted.Inc()
		t.logger.Info("book completed",
			"user_id", userID,
			"book_id", result.Progress.BookID,
			"percent", result.Progress.Percent)
	}

	t.logger.Debug("heartbeat applied",
		"session_id", sessionID,
		"user_id", userID,
		"book_id", result.Progress.BookID,
		"time_delta_seconds", result.TimeDeltaSeconds,
		"page_delta", result.PageDelta)

	return result, nil
}

func validateUpdate(update domain.ProgressUpdate) error {
	if update.CurrentPage != nil && *update.CurrentPage < 0 {
		return domainerrors.InvalidInput("current_page must not be negative")
	}
	if update.Percent != nil && (math.IsNaN(*update.Percent) || math.IsInf(*update.Percent, 0)) {
		return domainerrors.InvalidInput("percent must be a finite number")
	}
	return nil
}

func loadOrCreateProgress(ctx context.Context, tx store.Tx, userID, bookID string, now time.Time) (*domain.ReadingProgress, error) {
	progress, err := tx.GetProgress(ctx, userID, bookID)
	if errors.Is(err, store.ErrProgressNotFound) {
		return domain.NewReadingProgress(userID, bookID, now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return progress, nil
}

// GetProgress returns the progress for (user, book), creating the zero record
// on first access.
func (t *ProgressTracker) GetProgress(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error) {
	if _, err := t.catalog.GetPublishedBook(ctx, bookID); err != nil {
		return nil, translateStoreError(err, "get_progress")
	}

	unlock := t.locks.Lock(pairKey(userID, bookID))
	defer unlock()

	var progress *domain.ReadingProgress
	err := t.store.Update(ctx, func(tx store.Tx) error {
		existing, err := tx.GetProgress(ctx, userID, bookID)
		if err == nil {
			progress = existing
			return nil
		}
		if !errors.Is(err, store.ErrProgressNotFound) {
			return fmt.Errorf("get progress: %w", err)
		}
		progress = domain.NewReadingProgress(userID, bookID, t.now())
		return tx.SaveProgress(ctx, progress)
	})
	if err != nil {
		return nil, translateStoreError(err, "get_progress")
	}
	return progress, nil
}

// ListProgress returns the continue-reading and completed shelves.
func (t *ProgressTracker) ListProgress(ctx context.Context, userID string) (*domain.ReadingOverview, error) {
	var all []*domain.ReadingProgress
	err := t.store.View(ctx, func(tx store.Tx) error {
		var err error
		all, err = tx.ListUserProgress(ctx, userID)
		return err
	})
	if err != nil {
		return nil, translateStoreError(err, "list_progress")
	}

	overview := &domain.ReadingOverview{
		InProgress: []*domain.ReadingProgress{},
		Completed:  []*domain.ReadingProgress{},
	}
	for _, p := range all {
		if p.Completed {
			overview.Completed = append(overview.Completed, p)
		} else {
			overview.InProgress = append(overview.InProgress, p)
		}
	}

	slices.SortFunc(overview.InProgress, func(a, b *domain.ReadingProgress) int {
		return cmp.Or(b.LastOpenedAt.Compare(a.LastOpenedAt), cmp.Compare(a.BookID, b.BookID))
	})
	slices.SortFunc(overview.Completed, func(a, b *domain.ReadingProgress) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(a.BookID, b.BookID))
	})
	overview.InProgress = overview.InProgress[:min(len(overview.InProgress), shelfSize)]
	overview.Completed = overview.Completed[:min(len(overview.Completed), shelfSize)]

	return overview, nil
}
