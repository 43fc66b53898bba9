package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/listenupapp/readtrack/internal/domain"
	"github.com/listenupapp/readtrack/internal/store"
)

const (
	// DefaultAnnualGoal is the yearly book target when none is configured.
	DefaultAnnualGoal  = 12
	favoriteCategories = 5
)

// StatsService computes lifetime reading statistics.
type StatsService struct {
	store      store.ReadingStore
	catalog    store.Catalog
	analytics  *Analytics
	annualGoal int
	loc        *time.Location
	logger     *slog.Logger
	now        func() time.Time
}

// NewStatsService creates a stats service. Category affinity is shared with
// the dashboard through analytics.
func NewStatsService(rs store.ReadingStore, catalog store.Catalog, analytics *Analytics, annualGoal int, loc *time.Location, logger *slog.Logger) *StatsService {
	if annualGoal <= 0 {
		annualGoal = DefaultAnnualGoal
	}
	if loc == nil {
		loc = time.Local
	}
	return &StatsService{
		store:      rs,
		catalog:    catalog,
		analytics:  analytics,
		annualGoal: annualGoal,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

// GetReadingStats returns totals, streaks and goal progress for userID.
func (s *StatsService) GetReadingStats(ctx context.Context, userID string) (*domain.ReadingStats, error) {
	var (
		sessions []*domain.ReadingSession
		progress []*domain.ReadingProgress
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.View(gctx, func(tx store.Tx) error {
			var err error
			sessions, err = tx.ListUserSessions(gctx, userID, time.Time{})
			return err
		})
	})
	g.Go(func() error {
		return s.store.View(gctx, func(tx store.Tx) error {
			var err error
			progress, err = tx.ListUserProgress(gctx, userID)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, translateStoreError(err, "reading_stats")
	}

	now := s.now().In(s.loc)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, s.loc)
	monthStart := now.AddDate(0, 0, -30)

	stats := &domain.ReadingStats{
		ReadingGoal:        s.annualGoal,
		FavoriteCategories: []domain.CategoryCount{},
	}

	var completedIDs []string
	for _, p := range progress {
		stats.TotalTimeSeconds += p.TotalTimeSeconds
		recent := !p.UpdatedAt.Before(monthStart)
		if recent {
			stats.TimeThisMonthSeconds += p.TotalTimeSeconds
		}
		if !p.Completed {
			continue
		}
		stats.TotalBooksRead++
		completedIDs = append(completedIDs, p.BookID)
		if !p.UpdatedAt.Before(yearStart) {
			stats.BooksReadThisYear++
		}
		if recent {
			stats.BooksReadThisMonth++
		}
	}

	if len(completedIDs) > 0 {
		books, err := s.catalog.GetBooks(ctx, completedIDs)
		if err != nil {
			return nil, translateStoreError(fmt.Errorf("load books: %w", err), "reading_stats")
		}
		for _, b := range books {
			stats.TotalPagesRead += b.PageCount
		}
	}

	affinity, err := s.analytics.categoryAffinity(ctx, progress)
	if err != nil {
		return nil, translateStoreError(err, "reading_stats")
	}
	stats.FavoriteCategories = affinity[:min(len(affinity), favoriteCategories)]
	if len(stats.FavoriteCategories) > 0 {
		stats.FavoriteCategory = stats.FavoriteCategories[0].Name
	}

	startedAt := make([]time.Time, len(sessions))
	for i, sess := range sessions {
		startedAt[i] = sess.StartedAt
	}
	dates := LocalDates(startedAt, s.loc)
	stats.CurrentStreak = CurrentStreak(dates, now)
	stats.LongestStreak = LongestStreak(dates)

	stats.ReadingGoalProgress = min(float64(stats.BooksReadThisYear)/float64(s.annualGoal)*100, 100)

	s.logger.Debug("reading stats computed",
		"user_id", userID,
		"books_read", stats.TotalBooksRead,
		"current_streak", stats.CurrentStreak)

	return stats, nil
}
