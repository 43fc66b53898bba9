package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/listenupapp/readtrack/internal/domain"
	domainerrors "github.com/listenupapp/readtrack/internal/errors"
	"github.com/listenupapp/readtrack/internal/metrics"
	"github.com/listenupapp/readtrack/internal/store"
)

const (
	topTermsLimit = 10
	weeklyDays    = 7
)

// Analytics builds period-scoped dashboards from sessions, progress and the
// search-event feed.
type Analytics struct {
	store   store.ReadingStore
	catalog store.Catalog
	feed    SearchEventReader
	loc     *time.Location
	logger  *slog.Logger
	now     func() time.Time
}

// NewAnalytics creates the aggregator. loc defines local calendar days.
func NewAnalytics(rs store.ReadingStore, catalog store.Catalog, feed SearchEventReader, loc *time.Location, logger *slog.Logger) *Analytics {
	if loc == nil {
		loc = time.Local
	}
	return &Analytics{
		store:   rs,
		catalog: catalog,
		feed:    feed,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// GetDashboard assembles the dashboard for period. Any failing section
// replaces the whole result with ZeroDashboard; no error is returned.
func (a *Analytics) GetDashboard(ctx context.Context, userID string, period domain.Period) *domain.Dashboard {
	if !period.Valid() {
		period = domain.DefaultPeriod
	}
	started := time.Now()
	defer func() {
		metrics.DashboardDuration.WithLabelValues(string(period)).Observe(time.Since(started).Seconds())
	}()

	now := a.now().In(a.loc)
	start := period.Start(now, a.loc)

	dash, err := a.buildDashboard(ctx, userID, period, start, now)
	if err != nil {
		a.logger.Warn("dashboard degraded",
			"user_id", userID,
			"period", string(period),
			"error", err)
		metrics.DashboardDegraded.WithLabelValues(string(period)).Inc()
		zero := ZeroDashboard(period, start, now, a.loc)
		zero.Degraded = true
		return zero
	}
	return dash
}

func (a *Analytics) buildDashboard(ctx context.Context, userID string, period domain.Period, start, now time.Time) (*domain.Dashboard, error) {
	dash := ZeroDashboard(period, start, now, a.loc)

	var (
		sessions []*domain.ReadingSession
		progress []*domain.ReadingProgress
		events   []domain.SearchEvent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.store.View(gctx, func(tx store.Tx) error {
			var err error
			sessions, err = tx.ListUserSessions(gctx, userID, time.Time{})
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			return nil
		})
	})
	g.Go(func() error {
		return a.store.View(gctx, func(tx store.Tx) error {
			var err error
			progress, err = tx.ListUserProgress(gctx, userID)
			if err != nil {
				return fmt.Errorf("list progress: %w", err)
			}
			return nil
		})
	})
	g.Go(func() error {
		var err error
		events, err = a.feed.Range(gctx, start, now, userID)
		if err != nil {
			return fmt.Errorf("read search events: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	affinity, err := a.categoryAffinity(ctx, progress)
	if err != nil {
		return nil, err
	}

	a.fillSessionSections(dash, sessions, start, now)
	dash.CategoryAffinity = affinity
	dash.Completion = completionStats(progress, affinity)
	dash.TopSearchTerms = TopTerms(events, topTermsLimit)
	return dash, nil
}

// fillSessionSections computes the time series, streaks and totals.
// Seconds are summed per bucket and truncated to minutes once, so short
// sessions still add up.
func (a *Analytics) fillSessionSections(dash *domain.Dashboard, sessions []*domain.ReadingSession, start, now time.Time) {
	daily := indexDays(dash.DailyDistribution)
	weekly := indexDays(dash.WeeklyDistribution)
	pages := make(map[string]int, len(dash.PagesDailyActivity))
	for i, b := range dash.PagesDailyActivity {
		pages[b.Date] = i
	}

	var hourlySecs [24]int64
	var totalSecs int64
	dailySecs := make([]int64, len(dash.DailyDistribution))
	weeklySecs := make([]int64, len(dash.WeeklyDistribution))

	startedAt := make([]time.Time, 0, len(sessions))
	for _, s := range sessions {
		startedAt = append(startedAt, s.StartedAt)

		local := s.StartedAt.In(a.loc)
		key := local.Format(dateLayout)

		if i, ok := weekly[key]; ok {
			weeklySecs[i] += s.DurationSeconds
		}
		if s.StartedAt.Before(start) || s.StartedAt.After(now) {
			continue
		}

		hourlySecs[local.Hour()] += s.DurationSeconds
		if i, ok := daily[key]; ok {
			dailySecs[i] += s.DurationSeconds
		}
		if i, ok := pages[key]; ok {
			dash.PagesDailyActivity[i].Pages += s.PagesRead
		}
		totalSecs += s.DurationSeconds
		dash.TotalPagesRead += s.PagesRead
		dash.SessionCount++
	}

	for h, secs := range hourlySecs {
		dash.HourlyDistribution[h].Minutes = toMinutes(secs)
	}
	for i, secs := range dailySecs {
		dash.DailyDistribution[i].Minutes = toMinutes(secs)
	}
	for i, secs := range weeklySecs {
		dash.WeeklyDistribution[i].Minutes = toMinutes(secs)
	}
	dash.TotalMinutes = toMinutes(totalSecs)
	if dash.SessionCount > 0 {
		dash.AverageSessionMinutes = toMinutes(totalSecs / int64(dash.SessionCount))
	}

	dates := LocalDates(startedAt, a.loc)
	dash.CurrentStreak = CurrentStreak(dates, now)
	dash.LongestStreak = LongestStreak(dates)
	dash.StreakHistory = StreakHistory(dates, now, streakHistoryDays)
}

// categoryAffinity counts one hit per category of every completed book,
// sorted by count descending then name.
func (a *Analytics) categoryAffinity(ctx context.Context, progress []*domain.ReadingProgress) ([]domain.CategoryCount, error) {
	var bookIDs []string
	for _, p := range progress {
		if p.Completed {
			bookIDs = append(bookIDs, p.BookID)
		}
	}
	if len(bookIDs) == 0 {
		return []domain.CategoryCount{}, nil
	}

	books, err := a.catalog.GetBooks(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}

	counts := make(map[string]int)
	var categoryIDs []string
	for _, bookID := range bookIDs {
		book, ok := books[bookID]
		if !ok {
			continue
		}
		seen := make(map[string]struct{}, len(book.CategoryIDs))
		for _, c := range book.CategoryIDs {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			if counts[c] == 0 {
				categoryIDs = append(categoryIDs, c)
			}
			counts[c]++
		}
	}
	if len(categoryIDs) == 0 {
		return []domain.CategoryCount{}, nil
	}

	categories, err := a.catalog.GetCategories(ctx, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	affinity := make([]domain.CategoryCount, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		category, ok := categories[id]
		if !ok {
			continue
		}
		affinity = append(affinity, domain.CategoryCount{CategoryID: id, Name: category.Name, Count: counts[id]})
	}
	slices.SortFunc(affinity, func(x, y domain.CategoryCount) int {
		return cmp.Or(cmp.Compare(y.Count, x.Count), cmp.Compare(x.Name, y.Name))
	})
	return affinity, nil
}

func completionStats(progress []*domain.ReadingProgress, byCategory []domain.CategoryCount) domain.CompletionStats {
	stats := domain.CompletionStats{Total: len(progress), ByCategory: byCategory}
	for _, p := range progress {
		if p.Completed {
			stats.Completed++
		}
	}
	if stats.Total > 0 {
		stats.Rate = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	return stats
}

// TopTerms lower-cases and counts queries, returning at most limit terms by
// count descending. Ties keep first-seen order, so events must be oldest first.
func TopTerms(events []domain.SearchEvent, limit int) []domain.TermCount {
	lower := cases.Lower(language.Und)

	counts := make(map[string]int)
	var order []string
	for _, e := range events {
		term := lower.String(strings.TrimSpace(e.Query))
		if term == "" {
			continue
		}
		if counts[term] == 0 {
			order = append(order, term)
		}
		counts[term]++
	}

	terms := make([]domain.TermCount, 0, len(order))
	for _, term := range order {
		terms = append(terms, domain.TermCount{Term: term, Count: counts[term]})
	}
	slices.SortStableFunc(terms, func(x, y domain.TermCount) int {
		return cmp.Compare(y.Count, x.Count)
	})
	return terms[:min(len(terms), limit)]
}

// GlobalTopSearchTerms returns the most frequent queries across all users.
// Unlike the dashboard it reports feed failures.
func (a *Analytics) GlobalTopSearchTerms(ctx context.Context, period domain.Period) ([]domain.TermCount, error) {
	if !period.Valid() {
		period = domain.DefaultPeriod
	}
	now := a.now().In(a.loc)
	events, err := a.feed.Range(ctx, period.Start(now, a.loc), now, "")
	if err != nil {
		a.logger.Warn("search feed unavailable",
			"period", string(period),
			"error", err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "search events unavailable")
	}
	return TopTerms(events, topTermsLimit), nil
}

// ZeroDashboard returns an empty dashboard whose series have the same
// lengths a populated one would: 24 hours, one entry per day in
// [start, now], the last 7 days and the streak strip.
func ZeroDashboard(period domain.Period, start, now time.Time, loc *time.Location) *domain.Dashboard {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	hourly := make([]domain.HourlyBucket, 24)
	for h := range hourly {
		hourly[h] = domain.HourlyBucket{Hour: h}
	}

	days := denseDays(domain.StartOfDay(start, loc), domain.StartOfDay(now, loc))
	daily := make([]domain.DailyBucket, len(days))
	pages := make([]domain.PagesBucket, len(days))
	for i, d := range days {
		daily[i] = dailyBucket(d)
		pages[i] = domain.PagesBucket{Date: d.Format(dateLayout)}
	}

	today := domain.StartOfDay(now, loc)
	weekly := make([]domain.DailyBucket, weeklyDays)
	for i := range weekly {
		weekly[i] = dailyBucket(today.AddDate(0, 0, i-weeklyDays+1))
	}

	return &domain.Dashboard{
		Period:             period,
		StartDate:          start,
		EndDate:            now,
		HourlyDistribution: hourly,
		DailyDistribution:  daily,
		WeeklyDistribution: weekly,
		PagesDailyActivity: pages,
		CategoryAffinity:   []domain.CategoryCount{},
		TopSearchTerms:     []domain.TermCount{},
		Completion:         domain.CompletionStats{ByCategory: []domain.CategoryCount{}},
		StreakHistory:      StreakHistory(nil, now, streakHistoryDays),
	}
}

// denseDays lists every local midnight from first to last inclusive.
func denseDays(first, last time.Time) []time.Time {
	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func dailyBucket(day time.Time) domain.DailyBucket {
	full := day.Weekday().String()
	return domain.DailyBucket{
		Date:        day.Format(dateLayout),
		DayName:     full[:3],
		FullDayName: full,
	}
}

func toMinutes(seconds int64) int {
	return int(seconds / 60)
}

func indexDays(buckets []domain.DailyBucket) map[string]int {
	idx := make(map[string]int, len(buckets))
	for i, b := range buckets {
		idx[b.Date] = i
	}
	return idx
}
