package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readtrack/internal/domain"
)

func completed(userID, bookID string, at time.Time, seconds int64) *domain.ReadingProgress {
	p := domain.NewReadingProgress(userID, bookID, at)
	p.SetPercent(100)
	p.TotalTimeSeconds = seconds
	return p
}

func TestGetReadingStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	env.seedCategory(t, "cat-sf", "Science Fiction")
	env.seedCategory(t, "cat-hist", "History")
	env.seedBook(t, "b1", 300, true, "cat-sf")
	env.seedBook(t, "b2", 200, true, "cat-sf", "cat-hist")
	env.seedBook(t, "b3", 100, true, "cat-hist")
	env.seedBook(t, "b4", 400, true)

	env.seedProgress(t, completed("user-1", "b1", now.AddDate(0, 0, -2), 3600))
	env.seedProgress(t, completed("user-1", "b2", now.AddDate(0, -2, 0), 1800))
	env.seedProgress(t, completed("user-1", "b3", time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), 600))
	reading := domain.NewReadingProgress("user-1", "b4", now.AddDate(0, 0, -1))
	reading.TotalTimeSeconds = 900
	env.seedProgress(t, reading)

	env.seedSession(t, "user-1", "b4", now.AddDate(0, 0, -1), time.Hour, 10)
	env.seedSession(t, "user-1", "b4", now, time.Minute, 1)

	env.clock.Set(now)
	stats, err := env.stats.GetReadingStats(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalBooksRead)
	assert.Equal(t, int64(3600+1800+600+900), stats.TotalTimeSeconds)
	assert.Equal(t, 600, stats.TotalPagesRead)
	assert.Equal(t, 2, stats.BooksReadThisYear)
	assert.Equal(t, 1, stats.BooksReadThisMonth)
	assert.Equal(t, int64(3600+900), stats.TimeThisMonthSeconds)
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak)
	assert.Equal(t, DefaultAnnualGoal, stats.ReadingGoal)
	assert.InDelta(t, 2.0/12*100, stats.ReadingGoalProgress, 0.001)

	require.Len(t, stats.FavoriteCategories, 2)
	assert.Equal(t, "History", stats.FavoriteCategory)
}

func TestGetReadingStats_GoalCapped(t *testing.T) {
	env := newTestEnv(t)
	env.stats.annualGoal = 2
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, b := range []string{"b1", "b2", "b3"} {
		env.seedBook(t, b, 0, true)
		env.seedProgress(t, completed("user-1", b, now.AddDate(0, -1, 0), 0))
	}

	env.clock.Set(now)
	stats, err := env.stats.GetReadingStats(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.BooksReadThisYear)
	assert.Equal(t, 100.0, stats.ReadingGoalProgress)
}

func TestGetReadingStats_Empty(t *testing.T) {
	env := newTestEnv(t)

	stats, err := env.stats.GetReadingStats(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalBooksRead)
	assert.Empty(t, stats.FavoriteCategory)
	assert.NotNil(t, stats.FavoriteCategories)
	assert.Zero(t, stats.ReadingGoalProgress)
}
