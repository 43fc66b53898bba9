package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readtrack/internal/domain"
	domainerrors "github.com/listenupapp/readtrack/internal/errors"
	"github.com/listenupapp/readtrack/internal/store"
)

func startSession(t *testing.T, env *testEnv, userID, bookID string) string {
	t.Helper()
	res, err := env.sessions.StartOrResumeSession(context.Background(), userID, bookID)
	require.NoError(t, err)
	return res.Session.ID
}

func TestApplyUpdate_TimeIsNotDoubleCounted(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook(t, "book-1", 300, true)
	ctx := context.Background()

	env.clock.Set(testBase)
	sessionID := startSession(t, env, "user-1", "book-1")

	var last *HeartbeatResult
	for _, offset := range []time.Duration{10 * time.Second, 25 * time.Second, 60 * time.Second, 61 * time.Second} {
		env.clock.Set(testBase.Add(offset))
		res, err := env.tracker.ApplyUpdate(ctx, sessionID, "user-1", domain.ProgressUpdate{})
		require.NoError(t, err)
		last = res
	}

	assert.Equal(t, int64(61), last.Progress.TotalTimeSeconds)
	assert.Equal(t, int64(61), last.Session.DurationSeconds)
	assert.Equal(t, int64(1), last.TimeDeltaSeconds)
}

func TestApplyUpdate_PageMonotonicity(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook(t, "book-1", 0, true)
	ctx := context.Background()
	sessionID := startSession(t, env, "user-1", "book-1")

	var res *HeartbeatResult
	var err error
	for _, page := range []int{10, 5, 12, 12} {
		res, err = env.tracker.ApplyUpdate(ctx, sessionID, "user-1", domain.ProgressUpdate{CurrentPage: ptr(page)})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Session.PagesRead, 10)
	}

	// 10 forward, 5 back (0), 7 forward, no move.
	assert.Equal(t, 17, res.Session.PagesRead)
	assert.Equal(t, 12, res.Progress.CurrentPage)
	assert.Zero(t, res.PageDelta)
}

func TestApplyUpdate_CompletionThreshold(t *testing.T) {
	tests := []struct {
		percent   float64
		completed bool
	}{
		{94.9, false},
		{95.0, true},
		{100, true},
	}

	for _, tt := range tests {
		env := newTestEnv(t)
		env.seedBook(t, "book-1", 0, true)
		sessionID := startSession(t, env, "user-1", "book-1")

		res, err := env.tracker.ApplyUpdate(context.Background(), sessionID, "user-1", domain.ProgressUpdate{Percent: ptr(tt.percent)})
		require.NoError(t, err)
		assert.Equal(t, tt.completed, res.Progress.Completed, "percent %v", tt.percent)
	}
}

func TestApplyUpdate_PercentFromPageCount(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook(t, "book-1", 200, true)
	ctx := context.Background()
	sessionID := startSession(t, env, "user-1", "book-1")

	// A page count wins over a supplied percent.
	res, err := env.tracker.ApplyUpdate(ctx, sessionID, "user-1", domain.ProgressUpdate{
		CurrentPage: ptr(50),
		Percent:     ptr(80.0),
	})
	require.NoError(t, err)
	assert.InDelta(t, 25.0, res.Progress.Percent, 0.001)

	res, err = env.tracker.ApplyUpdate(ctx, sessionID, "user-1", domain.ProgressUpdate{CurrentPage: ptr(190)})
	require.NoError(t, err)
	assert.InDelta(t, 95.0, res.Progress.Percent, 0.001)
	assert.True(t, res.Progress.Completed)

	// Pages past the end clamp to 100.
	res, err = env.tracker.ApplyUpdate(ctx, sessionID, "user-1", domain.ProgressUpdate{CurrentPage: ptr(250)})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, res.Progress.Percent, 0.001)
}

func TestApplyUpdate_PercentClampedAndKept(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook(t, "book-1", 0, true)
	ctx := context.Background()
	sessionID := startSession(t, env, "user-1", "book-1")

	res, err := env.tracker.ApplyUpdate(ctx, sessionID, "user-1", domain.ProgressUpdate{Percent: ptr(150.0)})
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Progress.Percent)

	res, err = env.tracker.ApplyUpdate(ctx, sessionID, "user-1", domain.ProgressUpdate{Percent: ptr(-3.0)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Progress.Percent)
	assert.False(t, res.Progress.Completed)

	// Page without a known page count leaves percent alone.
	res, err = env.tracker.ApplyUpdate(ctx, sessionID, "user-1", domain.ProgressUpdate{
		CurrentPage: ptr(40),
		Location:    ptr("epubcfi(/6/4)"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Progress.Percent)
	assert.Equal(t, 40, res.Progress.CurrentPage)
	assert.Equal(t, "epubcfi(/6/4)", res.Progress.LastLocation)
}

func TestApplyUpdate_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook(t, "book-1", 0, true)
	ctx := context.Background()
	sessionID := startSession(t, env, "user-1", "book-1")

	for name, update := range map[string]domain.ProgressUpdate{
		"negative page": {CurrentPage: ptr(-1)},
		"nan percent":   {Percent: ptr(math.NaN())},
		"inf percent":   {Percent: ptr(math.Inf(1))},
	} {
		_, err := env.tracker.ApplyUpdate(ctx, sessionID, "user-1", update)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidInput, name)
	}
}

func TestApplyUpdate_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook(t, "book-1", 0, true)
	ctx := context.Background()
	sessionID := startSession(t, env, "user-1", "book-1")

	_, err := env.tracker.ApplyUpdate(ctx, sessionID, "user-2", domain.ProgressUpdate{})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = env.sessions.EndSession(ctx, sessionID, "user-1")
	require.NoError(t, err)
	_, err = env.tracker.ApplyUpdate(ctx, sessionID, "user-1", domain.ProgressUpdate{})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestApplyUpdate_UnpublishedBook(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook(t, "book-1", 0, true)
	ctx := context.Background()
	sessionID := startSession(t, env, "user-1", "book-1")

	env.seedBook(t, "book-1", 0, false)
	_, err := env.tracker.ApplyUpdate(ctx, sessionID, "user-1", domain.ProgressUpdate{})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestApplyUpdate_ConcurrentHeartbeatsNeverOverAccrue(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook(t, "book-1", 500, true)
	ctx := context.Background()

	env.clock.Set(testBase)
	sessionID := startSession(t, env, "user-1", "book-1")

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.tracker.ApplyUpdate(ctx, sessionID, "user-1", domain.ProgressUpdate{CurrentPage: ptr(i * 10)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.NoError(t, env.store.View(ctx, func(tx store.Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		require.NoError(t, err)
		progress, err := tx.GetProgress(ctx, "user-1", "book-1")
		require.NoError(t, err)

		// Each call reads the clock once, one second apart.
		assert.Equal(t, int64(workers), session.DurationSeconds)
		assert.Equal(t, session.DurationSeconds, progress.TotalTimeSeconds)
		// Backward jumps reset the baseline, so interleavings can add more
		// than the highest page but never less.
		assert.GreaterOrEqual(t, session.PagesRead, (workers-1)*10)
		assert.Zero(t, progress.CurrentPage%10, "current page is one of the reported pages")
		return nil
	}))
}

func TestGetProgress_CreatesDefault(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook(t, "book-1", 0, true)
	ctx := context.Background()

	p, err := env.tracker.GetProgress(ctx, "user-1", "book-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultLocation, p.LastLocation)
	assert.Zero(t, p.Percent)
	assert.False(t, p.Completed)

	again, err := env.tracker.GetProgress(ctx, "user-1", "book-1")
	require.NoError(t, err)
	assert.True(t, p.CreatedAt.Equal(again.CreatedAt))

	env.seedBook(t, "draft", 0, false)
	_, err = env.tracker.GetProgress(ctx, "user-1", "draft")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestListProgress_Shelves(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := range 12 {
		p := domain.NewReadingProgress("user-1", "reading-"+string(rune('a'+i)), testBase)
		p.LastOpenedAt = testBase.Add(time.Duration(i) * time.Hour)
		env.seedProgress(t, p)
	}
	done := domain.NewReadingProgress("user-1", "done", testBase)
	done.SetPercent(100)
	env.seedProgress(t, done)
	env.seedProgress(t, domain.NewReadingProgress("user-2", "other", testBase))

	overview, err := env.tracker.ListProgress(ctx, "user-1")
	require.NoError(t, err)

	require.Len(t, overview.InProgress, 10)
	assert.Equal(t, "reading-l", overview.InProgress[0].BookID)
	require.Len(t, overview.Completed, 1)
	assert.Equal(t, "done", overview.Completed[0].BookID)
}
