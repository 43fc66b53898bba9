package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readtrack/internal/domain"
	"github.com/listenupapp/readtrack/internal/store"
)

var testBase = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// stepClock advances by step on every reading.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{t: start, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

// Set pins the next reading to t (before the step is added).
func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t.Add(-c.step)
}

type fakeFeed struct {
	mu     sync.Mutex
	events []domain.SearchEvent
	err    error
	calls  int
}

func (f *fakeFeed) Range(_ context.Context, start, end time.Time, userID string) ([]domain.SearchEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.SearchEvent
	for _, e := range f.events {
		if e.SearchedAt.Before(start) || e.SearchedAt.After(end) {
			continue
		}
		if userID != "" && e.UserID != userID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeFeed) Record(_ context.Context, e domain.SearchEvent) (*domain.SearchEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.events = append(f.events, e)
	return &e, nil
}

func (f *fakeFeed) Ping(context.Context) error { return f.err }

func (f *fakeFeed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errInjected = errors.New("injected store failure")

// faultyStore fails View calls while failViews is set.
type faultyStore struct {
	store.ReadingStore
	mu        sync.Mutex
	failViews bool
}

func (f *faultyStore) View(ctx context.Context, fn func(tx store.Tx) error) error {
	f.mu.Lock()
	fail := f.failViews
	f.mu.Unlock()
	if fail {
		return errInjected
	}
	return f.ReadingStore.View(ctx, fn)
}

type testEnv struct {
	store     *store.Store
	faulty    *faultyStore
	feed      *fakeFeed
	clock     *stepClock
	sessions  *SessionManager
	tracker   *ProgressTracker
	analytics *Analytics
	stats     *StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	s, err := store.NewInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	env := &testEnv{
		store:  s,
		faulty: &faultyStore{ReadingStore: s},
		feed:   &fakeFeed{},
		clock:  newStepClock(testBase, time.Second),
	}

	locks := NewKeyLocker()
	env.sessions = NewSessionManager(s, s, locks, logger)
	env.sessions.now = env.clock.Now
	env.tracker = NewProgressTracker(s, s, locks, logger)
	env.tracker.now = env.clock.Now
	env.analytics = NewAnalytics(env.faulty, s, env.feed, time.UTC, logger)
	env.analytics.now = env.clock.Now
	env.stats = NewStatsService(s, s, env.analytics, DefaultAnnualGoal, time.UTC, logger)
	env.stats.now = env.clock.Now
	return env
}

func (e *testEnv) seedBook(t *testing.T, id string, pageCount int, published bool, categoryIDs ...string) {
	t.Helper()
	require.NoError(t, e.store.SaveBook(context.Background(), &domain.Book{
		ID:          id,
		Title:       "Book " + id,
		PageCount:   pageCount,
		CategoryIDs: categoryIDs,
		Published:   published,
		CreatedAt:   testBase,
		UpdatedAt:   testBase,
	}))
}

func (e *testEnv) seedCategory(t *testing.T, id, name string) {
	t.Helper()
	require.NoError(t, e.store.SaveCategory(context.Background(), &domain.Category{ID: id, Name: name}))
}

// seedSession stores a closed session directly.
func (e *testEnv) seedSession(t *testing.T, userID, bookID string, startedAt time.Time, duration time.Duration, pages int) {
	t.Helper()
	ctx := context.Background()
	sessionID := "rs-" + userID + "-" + bookID + "-" + startedAt.Format("20060102150405")
	session := domain.NewReadingSession(sessionID, userID, bookID, startedAt)
	require.NoError(t, e.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.CreateSession(ctx, session); err != nil {
			return err
		}
		session.Close(startedAt.Add(duration))
		session.PagesRead = pages
		return tx.UpdateSession(ctx, session)
	}))
}

func (e *testEnv) seedProgress(t *testing.T, p *domain.ReadingProgress) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.Update(ctx, func(tx store.Tx) error {
		return tx.SaveProgress(ctx, p)
	}))
}

func ptr[T any](v T) *T { return &v }

func newSessionAt(startedAt time.Time) *domain.ReadingSession {
	return domain.NewReadingSession("rs-test", "user-1", "book-1", startedAt)
}
