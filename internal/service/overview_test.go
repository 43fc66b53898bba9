package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readtrack/internal/domain"
	domainerrors "github.com/listenupapp/readtrack/internal/errors"
	"github.com/listenupapp/readtrack/internal/metrics"
)

type fakeViews struct {
	mu    sync.Mutex
	views []domain.BookView
	err   error
}

func (f *fakeViews) Record(_ context.Context, v domain.BookView) (*domain.BookView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.views = append(f.views, v)
	return &v, nil
}

func (f *fakeViews) Range(_ context.Context, start, end time.Time) ([]domain.BookView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.BookView
	for _, v := range f.views {
		if v.ViewedAt.Before(start) || v.ViewedAt.After(end) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeViews) Ping(context.Context) error { return f.err }

func newTestOverview(t *testing.T, env *testEnv, views *fakeViews, now time.Time) *Overview {
	t.Helper()
	o := NewOverview(views, env.feed, env.store, time.UTC, slog.New(slog.DiscardHandler))
	o.now = func() time.Time { return now }
	return o
}

func TestOverview_RecordView(t *testing.T) {
	env := newTestEnv(t)
	views := &fakeViews{}
	o := newTestOverview(t, env, views, testBase)

	before := testutil.ToFloat64(metrics.BookViewsRecorded)
	o.RecordView(context.Background(), "user-1", "book-1")

	require.Len(t, views.views, 1)
	assert.Equal(t, "user-1", views.views[0].UserID)
	assert.Equal(t, "book-1", views.views[0].BookID)
	assert.True(t, views.views[0].ViewedAt.Equal(testBase))
	assert.InDelta(t, before+1, testutil.ToFloat64(metrics.BookViewsRecorded), 0.001)

	views.err = errors.New("index down")
	assert.NotPanics(t, func() { o.RecordView(context.Background(), "user-1", "book-1") })
	assert.InDelta(t, before+1, testutil.ToFloat64(metrics.BookViewsRecorded), 0.001)
}

func TestOverview_Get(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook(t, "book-1", 100, true)
	env.seedBook(t, "book-2", 100, true)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	views := &fakeViews{views: []domain.BookView{
		{UserID: "user-1", BookID: "book-1", ViewedAt: now.Add(-1 * time.Hour)},
		{UserID: "user-2", BookID: "book-1", ViewedAt: now.Add(-2 * time.Hour)},
		{UserID: "user-1", BookID: "book-2", ViewedAt: now.AddDate(0, 0, -10)},
		{UserID: "user-3", BookID: "book-gone", ViewedAt: now.AddDate(0, 0, -1)},
		{UserID: "user-4", BookID: "book-2", ViewedAt: now.AddDate(0, 0, -40)},
	}}
	env.feed.events = []domain.SearchEvent{
		{UserID: "user-5", Query: "Dune", SearchedAt: now.AddDate(0, 0, -3)},
		{Query: "dune", SearchedAt: now.AddDate(0, 0, -2)},
	}

	o := newTestOverview(t, env, views, now)
	got, err := o.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, got.Totals.TotalViews)
	assert.Equal(t, 3, got.Totals.ActiveUsers7d)
	assert.Equal(t, 4, got.Totals.ActiveUsers, "signed-in searchers count as active")

	require.Len(t, got.ReadsPerDay, overviewDays+1)
	assert.Equal(t, "2026-02-08", got.ReadsPerDay[0].Date)
	assert.Equal(t, "2026-03-10", got.ReadsPerDay[overviewDays].Date)
	assert.Equal(t, 2, got.ReadsPerDay[overviewDays].Count)
	assert.Equal(t, 1, got.ReadsPerDay[overviewDays-1].Count)
	assert.Equal(t, 1, got.ReadsPerDay[overviewDays-10].Count)

	require.Len(t, got.ReadsPerHour, 24)
	assert.Equal(t, 1, got.ReadsPerHour[17].Count)
	assert.Equal(t, 1, got.ReadsPerHour[16].Count)
	assert.Equal(t, 2, got.ReadsPerHour[18].Count)

	require.Len(t, got.MostReadBooks, 2)
	assert.Equal(t, domain.BookViewCount{BookID: "book-1", Title: "Book book-1", Views: 2}, got.MostReadBooks[0])
	assert.Equal(t, "book-2", got.MostReadBooks[1].BookID)

	require.Len(t, got.TopSearchTerms, 1)
	assert.Equal(t, domain.TermCount{Term: "dune", Count: 2}, got.TopSearchTerms[0])
}

func TestOverview_EmptyFeedsAreDense(t *testing.T) {
	env := newTestEnv(t)
	o := newTestOverview(t, env, &fakeViews{}, testBase)

	got, err := o.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, got.ReadsPerDay, overviewDays+1)
	assert.Len(t, got.ReadsPerHour, 24)
	assert.Empty(t, got.MostReadBooks)
	assert.NotNil(t, got.MostReadBooks)
	assert.Zero(t, got.Totals)
}

func TestOverview_FeedFailure(t *testing.T) {
	env := newTestEnv(t)
	o := newTestOverview(t, env, &fakeViews{err: errors.New("index down")}, testBase)

	_, err := o.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrInternal)
}
