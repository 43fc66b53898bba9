package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/listenupapp/readtrack/internal/domain"
	domainerrors "github.com/listenupapp/readtrack/internal/errors"
	"github.com/listenupapp/readtrack/internal/metrics"
	"github.com/listenupapp/readtrack/internal/store"
)

const (
	overviewDays   = 30
	activeUserDays = 7
	mostReadLimit  = 10
)

// BookViewLog is the append-only store of book opens.
type BookViewLog interface {
	Record(ctx context.Context, view domain.BookView) (*domain.BookView, error)
	Range(ctx context.Context, start, end time.Time) ([]domain.BookView, error)
	Ping(ctx context.Context) error
}

// Overview records book opens and builds the catalog-wide admin overview
// from the view and search-event feeds.
type Overview struct {
	views   BookViewLog
	search  SearchEventReader
	catalog store.Catalog
	loc     *time.Location
	logger  *slog.Logger
	now     func() time.Time
}

// NewOverview creates the overview service. loc defines local calendar days.
func NewOverview(views BookViewLog, search SearchEventReader, catalog store.Catalog, loc *time.Location, logger *slog.Logger) *Overview {
	if loc == nil {
		loc = time.Local
	}
	return &Overview{
		views:   views,
		search:  search,
		catalog: catalog,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// RecordView logs that userID opened bookID. Failures are logged and
// dropped; reading never waits on analytics.
func (o *Overview) RecordView(ctx context.Context, userID, bookID string) {
	if _, err := o.views.Record(ctx, domain.BookView{UserID: userID, BookID: bookID, ViewedAt: o.now()}); err != nil {
		o.logger.Warn("failed to record book view",
			"user_id", userID,
			"book_id", bookID,
			"error", err)
		return
	}
	metrics.BookViewsRecorded.Inc()
}

// Ping checks the view log.
func (o *Overview) Ping(ctx context.Context) error {
	return o.views.Ping(ctx)
}

// Get builds the overview for the trailing 30 days. Unlike the per-user
// dashboard it reports feed failures.
func (o *Overview) Get(ctx context.Context) (*domain.AdminOverview, error) {
	now := o.now().In(o.loc)
	start := now.AddDate(0, 0, -overviewDays)

	var (
		views  []domain.BookView
		events []domain.SearchEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		views, err = o.views.Range(gctx, start, now)
		if err != nil {
			return fmt.Errorf("read book views: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		events, err = o.search.Range(gctx, start, now, "")
		if err != nil {
			return fmt.Errorf("read search events: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		o.logger.Warn("admin overview unavailable", "error", err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "analytics unavailable")
	}

	mostRead, err := o.mostRead(ctx, views)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "analytics unavailable")
	}

	overview := &domain.AdminOverview{
		StartDate:      start,
		EndDate:        now,
		MostReadBooks:  mostRead,
		TopSearchTerms: TopTerms(events, topTermsLimit),
	}
	overview.ReadsPerDay, overview.ReadsPerHour = o.viewSeries(views, start, now)
	overview.Totals = activityTotals(views, events, now.AddDate(0, 0, -activeUserDays))
	return overview, nil
}

// viewSeries returns one count per local day in [start, now] and one per hour of day.
func (o *Overview) viewSeries(views []domain.BookView, start, now time.Time) ([]domain.DailyCount, []domain.HourlyCount) {
	days := denseDays(domain.StartOfDay(start, o.loc), domain.StartOfDay(now, o.loc))
	perDay := make([]domain.DailyCount, len(days))
	index := make(map[string]int, len(days))
	for i, d := range days {
		key := d.Format(dateLayout)
		perDay[i] = domain.DailyCount{Date: key}
		index[key] = i
	}

	perHour := make([]domain.HourlyCount, 24)
	for h := range perHour {
		perHour[h].Hour = h
	}

	for _, v := range views {
		local := v.ViewedAt.In(o.loc)
		if i, ok := index[local.Format(dateLayout)]; ok {
			perDay[i].Count++
		}
		perHour[local.Hour()].Count++
	}
	return perDay, perHour
}

// mostRead ranks books by views, descending then by ID. Books no longer in
// the catalog are skipped.
func (o *Overview) mostRead(ctx context.Context, views []domain.BookView) ([]domain.BookViewCount, error) {
	counts := make(map[string]int)
	for _, v := range views {
		counts[v.BookID]++
	}
	if len(counts) == 0 {
		return []domain.BookViewCount{}, nil
	}

	ranked := make([]domain.BookViewCount, 0, len(counts))
	for bookID, n := range counts {
		ranked = append(ranked, domain.BookViewCount{BookID: bookID, Views: n})
	}
	slices.SortFunc(ranked, func(x, y domain.BookViewCount) int {
		return cmp.Or(cmp.Compare(y.Views, x.Views), cmp.Compare(x.BookID, y.BookID))
	})

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.BookID
	}
	books, err := o.catalog.GetBooks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}

	out := make([]domain.BookViewCount, 0, mostReadLimit)
	for _, r := range ranked {
		book, ok := books[r.BookID]
		if !ok {
			continue
		}
		r.Title = book.Title
		out = append(out, r)
		if len(out) == mostReadLimit {
			break
		}
	}
	return out, nil
}

// activityTotals counts views and distinct users. A user is active when they
// opened a book or ran a signed-in search in the window.
func activityTotals(views []domain.BookView, events []domain.SearchEvent, weekAgo time.Time) domain.AdminOverviewTotals {
	active := make(map[string]struct{})
	recent := make(map[string]struct{})
	for _, v := range views {
		active[v.UserID] = struct{}{}
		if !v.ViewedAt.Before(weekAgo) {
			recent[v.UserID] = struct{}{}
		}
	}
	for _, e := range events {
		if e.UserID != "" {
			active[e.UserID] = struct{}{}
		}
	}
	return domain.AdminOverviewTotals{
		TotalViews:    len(views),
		ActiveUsers7d: len(recent),
		ActiveUsers:   len(active),
	}
}
