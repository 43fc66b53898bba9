package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/listenupapp/readtrack/internal/domain"
	"github.com/listenupapp/readtrack/internal/metrics"
)

const searchFeedBreaker = "search-feed"

// SearchEventReader is the read side of the search-event feed.
// An empty userID selects events from every user.
type SearchEventReader interface {
	Range(ctx context.Context, start, end time.Time, userID string) ([]domain.SearchEvent, error)
}

// SearchEventLog is the append-only store behind the feed.
type SearchEventLog interface {
	SearchEventReader
	Record(ctx context.Context, event domain.SearchEvent) (*domain.SearchEvent, error)
	Ping(ctx context.Context) error
}

// SearchFeedConfig tunes the circuit breaker around feed reads.
type SearchFeedConfig struct {
	MaxFailures uint32        // consecutive failures before opening
	OpenTimeout time.Duration // time spent open before a trial request
}

// SearchFeed guards reads of the search-event log with a circuit breaker so a
// failing index makes dashboards degrade fast instead of timing out.
type SearchFeed struct {
	log    SearchEventLog
	cb     *gobreaker.CircuitBreaker[[]domain.SearchEvent]
	logger *slog.Logger
}

// NewSearchFeed wraps log with a breaker.
func NewSearchFeed(log SearchEventLog, cfg SearchFeedConfig, logger *slog.Logger) *SearchFeed {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(searchFeedBreaker).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]domain.SearchEvent](gobreaker.Settings{
		Name:        searchFeedBreaker,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// Callers giving up is not a feed failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				"name", name,
				"from", from.String(),
				"to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &SearchFeed{log: log, cb: cb, logger: logger}
}

// Range reads events through the breaker. It fails fast with
// gobreaker.ErrOpenState while the breaker is open.
func (f *SearchFeed) Range(ctx context.Context, start, end time.Time, userID string) ([]domain.SearchEvent, error) {
	events, err := f.cb.Execute(func() ([]domain.SearchEvent, error) {
		return f.log.Range(ctx, start, end, userID)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(searchFeedBreaker, "rejected").Inc()
		return nil, err
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(searchFeedBreaker, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(searchFeedBreaker, "success").Inc()
	return events, nil
}

// Record appends a query. Blank queries are dropped and return nil.
func (f *SearchFeed) Record(ctx context.Context, event domain.SearchEvent) (*domain.SearchEvent, error) {
	recorded, err := f.log.Record(ctx, event)
	if err != nil {
		f.logger.Warn("failed to record search event",
			"user_id", event.UserID,
			"error", err)
		return nil, err
	}
	if recorded != nil {
		metrics.SearchEventsRecorded.Inc()
	}
	return recorded, nil
}

// Ping checks the underlying log.
func (f *SearchFeed) Ping(ctx context.Context) error {
	return f.log.Ping(ctx)
}

// State reports the breaker state.
func (f *SearchFeed) State() gobreaker.State {
	return f.cb.State()
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
