package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sony/gobreaker/v2"
)

// Component statuses.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"store":  s.checkStore(ctx),
		"search": s.checkSearchFeed(ctx),
		"views":  s.checkViewLog(ctx),
	}

	overall := statusHealthy
	for _, c := range components {
		switch {
		case c.Status == statusUnhealthy:
			overall = statusUnhealthy
		case c.Status == statusDegraded && overall == statusHealthy:
			overall = statusDegraded
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkStore verifies the reading store answers.
func (s *Server) checkStore(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{
			Status:  statusDegraded,
			Message: "store not configured",
		}
	}

	start := time.Now()
	err := s.store.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  statusUnhealthy,
			Latency: latency.String(),
			Message: "store ping failed",
		}
	}

	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
	}
}

// checkSearchFeed verifies the search-event log. Analytics survive a broken
// feed, so failures only degrade.
func (s *Server) checkSearchFeed(ctx context.Context) ComponentHealth {
	if s.services == nil || s.services.SearchFeed == nil {
		return ComponentHealth{
			Status:  statusDegraded,
			Message: "search feed not configured",
		}
	}

	feed := s.services.SearchFeed
	start := time.Now()
	err := feed.Ping(ctx)
	latency := time.Since(start)

	switch {
	case err != nil:
		return ComponentHealth{
			Status:  statusDegraded,
			Latency: latency.String(),
			Message: "search event log unavailable",
		}
	case feed.State() == gobreaker.StateOpen:
		return ComponentHealth{
			Status:  statusDegraded,
			Latency: latency.String(),
			Message: "circuit breaker open",
		}
	}

	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
	}
}

// checkViewLog verifies the book-view log. Losing it only stops admin
// analytics, so failures degrade.
func (s *Server) checkViewLog(ctx context.Context) ComponentHealth {
	if s.services == nil || s.services.Overview == nil {
		return ComponentHealth{
			Status:  statusDegraded,
			Message: "view log not configured",
		}
	}

	start := time.Now()
	err := s.services.Overview.Ping(ctx)
	latency := time.Since(start)
	if err != nil {
		return ComponentHealth{
			Status:  statusDegraded,
			Latency: latency.String(),
			Message: "book view log unavailable",
		}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
	}
}
