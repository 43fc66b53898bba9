package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readtrack/internal/domain"
)

func (s *Server) registerAnalyticsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getDashboard",
		Method:      http.MethodGet,
		Path:        "/api/v1/analytics/dashboard",
		Summary:     "Get reading dashboard",
		Description: "Returns period-scoped reading analytics. Unknown periods fall back to month, and failures return zeroed data flagged degraded",
		Tags:        []string{"Analytics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetDashboard)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReadingStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/analytics/stats",
		Summary:     "Get lifetime reading stats",
		Description: "Returns lifetime totals, streaks and reading goal progress",
		Tags:        []string{"Analytics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetReadingStats)
}

// DashboardInput contains parameters for the dashboard.
type DashboardInput struct {
	Authorization string `header:"Authorization"`
	Period        string `query:"period" doc:"today, week, month or year (default month)"`
}

// DashboardOutput wraps the dashboard for Huma.
type DashboardOutput struct {
	Body *domain.Dashboard
}

// ReadingStatsInput contains parameters for reading stats.
type ReadingStatsInput struct {
	Authorization string `header:"Authorization"`
}

// ReadingStatsOutput wraps reading stats for Huma.
type ReadingStatsOutput struct {
	Body *domain.ReadingStats
}

func (s *Server) handleGetDashboard(ctx context.Context, input *DashboardInput) (*DashboardOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	dashboard := s.services.Analytics.GetDashboard(ctx, userID, domain.ParsePeriod(input.Period))
	return &DashboardOutput{Body: dashboard}, nil
}

func (s *Server) handleGetReadingStats(ctx context.Context, input *ReadingStatsInput) (*ReadingStatsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	stats, err := s.services.Stats.GetReadingStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ReadingStatsOutput{Body: stats}, nil
}
