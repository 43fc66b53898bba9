package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readtrack/internal/domain"
	domainerrors "github.com/listenupapp/readtrack/internal/errors"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "recordSearchEvent",
		Method:        http.MethodPost,
		Path:          "/api/v1/search-events",
		Summary:       "Record a search",
		Description:   "Logs a free-text catalog query for analytics",
		Tags:          []string{"Search"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleRecordSearchEvent)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTopSearchTerms",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/search-terms",
		Summary:     "Get top search terms",
		Description: "Returns the most frequent normalized queries across all users",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetTopSearchTerms)

	huma.Register(s.api, huma.Operation{
		OperationID: "getAdminOverview",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/overview",
		Summary:     "Get admin analytics overview",
		Description: "Returns book opens per day and hour, active users, most read books and top search terms over the last 30 days",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetAdminOverview)
}

// RecordSearchRequest is the request body for recording a search.
type RecordSearchRequest struct {
	Query string `json:"query" validate:"required,max=512" doc:"Search query as typed"`
}

// RecordSearchInput contains parameters for recording a search.
type RecordSearchInput struct {
	Authorization string `header:"Authorization"`
	Body          RecordSearchRequest
}

// RecordSearchOutput wraps the recorded event for Huma.
type RecordSearchOutput struct {
	Body *domain.SearchEvent
}

// TopSearchTermsInput contains parameters for top search terms.
type TopSearchTermsInput struct {
	Authorization string `header:"Authorization"`
	Period        string `query:"period" doc:"today, week, month or year (default month)"`
}

// TopSearchTermsResponse contains ranked terms.
type TopSearchTermsResponse struct {
	Period domain.Period      `json:"period" doc:"Resolved period"`
	Terms  []domain.TermCount `json:"terms" doc:"Terms by descending frequency"`
}

// TopSearchTermsOutput wraps top search terms for Huma.
type TopSearchTermsOutput struct {
	Body TopSearchTermsResponse
}

// AdminOverviewInput contains parameters for the admin overview.
type AdminOverviewInput struct {
	Authorization string `header:"Authorization"`
}

// AdminOverviewOutput wraps the overview for Huma.
type AdminOverviewOutput struct {
	Body *domain.AdminOverview
}

func (s *Server) handleRecordSearchEvent(ctx context.Context, input *RecordSearchInput) (*RecordSearchOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	event, err := s.services.SearchFeed.Record(ctx, domain.SearchEvent{
		UserID: userID,
		Query:  input.Body.Query,
	})
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to record search")
	}
	if event == nil {
		return nil, domainerrors.InvalidInput("query is blank")
	}

	return &RecordSearchOutput{Body: event}, nil
}

func (s *Server) handleGetTopSearchTerms(ctx context.Context, input *TopSearchTermsInput) (*TopSearchTermsOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	period := domain.ParsePeriod(input.Period)
	terms, err := s.services.Analytics.GlobalTopSearchTerms(ctx, period)
	if err != nil {
		return nil, err
	}

	return &TopSearchTermsOutput{
		Body: TopSearchTermsResponse{Period: period, Terms: terms},
	}, nil
}

func (s *Server) handleGetAdminOverview(ctx context.Context, input *AdminOverviewInput) (*AdminOverviewOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if s.services.Overview == nil {
		return nil, domainerrors.Internal("admin analytics not configured")
	}
	overview, err := s.services.Overview.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &AdminOverviewOutput{Body: overview}, nil
}
