package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readtrack/internal/domain"
)

func (s *Server) registerProgressRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookID}/progress",
		Summary:     "Get reading progress",
		Description: "Returns the caller's progress for a book, creating an empty record on first access",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "listProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/progress",
		Summary:     "List reading progress",
		Description: "Returns the caller's in-progress and completed shelves, ten books each",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListProgress)
}

// GetProgressInput contains parameters for getting progress.
type GetProgressInput struct {
	Authorization string `header:"Authorization"`
	BookID        string `path:"bookID" doc:"Book ID"`
}

// ProgressOutput wraps a progress record for Huma.
type ProgressOutput struct {
	Body *domain.ReadingProgress
}

// ListProgressInput contains parameters for listing progress.
type ListProgressInput struct {
	Authorization string `header:"Authorization"`
}

// ListProgressOutput wraps the reading overview for Huma.
type ListProgressOutput struct {
	Body *domain.ReadingOverview
}

func (s *Server) handleGetProgress(ctx context.Context, input *GetProgressInput) (*ProgressOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	progress, err := s.services.Progress.GetProgress(ctx, userID, input.BookID)
	if err != nil {
		return nil, err
	}

	return &ProgressOutput{Body: progress}, nil
}

func (s *Server) handleListProgress(ctx context.Context, input *ListProgressInput) (*ListProgressOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	overview, err := s.services.Progress.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ListProgressOutput{Body: overview}, nil
}
