package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readtrack/internal/domain"
	"github.com/listenupapp/readtrack/internal/service"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "startSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{bookID}/sessions",
		Summary:     "Start or resume a reading session",
		Description: "Returns the open session for the book, creating one if none is open",
		Tags:        []string{"Sessions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleStartSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "heartbeat",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionID}/heartbeat",
		Summary:     "Report reading progress",
		Description: "Advances the session duration and applies the reported position",
		Tags:        []string{"Sessions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleHeartbeat)

	huma.Register(s.api, huma.Operation{
		OperationID: "endSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionID}/end",
		Summary:     "End a reading session",
		Description: "Closes an open session and fixes its duration",
		Tags:        []string{"Sessions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleEndSession)
}

// StartSessionInput contains parameters for starting a session.
type StartSessionInput struct {
	Authorization string `header:"Authorization"`
	BookID        string `path:"bookID" doc:"Book ID"`
}

// StartSessionResponse contains the open session.
type StartSessionResponse struct {
	Session *domain.ReadingSession `json:"session" doc:"The open reading session"`
	Resumed bool                   `json:"resumed" doc:"True when an already open session was returned"`
}

// StartSessionOutput wraps the start session response for Huma.
type StartSessionOutput struct {
	Status int
	Body   StartSessionResponse
}

// HeartbeatRequest is the request body for a heartbeat.
type HeartbeatRequest struct {
	Location    *string  `json:"location,omitempty" validate:"omitempty,max=1024" doc:"Opaque reader position"`
	CurrentPage *int     `json:"current_page,omitempty" validate:"omitempty,gte=0" doc:"Current page, zero based"`
	Percent     *float64 `json:"percent,omitempty" doc:"Percent read, clamped to 0-100"`
}

// HeartbeatInput contains parameters for a heartbeat.
type HeartbeatInput struct {
	Authorization string           `header:"Authorization"`
	SessionID     string           `path:"sessionID" doc:"Session ID"`
	Body          HeartbeatRequest `required:"false"`
}

// HeartbeatOutput wraps the heartbeat result for Huma.
type HeartbeatOutput struct {
	Body *service.HeartbeatResult
}

// EndSessionInput contains parameters for ending a session.
type EndSessionInput struct {
	Authorization string `header:"Authorization"`
	SessionID     string `path:"sessionID" doc:"Session ID"`
}

// SessionOutput wraps a session for Huma.
type SessionOutput struct {
	Body *domain.ReadingSession
}

func (s *Server) handleStartSession(ctx context.Context, input *StartSessionInput) (*StartSessionOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Sessions.StartOrResumeSession(ctx, userID, input.BookID)
	if err != nil {
		return nil, err
	}
	if s.services.Overview != nil {
		s.services.Overview.RecordView(ctx, userID, result.Session.BookID)
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	return &StartSessionOutput{
		Status: status,
		Body: StartSessionResponse{
			Session: result.Session,
			Resumed: result.Resumed,
		},
	}, nil
}

func (s *Server) handleHeartbeat(ctx context.Context, input *HeartbeatInput) (*HeartbeatOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.allowHeartbeat(userID); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	result, err := s.services.Progress.ApplyUpdate(ctx, input.SessionID, userID, domain.ProgressUpdate{
		Location:    input.Body.Location,
		CurrentPage: input.Body.CurrentPage,
		Percent:     input.Body.Percent,
	})
	if err != nil {
		return nil, err
	}

	return &HeartbeatOutput{Body: result}, nil
}

func (s *Server) handleEndSession(ctx context.Context, input *EndSessionInput) (*SessionOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	session, err := s.services.Sessions.EndSession(ctx, input.SessionID, userID)
	if err != nil {
		return nil, err
	}

	return &SessionOutput{Body: session}, nil
}
