package api

import (
	"context"

	"github.com/listenupapp/readtrack/internal/service"
)

// Services groups the business services used by the API server.
type Services struct {
	Sessions   *service.SessionManager
	Progress   *service.ProgressTracker
	Analytics  *service.Analytics
	Stats      *service.StatsService
	SearchFeed *service.SearchFeed
	Overview   *service.Overview
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
