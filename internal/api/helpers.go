package api

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/listenupapp/readtrack/internal/errors"
	"github.com/listenupapp/readtrack/internal/metrics"
)

// authenticateRequest validates the Authorization header and returns the user ID.
func (s *Server) authenticateRequest(_ context.Context, authHeader string) (string, error) {
	if authHeader == "" {
		return "", huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", huma.Error401Unauthorized("Invalid authorization header format")
	}

	userID, err := s.tokens.Verify(parts[1])
	if err != nil {
		return "", huma.Error401Unauthorized("Invalid or expired token")
	}

	return userID, nil
}

// allowHeartbeat applies the per-user heartbeat limit.
func (s *Server) allowHeartbeat(userID string) error {
	if s.heartbeatLimiter == nil || s.heartbeatLimiter.Allow(userID) {
		return nil
	}
	metrics.RateLimitHits.WithLabelValues("heartbeat").Inc()
	s.logger.Warn("heartbeat rate limit exceeded", "user_id", userID)
	return domainerrors.RateLimited("Too many heartbeats, slow down")
}
