package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/readtrack/internal/config"
	"github.com/listenupapp/readtrack/internal/logger"
	"github.com/listenupapp/readtrack/internal/ratelimit"
)

// HeartbeatLimiterHandle wraps the per-user heartbeat limiter so its
// cleanup goroutine stops on shutdown.
type HeartbeatLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *HeartbeatLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideHeartbeatLimiter provides the per-user heartbeat limiter.
func ProvideHeartbeatLimiter(i do.Injector) (*HeartbeatLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	limiter := ratelimit.New(cfg.Tracking.HeartbeatRPS, cfg.Tracking.HeartbeatBurst)

	log.Info("Heartbeat limiter started",
		"rps", cfg.Tracking.HeartbeatRPS,
		"burst", cfg.Tracking.HeartbeatBurst,
	)

	return &HeartbeatLimiterHandle{KeyedRateLimiter: limiter}, nil
}
