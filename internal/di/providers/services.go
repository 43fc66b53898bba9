package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/readtrack/internal/config"
	"github.com/listenupapp/readtrack/internal/logger"
	"github.com/listenupapp/readtrack/internal/service"
)

// ProvideKeyLocker provides the per (user, book) lock table shared by the
// session manager and the progress tracker.
func ProvideKeyLocker(i do.Injector) (*service.KeyLocker, error) {
	return service.NewKeyLocker(), nil
}

// ProvideSessionManager provides the reading session manager.
func ProvideSessionManager(i do.Injector) (*service.SessionManager, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	locks := do.MustInvoke[*service.KeyLocker](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionManager(storeHandle, storeHandle, locks, log.Logger), nil
}

// ProvideProgressTracker provides the progress tracker.
func ProvideProgressTracker(i do.Injector) (*service.ProgressTracker, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	locks := do.MustInvoke[*service.KeyLocker](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProgressTracker(storeHandle, storeHandle, locks, log.Logger), nil
}

// ProvideAnalytics provides the dashboard aggregator.
func ProvideAnalytics(i do.Injector) (*service.Analytics, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	feed := do.MustInvoke[*service.SearchFeed](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAnalytics(storeHandle, storeHandle, feed, cfg.Tracking.Location, log.Logger), nil
}

// ProvideStatsService provides lifetime reading stats.
func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	analytics := do.MustInvoke[*service.Analytics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStatsService(storeHandle, storeHandle, analytics, cfg.Tracking.AnnualGoal, cfg.Tracking.Location, log.Logger), nil
}
