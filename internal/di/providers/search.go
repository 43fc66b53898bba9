package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/readtrack/internal/config"
	"github.com/listenupapp/readtrack/internal/logger"
	"github.com/listenupapp/readtrack/internal/search"
	"github.com/listenupapp/readtrack/internal/service"
)

// SearchEventLogHandle wraps the search-event log with shutdown capability.
type SearchEventLogHandle struct {
	*search.EventLog
}

// Shutdown implements do.Shutdownable.
func (h *SearchEventLogHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchEventLog provides the Bleve-backed search-event log.
func ProvideSearchEventLog(i do.Injector) (*SearchEventLogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	eventLog, err := search.NewEventLog(search.Options{
		DataPath: cfg.Store.DataPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	count, _ := eventLog.Count()
	log.Info("Search event log initialized", "events", count)

	return &SearchEventLogHandle{EventLog: eventLog}, nil
}

// ProvideSearchFeed provides the breaker-guarded search feed.
func ProvideSearchFeed(i do.Injector) (*service.SearchFeed, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	logHandle := do.MustInvoke[*SearchEventLogHandle](i)

	return service.NewSearchFeed(logHandle.EventLog, service.SearchFeedConfig{
		MaxFailures: cfg.Search.BreakerFailures,
		OpenTimeout: cfg.Search.BreakerTimeout,
	}, log.Logger), nil
}

// BookViewLogHandle wraps the book-view log with shutdown capability.
type BookViewLogHandle struct {
	*search.ViewLog
}

// Shutdown implements do.Shutdownable.
func (h *BookViewLogHandle) Shutdown() error {
	return h.Close()
}

// ProvideBookViewLog provides the Bleve-backed book-view log.
func ProvideBookViewLog(i do.Injector) (*BookViewLogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	viewLog, err := search.NewViewLog(search.Options{
		DataPath: cfg.Store.DataPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	count, _ := viewLog.Count()
	log.Info("Book view log initialized", "views", count)
	return &BookViewLogHandle{ViewLog: viewLog}, nil
}

// ProvideOverview provides the admin overview over the view and search feeds.
func ProvideOverview(i do.Injector) (*service.Overview, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	viewHandle := do.MustInvoke[*BookViewLogHandle](i)
	feed := do.MustInvoke[*service.SearchFeed](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewOverview(viewHandle.ViewLog, feed, storeHandle, cfg.Tracking.Location, log.Logger), nil
}
