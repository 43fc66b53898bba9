package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/listenupapp/readtrack/internal/config"
	"github.com/listenupapp/readtrack/internal/logger"
	"github.com/listenupapp/readtrack/internal/store"
	"github.com/listenupapp/readtrack/internal/store/sqlite"
)

// StoreHandle wraps the configured backend with shutdown capability.
type StoreHandle struct {
	store.Backend
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the backend selected by STORE_DRIVER.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Store.DataPath, 0o750); err != nil {
		return nil, fmt.Errorf("create data path: %w", err)
	}

	var (
		backend store.Backend
		path    string
		err     error
	)
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		path = filepath.Join(cfg.Store.DataPath, "readtrack.db")
		backend, err = sqlite.Open(path, log.Logger)
	default:
		path = filepath.Join(cfg.Store.DataPath, "db")
		backend, err = store.New(path, log.Logger)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	log.Info("Database initialized", "driver", cfg.Store.Driver, "path", path)

	return &StoreHandle{Backend: backend}, nil
}
