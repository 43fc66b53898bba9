package providers

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readtrack/internal/config"
	"github.com/listenupapp/readtrack/internal/logger"
	"github.com/listenupapp/readtrack/internal/service"
)

func testInjector(t *testing.T, driver string) *do.RootScope {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Environment = "test"
	cfg.Store.Driver = driver
	cfg.Store.DataPath = filepath.Join(t.TempDir(), "data")

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger.New(logger.Config{Writer: io.Discard, Environment: "test"}))
	t.Cleanup(func() { _ = injector.Shutdown() }) //nolint:errcheck // test cleanup
	return injector
}

func TestHTTPServerHandle_ShutdownIdle(t *testing.T) {
	srv := &http.Server{Handler: http.NotFoundHandler()}
	h := &HTTPServerHandle{Server: srv}
	require.NoError(t, h.Shutdown())
	assert.Positive(t, shutdownTimeout)

	// A closed server refuses to serve again.
	assert.ErrorIs(t, srv.ListenAndServe(), http.ErrServerClosed)
}

func TestProvideStore_Drivers(t *testing.T) {
	for _, driver := range []string{config.DriverBadger, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			injector := testInjector(t, driver)
			do.Provide(injector, ProvideStore)

			handle, err := do.Invoke[*StoreHandle](injector)
			require.NoError(t, err)
			assert.NoError(t, handle.Ping(context.Background()))
		})
	}
}

func TestProvideServices_SharedLocker(t *testing.T) {
	injector := testInjector(t, config.DriverBadger)
	do.Provide(injector, ProvideStore)
	do.Provide(injector, ProvideKeyLocker)
	do.Provide(injector, ProvideSessionManager)
	do.Provide(injector, ProvideProgressTracker)

	sessions, err := do.Invoke[*service.SessionManager](injector)
	require.NoError(t, err)
	tracker, err := do.Invoke[*service.ProgressTracker](injector)
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.NotNil(t, tracker)

	a := do.MustInvoke[*service.KeyLocker](injector)
	b := do.MustInvoke[*service.KeyLocker](injector)
	assert.Same(t, a, b)
}

func TestProvideOverview_SharesDataPath(t *testing.T) {
	injector := testInjector(t, config.DriverBadger)
	do.Provide(injector, ProvideStore)
	do.Provide(injector, ProvideSearchEventLog)
	do.Provide(injector, ProvideSearchFeed)
	do.Provide(injector, ProvideBookViewLog)
	do.Provide(injector, ProvideOverview)

	overview, err := do.Invoke[*service.Overview](injector)
	require.NoError(t, err)

	ctx := context.Background()
	overview.RecordView(ctx, "user-1", "book-1")
	require.NoError(t, overview.Ping(ctx))

	views := do.MustInvoke[*BookViewLogHandle](injector)
	count, err := views.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
