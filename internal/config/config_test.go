package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Store:  StoreConfig{Driver: DriverBadger, DataPath: "/some/path"},
		Tracking: TrackingConfig{
			Timezone:       "UTC",
			HeartbeatRPS:   1,
			HeartbeatBurst: 5,
			AnnualGoal:     12,
		},
		Search: SearchConfig{BreakerFailures: 5, BreakerTimeout: 30 * time.Second},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.UTC, cfg.Tracking.Location)
	assert.Nil(t, cfg.Auth.TokenKey)
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"INFO", true},
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_StoreDriver(t *testing.T) {
	for _, driver := range []string{DriverBadger, DriverSQLite} {
		cfg := validConfig()
		cfg.Store.Driver = driver
		assert.NoError(t, cfg.Validate(), driver)
	}

	cfg := validConfig()
	cfg.Store.Driver = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "invalid store driver")
}

func TestValidate_Timezone(t *testing.T) {
	cfg := validConfig()
	cfg.Tracking.Timezone = "Europe/Berlin"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Europe/Berlin", cfg.Tracking.Location.String())

	cfg = validConfig()
	cfg.Tracking.Timezone = "Mars/Olympus_Mons"
	assert.ErrorContains(t, cfg.Validate(), "invalid timezone")
}

func TestValidate_TokenKey(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.TokenKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Auth.TokenKey, 32)

	cfg = validConfig()
	cfg.Auth.TokenKeyHex = "too-short"
	assert.Error(t, cfg.Validate())
}

func TestValidate_TrackingBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Tracking.HeartbeatRPS = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Tracking.HeartbeatBurst = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Tracking.AnnualGoal = 0
	assert.Error(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENV", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := Load([]string{"-data-path", dir, "-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, DriverBadger, cfg.Store.Driver)
	assert.Equal(t, dir, cfg.Store.DataPath)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 12, cfg.Tracking.AnnualGoal)
	assert.NotNil(t, cfg.Tracking.Location)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := "SERVER_PORT=7000\nSTORE_DRIVER=sqlite\nHEARTBEAT_BURST=9\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// Env beats .env, flag beats env.
	t.Setenv("SERVER_PORT", "7100")
	unsetEnv(t, "HEARTBEAT_BURST")
	unsetEnv(t, "STORE_DRIVER")

	cfg, err := Load([]string{
		"-data-path", dir,
		"-env-file", envFile,
		"-port", "7200",
	})
	require.NoError(t, err)

	assert.Equal(t, "7200", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 9, cfg.Tracking.HeartbeatBurst)
}

// unsetEnv removes key for the duration of the test so the .env file can supply it.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	_, err := Load([]string{"-data-path", dir, "-read-timeout", "soon", "-env-file", filepath.Join(dir, "none")})
	assert.ErrorContains(t, err, "SERVER_READ_TIMEOUT")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("/a/b/../c", "")
	require.NoError(t, err)
	assert.Equal(t, "/a/c", got)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, splitList(" https://a.example, ,https://b.example "))
	assert.Nil(t, splitList(""))
}
