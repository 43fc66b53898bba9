// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Store    StoreConfig
	Server   ServerConfig
	Auth     AuthConfig
	Tracking TrackingConfig
	Search   SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver   string // badger (default) or sqlite
	DataPath string // root for the database, search log and auth key
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
	IPRateLimit  int // requests per minute per client IP, 0 disables
}

// AuthConfig holds bearer token configuration.
type AuthConfig struct {
	// TokenKeyHex is a 64 character hex PASETO v4 key shared with the identity service.
	// When empty, a key is loaded from (or generated into) {DataPath}/auth.key.
	TokenKeyHex   string
	TokenKey      []byte
	TokenDuration time.Duration
}

// TrackingConfig tunes the reading tracker.
type TrackingConfig struct {
	Timezone       string
	Location       *time.Location
	HeartbeatRPS   float64
	HeartbeatBurst int
	AnnualGoal     int // books per year used for goal progress
}

// SearchConfig configures the search-event log and its circuit breaker.
type SearchConfig struct {
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// LoadConfig loads configuration from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load resolves configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("readtrack", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	storeDriver := fs.String("store-driver", "", "Store backend (badger, sqlite)")
	dataPath := fs.String("data-path", "", "Base path for databases and keys")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed CORS origins (default: *)")
	ipRateLimit := fs.String("ip-rate-limit", "", "Requests per minute per client IP (default: 600)")

	tokenDuration := fs.String("token-duration", "", "Issued token lifetime (default: 24h)")

	timezone := fs.String("timezone", "", "IANA timezone used for calendar days (default: Local)")
	heartbeatRPS := fs.String("heartbeat-rps", "", "Heartbeats per second per user (default: 1)")
	heartbeatBurst := fs.String("heartbeat-burst", "", "Heartbeat burst per user (default: 5)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env is fine; godotenv never overrides variables already set.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Driver:   strings.ToLower(getConfigValue(*storeDriver, "STORE_DRIVER", DriverBadger)),
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
			IPRateLimit: getIntConfigValue(*ipRateLimit, "IP_RATE_LIMIT", 600),
		},
		Auth: AuthConfig{
			TokenKeyHex: getConfigValue("", "AUTH_TOKEN_KEY", ""),
		},
		Tracking: TrackingConfig{
			Timezone:       getConfigValue(*timezone, "TRACKING_TIMEZONE", "Local"),
			HeartbeatRPS:   getFloatConfigValue(*heartbeatRPS, "HEARTBEAT_RPS", 1),
			HeartbeatBurst: getIntConfigValue(*heartbeatBurst, "HEARTBEAT_BURST", 5),
			AnnualGoal:     getIntConfigValue("", "READING_GOAL_BOOKS", 12),
		},
		Search: SearchConfig{
			BreakerFailures: uint32(getIntConfigValue("", "SEARCH_BREAKER_FAILURES", 5)), //nolint:gosec // bounded by Validate
		},
	}

	durations := []struct {
		flagValue, envKey, def string
		dest                   *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*tokenDuration, "TOKEN_DURATION", "24h", &cfg.Auth.TokenDuration},
		{"", "SEARCH_BREAKER_TIMEOUT", "30s", &cfg.Search.BreakerTimeout},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dest = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
// It resolves Tracking.Location and, when set, Auth.TokenKey.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Store.Driver != DriverBadger && c.Store.Driver != DriverSQLite {
		return fmt.Errorf("invalid store driver: %q (must be badger or sqlite)", c.Store.Driver)
	}

	if c.Store.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	loc, err := time.LoadLocation(c.Tracking.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Tracking.Timezone, err)
	}
	c.Tracking.Location = loc

	if c.Tracking.HeartbeatRPS <= 0 {
		return errors.New("heartbeat rps must be positive")
	}
	if c.Tracking.HeartbeatBurst < 1 {
		return errors.New("heartbeat burst must be at least 1")
	}
	if c.Tracking.AnnualGoal < 1 {
		return errors.New("reading goal must be at least 1 book")
	}

	if c.Search.BreakerFailures < 1 {
		return errors.New("search breaker failures must be at least 1")
	}

	if c.Auth.TokenKeyHex != "" {
		key, err := hex.DecodeString(c.Auth.TokenKeyHex)
		if err != nil || len(key) != 32 {
			return errors.New("AUTH_TOKEN_KEY must be 64 hex characters (32 bytes)")
		}
		c.Auth.TokenKey = key
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults to ~/ReadTrack/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Store.DataPath, filepath.Join(homeDir, "ReadTrack", "data"))
	if err != nil {
		return err
	}
	c.Store.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envKey != "" {
		if envValue := os.Getenv(envKey); envValue != "" {
			return envValue
		}
	}

	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strings.TrimSpace(strValue), 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
