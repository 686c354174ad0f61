// Package config loads the sync sidecar configuration from flags, environment variables and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultCORSOrigins = "http://localhost:*,http://127.0.0.1:*"

// Storage drivers.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Storage  StorageConfig
	Backend  BackendConfig
	Engine   EngineConfig
	Comments CommentsConfig
	Server   ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig selects and locates the local persistent store.
type StorageConfig struct {
	Path   string
	Driver string // badger or sqlite
}

// BackendConfig describes the hosted backend the gateway talks to.
type BackendConfig struct {
	URL          string
	SessionToken string // Optional; empty means every remote call fails UNAUTHORIZED
	Timeout      time.Duration
	RPS          float64
	Burst        int
}

// EngineConfig holds reconciliation settings.
type EngineConfig struct {
	// RemoteTimeout bounds how long an intent may stay pending before it is rolled back.
	RemoteTimeout time.Duration
}

// CommentsConfig holds comment ledger limits.
type CommentsConfig struct {
	MaxLength int
	PageSize  int
}

// ServerConfig holds the local API server configuration.
type ServerConfig struct {
	Port           string
	AllowedOrigins []string // CORS origins, "*" wildcards allowed
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("critiq-sync", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory of the local store")
	driver := fs.String("storage-driver", "", "Local store driver (badger, sqlite)")

	backendURL := fs.String("backend-url", "", "Base URL of the hosted backend")
	sessionToken := fs.String("session-token", "", "Bearer token of the active session")
	backendTimeout := fs.String("backend-timeout", "", "HTTP timeout for backend calls (default: 15s)")
	backendRPS := fs.String("backend-rps", "", "Outbound requests per second per operation (default: 5)")
	backendBurst := fs.String("backend-burst", "", "Outbound burst per operation (default: 10)")

	remoteTimeout := fs.String("remote-timeout", "", "Bounded wait for a pending intent (default: 20s)")
	commentMax := fs.String("comment-max-length", "", "Maximum comment length in characters (default: 2000)")
	pageSize := fs.String("comment-page-size", "", "Comments per page (default: 20)")

	serverPort := fs.String("port", "", "Server port (default: 8787)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0, disabled for SSE)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated CORS origins (default: localhost only)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// godotenv never overrides variables that are already set.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Path:   getConfigValue(*dataPath, "DATA_PATH", ""),
			Driver: strings.ToLower(getConfigValue(*driver, "STORAGE_DRIVER", DriverBadger)),
		},
		Backend: BackendConfig{
			URL:          getConfigValue(*backendURL, "BACKEND_URL", "http://localhost:8080"),
			SessionToken: getConfigValue(*sessionToken, "SESSION_TOKEN", ""),
			RPS:          getFloatConfigValue(*backendRPS, "BACKEND_RPS", 5),
			Burst:        getIntConfigValue(*backendBurst, "BACKEND_BURST", 10),
		},
		Comments: CommentsConfig{
			MaxLength: getIntConfigValue(*commentMax, "COMMENT_MAX_LENGTH", 2000),
			PageSize:  getIntConfigValue(*pageSize, "COMMENT_PAGE_SIZE", 20),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8787"),
			AllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", defaultCORSOrigins)),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dst       *time.Duration
	}{
		{*backendTimeout, "BACKEND_TIMEOUT", "15s", &cfg.Backend.Timeout},
		{*remoteTimeout, "REMOTE_TIMEOUT", "20s", &cfg.Engine.RemoteTimeout},
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "0s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Storage.Driver {
	case DriverBadger, DriverSQLite:
	default:
		return fmt.Errorf("invalid storage driver: %s (must be badger or sqlite)", c.Storage.Driver)
	}

	if c.Storage.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend url: %q", c.Backend.URL)
	}

	if c.Backend.Timeout <= 0 {
		return errors.New("backend timeout must be positive")
	}
	if c.Backend.RPS <= 0 || c.Backend.Burst <= 0 {
		return errors.New("backend rate limits must be positive")
	}
	if c.Engine.RemoteTimeout <= 0 {
		return errors.New("remote timeout must be positive")
	}
	if c.Comments.MaxLength <= 0 {
		return errors.New("comment max length must be positive")
	}
	if c.Comments.PageSize <= 0 {
		return errors.New("comment page size must be positive")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return errors.New("at least one CORS origin is required")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, uses defaultPath.
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

// expandDataPath defaults the store directory to ~/.critiq/sync.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Storage.Path, filepath.Join(homeDir, ".critiq", "sync"))
	if err != nil {
		return err
	}
	c.Storage.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for item := range strings.SplitSeq(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparseable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
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
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}
