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
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{Path: "/var/lib/critiq", Driver: DriverBadger},
		Backend: BackendConfig{
			URL:     "https://api.critiq.example",
			Timeout: 15 * time.Second,
			RPS:     5,
			Burst:   10,
		},
		Engine:   EngineConfig{RemoteTimeout: 20 * time.Second},
		Comments: CommentsConfig{MaxLength: 2000, PageSize: 20},
		Server:   ServerConfig{AllowedOrigins: []string{"http://localhost:*"}},
	}
}

// isolate unsets the variables Load reads; t.Setenv restores them afterwards.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "DATA_PATH", "STORAGE_DRIVER", "BACKEND_URL", "SESSION_TOKEN",
		"BACKEND_TIMEOUT", "BACKEND_RPS", "BACKEND_BURST", "REMOTE_TIMEOUT",
		"COMMENT_MAX_LENGTH", "COMMENT_PAGE_SIZE", "SERVER_PORT",
		"SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT", "CORS_ORIGINS",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return dir
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
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
		{"DEVELOPMENT", false}, // case sensitive
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

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Logger.Level = "trace" }},
		{"driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"empty data path", func(c *Config) { c.Storage.Path = "" }},
		{"relative backend url", func(c *Config) { c.Backend.URL = "api.critiq.example" }},
		{"zero backend timeout", func(c *Config) { c.Backend.Timeout = 0 }},
		{"zero rps", func(c *Config) { c.Backend.RPS = 0 }},
		{"zero burst", func(c *Config) { c.Backend.Burst = 0 }},
		{"zero remote timeout", func(c *Config) { c.Engine.RemoteTimeout = 0 }},
		{"zero comment length", func(c *Config) { c.Comments.MaxLength = 0 }},
		{"negative page size", func(c *Config) { c.Comments.PageSize = -1 }},
		{"no cors origins", func(c *Config) { c.Server.AllowedOrigins = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load([]string{"-env-file", filepath.Join(dir, "missing.env"), "-data-path", dir})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, DriverBadger, cfg.Storage.Driver)
	assert.Equal(t, dir, cfg.Storage.Path)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.InDelta(t, 5.0, cfg.Backend.RPS, 0.001)
	assert.Equal(t, 10, cfg.Backend.Burst)
	assert.Equal(t, 20*time.Second, cfg.Engine.RemoteTimeout)
	assert.Equal(t, 2000, cfg.Comments.MaxLength)
	assert.Equal(t, 20, cfg.Comments.PageSize)
	assert.Equal(t, "8787", cfg.Server.Port)
	assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"http://localhost:*", "http://127.0.0.1:*"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)

	envFile := filepath.Join(dir, ".env")
	content := "LOG_LEVEL=debug\nSTORAGE_DRIVER=sqlite\nCOMMENT_PAGE_SIZE=50\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// Environment beats .env, flags beat environment.
	t.Setenv("COMMENT_PAGE_SIZE", "30")
	t.Setenv("REMOTE_TIMEOUT", "5s")

	cfg, err := Load([]string{
		"-env-file", envFile,
		"-data-path", dir,
		"-remote-timeout", "2s",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 30, cfg.Comments.PageSize)
	assert.Equal(t, 2*time.Second, cfg.Engine.RemoteTimeout)
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := isolate(t)
	t.Setenv("BACKEND_TIMEOUT", "soon")

	_, err := Load([]string{"-env-file", filepath.Join(dir, "missing.env"), "-data-path", dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_TIMEOUT")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/critiq", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "critiq"), got)

	got, err = expandPath("", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", got)
}

func TestGetIntConfigValue(t *testing.T) {
	t.Setenv("CRITIQ_TEST_INT", "not-a-number")
	assert.Equal(t, 7, getIntConfigValue("", "CRITIQ_TEST_INT", 7))
	assert.Equal(t, 3, getIntConfigValue("3", "CRITIQ_TEST_INT", 7))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(" , "))
}
