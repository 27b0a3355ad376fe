package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: "https://verify.example.com"
  timeout_seconds: 45

auth:
  api_key: "key-123"

proxy:
  urls: ["socks5://127.0.0.1:1080"]
  concurrency: 4

export:
  dir: "./out"
  s3_bucket: "exports"
  remote: true

logging:
  level: debug
  redact_pii: false

stub:
  addr: ":9090"
  allowed_origins: ["https://console.example.com"]
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://verify.example.com", cfg.API.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.API.Timeout())
	assert.Equal(t, "key-123", cfg.Auth.APIKey)
	assert.Empty(t, cfg.Auth.Token)
	assert.Equal(t, []string{"socks5://127.0.0.1:1080"}, cfg.Proxy.URLs)
	assert.Equal(t, 4, cfg.Proxy.Concurrency)
	assert.Equal(t, "./out", cfg.Export.Dir)
	assert.True(t, cfg.Export.Remote)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NotNil(t, cfg.Logging.RedactPII)
	assert.False(t, *cfg.Logging.RedactPII)
	assert.Equal(t, ":9090", cfg.Stub.Addr)
	assert.Equal(t, []string{"https://console.example.com"}, cfg.Stub.AllowedOrigins)

	// defaults still apply to what the file leaves out
	assert.Equal(t, 15*time.Minute, cfg.Stub.CacheTTL())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.API.Timeout())
	assert.Equal(t, ".", cfg.Export.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, *cfg.Logging.RedactPII)
	assert.Equal(t, ":8080", cfg.Stub.Addr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VETDESK_API_URL", "http://env:1234")
	t.Setenv("VETDESK_TOKEN", "jwt")
	t.Setenv("VETDESK_TIMEOUT_SECONDS", "5")
	t.Setenv("VETDESK_PROXY", "http://a:1,http://b:2")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("API_SECRET_KEY", "s3cret")
	t.Setenv("VETDESK_EXPORT_REMOTE", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://env:1234", cfg.API.BaseURL)
	assert.Equal(t, "jwt", cfg.Auth.Token)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout())
	assert.Equal(t, []string{"http://a:1", "http://b:2"}, cfg.Proxy.URLs)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, "s3cret", cfg.Stub.APISecretKey)
	assert.True(t, cfg.Export.Remote)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
