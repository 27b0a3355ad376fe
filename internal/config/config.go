package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the console and the stub service. The
// batch size and upload size limits are compiled in and not part of it.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Proxy   ProxyConfig   `yaml:"proxy"`
	Redis   RedisConfig   `yaml:"redis"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
	Stub    StubConfig    `yaml:"stub"`
}

// APIConfig points at the verification service.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AuthConfig holds the session credential. Either field may be empty.
type AuthConfig struct {
	Token  string `yaml:"token"`
	APIKey string `yaml:"api_key"`
}

// ProxyConfig routes outbound calls through http or socks5 proxies.
type ProxyConfig struct {
	URLs        []string `yaml:"urls"`
	Concurrency int      `yaml:"concurrency"`
}

// RedisConfig enables the cross-process submission guard (console) and the
// shared result cache (stub service).
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

// ExportConfig says where downloaded files go.
type ExportConfig struct {
	Dir      string `yaml:"dir"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix"`
	S3Region string `yaml:"s3_region"`
	// Remote makes the service-rendered CSV the default export mode.
	Remote bool `yaml:"remote"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// StubConfig configures cmd/stub-api.
type StubConfig struct {
	Addr            string   `yaml:"addr"`
	APISecretKey    string   `yaml:"api_secret_key"`
	DatabaseURL     string   `yaml:"database_url"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	CacheTTLMinutes int      `yaml:"cache_ttl_minutes"`
	CheckMX         bool     `yaml:"check_mx"`
}

func (c StubConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// Load reads the YAML file at path (skipped when path is empty), then applies
// environment overrides and defaults. A .env file in the working directory is
// loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("VETDESK_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("VETDESK_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.API.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("VETDESK_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}
	if v := os.Getenv("VETDESK_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("VETDESK_PROXY"); v != "" {
		cfg.Proxy.URLs = strings.Split(v, ",")
	}
	if v := os.Getenv("PROXY_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Proxy.Concurrency = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("VETDESK_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
	if v := os.Getenv("VETDESK_S3_BUCKET"); v != "" {
		cfg.Export.S3Bucket = v
	}
	if v := os.Getenv("VETDESK_EXPORT_REMOTE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Export.Remote = b
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("API_SECRET_KEY"); v != "" {
		cfg.Stub.APISecretKey = v
	}
	if v := os.Getenv("DB_URL"); v != "" {
		cfg.Stub.DatabaseURL = v
	}
	if v := os.Getenv("STUB_ADDR"); v != "" {
		cfg.Stub.Addr = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8080"
	}
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 60
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "."
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.RedactPII == nil {
		redact := true
		cfg.Logging.RedactPII = &redact
	}
	if cfg.Stub.Addr == "" {
		cfg.Stub.Addr = ":8080"
	}
	if cfg.Stub.CacheTTLMinutes == 0 {
		cfg.Stub.CacheTTLMinutes = 15
	}
	if len(cfg.Stub.AllowedOrigins) == 0 {
		cfg.Stub.AllowedOrigins = []string{"http://localhost:3000"}
	}
}
