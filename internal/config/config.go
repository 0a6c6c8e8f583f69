// Package config loads the application configuration: built-in defaults, then an
// optional YAML file, then SQLASSIST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/llm"
	"github.com/ashwinibhardwaj/sqlassist/pkg/adapters/uploads"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverDuckDB   = "duckdb"
)

// Dataset store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SQLASSIST_"

// Config is the full application configuration.
type Config struct {
	// Driver selects where dumps are imported: "postgres" or "duckdb".
	Driver   string          `yaml:"driver"`
	Postgres domain.DBConfig `yaml:"postgres"`
	DuckDB   DuckDBConfig    `yaml:"duckdb"`
	Uploads  UploadsConfig   `yaml:"uploads"`
	LLM      llm.Config      `yaml:"llm"`
	Store    StoreConfig     `yaml:"store"`
	HTTP     HTTPConfig      `yaml:"http"`
	Log      LogConfig       `yaml:"log"`

	MaxRetries int `yaml:"max_retries"`
	MaxRows    int `yaml:"max_rows"`
}

type DuckDBConfig struct {
	Dir string `yaml:"dir"`
}

type UploadsConfig struct {
	Dir string            `yaml:"dir"`
	S3  *uploads.S3Config `yaml:"s3,omitempty"`
}

// StoreConfig selects the dataset cache and, for redis, the shared lock backend.
type StoreConfig struct {
	Backend  string        `yaml:"backend"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`

	// EncryptionKey (32 bytes, base64 or hex) seals cached database passwords.
	// FallbackKeys still open entries sealed before a key rotation.
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadSize  int64    `yaml:"max_upload_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Driver: DriverPostgres,
		Postgres: domain.DBConfig{
			Driver:   domain.DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "postgres",
		},
		DuckDB:  DuckDBConfig{Dir: "data"},
		Uploads: UploadsConfig{Dir: "uploads"},
		LLM: llm.Config{
			Provider:  llm.ProviderAnthropic,
			MaxTokens: 1024,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Addr:    "localhost:6379",
		},
		HTTP: HTTPConfig{
			Addr:          ":8080",
			MaxUploadSize: 64 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatAuto,
		},
		MaxRetries: 2,
		MaxRows:    1000,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when path is
// empty) and environment overrides read through lookup.
func Load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres:
		if c.Postgres.Host == "" {
			return errors.New("config: postgres.host is required")
		}
	case DriverDuckDB:
		if c.DuckDB.Dir == "" {
			return errors.New("config: duckdb.dir is required")
		}
	default:
		return fmt.Errorf("config: unknown driver %q (want %s or %s)", c.Driver, DriverPostgres, DriverDuckDB)
	}

	switch c.LLM.Provider {
	case llm.ProviderAnthropic, llm.ProviderGemini:
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Addr == "" {
			return errors.New("config: store.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	if c.Uploads.Dir == "" {
		return errors.New("config: uploads.dir is required")
	}
	if c.Uploads.S3 != nil && c.Uploads.S3.Bucket == "" {
		return errors.New("config: uploads.s3.bucket is required")
	}
	if c.MaxRetries < 0 {
		return errors.New("config: max_retries must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Dialect names the SQL dialect the SQL synthesizer should target.
func (c Config) Dialect() string {
	if c.Driver == DriverDuckDB {
		return "DuckDB"
	}
	return "PostgreSQL"
}

type binding struct {
	key   string
	apply func(c *Config, v string) error
}

func str(dst func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func integer(dst func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func (c *Config) s3() *uploads.S3Config {
	if c.Uploads.S3 == nil {
		c.Uploads.S3 = &uploads.S3Config{AutoCreateBucket: true}
	}
	return c.Uploads.S3
}

var bindings = []binding{
	{"DRIVER", str(func(c *Config) *string { return &c.Driver })},
	{"PG_HOST", str(func(c *Config) *string { return &c.Postgres.Host })},
	{"PG_PORT", integer(func(c *Config) *int { return &c.Postgres.Port })},
	{"PG_USER", str(func(c *Config) *string { return &c.Postgres.User })},
	{"PG_PASSWORD", str(func(c *Config) *string { return &c.Postgres.Password })},
	{"PG_DATABASE", str(func(c *Config) *string { return &c.Postgres.Database })},
	{"DUCKDB_DIR", str(func(c *Config) *string { return &c.DuckDB.Dir })},
	{"UPLOAD_DIR", str(func(c *Config) *string { return &c.Uploads.Dir })},
	{"S3_ENDPOINT", str(func(c *Config) *string { return &c.s3().Endpoint })},
	{"S3_REGION", str(func(c *Config) *string { return &c.s3().Region })},
	{"S3_BUCKET", str(func(c *Config) *string { return &c.s3().Bucket })},
	{"S3_PREFIX", str(func(c *Config) *string { return &c.s3().Prefix })},
	{"S3_ACCESS_KEY_ID", str(func(c *Config) *string { return &c.s3().AccessKeyID })},
	{"S3_SECRET_ACCESS_KEY", str(func(c *Config) *string { return &c.s3().SecretAccessKey })},
	{"S3_USE_SSL", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.s3().UseSSL = b
		return nil
	}},
	{"LLM_PROVIDER", str(func(c *Config) *string { return &c.LLM.Provider })},
	{"LLM_MODEL", str(func(c *Config) *string { return &c.LLM.Model })},
	{"LLM_API_KEY", str(func(c *Config) *string { return &c.LLM.APIKey })},
	{"LLM_BASE_URL", str(func(c *Config) *string { return &c.LLM.BaseURL })},
	{"LLM_MAX_TOKENS", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.LLM.MaxTokens = n
		return nil
	}},
	{"STORE_BACKEND", str(func(c *Config) *string { return &c.Store.Backend })},
	{"REDIS_ADDR", str(func(c *Config) *string { return &c.Store.Addr })},
	{"REDIS_PASSWORD", str(func(c *Config) *string { return &c.Store.Password })},
	{"REDIS_DB", integer(func(c *Config) *int { return &c.Store.DB })},
	{"STORE_PREFIX", str(func(c *Config) *string { return &c.Store.Prefix })},
	{"STORE_TTL", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Store.TTL = d
		return nil
	}},
	{"STORE_ENCRYPTION_KEY", str(func(c *Config) *string { return &c.Store.EncryptionKey })},
	{"HTTP_ADDR", str(func(c *Config) *string { return &c.HTTP.Addr })},
	{"ALLOWED_ORIGINS", func(c *Config, v string) error {
		c.HTTP.AllowedOrigins = splitList(v)
		return nil
	}},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"LOG_FORMAT", str(func(c *Config) *string { return &c.Log.Format })},
	{"MAX_RETRIES", integer(func(c *Config) *int { return &c.MaxRetries })},
	{"MAX_ROWS", integer(func(c *Config) *int { return &c.MaxRows })},
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, b := range bindings {
		v, ok := lookup(EnvPrefix + b.key)
		if !ok {
			continue
		}
		if err := b.apply(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, b.key, err)
		}
	}

	// Provider SDK conventions, used only when no explicit key is configured.
	if c.LLM.APIKey == "" {
		name := "ANTHROPIC_API_KEY"
		if c.LLM.Provider == llm.ProviderGemini {
			name = "GEMINI_API_KEY"
		}
		if v, ok := lookup(name); ok {
			c.LLM.APIKey = v
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
