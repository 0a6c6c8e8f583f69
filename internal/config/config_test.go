package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "PostgreSQL", cfg.Dialect())
	assert.Equal(t, 2, cfg.MaxRetries)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlassist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
driver: duckdb
duckdb:
  dir: /var/lib/sqlassist
llm:
  provider: gemini
  model: gemini-2.5-flash
store:
  backend: redis
  addr: redis:6379
  ttl: 1h
max_retries: 4
`), 0o644))

	cfg, err := Load(path, envMap(map[string]string{
		"SQLASSIST_MAX_RETRIES":     "1",
		"SQLASSIST_ALLOWED_ORIGINS": "http://a, http://b ,",
		"GEMINI_API_KEY":            "g-key",
	}))
	require.NoError(t, err)

	assert.Equal(t, DriverDuckDB, cfg.Driver)
	assert.Equal(t, "DuckDB", cfg.Dialect())
	assert.Equal(t, "/var/lib/sqlassist", cfg.DuckDB.Dir)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, time.Hour, cfg.Store.TTL)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.HTTP.AllowedOrigins)
	// Untouched defaults survive a partial file.
	assert.Equal(t, "uploads", cfg.Uploads.Dir)
}

func TestLoad_S3FromEnv(t *testing.T) {
	cfg, err := Load("", envMap(map[string]string{
		"SQLASSIST_S3_ENDPOINT": "http://minio:9000",
		"SQLASSIST_S3_BUCKET":   "dumps",
		"SQLASSIST_S3_USE_SSL":  "false",
	}))
	require.NoError(t, err)
	require.NotNil(t, cfg.Uploads.S3)
	assert.Equal(t, "dumps", cfg.Uploads.S3.Bucket)
	assert.True(t, cfg.Uploads.S3.AutoCreateBucket)
}

func TestLoad_ExplicitKeyWins(t *testing.T) {
	cfg, err := Load("", envMap(map[string]string{
		"SQLASSIST_LLM_API_KEY": "explicit",
		"ANTHROPIC_API_KEY":     "ambient",
	}))
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad int", map[string]string{"SQLASSIST_MAX_RETRIES": "two"}},
		{"negative retries", map[string]string{"SQLASSIST_MAX_RETRIES": "-1"}},
		{"unknown driver", map[string]string{"SQLASSIST_DRIVER": "mysql"}},
		{"unknown provider", map[string]string{"SQLASSIST_LLM_PROVIDER": "hal"}},
		{"unknown backend", map[string]string{"SQLASSIST_STORE_BACKEND": "etcd"}},
		{"bad ttl", map[string]string{"SQLASSIST_STORE_TTL": "soon"}},
		{"bad level", map[string]string{"SQLASSIST_LOG_LEVEL": "loud"}},
		{"s3 without bucket", map[string]string{"SQLASSIST_S3_ENDPOINT": "minio:9000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
	assert.Error(t, err)
}
