package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Parse([]byte(`
ai:
  provider: stub
database:
  driver: memory
`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Checks.PersistTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Minio.Enabled)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("DB_PASSWORD", "db-env")
	t.Setenv("MINIO_SECRET_KEY", "minio-env")

	cfg, err := Parse([]byte(`
ai:
  apiKey: sk-file
  timeout: 45s
database:
  driver: postgres
  host: db
  user: nog
  password: file
  name: nog
minio:
  enabled: true
  endpoint: minio:9000
retry:
  baseDelay: 500ms
`))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "sk-env", cfg.AI.APIKey)
	assert.Equal(t, 45*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "minio-env", cfg.Minio.SecretKey)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "host=db port=5432 user=nog password=db-env dbname=nog sslmode=disable", cfg.DSN())
}

func TestMySQLDSN(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")
	cfg, err := Parse([]byte(`
ai: {provider: stub}
database: {host: localhost, user: root, password: pw, name: nog}
`))
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "root:pw@tcp(localhost:3306)/nog?parseTime=true&charset=utf8mb4&loc=UTC&clientFoundRows=true", cfg.DSN())
}

func TestValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	tests := []struct {
		name string
		yaml string
	}{
		{"missing api key", "ai: {provider: openai}"},
		{"unknown provider", "ai: {provider: gemini}"},
		{"unknown driver", "ai: {provider: stub}\ndatabase: {driver: sqlite}"},
		{"minio without endpoint", "ai: {provider: stub}\nminio: {enabled: true}"},
		{"negative attempts", "ai: {provider: stub}\nretry: {maxAttempts: -1}"},
		{"too many attempts", "ai: {provider: stub}\nretry: {maxAttempts: 11}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai: {provider: stub}\nserver: {port: 9090}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOG_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("NOG_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("NOG_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env"), path))
	assert.Equal(t, "from-file", os.Getenv("NOG_TEST_DOTENV"))
}
