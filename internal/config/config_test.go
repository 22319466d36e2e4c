package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/applytrack/internal/pkg/apperrors"
)

var configEnvVars = []string{
	"DB_DRIVER", "DB_URI", "MONGO_URI", "DB_NAME", "DB_CONNECT_TIMEOUT", "DB_MAX_POOL_SIZE",
	"LOG_LEVEL", "LOG_FORMAT", "BCRYPT_COST",
	"SEED_ADMIN_EMAIL", "SEED_ADMIN_PASSWORD", "SEED_ADMIN_FIRST_NAME", "SEED_ADMIN_LAST_NAME",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvVars {
		if v, ok := os.LookupEnv(k); ok {
			require.NoError(t, os.Unsetenv(k))
			t.Cleanup(func() { _ = os.Setenv(k, v) })
		} else {
			t.Cleanup(func() { _ = os.Unsetenv(k) })
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.NoError(t, err)

	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.URI)
	assert.Equal(t, "student_tracker", cfg.Database.Name)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeoutDuration())
	assert.Equal(t, "admin@example.com", cfg.Seed.AdminEmail)
	assert.Equal(t, "admin123", cfg.Seed.AdminPassword)
	assert.False(t, cfg.PrettyLogs())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: postgres
  uri: postgres://tracker:secret@db:5432/tracker
  connect_timeout: 3s
logging:
  level: debug
  format: text
`), 0o600))

	t.Setenv("DB_MAX_POOL_SIZE", "7")
	t.Setenv("SEED_ADMIN_EMAIL", "root@uni.example")

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://tracker:secret@db:5432/tracker", cfg.Database.URI)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeoutDuration())
	assert.Equal(t, 7, cfg.Database.MaxPoolSize)
	assert.Equal(t, "root@uni.example", cfg.Seed.AdminEmail)
	assert.True(t, cfg.PrettyLogs())
}

func TestLoadConfig_MongoURIFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://mongo:27017/tracker")

	cfg, err := LoadConfig("", "")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://mongo:27017/tracker", cfg.Database.URI)

	t.Setenv("DB_URI", "mongodb://primary:27017")
	cfg, err = LoadConfig("", "")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://primary:27017", cfg.Database.URI)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DB_DRIVER=memory\nLOG_LEVEL=warn\n"), 0o600))

	cfg, err := LoadConfig("", envFile)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfig_MissingDotEnvIsIgnored(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig("", filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "couchdb"}},
		{name: "bad timeout", env: map[string]string{"DB_CONNECT_TIMEOUT": "soon"}},
		{name: "empty uri", env: map[string]string{"DB_URI": ""}},
		{name: "empty seed password", env: map[string]string{"SEED_ADMIN_PASSWORD": ""}},
		{name: "short seed password", env: map[string]string{"SEED_ADMIN_PASSWORD": "abc"}},
		{name: "bad seed email", env: map[string]string{"SEED_ADMIN_EMAIL": "admin"}},
		{name: "negative pool size", env: map[string]string{"DB_MAX_POOL_SIZE": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig("", "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidConfig))
		})
	}
}

func TestLoadConfig_BadEnvInteger(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_MAX_POOL_SIZE", "lots")

	_, err := LoadConfig("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MAX_POOL_SIZE")
}
