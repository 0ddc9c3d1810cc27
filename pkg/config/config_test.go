package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronolens/chronolens/internal/bytesize"
	"github.com/chronolens/chronolens/pkg/catalog"
)

// setRequiredEnv sets the minimum environment for a valid env-only config.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("OBJECT_STORAGE_BUCKET", "chronolens-test")
	// Keep the sqlite default path inside the test's temp dir
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LISTEN_ON", ":9090")
	t.Setenv("NATS_ENDPOINT", "nats://bus.internal:4222")
	t.Setenv("OBJECT_STORAGE_ENDPOINT", "http://minio:9000")
	t.Setenv("OBJECT_STORAGE_ACCESS_KEY", "minioadmin")
	t.Setenv("OBJECT_STORAGE_SECRET_KEY", "minioadmin")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.ListenOn)
	assert.Equal(t, "nats://bus.internal:4222", cfg.Bus.Endpoint)
	assert.Equal(t, "http://minio:9000", cfg.ObjectStorage.Endpoint)
	assert.Equal(t, "chronolens-test", cfg.ObjectStorage.Bucket)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Auth.JWTSecret)
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, DefaultListenOn, cfg.Server.ListenOn)
	assert.Equal(t, DefaultBusEndpoint, cfg.Bus.Endpoint)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, catalog.DatabaseTypeSQLite, cfg.Database.Type)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "chronolens", cfg.Telemetry.ServiceName)
}

func TestLoadPostgresFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHRONOLENS_DATABASE_TYPE", "postgres")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("DATABASE_PORT", "5433")
	t.Setenv("DATABASE_NAME", "chronolens")
	t.Setenv("DATABASE_USERNAME", "app")
	t.Setenv("DATABASE_PASSWORD", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, catalog.DatabaseTypePostgres, cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, 5433, cfg.Database.Postgres.Port)
	assert.Equal(t, "chronolens", cfg.Database.Postgres.Database)
	assert.Equal(t, "app", cfg.Database.Postgres.User)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
}

func TestLoadFromFile(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: DEBUG
  format: json
server:
  listen_on: ":7777"
shutdown_timeout: 5s
object_storage:
  bucket: from-file
  part_size: 8MB
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":7777", cfg.Server.ListenOn)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, bytesize.ByteSize(8*1000*1000), cfg.ObjectStorage.PartSize)
	// Environment wins over the file
	assert.Equal(t, "chronolens-test", cfg.ObjectStorage.Bucket)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing JWT secret", func(t *testing.T) {
		t.Setenv("OBJECT_STORAGE_BUCKET", "chronolens-test")
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWTSecret")
	})

	t.Run("short JWT secret", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("JWT_SECRET", "too-short")

		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("bad log level", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("CHRONOLENS_LOGGING_LEVEL", "LOUD")

		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Logging.Level")
	})

	t.Run("missing bucket", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket")
	})
}

func TestMustLoadMissingExplicitFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	setRequiredEnv(t)

	cfg := GetDefaultConfig()
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.ObjectStorage.Bucket = "saved-bucket"
	cfg.Server.ListenOn = ":6060"

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A saved config must load back; the bucket env override still applies
	// so check the listen address instead.
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6060", loaded.Server.ListenOn)
	assert.Equal(t, cfg.ShutdownTimeout, loaded.ShutdownTimeout)
}
