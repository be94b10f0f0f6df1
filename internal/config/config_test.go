package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "@daily", cfg.Reminder.Schedule)
	assert.False(t, cfg.Kafka.Enabled)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, 15*24*time.Hour, p.GracePeriod)
	assert.True(t, p.LateFine.Equal(decimal.NewFromInt(150)))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EBILLMANAGER_STORAGE_DRIVER", "sqlite")
	t.Setenv("EBILLMANAGER_STORAGE_DSN", "bills.db")
	t.Setenv("EBILLMANAGER_SERVER_PORT", "9090")
	t.Setenv("EBILLMANAGER_BILLING_GRACE_DAYS", "30")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "bills.db", cfg.Storage.DSN)
	assert.Equal(t, 9090, cfg.Server.Port)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, p.GracePeriod)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: postgres
  dsn: postgres://localhost/bills
billing:
  late_fine: "200.50"
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.True(t, p.LateFine.Equal(decimal.RequireFromString("200.50")))
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown driver":     {"EBILLMANAGER_STORAGE_DRIVER": "mongo"},
		"sqlite without dsn": {"EBILLMANAGER_STORAGE_DRIVER": "sqlite"},
		"negative fine":      {"EBILLMANAGER_BILLING_LATE_FINE": "-1"},
		"bad port":           {"EBILLMANAGER_SERVER_PORT": "70000"},
		"auth without hash":  {"EBILLMANAGER_AUTH_ENABLED": "true"},
		"kafka w/o brokers":  {"EBILLMANAGER_KAFKA_ENABLED": "true"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
