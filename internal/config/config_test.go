package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTP.Address)
	assert.Equal(t, ":9090", cfg.Server.GRPC.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, DriverMemory, cfg.Oracle.Driver)
	assert.Equal(t, 20, cfg.Game.StartingLife)
	assert.Equal(t, 7, cfg.Game.HandLimit)
	assert.Equal(t, 64, cfg.Game.AIStepCap)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.UsesPostgres())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  http:
    address: ":7000"
storage:
  driver: sqlite
  sqlite_path: /tmp/duel.db
logging:
  level: debug
game:
  hand_limit: 8
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("MAGE_DUEL_LOGGING_FORMAT", "json")
	t.Setenv("MAGE_DUEL_GAME_AI_STEP_CAP", "16")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.HTTP.Address)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/duel.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 8, cfg.Game.HandLimit)
	assert.Equal(t, 16, cfg.Game.AIStepCap)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown storage driver", mutate: func(c *Config) { c.Storage.Driver = "redis" }},
		{name: "postgres store without url", mutate: func(c *Config) { c.Storage.Driver = DriverPostgres }},
		{name: "postgres oracle without url", mutate: func(c *Config) { c.Oracle.Driver = DriverPostgres }},
		{name: "sqlite without path", mutate: func(c *Config) {
			c.Storage.Driver = DriverSQLite
			c.Storage.SQLitePath = ""
		}},
		{name: "zero hand limit", mutate: func(c *Config) { c.Game.HandLimit = 0 }},
		{name: "zero ai cap", mutate: func(c *Config) { c.Game.AIStepCap = 0 }},
		{name: "telemetry without endpoint", mutate: func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
