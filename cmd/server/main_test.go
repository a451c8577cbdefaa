package main

import (
	"path/filepath"
	"testing"

	"github.com/magefree/mage-duel-server/internal/config"
	"github.com/magefree/mage-duel-server/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		cfg  config.LoggingConfig
		want zapcore.Level
	}{
		{cfg: config.LoggingConfig{Level: "debug", Format: "console"}, want: zapcore.DebugLevel},
		{cfg: config.LoggingConfig{Level: "warn", Format: "json"}, want: zapcore.WarnLevel},
		{cfg: config.LoggingConfig{Level: "bogus"}, want: zapcore.InfoLevel},
	}
	for _, tt := range tests {
		logger, err := initLogger(tt.cfg)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(tt.want))
		assert.False(t, logger.Core().Enabled(tt.want-1))
	}
}

func TestOpenStore(t *testing.T) {
	logger := zaptest.NewLogger(t)

	store, err := openStore(t.Context(), config.StorageConfig{Driver: config.DriverMemory}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &repository.MemoryStore{}, store)

	path := filepath.Join(t.TempDir(), "nested", "sessions.db")
	store, err = openStore(t.Context(), config.StorageConfig{Driver: config.DriverSQLite, SQLitePath: path}, nil, logger)
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping(t.Context()))
}

func TestOpenOracleLoadsCatalog(t *testing.T) {
	cards, err := openOracle(t.Context(), config.OracleConfig{
		Driver:    config.DriverMemory,
		CardsFile: filepath.Join("..", "..", "config", "cards.json"),
	}, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	card, err := cards.GetCardByID(t.Context(), "grizzly-bears")
	require.NoError(t, err)
	assert.True(t, card.IsCreature())
	assert.Equal(t, 2, card.PowerValue())
}
