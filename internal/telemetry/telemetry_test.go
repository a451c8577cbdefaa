package telemetry

import (
	"testing"

	"github.com/magefree/mage-duel-server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(t.Context(), config.TelemetryConfig{Enabled: false, Endpoint: "collector:4318"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(t.Context()))
}

func TestSetupEnabled(t *testing.T) {
	// The exporter connects lazily, so no collector is needed here.
	shutdown, err := Setup(t.Context(), config.TelemetryConfig{
		Enabled:     true,
		Endpoint:    "127.0.0.1:4318",
		Insecure:    true,
		ServiceName: "mage-duel-test",
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	_ = shutdown(t.Context())
}
