package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("BINDRELAY_TEST_STR", "value")
	t.Setenv("BINDRELAY_TEST_INT", "7")
	t.Setenv("BINDRELAY_TEST_BAD_INT", "seven")
	t.Setenv("BINDRELAY_TEST_DUR", "90s")

	assert.Equal(t, "value", getEnvString("BINDRELAY_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", getEnvString("BINDRELAY_TEST_UNSET", "fallback"))
	assert.Equal(t, 7, getEnvInt("BINDRELAY_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("BINDRELAY_TEST_BAD_INT", 1))
	assert.Equal(t, 90*time.Second, getEnvDuration("BINDRELAY_TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("BINDRELAY_TEST_UNSET", time.Minute))
}

// Parse registers global flags, so only one test may call it.
func TestParseFromEnvironment(t *testing.T) {
	t.Setenv("BINDRELAY_ADDR", "127.0.0.1:9090")
	t.Setenv("BINDRELAY_MODE", "BOTH")
	t.Setenv("BINDRELAY_STATE_DIR", t.TempDir())
	t.Setenv("BINDRELAY_RECONCILE_INTERVAL", "2m")
	t.Setenv("BINDRELAY_FIRING_RETENTION", "10")
	t.Setenv("RELAY_URL", "http://relay.local")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, "both", cfg.Mode, "mode is normalized to lower case")
	assert.Equal(t, 2*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, 10, cfg.FiringRetention)
	assert.Equal(t, "http://relay.local", cfg.Platform.RelayURL)
	assert.Equal(t, defaultAttributeBase, cfg.Platform.AttributeBase)
}
