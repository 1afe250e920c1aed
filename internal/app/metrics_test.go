package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-dispatch-go/internal/config"
)

func TestProvideMetrics_ReusesRegisteredCollectors(t *testing.T) {
	t.Parallel()

	first, err := provideMetrics()
	require.NoError(t, err)
	require.NotNil(t, first.RateLimitExceeded)
	require.NotNil(t, first.ConflictsReported)
	require.NotNil(t, first.DeliveryTransitions)
	require.NotNil(t, first.WSConnectionsActive)

	second, err := provideMetrics()
	require.NoError(t, err)
	assert.Equal(t, first.RateLimitExceeded, second.RateLimitExceeded)
	assert.Equal(t, first.DeliveryTransitions, second.DeliveryTransitions)
}

func TestNewPprofServer_Disabled(t *testing.T) {
	t.Parallel()

	out := newPprofServer(&config.Config{})
	assert.Nil(t, out.Server)
}

func TestNewPprofServer_Enabled(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Pprof: config.PprofConfig{Enabled: true, Addr: "127.0.0.1:6060"}}
	out := newPprofServer(cfg)
	require.NotNil(t, out.Server)
	assert.Equal(t, "127.0.0.1:6060", out.Server.Addr)
	assert.NotNil(t, out.Server.Handler)
}
