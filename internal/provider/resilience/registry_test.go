package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishigakitour/pickup/internal/provider/resilience"
)

func registered(t *testing.T, names ...string) *resilience.Registry {
	t.Helper()
	registry := resilience.NewRegistry()
	for _, name := range names {
		cfg := resilience.DefaultClientConfig(name)
		cfg.Registry = registry
		client := resilience.NewClient(cfg)
		require.Equal(t, name, client.Name())
	}
	return registry
}

func TestRegistry_NewClientRegistersItself(t *testing.T) {
	registry := registered(t, "open-meteo")

	assert.Equal(t, 1, registry.ProviderCount())
	health := registry.GetHealth("open-meteo")
	require.NotNil(t, health)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.Equal(t, resilience.StatusHealthy, health.Status())
	assert.Nil(t, registry.GetHealth("missing"))
}

func TestRegistry_RecordsOutcomes(t *testing.T) {
	registry := registered(t, "remote-optimizer")

	registry.RecordSuccess("remote-optimizer")
	registry.RecordFailure("remote-optimizer", errors.New("connection refused"))
	registry.RecordSuccess("unknown")

	health := registry.GetHealth("remote-optimizer")
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastFailureAt, time.Second)
	assert.Equal(t, "connection refused", health.LastError)
}

func TestRegistry_GetAllHealthIsSorted(t *testing.T) {
	registry := registered(t, "remote-optimizer", "open-meteo")

	all := registry.GetAllHealth()
	require.Len(t, all, 2)
	assert.Equal(t, "open-meteo", all[0].Name)
	assert.Equal(t, "remote-optimizer", all[1].Name)

	registry.Unregister("open-meteo")
	assert.Equal(t, 1, registry.ProviderCount())
}

func TestRegistry_UnsetStampsAreNil(t *testing.T) {
	registry := registered(t, "open-meteo")

	health := registry.GetHealth("open-meteo")
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
	assert.Empty(t, health.LastError)

	registry.RecordFailure("open-meteo", nil)
	health = registry.GetHealth("open-meteo")
	assert.NotNil(t, health.LastFailureAt)
	assert.Empty(t, health.LastError)
}

func TestRegistry_ReRegisterResetsOutcomes(t *testing.T) {
	registry := registered(t, "remote-optimizer")
	registry.RecordFailure("remote-optimizer", errors.New("timeout"))

	registry.Register("remote-optimizer", resilience.NewClient(resilience.DefaultClientConfig("remote-optimizer")))

	health := registry.GetHealth("remote-optimizer")
	assert.Nil(t, health.LastFailureAt)
	assert.Empty(t, health.LastError)
}

func TestProviderHealth_Status(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  string
	}{
		{gobreaker.StateClosed, resilience.StatusHealthy},
		{gobreaker.StateHalfOpen, resilience.StatusDegraded},
		{gobreaker.StateOpen, resilience.StatusUnhealthy},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, (&resilience.ProviderHealth{CircuitState: tt.state}).Status(), tt.state.String())
	}
}
