package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
	"github.com/asifrahman/smart-multiplug-system/internal/repository"
	"github.com/asifrahman/smart-multiplug-system/internal/settings"
)

func TestControlStateDefaultsAllOff(t *testing.T) {
	svc := newTestService(repository.NewMemory(), newClock(offPeak))

	state, err := svc.ControlState(context.Background())
	require.NoError(t, err)
	assert.True(t, state.MasterEnabled)
	require.Len(t, state.Relays, 4)
	for port, relay := range state.Relays {
		assert.Equal(t, domain.RelayOff, relay, "port %s", port)
	}
}

func TestControlStateReflectsToggles(t *testing.T) {
	svc := newTestService(repository.NewMemory(), newClock(offPeak))
	ctx := context.Background()

	_, err := svc.ToggleRelay(ctx, 2)
	require.NoError(t, err)

	state, err := svc.ControlState(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RelayOn, state.Relays["2"])
	assert.Equal(t, domain.RelayOff, state.Relays["1"])
}

func TestMasterDisableForcesAllOff(t *testing.T) {
	store := repository.NewMemory()
	svc := newTestService(store, newClock(offPeak))
	ctx := context.Background()

	_, err := svc.ToggleRelay(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, svc.registry.Set(ctx, settings.KeyMasterEnabled, "false"))

	state, err := svc.ControlState(ctx)
	require.NoError(t, err)
	assert.False(t, state.MasterEnabled)
	for port, relay := range state.Relays {
		assert.Equal(t, domain.RelayOff, relay, "port %s", port)
	}

	// The stored per-port intent is untouched; only the poll view changes.
	stored, err := store.GetPortState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RelayOn, stored.RelayState)
}

func TestSafetyLimitsDefaults(t *testing.T) {
	svc := newTestService(repository.NewMemory(), newClock(offPeak))

	limits := svc.SafetyLimits(context.Background())
	assert.Equal(t, settings.DefaultMaxVoltage, limits.MaxVoltage)
	assert.Equal(t, settings.DefaultMaxCurrent, limits.MaxCurrent)
	assert.Equal(t, settings.DefaultMaxPower, limits.MaxPower)
}

func TestRecordEmergencyStoresCritical(t *testing.T) {
	store := repository.NewMemory()
	svc := newTestService(store, newClock(offPeak))
	ctx := context.Background()

	alert, err := svc.RecordEmergency(ctx, domain.EmergencyReport{
		Port:      2,
		Reason:    "overcurrent",
		Voltage:   231,
		Current:   18.2,
		Power:     4100,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AlertEmergency, alert.Type)
	assert.Equal(t, domain.SeverityCritical, alert.Severity)
	assert.Contains(t, alert.Message, "overcurrent")

	stored, err := store.ListUnacknowledgedAlerts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].Port)
	assert.Equal(t, 2, *stored[0].Port)
}

func TestRecordEmergencyRejectsInvalidPort(t *testing.T) {
	svc := newTestService(repository.NewMemory(), newClock(offPeak))

	_, err := svc.RecordEmergency(context.Background(), domain.EmergencyReport{Port: 9, Reason: "x"})
	assert.ErrorIs(t, err, ErrInvalidPort)
}

func TestEmergencyDoesNotTouchRelayIntent(t *testing.T) {
	store := repository.NewMemory()
	svc := newTestService(store, newClock(offPeak))
	ctx := context.Background()

	_, err := svc.ToggleRelay(ctx, 1)
	require.NoError(t, err)

	_, err = svc.RecordEmergency(ctx, domain.EmergencyReport{Port: 1, Reason: "overheat", Power: 4000})
	require.NoError(t, err)

	stored, err := store.GetPortState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RelayOn, stored.RelayState)
}

func TestAcknowledgeAlert(t *testing.T) {
	store := repository.NewMemory()
	svc := newTestService(store, newClock(offPeak))
	ctx := context.Background()

	alert, err := svc.RecordEmergency(ctx, domain.EmergencyReport{Port: 1, Reason: "overheat"})
	require.NoError(t, err)

	require.NoError(t, svc.AcknowledgeAlert(ctx, alert.ID))

	pending, err := svc.UnacknowledgedAlerts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
