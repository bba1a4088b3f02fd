package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
	"github.com/asifrahman/smart-multiplug-system/internal/settings"
)

var testThresholds = settings.Thresholds{
	HighUsageWatts: 1000,
	DailyCostBDT:   100,
	PeakFloorWatts: 500,
	PeakStartHour:  17,
	PeakEndHour:    23,
}

func evalInput(power, dailyCost float64, hour int) AlertInput {
	return AlertInput{
		Port:         1,
		PowerWatts:   power,
		DailyCostBdt: dailyCost,
		Hour:         hour,
		At:           time.Date(2025, time.March, 10, hour, 30, 0, 0, time.UTC),
		Thresholds:   testThresholds,
	}
}

func typesOf(alerts []domain.Alert) []domain.AlertType {
	out := make([]domain.AlertType, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Type)
	}
	return out
}

func TestEvaluateNoAlertsBelowThresholds(t *testing.T) {
	assert.Empty(t, EvaluateAlerts(evalInput(400, 50, 10)))
}

func TestEvaluateHighUsage(t *testing.T) {
	alerts := EvaluateAlerts(evalInput(1200, 0, 10))
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertHighUsage, alerts[0].Type)
	assert.Equal(t, domain.SeverityWarning, alerts[0].Severity)
	require.NotNil(t, alerts[0].Port)
	assert.Equal(t, 1, *alerts[0].Port)
}

func TestEvaluateThresholdIsExclusive(t *testing.T) {
	// Exactly at the threshold does not fire; only above does.
	assert.Empty(t, EvaluateAlerts(evalInput(1000, 100, 10)))
}

func TestEvaluateHighCostCritical(t *testing.T) {
	alerts := EvaluateAlerts(evalInput(100, 150, 10))
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertHighCost, alerts[0].Type)
	assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)
}

func TestEvaluatePeakUsageOnlyInsideWindow(t *testing.T) {
	assert.Empty(t, EvaluateAlerts(evalInput(600, 0, 16)))

	alerts := EvaluateAlerts(evalInput(600, 0, 17))
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertPeakUsage, alerts[0].Type)
	assert.Equal(t, domain.SeverityInfo, alerts[0].Severity)

	alerts = EvaluateAlerts(evalInput(600, 0, 23))
	require.Len(t, alerts, 1)
}

func TestEvaluateAllThreeSimultaneously(t *testing.T) {
	alerts := EvaluateAlerts(evalInput(1500, 200, 20))
	assert.ElementsMatch(t,
		[]domain.AlertType{domain.AlertHighUsage, domain.AlertHighCost, domain.AlertPeakUsage},
		typesOf(alerts))
}
