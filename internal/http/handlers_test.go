package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asifrahman/smart-multiplug-system/internal/repository"
	"github.com/asifrahman/smart-multiplug-system/internal/service"
	"github.com/asifrahman/smart-multiplug-system/internal/settings"
)

func newTestApp(t *testing.T) (*fiber.App, *repository.Memory) {
	t.Helper()
	store := repository.NewMemory()
	svc := service.New(store, settings.NewRegistry(store), service.Options{
		Ports:           4,
		IntervalMinutes: 1,
	})
	app := fiber.New()
	Register(app, svc)
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestTelemetryAcceptsValidSample(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/telemetry", map[string]interface{}{
		"port": 1, "voltage": 220.0, "current": 2.5, "power": 550.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Type  string `json:"type"`
		State struct {
			Port  int     `json:"port"`
			Power float64 `json:"power"`
			Relay string  `json:"relay_state"`
		} `json:"state"`
	}
	decode(t, resp, &result)
	assert.Equal(t, "data_update", result.Type)
	assert.Equal(t, 1, result.State.Port)
	assert.Equal(t, 550.0, result.State.Power)
	assert.Equal(t, "OFF", result.State.Relay)
}

func TestTelemetryRejectsMissingFields(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/telemetry", map[string]interface{}{
		"port": 1, "voltage": 220.0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTelemetryRejectsOutOfRangePort(t *testing.T) {
	app, _ := newTestApp(t)

	for _, port := range []int{0, 5, -1} {
		resp := doJSON(t, app, "POST", "/api/telemetry", map[string]interface{}{
			"port": port, "voltage": 220.0, "current": 1.0, "power": 220.0,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "port %d", port)
	}
}

func TestToggleFlipsAndReports(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/relay/toggle", map[string]interface{}{"port": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Port  int    `json:"port"`
		State string `json:"state"`
	}
	decode(t, resp, &result)
	assert.Equal(t, 2, result.Port)
	assert.Equal(t, "ON", result.State)

	resp = doJSON(t, app, "POST", "/api/relay/toggle", map[string]interface{}{"port": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &result)
	assert.Equal(t, "OFF", result.State)
}

func TestToggleRequiresPort(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/relay/toggle", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestControlReflectsToggledRelay(t *testing.T) {
	app, _ := newTestApp(t)

	doJSON(t, app, "POST", "/api/relay/toggle", map[string]interface{}{"port": 3})

	resp := doJSON(t, app, "GET", "/api/control", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state struct {
		Relays        map[string]string `json:"relays"`
		MasterEnabled bool              `json:"master_enabled"`
	}
	decode(t, resp, &state)
	assert.True(t, state.MasterEnabled)
	assert.Equal(t, "ON", state.Relays["3"])
	assert.Equal(t, "OFF", state.Relays["1"])
}

func TestLimitsServesDefaults(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "GET", "/api/limits", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var limits struct {
		MaxVoltage float64 `json:"max_voltage"`
		MaxCurrent float64 `json:"max_current"`
		MaxPower   float64 `json:"max_power"`
	}
	decode(t, resp, &limits)
	assert.Equal(t, 250.0, limits.MaxVoltage)
	assert.Equal(t, 16.0, limits.MaxCurrent)
	assert.Equal(t, 3500.0, limits.MaxPower)
}

func TestEmergencyEndpointStoresCriticalAlert(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/alert/emergency", map[string]interface{}{
		"port": 1, "reason": "overcurrent", "voltage": 230.0, "current": 18.0, "power": 4140.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var alert struct {
		Type     string `json:"type"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
	}
	decode(t, resp, &alert)
	assert.Equal(t, "EMERGENCY", alert.Type)
	assert.Equal(t, "CRITICAL", alert.Severity)
	assert.Contains(t, alert.Message, "overcurrent")

	resp = doJSON(t, app, "GET", "/api/alerts", nil)
	var alerts []json.RawMessage
	decode(t, resp, &alerts)
	assert.Len(t, alerts, 1)
}

func TestDashboardCoversAllPorts(t *testing.T) {
	app, _ := newTestApp(t)

	doJSON(t, app, "POST", "/api/telemetry", map[string]interface{}{
		"port": 1, "voltage": 220.0, "current": 3.0, "power": 660.0,
	})

	resp := doJSON(t, app, "GET", "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data struct {
		Realtime []struct {
			Port int `json:"port"`
		} `json:"realtime"`
		Today []struct {
			Port      int     `json:"port"`
			EnergyKwh float64 `json:"energy_kwh"`
		} `json:"today"`
		TodayTotal   map[string]interface{} `json:"today_total"`
		MonthlyTotal map[string]interface{} `json:"monthly_total"`
		Rate         float64                `json:"electricity_rate"`
	}
	decode(t, resp, &data)
	assert.Len(t, data.Realtime, 4)
	assert.Len(t, data.Today, 4)
	assert.Equal(t, 8.0, data.Rate)
	assert.InDelta(t, 0.011, data.Today[0].EnergyKwh, 0.001)

	// Runtime is a daily notion; the monthly total carries energy and
	// cost only.
	assert.Contains(t, data.TodayTotal, "runtime")
	assert.NotContains(t, data.MonthlyTotal, "runtime")
}

func TestAckUnknownAlertIsNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/alerts/42/ack", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAckInvalidIDRejected(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/alerts/notanumber/ack", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRateUpdateValidation(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/settings/rate", map[string]interface{}{"rate": -1.0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/api/settings/rate", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/api/settings/rate", map[string]interface{}{"rate": 9.5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestResetDailyClearsToday(t *testing.T) {
	app, _ := newTestApp(t)

	doJSON(t, app, "POST", "/api/telemetry", map[string]interface{}{
		"port": 1, "voltage": 220.0, "current": 3.0, "power": 660.0,
	})

	resp := doJSON(t, app, "POST", "/api/reset-daily", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/dashboard", nil)
	var data struct {
		Today []struct {
			EnergyKwh float64 `json:"energy_kwh"`
		} `json:"today"`
	}
	decode(t, resp, &data)
	assert.Equal(t, 0.0, data.Today[0].EnergyKwh)
}
