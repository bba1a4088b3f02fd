package domain

import (
	"strings"
	"time"
)

// RelayState is the operator-intended ON/OFF state of a port. It is only
// ever changed through the relay command path, never by telemetry.
type RelayState string

const (
	RelayOn  RelayState = "ON"
	RelayOff RelayState = "OFF"
)

func (r RelayState) On() bool { return r == RelayOn }

func (r RelayState) Toggled() RelayState {
	if r == RelayOn {
		return RelayOff
	}
	return RelayOn
}

// ParseRelayState accepts the boolean-ish encodings seen on the wire
// ("ON", "on", "true", "1") and folds them into the two canonical states.
func ParseRelayState(s string) RelayState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1":
		return RelayOn
	}
	return RelayOff
}

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// TelemetrySample is one voltage/current/power reading pushed by an
// embedded node for a single port.
type TelemetrySample struct {
	Port    int     `json:"port"`
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	Power   float64 `json:"power"`
}

// Status derives online/offline from instantaneous power draw.
func (s TelemetrySample) Status() Status {
	if s.Power > 0 {
		return StatusOnline
	}
	return StatusOffline
}

// PortState is the latest-known state for one port.
type PortState struct {
	Port        int        `db:"port" json:"port"`
	Voltage     float64    `db:"voltage" json:"voltage"`
	Current     float64    `db:"current" json:"current"`
	Power       float64    `db:"power" json:"power"`
	Status      Status     `db:"status" json:"status"`
	RelayState  RelayState `db:"relay_state" json:"relay_state"`
	LastUpdated time.Time  `db:"last_updated" json:"last_updated"`
}

// DailyCounter accumulates energy, cost and runtime for one (date, port).
// Dates are "2006-01-02" in server local time.
type DailyCounter struct {
	Date           string  `db:"date" json:"date"`
	Port           int     `db:"port" json:"port"`
	EnergyKwh      float64 `db:"energy_kwh" json:"energy_kwh"`
	CostBdt        float64 `db:"cost_bdt" json:"cost_bdt"`
	RuntimeMinutes int     `db:"runtime_minutes" json:"runtime_minutes"`
	PeakUsageWatts float64 `db:"peak_usage_watts" json:"peak_usage_watts"`
}

// MonthlyCounter accumulates energy and cost for one (year, month, port),
// independently of the daily rows.
type MonthlyCounter struct {
	Year      int     `db:"year" json:"year"`
	Month     int     `db:"month" json:"month"`
	Port      int     `db:"port" json:"port"`
	EnergyKwh float64 `db:"energy_kwh" json:"energy_kwh"`
	CostBdt   float64 `db:"cost_bdt" json:"cost_bdt"`
}

// PeakUsageRecord tracks peak-hour activity for one (date, port). Only
// samples falling inside the configured peak window contribute.
type PeakUsageRecord struct {
	Date            string    `db:"date" json:"date"`
	Port            int       `db:"port" json:"port"`
	PeakPowerWatts  float64   `db:"peak_power_watts" json:"peak_power_watts"`
	PeakTime        time.Time `db:"peak_time" json:"peak_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
}

type AlertType string

const (
	AlertHighUsage AlertType = "HIGH_USAGE"
	AlertHighCost  AlertType = "HIGH_COST"
	AlertPeakUsage AlertType = "PEAK_USAGE"
	AlertEmergency AlertType = "EMERGENCY"
)

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is an append-only alert row. Alerts are never auto-acknowledged.
type Alert struct {
	ID           int64     `db:"id" json:"id"`
	Type         AlertType `db:"type" json:"type"`
	Message      string    `db:"message" json:"message"`
	Port         *int      `db:"port" json:"port,omitempty"`
	Severity     Severity  `db:"severity" json:"severity"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	Acknowledged bool      `db:"acknowledged" json:"acknowledged"`
}

type Setting struct {
	Key   string `db:"key" json:"key"`
	Value string `db:"value" json:"value"`
}

// SafetyLimits are the per-port ceilings distributed to embedded nodes.
// Enforcement is entirely the node's responsibility; the server is only
// the limits' source of truth.
type SafetyLimits struct {
	MaxVoltage float64 `json:"max_voltage"`
	MaxCurrent float64 `json:"max_current"`
	MaxPower   float64 `json:"max_power"`
}

// Exceeded reports whether a sample breaches any ceiling.
func (l SafetyLimits) Exceeded(s TelemetrySample) bool {
	return s.Voltage > l.MaxVoltage || s.Current > l.MaxCurrent || s.Power > l.MaxPower
}

// EmergencyReport is a one-shot safety-cutoff notification from a node.
type EmergencyReport struct {
	Port      int       `json:"port"`
	Reason    string    `json:"reason"`
	Voltage   float64   `json:"voltage"`
	Current   float64   `json:"current"`
	Power     float64   `json:"power"`
	Timestamp time.Time `json:"timestamp"`
}
