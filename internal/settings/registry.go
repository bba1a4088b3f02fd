package settings

import (
	"context"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
)

// Setting keys. Values live in the settings table as strings; anything
// absent or garbled falls back to the compiled-in default.
const (
	KeyElectricityRate = "electricity_rate_bdt"
	KeyPeakStartHour   = "peak_start_hour"
	KeyPeakEndHour     = "peak_end_hour"
	KeyHighUsageWatts  = "high_usage_watts"
	KeyDailyCostLimit  = "daily_cost_limit_bdt"
	KeyPeakAlertFloor  = "peak_alert_floor_watts"
	KeyMasterEnabled   = "master_enabled"
	KeyMaxVoltage      = "max_voltage"
	KeyMaxCurrent      = "max_current"
	KeyMaxPower        = "max_power"
)

const (
	DefaultRateBDT        = 8.0
	DefaultPeakStartHour  = 17
	DefaultPeakEndHour    = 23
	DefaultHighUsageWatts = 1000.0
	DefaultDailyCostBDT   = 100.0
	DefaultPeakFloorWatts = 500.0
	DefaultMaxVoltage     = 250.0
	DefaultMaxCurrent     = 16.0
	DefaultMaxPower       = 3500.0
)

// Store is the slice of the telemetry store the registry needs.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Thresholds is the alert configuration read once per ingested sample.
type Thresholds struct {
	HighUsageWatts float64
	DailyCostBDT   float64
	PeakFloorWatts float64
	PeakStartHour  int
	PeakEndHour    int
}

// Registry reads rate/threshold configuration through a short-lived local
// cache so a settings change takes effect without restart while repeated
// ingest calls stay off the database.
type Registry struct {
	store Store
	cache *gocache.Cache
}

func NewRegistry(store Store) *Registry {
	return &Registry{
		store: store,
		cache: gocache.New(30*time.Second, time.Minute),
	}
}

// Rate returns the currently effective electricity rate in BDT/kWh.
func (r *Registry) Rate(ctx context.Context) float64 {
	return r.floatSetting(ctx, KeyElectricityRate, DefaultRateBDT)
}

func (r *Registry) SetRate(ctx context.Context, rate float64) error {
	return r.Set(ctx, KeyElectricityRate, strconv.FormatFloat(rate, 'f', -1, 64))
}

func (r *Registry) Thresholds(ctx context.Context) Thresholds {
	return Thresholds{
		HighUsageWatts: r.floatSetting(ctx, KeyHighUsageWatts, DefaultHighUsageWatts),
		DailyCostBDT:   r.floatSetting(ctx, KeyDailyCostLimit, DefaultDailyCostBDT),
		PeakFloorWatts: r.floatSetting(ctx, KeyPeakAlertFloor, DefaultPeakFloorWatts),
		PeakStartHour:  r.intSetting(ctx, KeyPeakStartHour, DefaultPeakStartHour),
		PeakEndHour:    r.intSetting(ctx, KeyPeakEndHour, DefaultPeakEndHour),
	}
}

func (r *Registry) Limits(ctx context.Context) domain.SafetyLimits {
	return domain.SafetyLimits{
		MaxVoltage: r.floatSetting(ctx, KeyMaxVoltage, DefaultMaxVoltage),
		MaxCurrent: r.floatSetting(ctx, KeyMaxCurrent, DefaultMaxCurrent),
		MaxPower:   r.floatSetting(ctx, KeyMaxPower, DefaultMaxPower),
	}
}

// MasterEnabled reports the server-side master-enable flag; false means
// all relays should be treated as OFF by polling nodes.
func (r *Registry) MasterEnabled(ctx context.Context) bool {
	raw, ok := r.rawSetting(ctx, KeyMasterEnabled)
	if !ok {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

// Set writes a setting through to the store and drops the cached copy.
func (r *Registry) Set(ctx context.Context, key, value string) error {
	if err := r.store.SetSetting(ctx, key, value); err != nil {
		return err
	}
	r.cache.Delete(key)
	return nil
}

func (r *Registry) rawSetting(ctx context.Context, key string) (string, bool) {
	if v, found := r.cache.Get(key); found {
		return v.(string), true
	}
	value, ok, err := r.store.GetSetting(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("settings read failed, using default")
		return "", false
	}
	if !ok {
		return "", false
	}
	r.cache.SetDefault(key, value)
	return value, true
}

func (r *Registry) floatSetting(ctx context.Context, key string, def float64) float64 {
	raw, ok := r.rawSetting(ctx, key)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func (r *Registry) intSetting(ctx context.Context, key string, def int) int {
	raw, ok := r.rawSetting(ctx, key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
