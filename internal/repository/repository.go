package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
)

// Store is the durable keyed storage the core writes through: latest state
// per port, daily and monthly counters, peak-hour records, the append-only
// alert log and the settings table. Counter updates are single-statement
// upserts so concurrent folds for different ports never lose increments.
type Store interface {
	GetPortState(ctx context.Context, port int) (*domain.PortState, error)
	UpsertPortState(ctx context.Context, sample domain.TelemetrySample, relay domain.RelayState) error
	ListPortStates(ctx context.Context) ([]domain.PortState, error)
	DeleteStalePortStates(ctx context.Context, cutoff time.Time) (int64, error)

	GetDailyCounter(ctx context.Context, date string, port int) (*domain.DailyCounter, error)
	AddToDailyCounter(ctx context.Context, date string, port int, deltaEnergy, deltaCost float64, runtimeMinutes int, instPower float64) error
	ListDailyCounters(ctx context.Context, date string) ([]domain.DailyCounter, error)
	DeleteDailyCountersForDate(ctx context.Context, date string) error

	GetMonthlyCounter(ctx context.Context, year, month, port int) (*domain.MonthlyCounter, error)
	AddToMonthlyCounter(ctx context.Context, year, month, port int, deltaEnergy, deltaCost float64) error
	ListMonthlyCounters(ctx context.Context, year, month int) ([]domain.MonthlyCounter, error)

	GetPeakUsage(ctx context.Context, date string, port int) (*domain.PeakUsageRecord, error)
	UpsertPeakUsage(ctx context.Context, date string, port int, power float64, at time.Time) error

	AppendAlert(ctx context.Context, alert *domain.Alert) error
	ListUnacknowledgedAlerts(ctx context.Context, limit int) ([]domain.Alert, error)
	AcknowledgeAlert(ctx context.Context, id int64) error
	ListAlertsBefore(ctx context.Context, cutoff time.Time) ([]domain.Alert, error)
	DeleteAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

type Repos struct {
	db *sqlx.DB
}

var _ Store = (*Repos)(nil)

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

func (r *Repos) GetPortState(ctx context.Context, port int) (*domain.PortState, error) {
	var out domain.PortState
	err := r.db.GetContext(ctx, &out,
		`SELECT port, voltage, current, power, status, relay_state, last_updated FROM port_state WHERE port = $1`, port)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repos) UpsertPortState(ctx context.Context, sample domain.TelemetrySample, relay domain.RelayState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO port_state (port, voltage, current, power, status, relay_state, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (port) DO UPDATE SET
			voltage      = EXCLUDED.voltage,
			current      = EXCLUDED.current,
			power        = EXCLUDED.power,
			status       = EXCLUDED.status,
			relay_state  = EXCLUDED.relay_state,
			last_updated = now()`,
		sample.Port, sample.Voltage, sample.Current, sample.Power, sample.Status(), relay)
	return err
}

func (r *Repos) ListPortStates(ctx context.Context) ([]domain.PortState, error) {
	var out []domain.PortState
	err := r.db.SelectContext(ctx, &out,
		`SELECT port, voltage, current, power, status, relay_state, last_updated FROM port_state ORDER BY port`)
	return out, err
}

func (r *Repos) DeleteStalePortStates(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM port_state WHERE last_updated < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repos) GetDailyCounter(ctx context.Context, date string, port int) (*domain.DailyCounter, error) {
	var out domain.DailyCounter
	err := r.db.GetContext(ctx, &out,
		`SELECT date, port, energy_kwh, cost_bdt, runtime_minutes, peak_usage_watts FROM daily_consumption WHERE date = $1 AND port = $2`,
		date, port)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repos) AddToDailyCounter(ctx context.Context, date string, port int, deltaEnergy, deltaCost float64, runtimeMinutes int, instPower float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_consumption (date, port, energy_kwh, cost_bdt, runtime_minutes, peak_usage_watts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (date, port) DO UPDATE SET
			energy_kwh       = daily_consumption.energy_kwh + EXCLUDED.energy_kwh,
			cost_bdt         = daily_consumption.cost_bdt + EXCLUDED.cost_bdt,
			runtime_minutes  = daily_consumption.runtime_minutes + EXCLUDED.runtime_minutes,
			peak_usage_watts = GREATEST(daily_consumption.peak_usage_watts, EXCLUDED.peak_usage_watts)`,
		date, port, deltaEnergy, deltaCost, runtimeMinutes, instPower)
	return err
}

func (r *Repos) ListDailyCounters(ctx context.Context, date string) ([]domain.DailyCounter, error) {
	var out []domain.DailyCounter
	err := r.db.SelectContext(ctx, &out,
		`SELECT date, port, energy_kwh, cost_bdt, runtime_minutes, peak_usage_watts FROM daily_consumption WHERE date = $1 ORDER BY port`, date)
	return out, err
}

func (r *Repos) DeleteDailyCountersForDate(ctx context.Context, date string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM daily_consumption WHERE date = $1`, date)
	return err
}

func (r *Repos) GetMonthlyCounter(ctx context.Context, year, month, port int) (*domain.MonthlyCounter, error) {
	var out domain.MonthlyCounter
	err := r.db.GetContext(ctx, &out,
		`SELECT year, month, port, energy_kwh, cost_bdt FROM monthly_consumption WHERE year = $1 AND month = $2 AND port = $3`,
		year, month, port)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repos) AddToMonthlyCounter(ctx context.Context, year, month, port int, deltaEnergy, deltaCost float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monthly_consumption (year, month, port, energy_kwh, cost_bdt)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (year, month, port) DO UPDATE SET
			energy_kwh = monthly_consumption.energy_kwh + EXCLUDED.energy_kwh,
			cost_bdt   = monthly_consumption.cost_bdt + EXCLUDED.cost_bdt`,
		year, month, port, deltaEnergy, deltaCost)
	return err
}

func (r *Repos) ListMonthlyCounters(ctx context.Context, year, month int) ([]domain.MonthlyCounter, error) {
	var out []domain.MonthlyCounter
	err := r.db.SelectContext(ctx, &out,
		`SELECT year, month, port, energy_kwh, cost_bdt FROM monthly_consumption WHERE year = $1 AND month = $2 ORDER BY port`, year, month)
	return out, err
}

func (r *Repos) GetPeakUsage(ctx context.Context, date string, port int) (*domain.PeakUsageRecord, error) {
	var out domain.PeakUsageRecord
	err := r.db.GetContext(ctx, &out,
		`SELECT date, port, peak_power_watts, peak_time, duration_minutes FROM peak_usage WHERE date = $1 AND port = $2`,
		date, port)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpsertPeakUsage folds one peak-window sample into the (date, port)
// record. The first sample creates the row; afterwards duration counts
// every peak-window sample and the stored peak only moves forward when a
// sample exceeds it, carrying its time-of-day along.
func (r *Repos) UpsertPeakUsage(ctx context.Context, date string, port int, power float64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO peak_usage (date, port, peak_power_watts, peak_time, duration_minutes)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (date, port) DO UPDATE SET
			duration_minutes = peak_usage.duration_minutes + 1,
			peak_time        = CASE WHEN EXCLUDED.peak_power_watts > peak_usage.peak_power_watts
			                        THEN EXCLUDED.peak_time ELSE peak_usage.peak_time END,
			peak_power_watts = GREATEST(peak_usage.peak_power_watts, EXCLUDED.peak_power_watts)`,
		date, port, power, at)
	return err
}

func (r *Repos) AppendAlert(ctx context.Context, alert *domain.Alert) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO alerts (type, message, port, severity, created_at, acknowledged)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id`,
		alert.Type, alert.Message, alert.Port, alert.Severity, alert.CreatedAt).Scan(&alert.ID)
}

func (r *Repos) ListUnacknowledgedAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	var out []domain.Alert
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, type, message, port, severity, created_at, acknowledged
		FROM alerts WHERE acknowledged = FALSE
		ORDER BY created_at DESC LIMIT $1`, limit)
	return out, err
}

func (r *Repos) AcknowledgeAlert(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE alerts SET acknowledged = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *Repos) ListAlertsBefore(ctx context.Context, cutoff time.Time) ([]domain.Alert, error) {
	var out []domain.Alert
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, type, message, port, severity, created_at, acknowledged
		FROM alerts WHERE created_at < $1 ORDER BY created_at`, cutoff)
	return out, err
}

func (r *Repos) DeleteAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repos) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *Repos) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}
