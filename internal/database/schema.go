package database

import "github.com/jmoiron/sqlx"

const schema = `
CREATE TABLE IF NOT EXISTS port_state (
	port         INTEGER PRIMARY KEY,
	voltage      DOUBLE PRECISION NOT NULL DEFAULT 0,
	current      DOUBLE PRECISION NOT NULL DEFAULT 0,
	power        DOUBLE PRECISION NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'offline',
	relay_state  TEXT NOT NULL DEFAULT 'OFF',
	last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS daily_consumption (
	date             TEXT NOT NULL,
	port             INTEGER NOT NULL,
	energy_kwh       DOUBLE PRECISION NOT NULL DEFAULT 0,
	cost_bdt         DOUBLE PRECISION NOT NULL DEFAULT 0,
	runtime_minutes  INTEGER NOT NULL DEFAULT 0,
	peak_usage_watts DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (date, port)
);

CREATE TABLE IF NOT EXISTS monthly_consumption (
	year       INTEGER NOT NULL,
	month      INTEGER NOT NULL,
	port       INTEGER NOT NULL,
	energy_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
	cost_bdt   DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (year, month, port)
);

CREATE TABLE IF NOT EXISTS peak_usage (
	date             TEXT NOT NULL,
	port             INTEGER NOT NULL,
	peak_power_watts DOUBLE PRECISION NOT NULL,
	peak_time        TIMESTAMPTZ NOT NULL,
	duration_minutes INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (date, port)
);

CREATE TABLE IF NOT EXISTS alerts (
	id           BIGSERIAL PRIMARY KEY,
	type         TEXT NOT NULL,
	message      TEXT NOT NULL,
	port         INTEGER,
	severity     TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	acknowledged BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_alerts_unacked ON alerts (acknowledged, created_at DESC);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Migrate bootstraps the schema. Every statement is idempotent so this is
// safe to run on every start.
func Migrate(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	return err
}
