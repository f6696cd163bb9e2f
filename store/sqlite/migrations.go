package sqlite

// Pragmas applied on every open. WAL keeps readers from blocking the
// single writer; foreign keys are off by default in SQLite.
var pragmas = []string{
	`PRAGMA journal_mode = WAL`,
	`PRAGMA foreign_keys = ON`,
	`PRAGMA busy_timeout = 5000`,
}

// Schema statements executed in order by Migrate. Timestamps are stored
// as Unix nanoseconds so range predicates compare correctly; quantities
// as decimal text so no precision is lost.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tanks (
		id                  TEXT PRIMARY KEY,
		tenant_id           TEXT NOT NULL,
		name                TEXT NOT NULL DEFAULT '',
		location            TEXT NOT NULL DEFAULT '',
		fuel_type           TEXT NOT NULL,
		unit                TEXT NOT NULL,
		capacity            TEXT NOT NULL,
		current_volume      TEXT NOT NULL,
		low_threshold       TEXT NOT NULL,
		status              TEXT NOT NULL,
		version             INTEGER NOT NULL DEFAULT 0,
		last_transaction_at INTEGER,
		created_at          INTEGER NOT NULL,
		updated_at          INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tanks_tenant ON tanks (tenant_id)`,

	`CREATE TABLE IF NOT EXISTS tank_transactions (
		seq                 INTEGER PRIMARY KEY AUTOINCREMENT,
		id                  TEXT NOT NULL UNIQUE,
		tank_id             TEXT NOT NULL REFERENCES tanks (id),
		tenant_id           TEXT NOT NULL,
		type                TEXT NOT NULL,
		direction           TEXT NOT NULL,
		unit                TEXT NOT NULL,
		quantity            TEXT NOT NULL,
		level_before        TEXT NOT NULL,
		level_after         TEXT NOT NULL,
		unit_cost_amount    INTEGER,
		unit_cost_currency  TEXT,
		total_cost_amount   INTEGER,
		total_cost_currency TEXT,
		counterparty_id     TEXT,
		remarks             TEXT NOT NULL DEFAULT '',
		occurred_at         INTEGER NOT NULL,
		recorded_at         INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_txn_tank_occurred ON tank_transactions (tank_id, occurred_at DESC, recorded_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_txn_tank_type_occurred ON tank_transactions (tank_id, type, occurred_at)`,

	`CREATE TABLE IF NOT EXISTS counterparties (
		id         TEXT PRIMARY KEY,
		tenant_id  TEXT NOT NULL,
		kind       TEXT NOT NULL,
		label      TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS forecast_cache (
		tank_id    TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`,
}
