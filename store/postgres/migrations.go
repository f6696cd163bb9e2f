package postgres

// Schema statements executed in order by Migrate. All statements are
// idempotent so migration can run on every start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tanks (
		id                  TEXT PRIMARY KEY,
		tenant_id           TEXT NOT NULL,
		name                TEXT NOT NULL DEFAULT '',
		location            TEXT NOT NULL DEFAULT '',
		fuel_type           TEXT NOT NULL,
		unit                TEXT NOT NULL,
		capacity            NUMERIC(18,4) NOT NULL,
		current_volume      NUMERIC(18,4) NOT NULL,
		low_threshold       NUMERIC(18,4) NOT NULL,
		status              TEXT NOT NULL,
		version             BIGINT NOT NULL DEFAULT 0,
		last_transaction_at TIMESTAMPTZ,
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tanks_tenant ON tanks (tenant_id)`,

	`CREATE TABLE IF NOT EXISTS tank_transactions (
		seq                 BIGSERIAL PRIMARY KEY,
		id                  TEXT NOT NULL UNIQUE,
		tank_id             TEXT NOT NULL REFERENCES tanks (id),
		tenant_id           TEXT NOT NULL,
		type                TEXT NOT NULL,
		direction           TEXT NOT NULL,
		unit                TEXT NOT NULL,
		quantity            NUMERIC(18,4) NOT NULL,
		level_before        NUMERIC(18,4) NOT NULL,
		level_after         NUMERIC(18,4) NOT NULL,
		unit_cost_amount    BIGINT,
		unit_cost_currency  TEXT,
		total_cost_amount   BIGINT,
		total_cost_currency TEXT,
		counterparty_id     TEXT,
		remarks             TEXT NOT NULL DEFAULT '',
		occurred_at         TIMESTAMPTZ NOT NULL,
		recorded_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_txn_tank_occurred ON tank_transactions (tank_id, occurred_at DESC, recorded_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_txn_tank_type_occurred ON tank_transactions (tank_id, type, occurred_at)`,

	`CREATE TABLE IF NOT EXISTS counterparties (
		id         TEXT PRIMARY KEY,
		tenant_id  TEXT NOT NULL,
		kind       TEXT NOT NULL,
		label      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS forecast_cache (
		tank_id    TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
}
