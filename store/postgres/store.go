// Package postgres implements the store over PostgreSQL with database/sql
// and lib/pq. The conditional append runs inside a SQL transaction so the
// tank update and the log insert commit or roll back together.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/shopspring/decimal"

	"github.com/xraph/tankledger"
	"github.com/xraph/tankledger/counterparty"
	"github.com/xraph/tankledger/forecast"
	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/store"
	"github.com/xraph/tankledger/tank"
	"github.com/xraph/tankledger/transaction"
	"github.com/xraph/tankledger/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL store from a connection string.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("tankledger/postgres: open: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an existing connection pool.
func NewFromDB(db *sql.DB) *Store { return &Store{db: db} }

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("tankledger/postgres: migration failed: %w", err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Tank Store ====================

func (s *Store) CreateTank(ctx context.Context, t *tank.Tank) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tanks (id, tenant_id, name, location, fuel_type, unit,
			capacity, current_volume, low_threshold, status, version,
			last_transaction_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		t.ID.String(), t.TenantID, t.Name, t.Location, string(t.FuelType), string(t.Unit),
		t.Capacity.Amount, t.CurrentVolume.Amount, t.LowThreshold.Amount, string(t.Status),
		t.Version, nullTime(t.LastTransactionAt), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return tankledger.ErrTankExists
		}
		return err
	}
	return nil
}

const tankColumns = `id, tenant_id, name, location, fuel_type, unit,
	capacity, current_volume, low_threshold, status, version,
	last_transaction_at, created_at, updated_at`

func (s *Store) GetTank(ctx context.Context, tankID id.TankID) (*tank.Tank, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tankColumns+` FROM tanks WHERE id = $1`, tankID.String())

	t, err := scanTank(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tankledger.ErrTankNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *Store) ListTanks(ctx context.Context, tenantID string, opts tank.ListOpts) ([]*tank.Tank, error) {
	q := `SELECT ` + tankColumns + ` FROM tanks WHERE tenant_id = $1`
	args := []any{tenantID}

	if opts.FuelType != "" {
		args = append(args, string(opts.FuelType))
		q += fmt.Sprintf(" AND fuel_type = $%d", len(args))
	}
	if opts.Status != "" {
		args = append(args, string(opts.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	q += " ORDER BY id"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	result := make([]*tank.Tank, 0)
	for rows.Next() {
		t, err := scanTank(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) DeactivateTank(ctx context.Context, tankID id.TankID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tanks SET status = $1, updated_at = $2 WHERE id = $3`,
		string(tank.StatusInactive), time.Now().UTC(), tankID.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tankledger.ErrTankNotFound
	}
	return nil
}

// ==================== Ledger Store ====================

func (s *Store) AppendTransaction(ctx context.Context, txn *transaction.Transaction, expectedVersion int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		UPDATE tanks
		SET current_volume = $1, version = version + 1,
			last_transaction_at = $2, updated_at = $2
		WHERE id = $3 AND version = $4`,
		txn.LevelAfter.Amount, txn.RecordedAt, txn.TankID.String(), expectedVersion,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Missing tank and lost race look the same to the UPDATE;
		// disambiguate so the engine only retries real conflicts.
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM tanks WHERE id = $1)`,
			txn.TankID.String()).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return tankledger.ErrTankNotFound
		}
		return tankledger.ErrVersionConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tank_transactions (id, tank_id, tenant_id, type, direction,
			unit, quantity, level_before, level_after,
			unit_cost_amount, unit_cost_currency, total_cost_amount, total_cost_currency,
			counterparty_id, remarks, occurred_at, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		txn.ID.String(), txn.TankID.String(), txn.TenantID, string(txn.Type), string(txn.Direction),
		string(txn.Quantity.Unit), txn.Quantity.Amount, txn.LevelBefore.Amount, txn.LevelAfter.Amount,
		nullMoneyAmount(txn.UnitCost), nullMoneyCurrency(txn.UnitCost),
		nullMoneyAmount(txn.TotalCost), nullMoneyCurrency(txn.TotalCost),
		txn.CounterpartyID, txn.Remarks, txn.OccurredAt, txn.RecordedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

const txnColumns = `id, tank_id, tenant_id, type, direction, unit,
	quantity, level_before, level_after,
	unit_cost_amount, unit_cost_currency, total_cost_amount, total_cost_currency,
	counterparty_id, remarks, occurred_at, recorded_at`

func (s *Store) GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+txnColumns+` FROM tank_transactions WHERE id = $1`, txnID.String())

	txn, err := scanTxn(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tankledger.ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

func (s *Store) ListTransactions(ctx context.Context, tankID id.TankID, f transaction.Filter) ([]*transaction.Transaction, error) {
	q := `SELECT ` + txnColumns + ` FROM tank_transactions WHERE tank_id = $1`
	args := []any{tankID.String()}

	if f.Type != "" {
		args = append(args, string(f.Type))
		q += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if !f.Counterparty.IsNil() {
		args = append(args, f.Counterparty.String())
		q += fmt.Sprintf(" AND counterparty_id = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		q += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		q += fmt.Sprintf(" AND occurred_at < $%d", len(args))
	}
	q += " ORDER BY occurred_at DESC, recorded_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return s.queryTxns(ctx, q, args...)
}

func (s *Store) ListChain(ctx context.Context, tankID id.TankID) ([]*transaction.Transaction, error) {
	return s.queryTxns(ctx,
		`SELECT `+txnColumns+` FROM tank_transactions WHERE tank_id = $1 ORDER BY seq`,
		tankID.String())
}

func (s *Store) SumDispensed(ctx context.Context, tankID id.TankID, from, to time.Time) (types.Quantity, error) {
	t, err := s.GetTank(ctx, tankID)
	if err != nil {
		return types.Quantity{}, err
	}

	var total decimal.NullDecimal
	err = s.db.QueryRowContext(ctx, `
		SELECT SUM(quantity) FROM tank_transactions
		WHERE tank_id = $1 AND type = $2 AND occurred_at >= $3 AND occurred_at < $4`,
		tankID.String(), string(transaction.TypeDispense), from, to,
	).Scan(&total)
	if err != nil {
		return types.Quantity{}, err
	}
	if !total.Valid {
		return types.ZeroQuantity(t.Unit), nil
	}
	return types.Quantity{Amount: total.Decimal, Unit: t.Unit}, nil
}

func (s *Store) queryTxns(ctx context.Context, q string, args ...any) ([]*transaction.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	result := make([]*transaction.Transaction, 0)
	for rows.Next() {
		txn, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, txn)
	}
	return result, rows.Err()
}

// ==================== Counterparty Store ====================

func (s *Store) RegisterCounterparty(ctx context.Context, c *counterparty.Counterparty) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counterparties (id, tenant_id, kind, label, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label, updated_at = EXCLUDED.updated_at`,
		c.ID.String(), c.TenantID, string(c.Kind), c.Label, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (s *Store) GetCounterparty(ctx context.Context, cpID id.CounterpartyID) (*counterparty.Counterparty, error) {
	var r counterpartyRow
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, kind, label, created_at, updated_at
		FROM counterparties WHERE id = $1`, cpID.String(),
	).Scan(&r.ID, &r.TenantID, &r.Kind, &r.Label, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tankledger.ErrCounterpartyNotFound
		}
		return nil, err
	}
	return fromCounterpartyRow(&r)
}

// ==================== Forecast cache ====================

func (s *Store) GetCachedForecast(ctx context.Context, tankID id.TankID) (*forecast.Forecast, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM forecast_cache WHERE tank_id = $1 AND expires_at > $2`,
		tankID.String(), time.Now().UTC(),
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tankledger.ErrCacheMiss
		}
		return nil, err
	}

	var f forecast.Forecast
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, tankledger.ErrCacheMiss
	}
	return &f, nil
}

func (s *Store) SetCachedForecast(ctx context.Context, tankID id.TankID, f *forecast.Forecast, ttl time.Duration) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO forecast_cache (tank_id, payload, expires_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (tank_id) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at`,
		tankID.String(), payload, time.Now().UTC().Add(ttl),
	)
	return err
}

func (s *Store) InvalidateForecast(ctx context.Context, tankID id.TankID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM forecast_cache WHERE tank_id = $1`, tankID.String())
	return err
}

// ==================== Scan helpers ====================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTank(row rowScanner) (*tank.Tank, error) {
	var r tankRow
	if err := row.Scan(
		&r.ID, &r.TenantID, &r.Name, &r.Location, &r.FuelType, &r.Unit,
		&r.Capacity, &r.CurrentVolume, &r.LowThreshold, &r.Status, &r.Version,
		&r.LastTransactionAt, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return fromTankRow(&r)
}

func scanTxn(row rowScanner) (*transaction.Transaction, error) {
	var r txnRow
	if err := row.Scan(
		&r.ID, &r.TankID, &r.TenantID, &r.Type, &r.Direction, &r.Unit,
		&r.Quantity, &r.LevelBefore, &r.LevelAfter,
		&r.UnitCostAmount, &r.UnitCostCurrency, &r.TotalCostAmount, &r.TotalCostCurrency,
		&r.CounterpartyID, &r.Remarks, &r.OccurredAt, &r.RecordedAt,
	); err != nil {
		return nil, err
	}
	return fromTxnRow(&r)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
