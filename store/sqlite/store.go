// Package sqlite implements the store over SQLite via the pure-Go
// modernc.org driver. It suits single-node deployments and integration
// tests; the schema and semantics mirror the Postgres backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // sqlite driver

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

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at path.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tankledger/sqlite: open: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// churn under concurrent Apply callers.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("tankledger/sqlite: pragma: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("tankledger/sqlite: migration failed: %w", err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Tank Store ====================

func (s *Store) CreateTank(ctx context.Context, t *tank.Tank) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tanks (id, tenant_id, name, location, fuel_type, unit,
			capacity, current_volume, low_threshold, status, version,
			last_transaction_at, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID.String(), t.TenantID, t.Name, t.Location, string(t.FuelType), string(t.Unit),
		t.Capacity.Amount.String(), t.CurrentVolume.Amount.String(), t.LowThreshold.Amount.String(),
		string(t.Status), t.Version, fmtNullTime(t.LastTransactionAt), fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
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
		`SELECT `+tankColumns+` FROM tanks WHERE id = ?`, tankID.String())

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
	q := `SELECT ` + tankColumns + ` FROM tanks WHERE tenant_id = ?`
	args := []any{tenantID}

	if opts.FuelType != "" {
		q += " AND fuel_type = ?"
		args = append(args, string(opts.FuelType))
	}
	if opts.Status != "" {
		q += " AND status = ?"
		args = append(args, string(opts.Status))
	}
	q += " ORDER BY id"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		q += " OFFSET ?"
		args = append(args, opts.Offset)
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
		`UPDATE tanks SET status = ?, updated_at = ? WHERE id = ?`,
		string(tank.StatusInactive), fmtTime(time.Now().UTC()), tankID.String())
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
		SET current_volume = ?, version = version + 1,
			last_transaction_at = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		txn.LevelAfter.Amount.String(), fmtTime(txn.RecordedAt), fmtTime(txn.RecordedAt),
		txn.TankID.String(), expectedVersion,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM tanks WHERE id = ?)`,
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
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		txn.ID.String(), txn.TankID.String(), txn.TenantID, string(txn.Type), string(txn.Direction),
		string(txn.Quantity.Unit), txn.Quantity.Amount.String(),
		txn.LevelBefore.Amount.String(), txn.LevelAfter.Amount.String(),
		nullMoneyAmount(txn.UnitCost), nullMoneyCurrency(txn.UnitCost),
		nullMoneyAmount(txn.TotalCost), nullMoneyCurrency(txn.TotalCost),
		nullID(txn.CounterpartyID), txn.Remarks, fmtTime(txn.OccurredAt), fmtTime(txn.RecordedAt),
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
		`SELECT `+txnColumns+` FROM tank_transactions WHERE id = ?`, txnID.String())

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
	q := `SELECT ` + txnColumns + ` FROM tank_transactions WHERE tank_id = ?`
	args := []any{tankID.String()}

	if f.Type != "" {
		q += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if !f.Counterparty.IsNil() {
		q += " AND counterparty_id = ?"
		args = append(args, f.Counterparty.String())
	}
	if !f.From.IsZero() {
		q += " AND occurred_at >= ?"
		args = append(args, fmtTime(f.From))
	}
	if !f.To.IsZero() {
		q += " AND occurred_at < ?"
		args = append(args, fmtTime(f.To))
	}
	q += " ORDER BY occurred_at DESC, recorded_at DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	if f.Offset > 0 {
		q += " OFFSET ?"
		args = append(args, f.Offset)
	}

	return s.queryTxns(ctx, q, args...)
}

func (s *Store) ListChain(ctx context.Context, tankID id.TankID) ([]*transaction.Transaction, error) {
	return s.queryTxns(ctx,
		`SELECT `+txnColumns+` FROM tank_transactions WHERE tank_id = ? ORDER BY seq`,
		tankID.String())
}

func (s *Store) SumDispensed(ctx context.Context, tankID id.TankID, from, to time.Time) (types.Quantity, error) {
	t, err := s.GetTank(ctx, tankID)
	if err != nil {
		return types.Quantity{}, err
	}

	// Quantities are decimal text; summing happens in Go to keep exactness.
	txns, err := s.queryTxns(ctx, `
		SELECT `+txnColumns+` FROM tank_transactions
		WHERE tank_id = ? AND type = ? AND occurred_at >= ? AND occurred_at < ?`,
		tankID.String(), string(transaction.TypeDispense), fmtTime(from), fmtTime(to))
	if err != nil {
		return types.Quantity{}, err
	}

	total := types.ZeroQuantity(t.Unit)
	for _, txn := range txns {
		total = total.Add(txn.Quantity)
	}
	return total, nil
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
		VALUES (?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET label = excluded.label, updated_at = excluded.updated_at`,
		c.ID.String(), c.TenantID, string(c.Kind), c.Label, fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt),
	)
	return err
}

func (s *Store) GetCounterparty(ctx context.Context, cpID id.CounterpartyID) (*counterparty.Counterparty, error) {
	var (
		idStr, tenantID, kind, label string
		createdAt, updatedAt         int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, kind, label, created_at, updated_at
		FROM counterparties WHERE id = ?`, cpID.String(),
	).Scan(&idStr, &tenantID, &kind, &label, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tankledger.ErrCounterpartyNotFound
		}
		return nil, err
	}

	parsed, err := id.Parse(idStr)
	if err != nil {
		return nil, err
	}

	return &counterparty.Counterparty{
		Entity:   types.Entity{CreatedAt: parseTime(createdAt), UpdatedAt: parseTime(updatedAt)},
		ID:       parsed,
		TenantID: tenantID,
		Kind:     counterparty.Kind(kind),
		Label:    label,
	}, nil
}

// ==================== Forecast cache ====================

func (s *Store) GetCachedForecast(ctx context.Context, tankID id.TankID) (*forecast.Forecast, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM forecast_cache WHERE tank_id = ? AND expires_at > ?`,
		tankID.String(), fmtTime(time.Now().UTC()),
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tankledger.ErrCacheMiss
		}
		return nil, err
	}

	var f forecast.Forecast
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
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
		VALUES (?,?,?)
		ON CONFLICT (tank_id) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		tankID.String(), string(payload), fmtTime(time.Now().UTC().Add(ttl)),
	)
	return err
}

func (s *Store) InvalidateForecast(ctx context.Context, tankID id.TankID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM forecast_cache WHERE tank_id = ?`, tankID.String())
	return err
}

// ==================== Scan helpers ====================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTank(row rowScanner) (*tank.Tank, error) {
	var (
		idStr, tenantID, name, location, fuelType, unit string
		capacity, currentVolume, lowThreshold, status   string
		version                                         int64
		lastTxnAt                                       sql.NullInt64
		createdAt, updatedAt                            int64
	)
	if err := row.Scan(
		&idStr, &tenantID, &name, &location, &fuelType, &unit,
		&capacity, &currentVolume, &lowThreshold, &status, &version,
		&lastTxnAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	tankID, err := id.ParseTankID(idStr)
	if err != nil {
		return nil, err
	}
	u := types.Unit(unit)
	cap, err := parseQuantity(capacity, u)
	if err != nil {
		return nil, err
	}
	cur, err := parseQuantity(currentVolume, u)
	if err != nil {
		return nil, err
	}
	low, err := parseQuantity(lowThreshold, u)
	if err != nil {
		return nil, err
	}

	t := &tank.Tank{
		Entity:        types.Entity{CreatedAt: parseTime(createdAt), UpdatedAt: parseTime(updatedAt)},
		ID:            tankID,
		TenantID:      tenantID,
		Name:          name,
		Location:      location,
		FuelType:      tank.FuelType(fuelType),
		Unit:          u,
		Capacity:      cap,
		CurrentVolume: cur,
		LowThreshold:  low,
		Status:        tank.Status(status),
		Version:       version,
	}
	if lastTxnAt.Valid {
		ts := parseTime(lastTxnAt.Int64)
		t.LastTransactionAt = &ts
	}
	return t, nil
}

func scanTxn(row rowScanner) (*transaction.Transaction, error) {
	var (
		idStr, tankIDStr, tenantID, typ, direction, unit string
		quantity, levelBefore, levelAfter                string
		unitCostAmount, totalCostAmount                  sql.NullInt64
		unitCostCurrency, totalCostCurrency              sql.NullString
		counterpartyID                                   sql.NullString
		remarks                                          string
		occurredAt, recordedAt                           int64
	)
	if err := row.Scan(
		&idStr, &tankIDStr, &tenantID, &typ, &direction, &unit,
		&quantity, &levelBefore, &levelAfter,
		&unitCostAmount, &unitCostCurrency, &totalCostAmount, &totalCostCurrency,
		&counterpartyID, &remarks, &occurredAt, &recordedAt,
	); err != nil {
		return nil, err
	}

	txnID, err := id.ParseTransactionID(idStr)
	if err != nil {
		return nil, err
	}
	tankID, err := id.ParseTankID(tankIDStr)
	if err != nil {
		return nil, err
	}
	u := types.Unit(unit)
	qty, err := parseQuantity(quantity, u)
	if err != nil {
		return nil, err
	}
	before, err := parseQuantity(levelBefore, u)
	if err != nil {
		return nil, err
	}
	after, err := parseQuantity(levelAfter, u)
	if err != nil {
		return nil, err
	}

	txn := &transaction.Transaction{
		ID:          txnID,
		TankID:      tankID,
		TenantID:    tenantID,
		Type:        transaction.Type(typ),
		Direction:   transaction.Direction(direction),
		Quantity:    qty,
		LevelBefore: before,
		LevelAfter:  after,
		Remarks:     remarks,
		OccurredAt:  parseTime(occurredAt),
		RecordedAt:  parseTime(recordedAt),
	}
	if unitCostAmount.Valid && unitCostCurrency.Valid {
		txn.UnitCost = &types.Money{Amount: unitCostAmount.Int64, Currency: unitCostCurrency.String}
	}
	if totalCostAmount.Valid && totalCostCurrency.Valid {
		txn.TotalCost = &types.Money{Amount: totalCostAmount.Int64, Currency: totalCostCurrency.String}
	}
	if counterpartyID.Valid && counterpartyID.String != "" {
		cpID, err := id.Parse(counterpartyID.String)
		if err != nil {
			return nil, err
		}
		txn.CounterpartyID = cpID
	}
	return txn, nil
}

func parseQuantity(s string, u types.Unit) (types.Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return types.Quantity{}, fmt.Errorf("tankledger/sqlite: parse quantity %q: %w", s, err)
	}
	return types.Quantity{Amount: d, Unit: u}, nil
}

// Timestamps are persisted as Unix nanoseconds.

func fmtTime(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fmtNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullMoneyAmount(m *types.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Amount, Valid: true}
}

func nullMoneyCurrency(m *types.Money) sql.NullString {
	if m == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: m.Currency, Valid: true}
}

func nullID(v id.ID) any {
	if v.IsNil() {
		return nil
	}
	return v.String()
}
