// Package store defines the unified storage interface implemented by the
// memory, Postgres, SQLite, and Mongo backends.
package store

import (
	"context"
	"time"

	"github.com/xraph/tankledger/counterparty"
	"github.com/xraph/tankledger/forecast"
	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/tank"
	"github.com/xraph/tankledger/transaction"
	"github.com/xraph/tankledger/types"
)

// Store is the unified storage interface for all ledger entities.
// Instead of embedding the per-entity sub-interfaces, all methods are
// declared explicitly to avoid naming conflicts.
type Store interface {
	// Tank methods
	CreateTank(ctx context.Context, t *tank.Tank) error
	GetTank(ctx context.Context, tankID id.TankID) (*tank.Tank, error)
	ListTanks(ctx context.Context, tenantID string, opts tank.ListOpts) ([]*tank.Tank, error)
	DeactivateTank(ctx context.Context, tankID id.TankID) error

	// Ledger methods.
	//
	// AppendTransaction is the single write path for balances: it persists
	// the transaction AND advances the tank's current volume, version, and
	// last-transaction time in one atomic step, conditioned on the tank
	// version still equaling expectedVersion. It fails with
	// ErrVersionConflict when another writer got there first, leaving both
	// the tank row and the transaction log untouched.
	AppendTransaction(ctx context.Context, txn *transaction.Transaction, expectedVersion int64) error
	GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error)
	ListTransactions(ctx context.Context, tankID id.TankID, f transaction.Filter) ([]*transaction.Transaction, error)
	ListChain(ctx context.Context, tankID id.TankID) ([]*transaction.Transaction, error)
	SumDispensed(ctx context.Context, tankID id.TankID, from, to time.Time) (types.Quantity, error)

	// Counterparty methods
	RegisterCounterparty(ctx context.Context, c *counterparty.Counterparty) error
	GetCounterparty(ctx context.Context, cpID id.CounterpartyID) (*counterparty.Counterparty, error)

	// Forecast cache methods
	GetCachedForecast(ctx context.Context, tankID id.TankID) (*forecast.Forecast, error)
	SetCachedForecast(ctx context.Context, tankID id.TankID, f *forecast.Forecast, ttl time.Duration) error
	InvalidateForecast(ctx context.Context, tankID id.TankID) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
