package transaction

import (
	"context"
	"time"

	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/types"
)

// Store is the read-side persistence interface for ledger entries.
// Writing happens only through the conditional append on the unified
// store, never through this interface.
type Store interface {
	Get(ctx context.Context, txnID id.TransactionID) (*Transaction, error)
	// List returns entries ordered by OccurredAt descending, ties broken
	// by RecordedAt descending.
	List(ctx context.Context, tankID id.TankID, f Filter) ([]*Transaction, error)
	// ListChain returns all entries for a tank in persistence order
	// (RecordedAt ascending, ties by ID), for balance replay.
	ListChain(ctx context.Context, tankID id.TankID) ([]*Transaction, error)
	// SumDispensed totals the dispensed quantity with OccurredAt in
	// [from, to).
	SumDispensed(ctx context.Context, tankID id.TankID, from, to time.Time) (types.Quantity, error)
}
