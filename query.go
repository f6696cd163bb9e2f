package tankledger

import (
	"context"

	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/transaction"
	"github.com/xraph/tankledger/types"
)

// defaultPageSize bounds history pages when the caller sets no limit.
const defaultPageSize = 50

// History returns one page of the tank's transaction log, ordered by
// occurred_at descending with ties broken by recorded_at descending.
// The filter's Limit/Offset make the sequence restartable from any point.
func (l *Ledger) History(ctx context.Context, tankID id.TankID, f transaction.Filter) ([]*transaction.Transaction, error) {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		return nil, ErrMissingTenant
	}
	if err := l.scope.Authorize(ctx, tenantID, tankID, id.Nil); err != nil {
		return nil, err
	}

	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	return l.store.ListTransactions(ctx, tankID, f)
}

// GetTransaction retrieves one ledger entry owned by the tenant in context.
func (l *Ledger) GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		return nil, ErrMissingTenant
	}

	txn, err := l.store.GetTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.TenantID != tenantID {
		return nil, &TenantMismatchError{Want: tenantID, Got: txn.TenantID, Ref: "transaction"}
	}
	return txn, nil
}

// Balance returns the tank's current volume. It is the read-side alias
// for CurrentBalance used by dashboards.
func (l *Ledger) Balance(ctx context.Context, tankID id.TankID) (types.Quantity, error) {
	return l.CurrentBalance(ctx, tankID)
}

// HistoryPager walks a tank's history lazily, one page at a time. It
// re-queries on every Next call, so it never holds store resources between
// pages and can be restarted by constructing a new pager.
type HistoryPager struct {
	ledger *Ledger
	tankID id.TankID
	filter transaction.Filter
	done   bool
}

// NewHistoryPager creates a pager over the tank's history with the given
// base filter. The filter's Offset is the starting point; Limit is the
// page size (defaulted when unset).
func (l *Ledger) NewHistoryPager(tankID id.TankID, f transaction.Filter) *HistoryPager {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	return &HistoryPager{ledger: l, tankID: tankID, filter: f}
}

// Next returns the next page, or an empty slice once the history is
// exhausted.
func (p *HistoryPager) Next(ctx context.Context) ([]*transaction.Transaction, error) {
	if p.done {
		return nil, nil
	}

	page, err := p.ledger.History(ctx, p.tankID, p.filter)
	if err != nil {
		return nil, err
	}
	if len(page) < p.filter.Limit {
		p.done = true
	}
	p.filter.Offset += len(page)
	return page, nil
}
