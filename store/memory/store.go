// Package memory provides an in-process store for tests and demos. The
// same pattern maps to the SQL backends; only the conditional append is
// database-native there.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

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

type Store struct {
	mu sync.RWMutex

	// Tank storage
	tanks map[string]*tank.Tank

	// Transaction log, in persistence order
	transactions []transaction.Transaction
	byTxnID      map[string]int

	// Counterparty references
	counterparties map[string]*counterparty.Counterparty

	// Forecast cache
	forecasts   map[string]*forecast.Forecast
	cacheExpiry map[string]time.Time
}

func New() *Store {
	return &Store{
		tanks:          make(map[string]*tank.Tank),
		transactions:   make([]transaction.Transaction, 0),
		byTxnID:        make(map[string]int),
		counterparties: make(map[string]*counterparty.Counterparty),
		forecasts:      make(map[string]*forecast.Forecast),
		cacheExpiry:    make(map[string]time.Time),
	}
}

// Tank Store implementation

func (s *Store) CreateTank(_ context.Context, t *tank.Tank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tanks[t.ID.String()]; exists {
		return tankledger.ErrTankExists
	}
	s.tanks[t.ID.String()] = cloneTank(t)
	return nil
}

func (s *Store) GetTank(_ context.Context, tankID id.TankID) (*tank.Tank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tanks[tankID.String()]; ok {
		return cloneTank(t), nil
	}
	return nil, tankledger.ErrTankNotFound
}

func (s *Store) ListTanks(_ context.Context, tenantID string, opts tank.ListOpts) ([]*tank.Tank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*tank.Tank, 0)
	for _, t := range s.tanks {
		if t.TenantID != tenantID {
			continue
		}
		if opts.FuelType != "" && t.FuelType != opts.FuelType {
			continue
		}
		if opts.Status != "" && t.Status != opts.Status {
			continue
		}
		result = append(result, cloneTank(t))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.String() < result[j].ID.String()
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) DeactivateTank(_ context.Context, tankID id.TankID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tanks[tankID.String()]
	if !ok {
		return tankledger.ErrTankNotFound
	}
	t.Status = tank.StatusInactive
	t.Touch()
	return nil
}

// Ledger Store implementation

// AppendTransaction persists the transaction and advances the tank in one
// step under the store lock, conditioned on the tank version. On a version
// mismatch nothing changes.
func (s *Store) AppendTransaction(_ context.Context, txn *transaction.Transaction, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tanks[txn.TankID.String()]
	if !ok {
		return tankledger.ErrTankNotFound
	}
	if t.Version != expectedVersion {
		return tankledger.ErrVersionConflict
	}

	s.transactions = append(s.transactions, *txn)
	s.byTxnID[txn.ID.String()] = len(s.transactions) - 1

	t.CurrentVolume = txn.LevelAfter
	t.Version = expectedVersion + 1
	recordedAt := txn.RecordedAt
	t.LastTransactionAt = &recordedAt
	t.Touch()

	return nil
}

func (s *Store) GetTransaction(_ context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i, ok := s.byTxnID[txnID.String()]; ok {
		txn := s.transactions[i]
		return &txn, nil
	}
	return nil, tankledger.ErrTransactionNotFound
}

func (s *Store) ListTransactions(_ context.Context, tankID id.TankID, f transaction.Filter) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*transaction.Transaction, 0)
	for i := range s.transactions {
		txn := s.transactions[i]
		if txn.TankID.String() != tankID.String() {
			continue
		}
		if f.Type != "" && txn.Type != f.Type {
			continue
		}
		if !f.Counterparty.IsNil() && txn.CounterpartyID.String() != f.Counterparty.String() {
			continue
		}
		if !f.From.IsZero() && txn.OccurredAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !txn.OccurredAt.Before(f.To) {
			continue
		}
		result = append(result, &txn)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].OccurredAt.After(result[j].OccurredAt)
		}
		return result[i].RecordedAt.After(result[j].RecordedAt)
	})

	return paginate(result, f.Offset, f.Limit), nil
}

func (s *Store) ListChain(_ context.Context, tankID id.TankID) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*transaction.Transaction, 0)
	for i := range s.transactions {
		txn := s.transactions[i]
		if txn.TankID.String() == tankID.String() {
			result = append(result, &txn)
		}
	}
	return result, nil
}

func (s *Store) SumDispensed(_ context.Context, tankID id.TankID, from, to time.Time) (types.Quantity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tanks[tankID.String()]
	if !ok {
		return types.Quantity{}, tankledger.ErrTankNotFound
	}

	total := types.ZeroQuantity(t.Unit)
	for i := range s.transactions {
		txn := &s.transactions[i]
		if txn.TankID.String() != tankID.String() || txn.Type != transaction.TypeDispense {
			continue
		}
		if txn.OccurredAt.Before(from) || !txn.OccurredAt.Before(to) {
			continue
		}
		total = total.Add(txn.Quantity)
	}
	return total, nil
}

// Counterparty Store implementation

func (s *Store) RegisterCounterparty(_ context.Context, c *counterparty.Counterparty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.counterparties[c.ID.String()] = &cp
	return nil
}

func (s *Store) GetCounterparty(_ context.Context, cpID id.CounterpartyID) (*counterparty.Counterparty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.counterparties[cpID.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, tankledger.ErrCounterpartyNotFound
}

// Forecast cache implementation

func (s *Store) GetCachedForecast(_ context.Context, tankID id.TankID) (*forecast.Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := tankID.String()
	if expiry, ok := s.cacheExpiry[key]; ok && time.Now().Before(expiry) {
		if f, ok := s.forecasts[key]; ok {
			cp := *f
			return &cp, nil
		}
	}
	return nil, tankledger.ErrCacheMiss
}

func (s *Store) SetCachedForecast(_ context.Context, tankID id.TankID, f *forecast.Forecast, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tankID.String()
	cp := *f
	s.forecasts[key] = &cp
	s.cacheExpiry[key] = time.Now().Add(ttl)
	return nil
}

func (s *Store) InvalidateForecast(_ context.Context, tankID id.TankID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tankID.String()
	delete(s.forecasts, key)
	delete(s.cacheExpiry, key)
	return nil
}

// Store management

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// Helper functions

// cloneTank copies a tank so callers never share the store's mutable row.
func cloneTank(t *tank.Tank) *tank.Tank {
	c := *t
	if t.LastTransactionAt != nil {
		ts := *t.LastTransactionAt
		c.LastTransactionAt = &ts
	}
	return &c
}

func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
