package tankledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/transaction"
	"github.com/xraph/tankledger/types"
)

// ApplyInput describes one balance-changing event to record.
//
// Quantity must be positive for purchases and dispenses. For adjustments
// it is the signed delta: positive adds fuel, negative removes it.
type ApplyInput struct {
	TankID         id.TankID
	Type           transaction.Type
	Quantity       types.Quantity
	OccurredAt     time.Time
	CounterpartyID id.CounterpartyID // vendor for purchase, vehicle for dispense
	UnitCost       *types.Money      // purchase only
	TotalCost      *types.Money      // purchase only
	Remarks        string
}

// Apply records a transaction against a tank and advances its balance.
//
// The read-validate-write cycle runs under optimistic concurrency: the
// tank's volume and version are read, the new level is validated against
// the zero floor and the capacity ceiling, and the transaction plus the
// tank update are persisted in one step conditioned on the version being
// unchanged. A lost race is retried with backoff up to the configured
// budget; terminal failures (validation, insufficient volume, capacity,
// tenant mismatch) are never retried and leave no trace in the store.
func (l *Ledger) Apply(ctx context.Context, in ApplyInput) (*transaction.Transaction, error) {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		return nil, ErrMissingTenant
	}

	if err := validateInput(in); err != nil {
		return nil, err
	}

	// Defense-in-depth tenant check before any mutation is attempted.
	if err := l.scope.Authorize(ctx, tenantID, in.TankID, in.CounterpartyID); err != nil {
		return nil, err
	}

	attempt := 0
	op := func() (*transaction.Transaction, error) {
		attempt++
		txn, err := l.applyOnce(ctx, tenantID, in)
		if err != nil {
			if errors.Is(err, ErrVersionConflict) {
				l.plugins.EmitConflictRetry(ctx, in.TankID.String(), attempt)
				l.logger.Debug("apply lost version race",
					"tank_id", in.TankID,
					"attempt", attempt,
				)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return txn, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Millisecond
	bo.MaxInterval = 50 * time.Millisecond

	txn, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(l.retryBudget)),
	)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, fmt.Errorf("%w: tank %s after %d attempts", ErrConcurrencyConflict, in.TankID, attempt)
		}
		return nil, err
	}

	l.plugins.EmitTransactionApplied(ctx, txn)
	if thr, ok := l.lowThresholdOf(ctx, in.TankID); ok && !txn.LevelAfter.GreaterThan(thr) {
		l.plugins.EmitLowFuel(ctx, in.TankID.String(), txn.LevelAfter.String(), thr.String())
	}

	// Derived forecast data is stale the moment the balance moves.
	_ = l.store.InvalidateForecast(ctx, in.TankID) //nolint:errcheck // best-effort cache invalidation

	l.logger.Info("transaction applied",
		"tank_id", in.TankID,
		"txn_id", txn.ID,
		"type", in.Type,
		"quantity", txn.Quantity,
		"level_after", txn.LevelAfter,
	)

	return txn, nil
}

// applyOnce performs a single read-validate-write attempt.
func (l *Ledger) applyOnce(ctx context.Context, tenantID string, in ApplyInput) (*transaction.Transaction, error) {
	t, err := l.store.GetTank(ctx, in.TankID)
	if err != nil {
		return nil, err
	}
	if !t.IsActive() {
		return nil, ErrTankInactive
	}
	if in.Quantity.Unit != t.Unit {
		return nil, ValidationError{Field: "quantity", Message: "unit does not match tank unit"}
	}

	magnitude, direction := resolveDirection(in)
	delta := magnitude
	if direction == transaction.DirectionOut {
		delta = magnitude.Neg()
	}
	levelAfter := t.CurrentVolume.Add(delta)

	if levelAfter.IsNegative() {
		return nil, &InsufficientVolumeError{
			TankID:    t.ID,
			Requested: magnitude,
			Available: t.CurrentVolume,
		}
	}
	if levelAfter.GreaterThan(t.Capacity) {
		return nil, &CapacityExceededError{
			TankID:    t.ID,
			Requested: magnitude,
			Headroom:  t.Headroom(),
			Capacity:  t.Capacity,
		}
	}

	txn := &transaction.Transaction{
		ID:             id.NewTransactionID(),
		TankID:         t.ID,
		TenantID:       tenantID,
		Type:           in.Type,
		Direction:      direction,
		Quantity:       magnitude,
		LevelBefore:    t.CurrentVolume,
		LevelAfter:     levelAfter,
		UnitCost:       in.UnitCost,
		TotalCost:      purchaseTotal(in, magnitude),
		CounterpartyID: in.CounterpartyID,
		Remarks:        in.Remarks,
		OccurredAt:     in.OccurredAt.UTC(),
		RecordedAt:     time.Now().UTC(),
	}

	if err := l.store.AppendTransaction(ctx, txn, t.Version); err != nil {
		return nil, err
	}
	return txn, nil
}

// CurrentBalance returns the tank's current volume.
func (l *Ledger) CurrentBalance(ctx context.Context, tankID id.TankID) (types.Quantity, error) {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		return types.Quantity{}, ErrMissingTenant
	}
	if err := l.scope.Authorize(ctx, tenantID, tankID, id.Nil); err != nil {
		return types.Quantity{}, err
	}

	t, err := l.store.GetTank(ctx, tankID)
	if err != nil {
		return types.Quantity{}, err
	}
	return t.CurrentVolume, nil
}

// VerifyChain replays the tank's full transaction log in persistence order
// and checks that every link holds and that the final level reproduces the
// tank's current volume exactly. It returns ErrChainMismatch when the
// chain is broken.
func (l *Ledger) VerifyChain(ctx context.Context, tankID id.TankID) error {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		return ErrMissingTenant
	}
	if err := l.scope.Authorize(ctx, tenantID, tankID, id.Nil); err != nil {
		return err
	}

	t, err := l.store.GetTank(ctx, tankID)
	if err != nil {
		return err
	}
	chain, err := l.store.ListChain(ctx, tankID)
	if err != nil {
		return err
	}
	if len(chain) == 0 {
		return nil
	}

	level := chain[0].LevelBefore
	for _, txn := range chain {
		if !txn.LevelBefore.Equal(level) {
			return fmt.Errorf("%w: transaction %s starts at %s, chain is at %s",
				ErrChainMismatch, txn.ID, txn.LevelBefore, level)
		}
		level = level.Add(txn.SignedDelta())
		if !txn.LevelAfter.Equal(level) {
			return fmt.Errorf("%w: transaction %s records level %s, replay gives %s",
				ErrChainMismatch, txn.ID, txn.LevelAfter, level)
		}
	}
	if !t.CurrentVolume.Equal(level) {
		return fmt.Errorf("%w: tank %s holds %s, replay gives %s",
			ErrChainMismatch, tankID, t.CurrentVolume, level)
	}
	return nil
}

func validateInput(in ApplyInput) error {
	if !in.Type.Valid() {
		return ValidationError{Field: "type", Message: "unknown transaction type"}
	}
	if in.OccurredAt.IsZero() {
		return ValidationError{Field: "occurred_at", Message: "must be set"}
	}

	switch in.Type {
	case transaction.TypePurchase, transaction.TypeDispense:
		if !in.Quantity.IsPositive() {
			return ValidationError{Field: "quantity", Message: "must be positive"}
		}
	case transaction.TypeAdjustment:
		if in.Quantity.IsZero() {
			return ValidationError{Field: "quantity", Message: "must be non-zero"}
		}
	}

	switch in.Type {
	case transaction.TypePurchase:
		if in.CounterpartyID.IsNil() {
			return ValidationError{Field: "counterparty_id", Message: "purchase requires a vendor"}
		}
		if in.CounterpartyID.Prefix() != id.PrefixVendor {
			return fmt.Errorf("%w: purchase expects a vendor, got %q", ErrCounterpartyKind, in.CounterpartyID.Prefix())
		}
	case transaction.TypeDispense:
		if in.CounterpartyID.IsNil() {
			return ValidationError{Field: "counterparty_id", Message: "dispense requires a vehicle"}
		}
		if in.CounterpartyID.Prefix() != id.PrefixVehicle {
			return fmt.Errorf("%w: dispense expects a vehicle, got %q", ErrCounterpartyKind, in.CounterpartyID.Prefix())
		}
	case transaction.TypeAdjustment:
		// Counterparty is optional on manual corrections.
	}

	if in.Type != transaction.TypePurchase && (in.UnitCost != nil || in.TotalCost != nil) {
		return ValidationError{Field: "unit_cost", Message: "costs are recorded on purchases only"}
	}

	return nil
}

// resolveDirection maps the input to the stored unsigned magnitude and
// direction. Adjustment sign is caller-specified.
func resolveDirection(in ApplyInput) (types.Quantity, transaction.Direction) {
	switch in.Type {
	case transaction.TypePurchase:
		return in.Quantity, transaction.DirectionIn
	case transaction.TypeDispense:
		return in.Quantity, transaction.DirectionOut
	default:
		if in.Quantity.IsNegative() {
			return in.Quantity.Abs(), transaction.DirectionOut
		}
		return in.Quantity, transaction.DirectionIn
	}
}

// purchaseTotal derives the purchase total from the unit cost when the
// caller supplied a rate but no total. A caller-supplied total is kept
// verbatim: no invariant ties it to volume times rate.
func purchaseTotal(in ApplyInput, magnitude types.Quantity) *types.Money {
	if in.TotalCost != nil {
		return in.TotalCost
	}
	if in.UnitCost != nil {
		total := in.UnitCost.MultiplyQuantity(magnitude)
		return &total
	}
	return nil
}

// lowThresholdOf reads the tank's low threshold for alert emission. A read
// failure here must not fail an already-persisted Apply, so it reports
// false and the low-fuel check is skipped.
func (l *Ledger) lowThresholdOf(ctx context.Context, tankID id.TankID) (types.Quantity, bool) {
	t, err := l.store.GetTank(ctx, tankID)
	if err != nil {
		return types.Quantity{}, false
	}
	return t.LowThreshold, true
}
