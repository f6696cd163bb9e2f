package tankledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tankledger"
	"github.com/xraph/tankledger/transaction"
	"github.com/xraph/tankledger/types"
)

func TestHistoryOrderingAndFilters(t *testing.T) {
	l, ctx := newTestLedger(t)
	tk := newDieselTank(t, ctx, l, 10000, 5000, 100)
	vendor := newVendor(t, ctx, l, "IOCL Depot")
	vehicleA := newVehicle(t, ctx, l, "Truck A")
	vehicleB := newVehicle(t, ctx, l, "Truck B")

	now := time.Now().UTC()
	if _, err := l.Apply(ctx, tankledger.ApplyInput{
		TankID: tk.ID, Type: transaction.TypePurchase,
		Quantity: types.LitresFromInt(500), OccurredAt: now.Add(-3 * time.Hour), CounterpartyID: vendor.ID,
	}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	dispenseAt(t, ctx, l, tk.ID, vehicleA, 40, now.Add(-2*time.Hour))
	dispenseAt(t, ctx, l, tk.ID, vehicleB, 60, now.Add(-1*time.Hour))

	history, err := l.History(ctx, tk.ID, transaction.Filter{})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
	// Newest first.
	for i := 1; i < len(history); i++ {
		if history[i].OccurredAt.After(history[i-1].OccurredAt) {
			t.Errorf("history not in descending occurred_at order at index %d", i)
		}
	}

	dispenses, err := l.History(ctx, tk.ID, transaction.Filter{Type: transaction.TypeDispense})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(dispenses) != 2 {
		t.Errorf("expected 2 dispenses, got %d", len(dispenses))
	}

	byVehicle, err := l.History(ctx, tk.ID, transaction.Filter{Counterparty: vehicleA.ID})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(byVehicle) != 1 {
		t.Errorf("expected 1 entry for vehicle A, got %d", len(byVehicle))
	}

	// Time range: [from, to) on occurred_at.
	windowed, err := l.History(ctx, tk.ID, transaction.Filter{
		From: now.Add(-2 * time.Hour),
		To:   now.Add(-1 * time.Hour),
	})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(windowed) != 1 {
		t.Errorf("expected 1 entry in window, got %d", len(windowed))
	}
	if len(windowed) == 1 && !windowed[0].Quantity.Equal(types.LitresFromInt(40)) {
		t.Errorf("window entry: got %s, want 40 L", windowed[0].Quantity)
	}
}

func TestHistoryPagination(t *testing.T) {
	l, ctx := newTestLedger(t)
	tk := newDieselTank(t, ctx, l, 10000, 5000, 100)
	vehicle := newVehicle(t, ctx, l, "Truck KA-10")

	now := time.Now().UTC()
	for i := 0; i < 7; i++ {
		dispenseAt(t, ctx, l, tk.ID, vehicle, 10, now.Add(time.Duration(-i)*time.Minute))
	}

	page1, err := l.History(ctx, tk.ID, transaction.Filter{Limit: 3})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	page2, err := l.History(ctx, tk.ID, transaction.Filter{Limit: 3, Offset: 3})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	page3, err := l.History(ctx, tk.ID, transaction.Filter{Limit: 3, Offset: 6})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}

	if len(page1) != 3 || len(page2) != 3 || len(page3) != 1 {
		t.Fatalf("page sizes: got %d/%d/%d, want 3/3/1", len(page1), len(page2), len(page3))
	}

	seen := make(map[string]bool)
	for _, page := range [][]*transaction.Transaction{page1, page2, page3} {
		for _, txn := range page {
			if seen[txn.ID.String()] {
				t.Errorf("transaction %s appeared on two pages", txn.ID)
			}
			seen[txn.ID.String()] = true
		}
	}
	if len(seen) != 7 {
		t.Errorf("expected 7 distinct entries across pages, got %d", len(seen))
	}
}

func TestHistoryPager(t *testing.T) {
	l, ctx := newTestLedger(t)
	tk := newDieselTank(t, ctx, l, 10000, 5000, 100)
	vehicle := newVehicle(t, ctx, l, "Truck KA-11")

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		dispenseAt(t, ctx, l, tk.ID, vehicle, 10, now.Add(time.Duration(-i)*time.Minute))
	}

	pager := l.NewHistoryPager(tk.ID, transaction.Filter{Limit: 2})

	var total int
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if len(page) == 0 {
			break
		}
		total += len(page)
	}
	if total != 5 {
		t.Errorf("pager walked %d entries, want 5", total)
	}

	// Exhausted pager keeps returning empty pages.
	page, err := pager.Next(ctx)
	if err != nil {
		t.Fatalf("Next after exhaustion failed: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("expected empty page after exhaustion, got %d entries", len(page))
	}
}

func TestGetTransaction(t *testing.T) {
	l, ctx := newTestLedger(t)
	tk := newDieselTank(t, ctx, l, 1000, 200, 150)
	vendor := newVendor(t, ctx, l, "IOCL Depot")

	txn, err := l.Apply(ctx, tankledger.ApplyInput{
		TankID: tk.ID, Type: transaction.TypePurchase,
		Quantity: types.LitresFromInt(100), OccurredAt: time.Now(), CounterpartyID: vendor.ID,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	got, err := l.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if got.ID.String() != txn.ID.String() {
		t.Errorf("ID: got %s, want %s", got.ID, txn.ID)
	}

	// Cross-tenant read is rejected.
	betaCtx := tankledger.WithTenant(context.Background(), tenantBeta)
	_, err = l.GetTransaction(betaCtx, txn.ID)
	if !errors.Is(err, tankledger.ErrTenantMismatch) {
		t.Errorf("expected ErrTenantMismatch, got %v", err)
	}
}
