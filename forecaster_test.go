package tankledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tankledger"
	"github.com/xraph/tankledger/counterparty"
	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/transaction"
	"github.com/xraph/tankledger/types"
)

// forecastCounter counts cold computations so cache hits can be detected.
type forecastCounter struct {
	mu       sync.Mutex
	computed int
}

func (f *forecastCounter) Name() string { return "forecast-counter" }

func (f *forecastCounter) OnForecastComputed(_ context.Context, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.computed++
	return nil
}

func (f *forecastCounter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.computed
}

func dispenseAt(t *testing.T, ctx context.Context, l *tankledger.Ledger, tankID id.TankID, vehicle *counterparty.Counterparty, litres int64, occurredAt time.Time) {
	t.Helper()

	_, err := l.Apply(ctx, tankledger.ApplyInput{
		TankID:         tankID,
		Type:           transaction.TypeDispense,
		Quantity:       types.LitresFromInt(litres),
		OccurredAt:     occurredAt,
		CounterpartyID: vehicle.ID,
	})
	if err != nil {
		t.Fatalf("dispense failed: %v", err)
	}
}

func TestForecastWindows(t *testing.T) {
	l, ctx := newTestLedger(t)
	tk := newDieselTank(t, ctx, l, 1000, 800, 100)
	vehicle := newVehicle(t, ctx, l, "Truck KA-06")

	now := time.Now().UTC()
	// One dispense in each trailing window.
	dispenseAt(t, ctx, l, tk.ID, vehicle, 40, now.Add(-2*time.Hour))
	dispenseAt(t, ctx, l, tk.ID, vehicle, 60, now.Add(-3*24*time.Hour))
	dispenseAt(t, ctx, l, tk.ID, vehicle, 100, now.Add(-10*24*time.Hour))

	f, err := l.Forecast(ctx, tk.ID, time.Time{})
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}

	if !f.CurrentVolume.Equal(types.LitresFromInt(600)) {
		t.Errorf("CurrentVolume: got %s, want 600 L", f.CurrentVolume)
	}
	if !f.DailyRate.Equal(types.LitresFromInt(40)) {
		t.Errorf("DailyRate: got %s, want 40 L", f.DailyRate)
	}
	if !f.WeeklyTotal.Equal(types.LitresFromInt(100)) {
		t.Errorf("WeeklyTotal: got %s, want 100 L", f.WeeklyTotal)
	}
	if !f.MonthlyTotal.Equal(types.LitresFromInt(200)) {
		t.Errorf("MonthlyTotal: got %s, want 200 L", f.MonthlyTotal)
	}

	if f.DaysRemaining.IsUnbounded() {
		t.Fatal("expected bounded projection")
	}
	if !f.DaysRemaining.Value().Equal(decimal.NewFromInt(15)) {
		t.Errorf("DaysRemaining: got %s, want 15", f.DaysRemaining)
	}
	if f.LowFuel {
		t.Error("600 L is above the 100 L threshold")
	}
}

func TestForecastUnboundedWhenIdle(t *testing.T) {
	l, ctx := newTestLedger(t)
	tk := newDieselTank(t, ctx, l, 1000, 800, 100)
	vehicle := newVehicle(t, ctx, l, "Truck KA-07")

	// Only a stale dispense outside the daily window.
	now := time.Now().UTC()
	dispenseAt(t, ctx, l, tk.ID, vehicle, 50, now.Add(-48*time.Hour))

	f, err := l.Forecast(ctx, tk.ID, time.Time{})
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}

	if !f.DailyRate.IsZero() {
		t.Errorf("DailyRate: got %s, want 0", f.DailyRate)
	}
	if !f.DaysRemaining.IsUnbounded() {
		t.Error("expected unbounded projection with no consumption in trailing day")
	}
	if f.DaysRemaining.String() != "∞" {
		t.Errorf("display: got %q, want ∞", f.DaysRemaining.String())
	}
}

func TestForecastLowFuelFlag(t *testing.T) {
	l, ctx := newTestLedger(t)
	tk := newDieselTank(t, ctx, l, 1000, 120, 150)

	f, err := l.Forecast(ctx, tk.ID, time.Time{})
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if !f.LowFuel {
		t.Error("120 L is below the 150 L threshold, expected LowFuel")
	}
}

func TestForecastCaching(t *testing.T) {
	counter := &forecastCounter{}
	l, ctx := newTestLedger(t,
		tankledger.WithPlugin(counter),
		tankledger.WithForecastCacheTTL(time.Minute),
	)
	tk := newDieselTank(t, ctx, l, 1000, 800, 100)
	vehicle := newVehicle(t, ctx, l, "Truck KA-08")

	if _, err := l.Forecast(ctx, tk.ID, time.Time{}); err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if _, err := l.Forecast(ctx, tk.ID, time.Time{}); err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if got := counter.count(); got != 1 {
		t.Errorf("expected second forecast served from cache, computed %d times", got)
	}

	// Any applied transaction invalidates the cache.
	dispenseAt(t, ctx, l, tk.ID, vehicle, 10, time.Now().UTC())

	if _, err := l.Forecast(ctx, tk.ID, time.Time{}); err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if got := counter.count(); got != 2 {
		t.Errorf("expected recompute after apply, computed %d times", got)
	}
}

func TestForecastHistoricalAsOfBypassesCache(t *testing.T) {
	counter := &forecastCounter{}
	l, ctx := newTestLedger(t, tankledger.WithPlugin(counter))
	tk := newDieselTank(t, ctx, l, 1000, 800, 100)
	vehicle := newVehicle(t, ctx, l, "Truck KA-09")

	now := time.Now().UTC()
	dispenseAt(t, ctx, l, tk.ID, vehicle, 30, now.Add(-30*time.Hour))

	asOf := now.Add(-24 * time.Hour)
	f, err := l.Forecast(ctx, tk.ID, asOf)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	// Relative to asOf, the dispense falls inside the daily window.
	if !f.DailyRate.Equal(types.LitresFromInt(30)) {
		t.Errorf("DailyRate at asOf: got %s, want 30 L", f.DailyRate)
	}

	if _, err := l.Forecast(ctx, tk.ID, asOf); err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if got := counter.count(); got != 2 {
		t.Errorf("historical forecasts must not hit the cache, computed %d times", got)
	}
}

func TestForecastDeactivatedTank(t *testing.T) {
	l, ctx := newTestLedger(t)
	tk := newDieselTank(t, ctx, l, 1000, 800, 100)

	if err := l.DeactivateTank(ctx, tk.ID); err != nil {
		t.Fatalf("DeactivateTank failed: %v", err)
	}

	// History and forecasts stay readable on retired tanks.
	if _, err := l.Forecast(ctx, tk.ID, time.Time{}); err != nil {
		t.Errorf("Forecast on deactivated tank failed: %v", err)
	}
}
