// Package tankledger provides a multi-tenant fuel tank inventory ledger
// for Go applications.
//
// The ledger is designed as a library, not a service. Import it directly
// into the fleet application that records fuel purchases, dispenses, and
// manual corrections. It provides:
//
//   - An append-only transaction log with a verifiable balance chain
//   - Optimistic concurrency on tank balances with bounded internal retry
//   - Physical invariants enforced before any write: the balance never
//     goes negative and never exceeds capacity
//   - Tenant isolation checked on every call as defense-in-depth
//   - Consumption forecasting (trailing daily/weekly/monthly dispensed
//     volume, days-remaining projection, low-fuel condition)
//   - Pluggable in-process hooks for auditing, metrics, and alerting
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/tankledger"
//	    "github.com/xraph/tankledger/store/memory"
//	)
//
//	l := tankledger.New(memory.New())
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// Every call carries the authenticated tenant in the context:
//
//	ctx = tankledger.WithTenant(ctx, "subsidiary-north")
//
// Record a dispense against a tank:
//
//	txn, err := l.Apply(ctx, tankledger.ApplyInput{
//	    TankID:         tankID,
//	    Type:           transaction.TypeDispense,
//	    Quantity:       types.LitresFromInt(40),
//	    OccurredAt:     time.Now(),
//	    CounterpartyID: vehicleID,
//	})
//
// A dispense that would take the balance negative fails with
// ErrInsufficientVolume before anything is written; a purchase that would
// overflow the tank fails with ErrCapacityExceeded the same way. Two
// concurrent writers on the same tank serialize through a version
// compare-and-swap, so the recorded level_before/level_after chain always
// replays to the tank's current volume.
//
// # Forecasting
//
// Dashboards poll the read side:
//
//	f, err := l.Forecast(ctx, tankID, time.Time{})
//	if f.LowFuel {
//	    // surface the alert; delivery is the caller's concern
//	}
//
// DaysRemaining carries an explicit unbounded sentinel for idle tanks;
// it is never an infinite or NaN number.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	tank_01h2xcejqtf2nbrexx3vqjhp41  // Tank ID
//	ftx_01h2xcejqtf2nbrexx3vqjhp41   // Transaction ID
//	vhc_01h455vb4pex5vsknk084sn02q   // Vehicle counterparty ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package tankledger
