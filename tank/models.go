// Package tank defines the fuel tank aggregate: a bounded reservoir of one
// fuel type owned by one tenant. The tank is the aggregate root of the
// ledger; its balance is only ever mutated through transaction application.
package tank

import (
	"time"

	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/types"
)

// FuelType is the kind of fuel a tank holds.
type FuelType string

const (
	FuelDiesel FuelType = "diesel"
	FuelPetrol FuelType = "petrol"
	FuelCNG    FuelType = "cng"
)

// Valid reports whether the fuel type is one of the supported kinds.
func (f FuelType) Valid() bool {
	return f == FuelDiesel || f == FuelPetrol || f == FuelCNG
}

// Status is a tank's lifecycle state. Tanks are never hard-deleted;
// retired tanks are deactivated and keep their transaction history.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Tank is one physical fuel reservoir for one tenant.
//
// Version is a monotonic counter used for optimistic concurrency: every
// applied transaction increments it, and the conditional write that
// persists a transaction only succeeds when the version is unchanged
// since it was read.
type Tank struct {
	types.Entity
	ID                id.TankID      `json:"id"`
	TenantID          string         `json:"tenant_id"`
	Name              string         `json:"name"`
	Location          string         `json:"location,omitempty"`
	FuelType          FuelType       `json:"fuel_type"`
	Unit              types.Unit     `json:"unit"`
	Capacity          types.Quantity `json:"capacity"`
	CurrentVolume     types.Quantity `json:"current_volume"`
	LowThreshold      types.Quantity `json:"low_threshold"`
	Status            Status         `json:"status"`
	Version           int64          `json:"version"`
	LastTransactionAt *time.Time     `json:"last_transaction_at,omitempty"`
}

// IsActive reports whether the tank accepts new transactions.
func (t *Tank) IsActive() bool { return t.Status == StatusActive }

// IsLow reports whether the current volume is at or below the low-fuel
// threshold.
func (t *Tank) IsLow() bool {
	return !t.CurrentVolume.GreaterThan(t.LowThreshold)
}

// Headroom returns the free capacity left in the tank.
func (t *Tank) Headroom() types.Quantity {
	return t.Capacity.Sub(t.CurrentVolume)
}

// ListOpts filters tank listings.
type ListOpts struct {
	FuelType FuelType
	Status   Status
	Limit    int
	Offset   int
}
