// Package transaction defines the immutable ledger entry recording one
// balance-changing event on a tank. Entries are append-only: corrections
// are new adjustment entries, never edits.
package transaction

import (
	"time"

	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/types"
)

// Type is the kind of balance-changing event.
type Type string

const (
	// TypePurchase adds fuel delivered by a vendor.
	TypePurchase Type = "purchase"
	// TypeDispense draws fuel out of the tank into a vehicle.
	TypeDispense Type = "dispense"
	// TypeAdjustment is a manual correction in either direction.
	TypeAdjustment Type = "adjustment"
)

// Valid reports whether the type is one of the supported kinds.
func (t Type) Valid() bool {
	return t == TypePurchase || t == TypeDispense || t == TypeAdjustment
}

// Direction is the sign of a transaction's effect on the balance.
// Purchases are always In, dispenses always Out; adjustments carry the
// caller-specified direction.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Transaction is one immutable ledger entry.
//
// Quantity is always the unsigned magnitude; the signed delta is
// Quantity for DirectionIn and -Quantity for DirectionOut. The chain
// invariant LevelAfter = LevelBefore + signed delta holds for every
// persisted entry, and 0 <= LevelAfter <= tank capacity.
//
// OccurredAt is the caller-supplied event time and drives forecasting
// windows and history ordering. RecordedAt is the system persistence
// time; together with the tank version it is authoritative for the
// balance chain order.
type Transaction struct {
	ID             id.TransactionID  `json:"id"`
	TankID         id.TankID         `json:"tank_id"`
	TenantID       string            `json:"tenant_id"`
	Type           Type              `json:"type"`
	Direction      Direction         `json:"direction"`
	Quantity       types.Quantity    `json:"quantity"`
	LevelBefore    types.Quantity    `json:"level_before"`
	LevelAfter     types.Quantity    `json:"level_after"`
	UnitCost       *types.Money      `json:"unit_cost,omitempty"`
	TotalCost      *types.Money      `json:"total_cost,omitempty"`
	CounterpartyID id.CounterpartyID `json:"counterparty_id,omitempty"`
	Remarks        string            `json:"remarks,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
	RecordedAt     time.Time         `json:"recorded_at"`
}

// SignedDelta returns the transaction's effect on the tank balance.
func (t *Transaction) SignedDelta() types.Quantity {
	if t.Direction == DirectionOut {
		return t.Quantity.Neg()
	}
	return t.Quantity
}

// Filter narrows a history query. Zero fields are ignored.
type Filter struct {
	Type         Type
	Counterparty id.CounterpartyID
	From         time.Time // inclusive lower bound on OccurredAt
	To           time.Time // exclusive upper bound on OccurredAt
	Limit        int
	Offset       int
}
