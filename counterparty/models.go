// Package counterparty holds the minimal tenant-scoped reference record for
// the far side of a transaction: the vehicle a dispense fills or the vendor
// a purchase comes from. Full vehicle/vendor management lives outside the
// ledger; the core only needs enough to enforce tenant isolation.
package counterparty

import (
	"context"

	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/types"
)

// Kind distinguishes the two counterparty roles.
type Kind string

const (
	KindVehicle Kind = "vehicle"
	KindVendor  Kind = "vendor"
)

// Counterparty is a tenant-scoped reference to a vehicle or vendor.
type Counterparty struct {
	types.Entity
	ID       id.CounterpartyID `json:"id"`
	TenantID string            `json:"tenant_id"`
	Kind     Kind              `json:"kind"`
	Label    string            `json:"label,omitempty"`
}

// MatchesPrefix reports whether an ID prefix is consistent with the kind.
func (k Kind) MatchesPrefix(p id.Prefix) bool {
	switch k {
	case KindVehicle:
		return p == id.PrefixVehicle
	case KindVendor:
		return p == id.PrefixVendor
	default:
		return false
	}
}

// Store is the persistence interface for counterparty references.
type Store interface {
	Register(ctx context.Context, c *Counterparty) error
	Get(ctx context.Context, cpID id.CounterpartyID) (*Counterparty, error)
}
