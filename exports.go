package tankledger

import "github.com/xraph/tankledger/types"

// Re-export common types for convenience so users don't have to import
// the types package.

// Quantity is re-exported from the types package.
type Quantity = types.Quantity

// Money is re-exported from the types package.
type Money = types.Money

// Entity is re-exported from the types package.
type Entity = types.Entity

// Re-export Quantity and Money constructors
var (
	Litres        = types.Litres
	LitresFromInt = types.LitresFromInt
	Kilograms     = types.Kilograms
	ZeroQuantity  = types.ZeroQuantity
	SumQuantities = types.SumQuantities
	USD           = types.USD
	EUR           = types.EUR
	INR           = types.INR
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
