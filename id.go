package tankledger

import "github.com/xraph/tankledger/id"

// ID is the primary identifier type for all tank ledger entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
