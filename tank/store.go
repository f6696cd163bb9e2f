package tank

import (
	"context"

	"github.com/xraph/tankledger/id"
)

// Store is the persistence interface for tanks.
type Store interface {
	Create(ctx context.Context, t *Tank) error
	Get(ctx context.Context, tankID id.TankID) (*Tank, error)
	List(ctx context.Context, tenantID string, opts ListOpts) ([]*Tank, error)
	Deactivate(ctx context.Context, tankID id.TankID) error
}
