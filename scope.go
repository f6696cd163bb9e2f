package tankledger

import (
	"context"

	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/store"
)

type tenantKey struct{}

// WithTenant returns a context carrying the already-authenticated tenant.
// Every engine call resolves its tenant from the context; authentication
// itself happens outside the core.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantFromContext extracts the tenant from the context.
func TenantFromContext(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(tenantKey{}).(string)
	return tenantID, ok && tenantID != ""
}

// TenantScope validates that a tank and any referenced counterparty belong
// to the caller's tenant. It is a pure read-side check with no side
// effects, run before every mutation as defense-in-depth even when an
// outer authorization layer already scoped the request.
type TenantScope struct {
	store store.Store
}

// NewTenantScope creates a TenantScope over the given store.
func NewTenantScope(s store.Store) *TenantScope {
	return &TenantScope{store: s}
}

// Authorize checks that the tank, and the counterparty when one is given,
// are owned by tenantID. It fails with a TenantMismatchError naming the
// offending reference, or a not-found error when the entity does not exist.
func (s *TenantScope) Authorize(ctx context.Context, tenantID string, tankID id.TankID, counterpartyID id.CounterpartyID) error {
	t, err := s.store.GetTank(ctx, tankID)
	if err != nil {
		return err
	}
	if t.TenantID != tenantID {
		return &TenantMismatchError{Want: tenantID, Got: t.TenantID, Ref: "tank"}
	}

	if counterpartyID.IsNil() {
		return nil
	}

	cp, err := s.store.GetCounterparty(ctx, counterpartyID)
	if err != nil {
		return err
	}
	if cp.TenantID != tenantID {
		return &TenantMismatchError{Want: tenantID, Got: cp.TenantID, Ref: "counterparty"}
	}

	return nil
}
