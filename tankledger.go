package tankledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/tankledger/counterparty"
	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/plugin"
	"github.com/xraph/tankledger/store"
	"github.com/xraph/tankledger/tank"
	"github.com/xraph/tankledger/types"
)

// Ledger is the tank inventory engine. All balance mutation funnels
// through Apply; reads never block writers.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	scope   *TenantScope

	// Configuration
	retryBudget int
	forecastTTL time.Duration
}

// New creates a new Ledger instance over the given store.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:       s,
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		retryBudget: 4,
		forecastTTL: 30 * time.Second,
	}
	l.scope = NewTenantScope(s)

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithRetryBudget bounds how many times a conflicting Apply is retried
// internally before ErrConcurrencyConflict surfaces. Values below 1 are
// ignored.
func WithRetryBudget(n int) Option {
	return func(l *Ledger) {
		if n >= 1 {
			l.retryBudget = n
		}
	}
}

// WithForecastCacheTTL sets how long computed forecasts are served from
// the store cache before being recomputed. The cache is invalidated on
// every successful Apply regardless of TTL.
func WithForecastCacheTTL(ttl time.Duration) Option {
	return func(l *Ledger) {
		l.forecastTTL = ttl
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	if err := l.plugins.EmitInit(ctx, l); err != nil {
		return err
	}

	l.logger.Info("tank ledger started",
		"retry_budget", l.retryBudget,
		"forecast_ttl", l.forecastTTL,
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Scope returns the tenant scope checker backed by this ledger's store.
func (l *Ledger) Scope() *TenantScope { return l.scope }

// ──────────────────────────────────────────────────
// Tank provisioning
// ──────────────────────────────────────────────────

// CreateTank provisions a tank for the tenant in context. The tank starts
// at the given current volume with version zero; all subsequent balance
// changes go through Apply.
func (l *Ledger) CreateTank(ctx context.Context, t *tank.Tank) error {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		return ErrMissingTenant
	}

	if err := validateTank(t); err != nil {
		return err
	}

	if t.ID.IsNil() {
		t.ID = id.NewTankID()
	}
	t.TenantID = tenantID
	t.Status = tank.StatusActive
	t.Version = 0
	t.Entity = types.NewEntity()

	if err := l.store.CreateTank(ctx, t); err != nil {
		return err
	}

	l.plugins.EmitTankCreated(ctx, t)
	return nil
}

// GetTank retrieves a tank owned by the tenant in context.
func (l *Ledger) GetTank(ctx context.Context, tankID id.TankID) (*tank.Tank, error) {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		return nil, ErrMissingTenant
	}
	if err := l.scope.Authorize(ctx, tenantID, tankID, id.Nil); err != nil {
		return nil, err
	}
	return l.store.GetTank(ctx, tankID)
}

// ListTanks lists the tenant's tanks.
func (l *Ledger) ListTanks(ctx context.Context, opts tank.ListOpts) ([]*tank.Tank, error) {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		return nil, ErrMissingTenant
	}
	return l.store.ListTanks(ctx, tenantID, opts)
}

// DeactivateTank retires a tank. The tank and its history remain
// readable; new transactions are rejected.
func (l *Ledger) DeactivateTank(ctx context.Context, tankID id.TankID) error {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		return ErrMissingTenant
	}
	if err := l.scope.Authorize(ctx, tenantID, tankID, id.Nil); err != nil {
		return err
	}

	if err := l.store.DeactivateTank(ctx, tankID); err != nil {
		return err
	}

	l.plugins.EmitTankDeactivated(ctx, tankID.String())
	return nil
}

// ──────────────────────────────────────────────────
// Counterparty references
// ──────────────────────────────────────────────────

// RegisterCounterparty records the minimal reference for a vehicle or
// vendor so transactions can name it and the tenant check can see it.
func (l *Ledger) RegisterCounterparty(ctx context.Context, c *counterparty.Counterparty) error {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		return ErrMissingTenant
	}

	if c.ID.IsNil() {
		switch c.Kind {
		case counterparty.KindVehicle:
			c.ID = id.NewVehicleID()
		case counterparty.KindVendor:
			c.ID = id.NewVendorID()
		default:
			return ValidationError{Field: "kind", Message: "unknown counterparty kind"}
		}
	}
	if !c.Kind.MatchesPrefix(c.ID.Prefix()) {
		return ValidationError{Field: "id", Message: "id prefix does not match counterparty kind"}
	}
	c.TenantID = tenantID
	c.Entity = types.NewEntity()

	return l.store.RegisterCounterparty(ctx, c)
}

// GetCounterparty retrieves a counterparty owned by the tenant in context.
func (l *Ledger) GetCounterparty(ctx context.Context, cpID id.CounterpartyID) (*counterparty.Counterparty, error) {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		return nil, ErrMissingTenant
	}

	cp, err := l.store.GetCounterparty(ctx, cpID)
	if err != nil {
		return nil, err
	}
	if cp.TenantID != tenantID {
		return nil, &TenantMismatchError{Want: tenantID, Got: cp.TenantID, Ref: "counterparty"}
	}
	return cp, nil
}

func validateTank(t *tank.Tank) error {
	if !t.FuelType.Valid() {
		return ValidationError{Field: "fuel_type", Message: "unknown fuel type"}
	}
	if !t.Unit.Valid() {
		return ValidationError{Field: "unit", Message: "unknown unit"}
	}
	if !t.Capacity.IsPositive() {
		return ValidationError{Field: "capacity", Message: "must be positive"}
	}
	if t.Capacity.Unit != t.Unit {
		return ValidationError{Field: "capacity", Message: "unit does not match tank unit"}
	}
	if t.CurrentVolume.Unit != t.Unit {
		return ValidationError{Field: "current_volume", Message: "unit does not match tank unit"}
	}
	if t.CurrentVolume.IsNegative() {
		return ValidationError{Field: "current_volume", Message: "must not be negative"}
	}
	if t.CurrentVolume.GreaterThan(t.Capacity) {
		return ValidationError{Field: "current_volume", Message: "exceeds capacity"}
	}
	if t.LowThreshold.IsNegative() {
		return ValidationError{Field: "low_threshold", Message: "must not be negative"}
	}
	if t.LowThreshold.Unit != t.Unit {
		return ValidationError{Field: "low_threshold", Message: "unit does not match tank unit"}
	}
	return nil
}
