package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Registry manages registered plugins and dispatches events to them.
// Plugin interfaces are discovered once at registration so dispatch is a
// plain slice walk.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onTankCreated        []OnTankCreated
	onTankDeactivated    []OnTankDeactivated
	onTransactionApplied []OnTransactionApplied
	onLowFuel            []OnLowFuel
	onConflictRetry      []OnConflictRetry
	onForecastComputed   []OnForecastComputed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate plugin name %q", p.Name())
		}
	}
	r.plugins = append(r.plugins, p)

	if h, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, h)
	}
	if h, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, h)
	}
	if h, ok := p.(OnTankCreated); ok {
		r.onTankCreated = append(r.onTankCreated, h)
	}
	if h, ok := p.(OnTankDeactivated); ok {
		r.onTankDeactivated = append(r.onTankDeactivated, h)
	}
	if h, ok := p.(OnTransactionApplied); ok {
		r.onTransactionApplied = append(r.onTransactionApplied, h)
	}
	if h, ok := p.(OnLowFuel); ok {
		r.onLowFuel = append(r.onLowFuel, h)
	}
	if h, ok := p.(OnConflictRetry); ok {
		r.onConflictRetry = append(r.onConflictRetry, h)
	}
	if h, ok := p.(OnForecastComputed); ok {
		r.onForecastComputed = append(r.onForecastComputed, h)
	}

	return nil
}

// Plugins returns the names of all registered plugins.
func (r *Registry) Plugins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		names[i] = p.Name()
	}
	return names
}

// EmitInit dispatches the init hook. Unlike the event hooks, a failing
// init is surfaced to the caller.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.onInit {
		if err := h.OnInit(ctx, engine); err != nil {
			return fmt.Errorf("plugin: init %q: %w", h.Name(), err)
		}
	}
	return nil
}

// EmitShutdown dispatches the shutdown hook to all plugins.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.onShutdown {
		if err := h.OnShutdown(ctx); err != nil {
			r.logger.Error("plugin shutdown failed", "plugin", h.Name(), "error", err)
		}
	}
}

// EmitTankCreated dispatches the tank-created event.
func (r *Registry) EmitTankCreated(ctx context.Context, t interface{}) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.onTankCreated {
		if err := h.OnTankCreated(ctx, t); err != nil {
			r.logger.Error("plugin hook failed", "plugin", h.Name(), "hook", "tank_created", "error", err)
		}
	}
}

// EmitTankDeactivated dispatches the tank-deactivated event.
func (r *Registry) EmitTankDeactivated(ctx context.Context, tankID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.onTankDeactivated {
		if err := h.OnTankDeactivated(ctx, tankID); err != nil {
			r.logger.Error("plugin hook failed", "plugin", h.Name(), "hook", "tank_deactivated", "error", err)
		}
	}
}

// EmitTransactionApplied dispatches the transaction-applied event.
func (r *Registry) EmitTransactionApplied(ctx context.Context, txn interface{}) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.onTransactionApplied {
		if err := h.OnTransactionApplied(ctx, txn); err != nil {
			r.logger.Error("plugin hook failed", "plugin", h.Name(), "hook", "transaction_applied", "error", err)
		}
	}
}

// EmitLowFuel dispatches the low-fuel event.
func (r *Registry) EmitLowFuel(ctx context.Context, tankID string, current, threshold string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.onLowFuel {
		if err := h.OnLowFuel(ctx, tankID, current, threshold); err != nil {
			r.logger.Error("plugin hook failed", "plugin", h.Name(), "hook", "low_fuel", "error", err)
		}
	}
}

// EmitConflictRetry dispatches the conflict-retry event.
func (r *Registry) EmitConflictRetry(ctx context.Context, tankID string, attempt int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.onConflictRetry {
		if err := h.OnConflictRetry(ctx, tankID, attempt); err != nil {
			r.logger.Error("plugin hook failed", "plugin", h.Name(), "hook", "conflict_retry", "error", err)
		}
	}
}

// EmitForecastComputed dispatches the forecast-computed event.
func (r *Registry) EmitForecastComputed(ctx context.Context, f interface{}) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.onForecastComputed {
		if err := h.OnForecastComputed(ctx, f); err != nil {
			r.logger.Error("plugin hook failed", "plugin", h.Name(), "hook", "forecast_computed", "error", err)
		}
	}
}
