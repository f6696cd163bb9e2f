// Package plugin provides an extensible hook system for the tank ledger.
// Plugins observe lifecycle events in-process; the ledger core itself
// emits no events or webhooks beyond these registered hooks.
package plugin

import "context"

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// OnTankCreated is called when a tank is provisioned.
type OnTankCreated interface {
	Plugin
	OnTankCreated(ctx context.Context, t interface{}) error
}

// OnTankDeactivated is called when a tank is retired.
type OnTankDeactivated interface {
	Plugin
	OnTankDeactivated(ctx context.Context, tankID string) error
}

// OnTransactionApplied is called after a transaction is durably persisted.
type OnTransactionApplied interface {
	Plugin
	OnTransactionApplied(ctx context.Context, txn interface{}) error
}

// OnLowFuel is called when an applied transaction leaves the tank at or
// below its low threshold. Alert delivery is the subscriber's concern.
type OnLowFuel interface {
	Plugin
	OnLowFuel(ctx context.Context, tankID string, current, threshold string) error
}

// OnConflictRetry is called each time an Apply attempt loses the
// version race and is retried.
type OnConflictRetry interface {
	Plugin
	OnConflictRetry(ctx context.Context, tankID string, attempt int) error
}

// OnForecastComputed is called when a consumption forecast is computed
// (not when served from cache).
type OnForecastComputed interface {
	Plugin
	OnForecastComputed(ctx context.Context, f interface{}) error
}
