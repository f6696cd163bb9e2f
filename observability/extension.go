// Package observability provides a metrics extension that records
// lifecycle event counts via a caller-supplied MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/tankledger/plugin"
	"github.com/xraph/tankledger/transaction"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnTankCreated        = (*MetricsExtension)(nil)
	_ plugin.OnTankDeactivated    = (*MetricsExtension)(nil)
	_ plugin.OnTransactionApplied = (*MetricsExtension)(nil)
	_ plugin.OnLowFuel            = (*MetricsExtension)(nil)
	_ plugin.OnConflictRetry      = (*MetricsExtension)(nil)
	_ plugin.OnForecastComputed   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a ledger plugin to automatically track inventory metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Tank metrics
	TankCreated     Counter
	TankDeactivated Counter

	// Transaction metrics
	TransactionsApplied Counter
	PurchaseVolume      Histogram
	DispenseVolume      Histogram
	ConflictRetries     Counter
	RetryAttempt        Histogram

	// Alerting metrics
	LowFuelEvents Counter

	// Forecast metrics
	ForecastsComputed Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Tank metrics
		TankCreated:     factory.Counter("tankledger.tank.created"),
		TankDeactivated: factory.Counter("tankledger.tank.deactivated"),

		// Transaction metrics
		TransactionsApplied: factory.Counter("tankledger.transaction.applied"),
		PurchaseVolume:      factory.Histogram("tankledger.transaction.purchase_volume"),
		DispenseVolume:      factory.Histogram("tankledger.transaction.dispense_volume"),
		ConflictRetries:     factory.Counter("tankledger.transaction.conflict_retries"),
		RetryAttempt:        factory.Histogram("tankledger.transaction.retry_attempt"),

		// Alerting metrics
		LowFuelEvents: factory.Counter("tankledger.tank.low_fuel"),

		// Forecast metrics
		ForecastsComputed: factory.Counter("tankledger.forecast.computed"),

		// Error metrics
		StoreErrors:  factory.Counter("tankledger.store.errors"),
		PluginErrors: factory.Counter("tankledger.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnTankCreated implements plugin.OnTankCreated.
func (m *MetricsExtension) OnTankCreated(_ context.Context, _ interface{}) error {
	m.TankCreated.Inc()
	return nil
}

// OnTankDeactivated implements plugin.OnTankDeactivated.
func (m *MetricsExtension) OnTankDeactivated(_ context.Context, _ string) error {
	m.TankDeactivated.Inc()
	return nil
}

// OnTransactionApplied implements plugin.OnTransactionApplied.
func (m *MetricsExtension) OnTransactionApplied(_ context.Context, v interface{}) error {
	m.TransactionsApplied.Inc()

	if txn, ok := v.(*transaction.Transaction); ok {
		volume, _ := txn.Quantity.Amount.Float64()
		switch txn.Type {
		case transaction.TypePurchase:
			m.PurchaseVolume.Observe(volume)
		case transaction.TypeDispense:
			m.DispenseVolume.Observe(volume)
		}
	}
	return nil
}

// OnLowFuel implements plugin.OnLowFuel.
func (m *MetricsExtension) OnLowFuel(_ context.Context, _ string, _, _ string) error {
	m.LowFuelEvents.Inc()
	return nil
}

// OnConflictRetry implements plugin.OnConflictRetry.
func (m *MetricsExtension) OnConflictRetry(_ context.Context, _ string, attempt int) error {
	m.ConflictRetries.Inc()
	m.RetryAttempt.Observe(float64(attempt))
	return nil
}

// OnForecastComputed implements plugin.OnForecastComputed.
func (m *MetricsExtension) OnForecastComputed(_ context.Context, _ interface{}) error {
	m.ForecastsComputed.Inc()
	return nil
}
