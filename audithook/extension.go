// Package audithook bridges ledger lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package carries no
// dependency on any particular audit system. Callers inject a
// RecorderFunc adapter that bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/tankledger/plugin"
	"github.com/xraph/tankledger/transaction"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnTankCreated        = (*Extension)(nil)
	_ plugin.OnTankDeactivated    = (*Extension)(nil)
	_ plugin.OnTransactionApplied = (*Extension)(nil)
	_ plugin.OnLowFuel            = (*Extension)(nil)
	_ plugin.OnConflictRetry      = (*Extension)(nil)
	_ plugin.OnForecastComputed   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// OnTankCreated implements plugin.OnTankCreated.
func (e *Extension) OnTankCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionTankCreated, SeverityInfo, OutcomeSuccess,
		ResourceTank, "", CategoryInventory,
		"event", "tank_created",
	)
}

// OnTankDeactivated implements plugin.OnTankDeactivated.
func (e *Extension) OnTankDeactivated(ctx context.Context, tankID string) error {
	return e.record(ctx, ActionTankDeactivated, SeverityInfo, OutcomeSuccess,
		ResourceTank, tankID, CategoryInventory,
		"tank_id", tankID,
	)
}

// OnTransactionApplied implements plugin.OnTransactionApplied.
func (e *Extension) OnTransactionApplied(ctx context.Context, v interface{}) error {
	txn, ok := v.(*transaction.Transaction)
	if !ok {
		return e.record(ctx, ActionTransactionApplied, SeverityInfo, OutcomeSuccess,
			ResourceTransaction, "", CategoryLedger,
			"event", "transaction_applied",
		)
	}
	return e.record(ctx, ActionTransactionApplied, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, txn.ID.String(), CategoryLedger,
		"tank_id", txn.TankID.String(),
		"type", string(txn.Type),
		"direction", string(txn.Direction),
		"quantity", txn.Quantity.String(),
		"level_after", txn.LevelAfter.String(),
	)
}

// OnLowFuel implements plugin.OnLowFuel.
func (e *Extension) OnLowFuel(ctx context.Context, tankID string, current, threshold string) error {
	return e.record(ctx, ActionLowFuel, SeverityWarning, OutcomeSuccess,
		ResourceTank, tankID, CategoryAlerting,
		"tank_id", tankID,
		"current", current,
		"threshold", threshold,
	)
}

// OnConflictRetry implements plugin.OnConflictRetry.
func (e *Extension) OnConflictRetry(ctx context.Context, tankID string, attempt int) error {
	return e.record(ctx, ActionConflictRetry, SeverityWarning, OutcomeFailure,
		ResourceTransaction, tankID, CategoryLedger,
		"tank_id", tankID,
		"attempt", attempt,
	)
}

// OnForecastComputed implements plugin.OnForecastComputed.
func (e *Extension) OnForecastComputed(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionForecastComputed, SeverityInfo, OutcomeSuccess,
		ResourceForecast, "", CategoryAnalytics,
		"event", "forecast_computed",
	)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audithook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
