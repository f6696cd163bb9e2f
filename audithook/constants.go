package audithook

// Action constants for audit events.
const (
	// Tank actions
	ActionTankCreated     = "tank.created"
	ActionTankDeactivated = "tank.deactivated"

	// Ledger actions
	ActionTransactionApplied = "transaction.applied"
	ActionConflictRetry      = "transaction.conflict_retry"

	// Alerting actions
	ActionLowFuel = "tank.low_fuel"

	// Forecast actions
	ActionForecastComputed = "forecast.computed"
)

// Resource constants for audit events.
const (
	ResourceTank        = "tank"
	ResourceTransaction = "transaction"
	ResourceForecast    = "forecast"
)

// Category constants for audit events.
const (
	CategoryInventory = "inventory"
	CategoryLedger    = "ledger"
	CategoryAlerting  = "alerting"
	CategoryAnalytics = "analytics"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
