package tankledger

import (
	"errors"
	"fmt"

	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("tankledger: not found")
	ErrInvalidInput = errors.New("tankledger: invalid input")

	// Tenancy errors
	ErrTenantMismatch = errors.New("tankledger: entity belongs to another tenant")
	ErrMissingTenant  = errors.New("tankledger: no tenant in context")

	// Tank errors
	ErrTankNotFound = errors.New("tankledger: tank not found")
	ErrTankInactive = errors.New("tankledger: tank is deactivated")
	ErrTankExists   = errors.New("tankledger: tank already exists")

	// Transaction errors
	ErrTransactionNotFound = errors.New("tankledger: transaction not found")
	ErrInsufficientVolume  = errors.New("tankledger: insufficient volume")
	ErrCapacityExceeded    = errors.New("tankledger: capacity exceeded")

	// Counterparty errors
	ErrCounterpartyNotFound = errors.New("tankledger: counterparty not found")
	ErrCounterpartyKind     = errors.New("tankledger: counterparty kind does not match transaction type")

	// Concurrency errors
	ErrVersionConflict     = errors.New("tankledger: tank version conflict")
	ErrConcurrencyConflict = errors.New("tankledger: concurrent update conflict, retry budget exhausted")

	// Chain errors
	ErrChainMismatch = errors.New("tankledger: transaction chain does not reproduce current volume")

	// Store errors
	ErrStoreClosed = errors.New("tankledger: store is closed")
	ErrCacheMiss   = errors.New("tankledger: cache miss")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tankledger: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap ties validation failures to the ErrInvalidInput sentinel.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// InsufficientVolumeError is returned when a dispense would take the tank
// balance negative. Requested and Available let the caller surface an
// actionable rejection instead of a bare failure.
type InsufficientVolumeError struct {
	TankID    id.TankID
	Requested types.Quantity
	Available types.Quantity
}

func (e *InsufficientVolumeError) Error() string {
	return fmt.Sprintf("tankledger: insufficient volume in tank %s: requested %s, available %s",
		e.TankID, e.Requested, e.Available)
}

func (e *InsufficientVolumeError) Unwrap() error { return ErrInsufficientVolume }

// CapacityExceededError is returned when a purchase or positive adjustment
// would push the tank balance over its physical capacity.
type CapacityExceededError struct {
	TankID    id.TankID
	Requested types.Quantity
	Headroom  types.Quantity
	Capacity  types.Quantity
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("tankledger: capacity exceeded for tank %s: requested %s, headroom %s of %s",
		e.TankID, e.Requested, e.Headroom, e.Capacity)
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

// TenantMismatchError is returned when a referenced entity belongs to a
// different tenant than the caller's.
type TenantMismatchError struct {
	Want string // caller's tenant
	Got  string // owning tenant of the referenced entity
	Ref  string // what was referenced: "tank" or "counterparty"
}

func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("tankledger: %s belongs to tenant %q, caller is tenant %q", e.Ref, e.Got, e.Want)
}

func (e *TenantMismatchError) Unwrap() error { return ErrTenantMismatch }

// IsNotFound returns true if the error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTankNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrCounterpartyNotFound)
}

// IsTerminal returns true for failures the caller must change the request
// to resolve. Terminal errors are never retried.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrInsufficientVolume) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrTenantMismatch) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrTankInactive) ||
		IsNotFound(err)
}

// IsRetryable returns true if the operation may succeed on retry. Only the
// optimistic-concurrency conflict qualifies; the engine retries it
// internally up to its budget before surfacing ErrConcurrencyConflict.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
