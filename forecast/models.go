// Package forecast defines the consumption forecast computed from a tank's
// dispense history: trailing windowed totals, projected days of fuel
// remaining, and the low-fuel condition.
package forecast

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/types"
)

// Days is the projected number of days until a tank runs dry. When no fuel
// was dispensed in the trailing day the projection is unbounded; that state
// is an explicit sentinel, never an infinite or NaN number.
type Days struct {
	value     decimal.Decimal
	unbounded bool
}

// DaysOf returns a bounded projection.
func DaysOf(d decimal.Decimal) Days { return Days{value: d} }

// UnboundedDays returns the sentinel for "no consumption, no projection".
func UnboundedDays() Days { return Days{unbounded: true} }

// IsUnbounded reports whether the projection is the unbounded sentinel.
func (d Days) IsUnbounded() bool { return d.unbounded }

// Value returns the bounded projection. It is only meaningful when
// IsUnbounded is false.
func (d Days) Value() decimal.Decimal { return d.value }

// String renders the projection; the unbounded sentinel displays as "∞",
// matching what dashboards show for an idle tank.
func (d Days) String() string {
	if d.unbounded {
		return "∞"
	}
	return d.value.StringFixed(1)
}

// MarshalJSON implements json.Marshaler.
func (d Days) MarshalJSON() ([]byte, error) {
	if d.unbounded {
		return json.Marshal(struct {
			Unbounded bool `json:"unbounded"`
		}{Unbounded: true})
	}
	return json.Marshal(struct {
		Days decimal.Decimal `json:"days"`
	}{Days: d.value})
}

// UnmarshalJSON implements json.Unmarshaler, restoring either form
// written by MarshalJSON.
func (d *Days) UnmarshalJSON(data []byte) error {
	var raw struct {
		Unbounded bool             `json:"unbounded"`
		Days      *decimal.Decimal `json:"days"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Unbounded {
		*d = UnboundedDays()
		return nil
	}
	if raw.Days != nil {
		*d = DaysOf(*raw.Days)
		return nil
	}
	*d = Days{}
	return nil
}

// Forecast is the consumption projection for a tank at a point in time.
//
// DailyRate is the plain sum of dispensed quantity in the trailing 24h
// window, not a smoothed average. Windows are anchored on the
// caller-supplied event time (OccurredAt) of each dispense.
type Forecast struct {
	TankID        id.TankID      `json:"tank_id"`
	AsOf          time.Time      `json:"as_of"`
	CurrentVolume types.Quantity `json:"current_volume"`
	DailyRate     types.Quantity `json:"daily_rate"`
	WeeklyTotal   types.Quantity `json:"weekly_total"`
	MonthlyTotal  types.Quantity `json:"monthly_total"`
	DaysRemaining Days           `json:"days_remaining"`
	LowFuel       bool           `json:"low_fuel"`
}
