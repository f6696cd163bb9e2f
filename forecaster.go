package tankledger

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/tankledger/forecast"
	"github.com/xraph/tankledger/id"
)

// Trailing windows for consumption aggregation.
const (
	dailyWindow   = 24 * time.Hour
	weeklyWindow  = 7 * 24 * time.Hour
	monthlyWindow = 30 * 24 * time.Hour
)

// Forecast derives consumption rates from the tank's dispense history and
// projects days of fuel remaining.
//
// The daily rate is the plain sum of fuel dispensed in the trailing 24
// hours before asOf, windowed on each transaction's occurred_at. When
// nothing was dispensed in that window the projection is the unbounded
// sentinel, never a division result. A zero asOf means "now"; only the
// now-anchored forecast is served from and written to the cache, since a
// historical as-of is already fully determined by the log.
func (l *Ledger) Forecast(ctx context.Context, tankID id.TankID, asOf time.Time) (*forecast.Forecast, error) {
	tenantID, ok := TenantFromContext(ctx)
	if !ok {
		return nil, ErrMissingTenant
	}
	if err := l.scope.Authorize(ctx, tenantID, tankID, id.Nil); err != nil {
		return nil, err
	}

	cacheable := asOf.IsZero()
	if cacheable {
		asOf = time.Now().UTC()
		if cached, err := l.store.GetCachedForecast(ctx, tankID); err == nil {
			return cached, nil
		} else if !errors.Is(err, ErrCacheMiss) {
			l.logger.Debug("forecast cache read failed", "tank_id", tankID, "error", err)
		}
	}

	t, err := l.store.GetTank(ctx, tankID)
	if err != nil {
		return nil, err
	}

	daily, err := l.store.SumDispensed(ctx, tankID, asOf.Add(-dailyWindow), asOf)
	if err != nil {
		return nil, err
	}
	weekly, err := l.store.SumDispensed(ctx, tankID, asOf.Add(-weeklyWindow), asOf)
	if err != nil {
		return nil, err
	}
	monthly, err := l.store.SumDispensed(ctx, tankID, asOf.Add(-monthlyWindow), asOf)
	if err != nil {
		return nil, err
	}

	days := forecast.UnboundedDays()
	if daily.IsPositive() {
		days = forecast.DaysOf(t.CurrentVolume.Div(daily.Amount))
	}

	f := &forecast.Forecast{
		TankID:        tankID,
		AsOf:          asOf,
		CurrentVolume: t.CurrentVolume,
		DailyRate:     daily,
		WeeklyTotal:   weekly,
		MonthlyTotal:  monthly,
		DaysRemaining: days,
		LowFuel:       t.IsLow(),
	}

	if cacheable {
		_ = l.store.SetCachedForecast(ctx, tankID, f, l.forecastTTL) //nolint:errcheck // best-effort cache set
	}
	l.plugins.EmitForecastComputed(ctx, f)

	return f, nil
}
