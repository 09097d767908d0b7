package timerange

import (
	"fmt"
	"time"

	"chart-terminal/internal/config"
	"chart-terminal/internal/model"
)

// Range is a symbolic display window selected by the user.
type Range string

const (
	RangeToday      Range = "1D"
	RangeWeek       Range = "1W"
	RangeMonth      Range = "1M"
	RangeThreeMonth Range = "3M"
	RangeYear       Range = "1Y"
	RangeFiveYear   Range = "5Y"
)

// Policy is the concrete fetch plan for a symbolic range: how far back to
// query, at which resolution tier, and under what row budget.
type Policy struct {
	Range      Range
	Span       time.Duration
	Resolution model.Resolution
	RowBudget  int
}

// Window returns the [from, to] fetch window ending at now.
func (p Policy) Window(now time.Time) (time.Time, time.Time) {
	return now.Add(-p.Span), now
}

// Resolve maps a symbolic range to its fetch plan. Short ranges use fine
// intraday resolutions with large budgets; multi-year ranges use daily
// bars with a smaller budget.
func Resolve(r Range) (Policy, error) {
	switch r {
	case RangeToday:
		return Policy{r, 24 * time.Hour, model.ResolutionMinute, config.DefaultRowBudgetIntraday}, nil
	case RangeWeek:
		return Policy{r, 7 * 24 * time.Hour, model.ResolutionFiveMinute, config.DefaultRowBudgetIntraday}, nil
	case RangeMonth:
		return Policy{r, 30 * 24 * time.Hour, model.ResolutionHour, config.DefaultRowBudgetIntraday}, nil
	case RangeThreeMonth:
		return Policy{r, 90 * 24 * time.Hour, model.ResolutionHour, config.DefaultRowBudgetIntraday}, nil
	case RangeYear:
		return Policy{r, 365 * 24 * time.Hour, model.ResolutionDay, config.DefaultRowBudgetDaily}, nil
	case RangeFiveYear:
		return Policy{r, 5 * 365 * 24 * time.Hour, model.ResolutionDay, config.DefaultRowBudgetDaily}, nil
	}
	return Policy{}, fmt.Errorf("unknown time range %q", r)
}

// StrideForSpan returns the sampling stride for a requested span.
// Larger spans skip more raw rows; a stride of 1 keeps every sample.
func StrideForSpan(span time.Duration) int {
	switch {
	case span <= time.Hour:
		return 1
	case span <= 4*time.Hour:
		return 5
	case span <= 12*time.Hour:
		return 15
	case span <= 24*time.Hour:
		return 30
	default:
		return 60
	}
}

// FutureWindow returns the projected-future window length for a range.
// This is the single formula shared by the future timeline projector and
// the upcoming-events summary, so counts and rendered markers agree.
func FutureWindow(r Range) time.Duration {
	switch r {
	case RangeYear:
		return 365 * 24 * time.Hour
	case RangeFiveYear:
		return 1825 * 24 * time.Hour
	default:
		// Everything at or under three months projects 90 days out.
		return 90 * 24 * time.Hour
	}
}
