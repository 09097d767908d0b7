package market

import (
	"log"
	"time"

	"chart-terminal/internal/model"
)

// MarketTimezone represents US Eastern Time (where the market operates).
var MarketTimezone *time.Location

func init() {
	var err error
	MarketTimezone, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Should not happen when time/tzdata is imported in main
		log.Printf("WARNING: failed to load America/New_York timezone: %v - falling back to UTC (session tags will be incorrect)", err)
		MarketTimezone = time.UTC
	}
}

// Session boundaries in minutes from midnight Eastern Time.
// Boundary rule is inclusive-exclusive: the instant of a transition
// belongs to the later session, so 09:30:00 exactly is regular hours.
const (
	preMarketOpenMin   = 4 * 60    // 04:00
	regularOpenMin     = 9*60 + 30 // 09:30
	regularCloseMin    = 16 * 60   // 16:00
	afterHoursCloseMin = 20 * 60   // 20:00
)

// SessionAt returns the trading session for a given instant.
func SessionAt(t time.Time) model.Session {
	et := t.In(MarketTimezone)

	weekday := et.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return model.SessionClosed
	}

	minutes := et.Hour()*60 + et.Minute()
	switch {
	case minutes >= preMarketOpenMin && minutes < regularOpenMin:
		return model.SessionPreMarket
	case minutes >= regularOpenMin && minutes < regularCloseMin:
		return model.SessionRegular
	case minutes >= regularCloseMin && minutes < afterHoursCloseMin:
		return model.SessionAfterHours
	default:
		return model.SessionClosed
	}
}

// SessionAtMilli is SessionAt for a unix-millisecond timestamp.
func SessionAtMilli(ms int64) model.Session {
	return SessionAt(time.UnixMilli(ms))
}

// TagSessions fills in the Session field for every point that does not
// already carry one. Points are modified in place on the given slice.
func TagSessions(points []model.PricePoint) {
	for i := range points {
		if points[i].Session == "" {
			points[i].Session = SessionAtMilli(points[i].Timestamp)
		}
	}
}

// OpenCloseTimes returns regular-session open and close for a given date
// in Eastern Time.
func OpenCloseTimes(date time.Time) (time.Time, time.Time) {
	date = date.In(MarketTimezone)
	open := time.Date(date.Year(), date.Month(), date.Day(), 9, 30, 0, 0, MarketTimezone)
	close := time.Date(date.Year(), date.Month(), date.Day(), 16, 0, 0, 0, MarketTimezone)
	return open, close
}

// IsWeekend checks if a date falls on a Saturday or Sunday in market time.
func IsWeekend(date time.Time) bool {
	weekday := date.In(MarketTimezone).Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// LastTradingDay returns the previous Friday when the date is a weekend,
// otherwise the date unchanged.
func LastTradingDay(date time.Time) time.Time {
	date = date.In(MarketTimezone)
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, -1)
	case time.Sunday:
		return date.AddDate(0, 0, -2)
	}
	return date
}
