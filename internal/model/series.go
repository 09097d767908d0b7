package model

import "time"

// Session identifies the trading sub-period a sample falls in.
type Session string

const (
	SessionPreMarket  Session = "pre-market"
	SessionRegular    Session = "regular"
	SessionAfterHours Session = "after-hours"
	SessionClosed     Session = "closed"
)

// Source identifies which tier of the data pipeline produced a series.
type Source string

const (
	SourceCache Source = "cache"
	SourceStore Source = "store"
	SourceQuote Source = "quote"
	SourceMock  Source = "mock"
)

// PricePoint is one OHLCV sample. Timestamp is unix milliseconds.
// Invariant: Low <= Open, Close <= High.
type PricePoint struct {
	Timestamp int64   `json:"timestamp" db:"ts"`
	Open      float64 `json:"open" db:"open"`
	High      float64 `json:"high" db:"high"`
	Low       float64 `json:"low" db:"low"`
	Close     float64 `json:"close" db:"close"`
	Volume    float64 `json:"volume" db:"volume"`
	Session   Session `json:"session" db:"session"`
}

// Time returns the sample timestamp as a time.Time.
func (p PricePoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// ChartSeries is an ordered run of samples for one symbol at one resolution.
// It is replaced wholesale on re-fetch, never mutated in place; timestamps
// are non-decreasing.
type ChartSeries struct {
	Symbol     string       `json:"symbol"`
	Resolution Resolution   `json:"resolution"`
	Source     Source       `json:"source"`
	Points     []PricePoint `json:"points"`
}

// Len returns the number of samples in the series.
func (s *ChartSeries) Len() int { return len(s.Points) }

// First returns the earliest sample. Callers must check Len first.
func (s *ChartSeries) First() PricePoint { return s.Points[0] }

// Last returns the most recent sample. Callers must check Len first.
func (s *ChartSeries) Last() PricePoint { return s.Points[len(s.Points)-1] }

// IsMock reports whether the series came from the synthetic fallback,
// so callers can visibly flag it.
func (s *ChartSeries) IsMock() bool { return s.Source == SourceMock }

// Resolution is the granularity tier of stored samples.
type Resolution string

const (
	ResolutionSecond     Resolution = "1s"
	ResolutionMinute     Resolution = "1m"
	ResolutionFiveMinute Resolution = "5m"
	ResolutionHour       Resolution = "1h"
	ResolutionDay        Resolution = "1d"
)

// Interval returns the expected spacing between consecutive samples at
// this resolution. Used by the segmenter to detect real data gaps.
func (r Resolution) Interval() time.Duration {
	switch r {
	case ResolutionSecond:
		return time.Second
	case ResolutionMinute:
		return time.Minute
	case ResolutionFiveMinute:
		return 5 * time.Minute
	case ResolutionHour:
		return time.Hour
	case ResolutionDay:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}
