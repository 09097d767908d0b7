package model

import "time"

// EventType classifies a catalyst event.
type EventType string

const (
	EventEarnings EventType = "earnings"
	EventFiling   EventType = "filing"
	EventGuidance EventType = "guidance"
	EventDividend EventType = "dividend"
	EventMacro    EventType = "macro"
)

// EventImpact is the expected market impact of a catalyst.
type EventImpact string

const (
	ImpactLow    EventImpact = "low"
	ImpactMedium EventImpact = "medium"
	ImpactHigh   EventImpact = "high"
)

// CatalystEvent is a scheduled or occurred market-moving event for a ticker.
// Immutable once received.
type CatalystEvent struct {
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Type      EventType   `json:"type"`
	Ticker    string      `json:"ticker"`
	Impact    EventImpact `json:"impact"`
	Title     string      `json:"title,omitempty"`
}

// IsPast reports whether the event occurred at or before now.
func (e CatalystEvent) IsPast(now time.Time) bool {
	return e.Timestamp <= now.UnixMilli()
}

// SplitEvents partitions events into past (timestamp <= now) and future
// (timestamp > now) at read time. The input slice is not modified.
func SplitEvents(events []CatalystEvent, now time.Time) (past, future []CatalystEvent) {
	for _, ev := range events {
		if ev.IsPast(now) {
			past = append(past, ev)
		} else {
			future = append(future, ev)
		}
	}
	return past, future
}
