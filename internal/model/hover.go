package model

// HoverRegion names which side of the past/future split the pointer is on.
type HoverRegion string

const (
	HoverNone   HoverRegion = "none"
	HoverPast   HoverRegion = "past"
	HoverFuture HoverRegion = "future"
)

// HoverState is the single mutable piece of interaction state. It is
// produced immutably by the hover reducer and replaced wholesale; it is
// reset on pointer-leave, time-range change, or a new fetch.
type HoverState struct {
	Region       HoverRegion    `json:"region"`
	DataIndex    int            `json:"dataIndex"`    // index into the visible series, -1 when not snapped
	FutureFrac   float64        `json:"futureFrac"`   // fractional position in the future window
	SnappedEvent *CatalystEvent `json:"snappedEvent"` // nil when no event within snap range
	PointerX     float64        `json:"pointerX"`
	PointerY     float64        `json:"pointerY"`
}

// Idle is the reset hover state.
func Idle() HoverState {
	return HoverState{Region: HoverNone, DataIndex: -1}
}

// ViewportSplit describes what fraction of the chart width is historical
// versus projected future. Invariant: PastPercent + FuturePercent == 100.
type ViewportSplit struct {
	PastPercent   float64 `json:"pastPercent"`
	FuturePercent float64 `json:"futurePercent"`
}

// DefaultSplit gives the future region a fifth of the chart.
func DefaultSplit() ViewportSplit {
	return ViewportSplit{PastPercent: 80, FuturePercent: 20}
}
