package hover

import (
	"time"

	"chart-terminal/internal/model"
	"chart-terminal/internal/timerange"
)

// ProjectedEvent is a future catalyst positioned on the forward axis.
// Frac is the horizontal position within the future window, in [0, 1].
type ProjectedEvent struct {
	Event model.CatalystEvent `json:"event"`
	Frac  float64             `json:"frac"`
}

// Projector maps future catalyst events onto the forward time axis. The
// window length derives from the active display range by the same
// formula the upcoming-events summary uses, so the dot count and the
// summary label always agree.
type Projector struct {
	window time.Duration
	now    time.Time
}

// NewProjector builds a projector for the active range at a fixed now.
func NewProjector(r timerange.Range, now time.Time) *Projector {
	return &Projector{window: timerange.FutureWindow(r), now: now}
}

// Window returns the future window length.
func (p *Projector) Window() time.Duration { return p.window }

// Position returns the fractional position of an event on the forward
// axis, and whether it lands inside the rendered window. Events before
// now or past the window edge are not rendered.
func (p *Projector) Position(ev model.CatalystEvent) (float64, bool) {
	delta := ev.Timestamp - p.now.UnixMilli()
	if delta < 0 {
		return 0, false
	}
	frac := float64(delta) / float64(p.window.Milliseconds())
	if frac > 1 {
		return 0, false
	}
	return frac, true
}

// Project positions every renderable future event, preserving order.
func (p *Projector) Project(events []model.CatalystEvent) []ProjectedEvent {
	out := make([]ProjectedEvent, 0, len(events))
	for _, ev := range events {
		if frac, ok := p.Position(ev); ok {
			out = append(out, ProjectedEvent{Event: ev, Frac: frac})
		}
	}
	return out
}

// UpcomingCount is the number the summary label shows. Identical to
// len(Project(events)) by construction.
func (p *Projector) UpcomingCount(events []model.CatalystEvent) int {
	return len(p.Project(events))
}
