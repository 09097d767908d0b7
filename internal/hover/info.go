package hover

import (
	"fmt"
	"time"

	"chart-terminal/internal/chart"
	"chart-terminal/internal/model"
)

// Crosshair colors. An attached event overrides the default
// positive/negative coloring of the snapped point.
const (
	colorPositive = "#26a69a"
	colorNegative = "#ef5350"
	colorNeutral  = "#9e9e9e"
)

var eventColors = map[model.EventType]string{
	model.EventEarnings: "#ffb74d",
	model.EventFiling:   "#64b5f6",
	model.EventGuidance: "#ba68c8",
	model.EventDividend: "#81c784",
	model.EventMacro:    "#e57373",
}

// Info is the crosshair tuple the renderer consumes.
type Info struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
	Color     string  `json:"color"`
	Label     string  `json:"label"`
}

// Describe renders a hover state into the crosshair tuple. For past
// hovers the crosshair pins to the snapped sample; for future hovers it
// sits at the interpolated position with an implied timestamp.
func Describe(state model.HoverState, points []model.PricePoint, m *chart.Mapper, p *Projector, now time.Time) (Info, bool) {
	switch state.Region {
	case model.HoverPast:
		if state.DataIndex < 0 || state.DataIndex >= len(points) {
			return Info{}, false
		}
		pt := points[state.DataIndex]
		info := Info{
			X:         m.TimeToX(pt.Timestamp),
			Y:         m.PriceToY(pt.Close),
			Price:     pt.Close,
			Timestamp: pt.Timestamp,
			Color:     pointColor(pt),
			Label:     fmt.Sprintf("%.2f", pt.Close),
		}
		if state.SnappedEvent != nil {
			info.Color = eventColor(*state.SnappedEvent)
			info.Label = string(state.SnappedEvent.Type)
		}
		return info, true

	case model.HoverFuture:
		futureWidth := m.Width() - m.PastWidth()
		implied := now.Add(time.Duration(state.FutureFrac * float64(p.Window())))
		info := Info{
			X:         m.PastWidth() + state.FutureFrac*futureWidth,
			Y:         state.PointerY,
			Timestamp: implied.UnixMilli(),
			Color:     colorNeutral,
		}
		if state.SnappedEvent != nil {
			info.Color = eventColor(*state.SnappedEvent)
			info.Label = string(state.SnappedEvent.Type)
			info.Timestamp = state.SnappedEvent.Timestamp
		}
		return info, true
	}
	return Info{}, false
}

// pointColor is the default crosshair color: positive when the sample
// closed at or above its open.
func pointColor(p model.PricePoint) string {
	if p.Close >= p.Open {
		return colorPositive
	}
	return colorNegative
}

func eventColor(ev model.CatalystEvent) string {
	if c, ok := eventColors[ev.Type]; ok {
		return c
	}
	return colorNeutral
}
