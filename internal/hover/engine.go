package hover

import (
	"math"
	"sort"
	"sync"
	"time"

	"chart-terminal/internal/chart"
	"chart-terminal/internal/model"
)

// ChartKind selects the snap rule for past events: a pixel radius on
// line charts, same-or-adjacent bar index on candlesticks.
type ChartKind string

const (
	KindLine   ChartKind = "line"
	KindCandle ChartKind = "candle"
)

// frameInterval throttles state application to roughly one update per
// animation frame.
const frameInterval = 16 * time.Millisecond

// markerPos is a past event with its rendered pixel position and the
// series index it sits nearest to.
type markerPos struct {
	event model.CatalystEvent
	x, y  float64
	index int
}

// Engine is the single pointer-dispatch hover engine. Markers are
// visual-only; all proximity resolution happens here against one global
// pointer position, which avoids races between per-marker listeners and
// the chart's own handler. Pointer moves reduce to a new immutable
// HoverState which replaces the previous one at most once per frame.
type Engine struct {
	mu sync.Mutex

	points       []model.PricePoint
	xs           []float64 // rendered x per point, ascending
	mapper       *chart.Mapper
	pastMarkers  []markerPos
	futureEvents []ProjectedEvent
	kind         ChartKind

	snapRadiusPx       float64
	futureSnapFraction float64

	state       model.HoverState
	lastApplied time.Time
	now         func() time.Time

	// onCrosshairActive lets the host suspend outer scrolling while a
	// drag-hover is active.
	onCrosshairActive func(bool)
}

// NewEngine creates an idle hover engine.
func NewEngine(snapRadiusPx int, futureSnapFraction float64, onCrosshairActive func(bool)) *Engine {
	return &Engine{
		snapRadiusPx:       float64(snapRadiusPx),
		futureSnapFraction: futureSnapFraction,
		state:              model.Idle(),
		now:                time.Now,
		onCrosshairActive:  onCrosshairActive,
		kind:               KindLine,
	}
}

// SetData replaces the engine's view of the chart after a render pass:
// the visible points, their coordinate mapper, past events, and the
// projected future events. Resets to idle, since a new fetch invalidates
// any in-progress hover.
func (e *Engine) SetData(points []model.PricePoint, m *chart.Mapper, pastEvents []model.CatalystEvent, future []ProjectedEvent, kind ChartKind) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.points = points
	e.mapper = m
	e.futureEvents = future
	e.kind = kind

	e.xs = make([]float64, len(points))
	for i, p := range points {
		e.xs[i] = m.TimeToX(p.Timestamp)
	}

	e.pastMarkers = e.pastMarkers[:0]
	for _, ev := range pastEvents {
		idx := nearestIndexByTime(points, ev.Timestamp)
		if idx < 0 {
			continue
		}
		e.pastMarkers = append(e.pastMarkers, markerPos{
			event: ev,
			x:     m.TimeToX(ev.Timestamp),
			y:     m.PriceToY(points[idx].Close),
			index: idx,
		})
	}

	e.applyLocked(model.Idle())
}

// Reset returns the engine to idle: pointer leave, time-range change, or
// a newly started fetch.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyLocked(model.Idle())
}

// State returns the current hover state.
func (e *Engine) State() model.HoverState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Move handles one pointer-move. The reduction is pure; application is
// throttled to one state replacement per frame, with the newest pointer
// position winning.
func (e *Engine) Move(x, y float64) model.HoverState {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.reduce(x, y)

	if e.now().Sub(e.lastApplied) >= frameInterval {
		e.applyLocked(next)
		e.lastApplied = e.now()
	}
	return next
}

// applyLocked replaces the state and fires the host callback on
// transitions in or out of an active crosshair. Caller holds the lock.
func (e *Engine) applyLocked(next model.HoverState) {
	wasActive := e.state.Region != model.HoverNone
	isActive := next.Region != model.HoverNone
	e.state = next
	if wasActive != isActive && e.onCrosshairActive != nil {
		e.onCrosshairActive(isActive)
	}
}

// reduce resolves a pointer position into a hover state. Deterministic:
// identical pointer and event list always choose the same result.
func (e *Engine) reduce(x, y float64) model.HoverState {
	if e.mapper == nil || len(e.points) == 0 {
		return model.Idle()
	}

	if x <= e.mapper.PastWidth() {
		return e.reducePast(x, y)
	}
	return e.reduceFuture(x, y)
}

// reducePast snaps to the nearest data point by x-distance, then attaches
// a nearby past event when one is in snap range.
func (e *Engine) reducePast(x, y float64) model.HoverState {
	idx := nearestIndexByX(e.xs, x)

	state := model.HoverState{
		Region:    model.HoverPast,
		DataIndex: idx,
		PointerX:  x,
		PointerY:  y,
	}

	snapX := e.xs[idx]
	snapY := e.mapper.PriceToY(e.points[idx].Close)

	best := -1
	bestDist := math.Inf(1)
	for i, mk := range e.pastMarkers {
		var hit bool
		var dist float64
		if e.kind == KindCandle {
			// Candlesticks snap on bar index adjacency, not pixels
			d := mk.index - idx
			hit = d >= -1 && d <= 1
			dist = math.Abs(float64(d))
		} else {
			dist = math.Hypot(mk.x-snapX, mk.y-snapY)
			hit = dist <= e.snapRadiusPx
		}
		if hit && dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best >= 0 {
		ev := e.pastMarkers[best].event
		state.SnappedEvent = &ev
	}
	return state
}

// reduceFuture interpolates a fractional position in the future window
// and snaps to a projected event within the snap fraction.
func (e *Engine) reduceFuture(x, y float64) model.HoverState {
	futureWidth := e.mapper.Width() - e.mapper.PastWidth()
	if futureWidth <= 0 {
		return model.Idle()
	}
	frac := (x - e.mapper.PastWidth()) / futureWidth
	if frac > 1 {
		frac = 1
	}

	state := model.HoverState{
		Region:     model.HoverFuture,
		DataIndex:  -1,
		FutureFrac: frac,
		PointerX:   x,
		PointerY:   y,
	}

	best := -1
	bestDist := math.Inf(1)
	for i, pe := range e.futureEvents {
		dist := math.Abs(pe.Frac - frac)
		if dist <= e.futureSnapFraction && dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best >= 0 {
		ev := e.futureEvents[best].Event
		state.SnappedEvent = &ev
		state.FutureFrac = e.futureEvents[best].Frac
	}
	return state
}

// nearestIndexByX finds the index whose rendered x is closest to the
// pointer. Binary search on the sorted positions keeps pointer handling
// O(log n).
func nearestIndexByX(xs []float64, x float64) int {
	i := sort.SearchFloat64s(xs, x)
	if i == 0 {
		return 0
	}
	if i >= len(xs) {
		return len(xs) - 1
	}
	if x-xs[i-1] <= xs[i]-x {
		return i - 1
	}
	return i
}

// nearestIndexByTime finds the sample closest in time to ts, or -1 for
// an empty series.
func nearestIndexByTime(points []model.PricePoint, ts int64) int {
	if len(points) == 0 {
		return -1
	}
	i := sort.Search(len(points), func(i int) bool { return points[i].Timestamp >= ts })
	if i == 0 {
		return 0
	}
	if i >= len(points) {
		return len(points) - 1
	}
	if ts-points[i-1].Timestamp <= points[i].Timestamp-ts {
		return i - 1
	}
	return i
}
