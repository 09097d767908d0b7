package hover

import (
	"math"
	"testing"
	"time"

	"chart-terminal/internal/model"
	"chart-terminal/internal/timerange"
)

var fixedNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func eventAt(offset time.Duration) model.CatalystEvent {
	return model.CatalystEvent{
		ID:        "ev",
		Ticker:    "SPY",
		Type:      model.EventEarnings,
		Impact:    model.ImpactHigh,
		Timestamp: fixedNow.Add(offset).UnixMilli(),
	}
}

func TestProjectorWindowFollowsRange(t *testing.T) {
	if w := NewProjector(timerange.RangeYear, fixedNow).Window(); w != 365*24*time.Hour {
		t.Errorf("1Y window = %v, want 365 days", w)
	}
	if w := NewProjector(timerange.RangeMonth, fixedNow).Window(); w != 90*24*time.Hour {
		t.Errorf("1M window = %v, want 90 days", w)
	}
}

func TestProjectorPositionFraction(t *testing.T) {
	p := NewProjector(timerange.RangeYear, fixedNow)

	frac, ok := p.Position(eventAt(10 * 24 * time.Hour))
	if !ok {
		t.Fatal("event 10 days out should be renderable in a 365-day window")
	}
	want := 10.0 / 365.0
	if math.Abs(frac-want) > 1e-9 {
		t.Errorf("frac = %v, want %v", frac, want)
	}
}

func TestProjectorExcludesOutOfWindow(t *testing.T) {
	p := NewProjector(timerange.RangeYear, fixedNow)

	if _, ok := p.Position(eventAt(400 * 24 * time.Hour)); ok {
		t.Error("event 400 days out should fall outside a 365-day window")
	}
	if _, ok := p.Position(eventAt(-24 * time.Hour)); ok {
		t.Error("past event should never project forward")
	}
}

func TestProjectorCountMatchesProjection(t *testing.T) {
	p := NewProjector(timerange.RangeMonth, fixedNow)
	events := []model.CatalystEvent{
		eventAt(5 * 24 * time.Hour),
		eventAt(50 * 24 * time.Hour),
		eventAt(120 * 24 * time.Hour), // outside the 90-day window
	}

	projected := p.Project(events)
	if len(projected) != 2 {
		t.Fatalf("projected %d events, want 2", len(projected))
	}
	if got := p.UpcomingCount(events); got != len(projected) {
		t.Errorf("UpcomingCount = %d, projection has %d", got, len(projected))
	}
}
