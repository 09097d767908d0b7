package chart

import (
	"fmt"
	"strings"
	"testing"

	"chart-terminal/internal/model"
	"chart-terminal/internal/series"
)

func runOf(points ...model.PricePoint) []series.Run {
	return []series.Run{{Session: model.SessionRegular, Points: points}}
}

func pt(ts int64, close float64) model.PricePoint {
	return model.PricePoint{Timestamp: ts, Open: close, High: close, Low: close, Close: close}
}

func TestSmoothSinglePointIsMoveOnly(t *testing.T) {
	m := NewMapper([]model.PricePoint{pt(0, 100)}, 1000, 400, 5, model.DefaultSplit())
	segs := SmoothRuns(runOf(pt(0, 100)), m, 0.4)

	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	cmds := segs[0].Commands
	if !strings.HasPrefix(cmds, "M ") {
		t.Errorf("commands %q should start with a move", cmds)
	}
	if strings.Contains(cmds, "C") || strings.Contains(cmds, "L") {
		t.Errorf("single point produced draw commands: %q", cmds)
	}
}

func TestSmoothTwoPointsIsStraightLine(t *testing.T) {
	points := []model.PricePoint{pt(0, 100), pt(1000, 105)}
	m := NewMapper(points, 1000, 400, 5, model.DefaultSplit())
	segs := SmoothRuns(runOf(points...), m, 0.4)

	cmds := segs[0].Commands
	if !strings.Contains(cmds, " L ") {
		t.Errorf("two points should render a line, got %q", cmds)
	}
	if strings.Contains(cmds, "C") {
		t.Errorf("two points should not produce a curve, got %q", cmds)
	}
}

func TestSmoothCurvePassesThroughEverySample(t *testing.T) {
	points := []model.PricePoint{
		pt(0, 100), pt(1000, 108), pt(2000, 95), pt(3000, 103), pt(4000, 99),
	}
	m := NewMapper(points, 1000, 400, 5, model.DefaultSplit())
	segs := SmoothRuns(runOf(points...), m, 0.4)

	cmds := segs[0].Commands
	// Every sample must appear verbatim as a segment endpoint: smoothing
	// shapes the path between samples but never moves the samples.
	for _, p := range points {
		endpoint := fmt.Sprintf("%s %s", fmtCoord(m.TimeToX(p.Timestamp)), fmtCoord(m.PriceToY(p.Close)))
		if !strings.Contains(cmds, endpoint) {
			t.Errorf("sample endpoint %q missing from path %q", endpoint, cmds)
		}
	}
	if got, want := strings.Count(cmds, "C"), len(points)-1; got != want {
		t.Errorf("got %d curve segments, want %d", got, want)
	}
}

// cubicAt evaluates the Bezier segment p1 -> p2 with controls c1, c2 by
// de Casteljau at parameter t.
func cubicAt(p1, c1, c2, p2 vec, t float64) vec {
	lerp := func(a, b vec, t float64) vec {
		return vec{x: a.x + (b.x-a.x)*t, y: a.y + (b.y-a.y)*t}
	}
	a := lerp(p1, c1, t)
	b := lerp(c1, c2, t)
	c := lerp(c2, p2, t)
	ab := lerp(a, b, t)
	bc := lerp(b, c, t)
	return lerp(ab, bc, t)
}

func TestSmoothCurveStaysBetweenSamples(t *testing.T) {
	// Values 100 -> 105 -> 98: the curve between the first two samples
	// must stay inside their value range, not balloon past a peak the
	// data never reached. Evaluated in value space; the pixel mapping is
	// monotonic so betweenness is the same either way.
	p1 := vec{x: 0, y: 100}
	p2 := vec{x: 100, y: 105}
	p3 := vec{x: 200, y: 98}

	// First segment duplicates the leading endpoint, as smoothPath does.
	c1, c2 := bezierControls(p1, p1, p2, p3, 0.4)

	for _, frac := range []float64{0.25, 0.5, 0.75} {
		mid := cubicAt(p1, c1, c2, p2, frac)
		if mid.y <= 100 || mid.y >= 105 {
			t.Errorf("curve at t=%.2f is %v, want strictly between 100 and 105", frac, mid.y)
		}
	}
}

func TestSmoothRunsKeepSessionTags(t *testing.T) {
	a := []model.PricePoint{pt(0, 100), pt(1000, 101)}
	b := []model.PricePoint{pt(2000, 102), pt(3000, 103)}
	all := append(append([]model.PricePoint{}, a...), b...)
	m := NewMapper(all, 1000, 400, 5, model.DefaultSplit())

	runs := []series.Run{
		{Session: model.SessionPreMarket, Points: a},
		{Session: model.SessionRegular, Points: b},
	}
	segs := SmoothRuns(runs, m, 0.4)
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Session != model.SessionPreMarket || segs[1].Session != model.SessionRegular {
		t.Errorf("session tags = %s, %s", segs[0].Session, segs[1].Session)
	}
}

func TestFmtCoordTrimsTrailingZeros(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{100, "100"},
		{100.50, "100.5"},
		{0.004, "0"},
		{-0.001, "0"},
	}
	for _, tt := range tests {
		if got := fmtCoord(tt.in); got != tt.want {
			t.Errorf("fmtCoord(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
