package series

import (
	"testing"
	"time"

	"chart-terminal/internal/model"
)

// makePoints builds n one-minute samples starting at base, all tagged
// with the given session.
func makePoints(n int, base int64, session model.Session) []model.PricePoint {
	points := make([]model.PricePoint, n)
	for i := range points {
		price := 100 + float64(i)*0.1
		points[i] = model.PricePoint{
			Timestamp: base + int64(i)*60_000,
			Open:      price,
			High:      price + 0.5,
			Low:       price - 0.5,
			Close:     price + 0.2,
			Volume:    1000,
			Session:   session,
		}
	}
	return points
}

func TestDownsampleRespectsBudget(t *testing.T) {
	points := makePoints(1000, 0, model.SessionRegular)

	sampled, stride := Downsample(points, 30*time.Minute, 100)
	if len(sampled) > 100 {
		t.Fatalf("sampled %d points, budget is 100", len(sampled))
	}
	if stride < 2 {
		t.Errorf("stride = %d, expected growth beyond 1 for 1000 points under budget 100", stride)
	}
}

func TestDownsamplePreservesOrderAndEndpoints(t *testing.T) {
	points := makePoints(500, 0, model.SessionRegular)

	sampled, _ := Downsample(points, 48*time.Hour, 100)
	if len(sampled) == 0 {
		t.Fatal("empty sample")
	}
	if sampled[0].Timestamp != points[0].Timestamp {
		t.Error("first point dropped")
	}
	if sampled[len(sampled)-1].Timestamp != points[len(points)-1].Timestamp {
		t.Error("last point dropped")
	}
	for i := 1; i < len(sampled); i++ {
		if sampled[i].Timestamp <= sampled[i-1].Timestamp {
			t.Fatalf("ordering broken at index %d", i)
		}
	}
}

func TestDownsampleKeepsSessionBoundaries(t *testing.T) {
	pre := makePoints(200, 0, model.SessionPreMarket)
	reg := makePoints(200, 200*60_000, model.SessionRegular)
	points := append(pre, reg...)

	sampled, _ := Downsample(points, 48*time.Hour, 50)

	wantTs := map[int64]string{
		pre[len(pre)-1].Timestamp: "last pre-market point",
		reg[0].Timestamp:          "first regular point",
	}
	for _, p := range sampled {
		delete(wantTs, p.Timestamp)
	}
	for ts, name := range wantTs {
		t.Errorf("session boundary %s (ts=%d) was dropped", name, ts)
	}
}

func TestDownsampleWithinBudgetIsNoOp(t *testing.T) {
	// Three points over a 12-hour span: the span's stride table alone
	// would thin this, but a series that already fits the budget must
	// come back with every interior point intact.
	points := []model.PricePoint{
		{Timestamp: 0, Open: 100, High: 101, Low: 99, Close: 100, Session: model.SessionRegular},
		{Timestamp: 60_000, Open: 105, High: 106, Low: 104, Close: 105, Session: model.SessionRegular},
		{Timestamp: 120_000, Open: 98, High: 99, Low: 97, Close: 98, Session: model.SessionRegular},
	}

	sampled, stride := Downsample(points, 12*time.Hour, 5000)
	if stride != 1 {
		t.Errorf("stride = %d, want 1 for a series within budget", stride)
	}
	if len(sampled) != 3 {
		t.Fatalf("got %d of 3 points, sampling must be a no-op under budget", len(sampled))
	}
	if sampled[1].Close != 105 {
		t.Errorf("middle point lost: %+v", sampled[1])
	}
}

func TestDownsampleSmallSeriesUntouched(t *testing.T) {
	points := makePoints(20, 0, model.SessionRegular)
	sampled, stride := Downsample(points, 30*time.Minute, 100)
	if stride != 1 {
		t.Errorf("stride = %d, want 1 for a short span", stride)
	}
	if len(sampled) != len(points) {
		t.Errorf("sampled %d of %d points, expected all", len(sampled), len(points))
	}
}

func TestDownsampleEmptyInput(t *testing.T) {
	sampled, stride := Downsample(nil, time.Hour, 100)
	if len(sampled) != 0 || stride != 1 {
		t.Errorf("got %d points stride %d, want empty stride 1", len(sampled), stride)
	}
}
