package synthetic

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"chart-terminal/internal/market"
	"chart-terminal/internal/model"
)

// Generate produces a deterministic smooth random-walk series for a
// symbol, used as the last-resort data source so the chart always
// renders something. The walk is seeded by the symbol, so repeated calls
// for the same symbol and window yield identical series. The result is
// tagged source "mock" so callers can visibly flag it.
func Generate(symbol string, resolution model.Resolution, from, to time.Time, limit int) *model.ChartSeries {
	interval := resolution.Interval()
	n := int(to.Sub(from)/interval) + 1
	if n > limit {
		n = limit
	}
	if n < 2 {
		n = 2
	}

	rng := rand.New(rand.NewSource(seedFor(symbol)))

	// Base price between 20 and 520, symbol-stable
	price := 20 + rng.Float64()*500
	drift := (rng.Float64() - 0.5) * 0.0004

	points := make([]model.PricePoint, 0, n)
	// Walk forward from the window start so the newest points land at `to`
	start := to.Add(-time.Duration(n-1) * interval)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * interval)

		step := rng.NormFloat64()*0.002 + drift
		open := price
		close := price * (1 + step)
		high := math.Max(open, close) * (1 + rng.Float64()*0.001)
		low := math.Min(open, close) * (1 - rng.Float64()*0.001)
		volume := math.Abs(rng.NormFloat64()) * 1e5

		points = append(points, model.PricePoint{
			Timestamp: ts.UnixMilli(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			Session:   market.SessionAt(ts),
		})
		price = close
	}

	return &model.ChartSeries{
		Symbol:     symbol,
		Resolution: resolution,
		Source:     model.SourceMock,
		Points:     points,
	}
}

// seedFor derives a stable seed from the symbol.
func seedFor(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64())
}
