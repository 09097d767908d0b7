package series

import (
	"time"

	"chart-terminal/internal/model"
	"chart-terminal/internal/timerange"
)

// Downsample reduces a chronological series to respect a row budget by
// stride selection. A series already within the budget is returned
// untouched; striding exists only to meet the budget, never to thin a
// series that fits. The first and last point of every session run are
// always kept regardless of stride, so the rendered curve reaches each
// session boundary exactly. If the strided result still exceeds the
// budget the stride grows proportionally; points are never truncated
// from the end, which would silently drop the most recent data.
//
// Returns the sampled series and the effective stride, which callers use
// to derive the expected spacing between surviving samples.
func Downsample(points []model.PricePoint, span time.Duration, rowBudget int) ([]model.PricePoint, int) {
	if len(points) == 0 || rowBudget <= 0 || len(points) <= rowBudget {
		return points, 1
	}

	stride := timerange.StrideForSpan(span)
	sampled := sampleWithStride(points, stride)

	// Grow the stride until the result fits. Session-boundary keepers can
	// dominate small budgets, so cap the retries.
	for attempt := 0; len(sampled) > rowBudget && attempt < 16; attempt++ {
		grow := (len(sampled) + rowBudget - 1) / rowBudget
		if grow < 2 {
			grow = 2
		}
		stride *= grow
		sampled = sampleWithStride(points, stride)
	}
	return sampled, stride
}

// sampleWithStride keeps every stride-th point plus all session-run
// endpoints.
func sampleWithStride(points []model.PricePoint, stride int) []model.PricePoint {
	if stride <= 1 {
		return points
	}

	out := make([]model.PricePoint, 0, len(points)/stride+2)
	for i, p := range points {
		if i%stride == 0 || isSessionEndpoint(points, i) {
			out = append(out, p)
		}
	}
	return out
}

// isSessionEndpoint reports whether the point at i starts or ends a
// same-session run.
func isSessionEndpoint(points []model.PricePoint, i int) bool {
	if i == 0 || i == len(points)-1 {
		return true
	}
	return points[i].Session != points[i-1].Session || points[i].Session != points[i+1].Session
}
