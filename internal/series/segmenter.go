package series

import (
	"time"

	"chart-terminal/internal/model"
)

// Run is a maximal stretch of consecutive points that share one session
// tag with no real data gap inside it. Runs are smoothed independently so
// the curve never interpolates across a session boundary or a weekend.
type Run struct {
	Session model.Session
	Points  []model.PricePoint
}

// Segment partitions a chronological series into session runs. A new run
// starts whenever the session tag changes or two adjacent points are
// separated by more than one expected sampling interval.
func Segment(points []model.PricePoint, expectedInterval time.Duration) []Run {
	if len(points) == 0 {
		return nil
	}

	maxGapMs := expectedInterval.Milliseconds()
	runs := make([]Run, 0, 4)
	start := 0
	for i := 1; i < len(points); i++ {
		sameSession := points[i].Session == points[i-1].Session
		gap := points[i].Timestamp - points[i-1].Timestamp
		if sameSession && gap <= maxGapMs {
			continue
		}
		runs = append(runs, Run{Session: points[start].Session, Points: points[start:i]})
		start = i
	}
	runs = append(runs, Run{Session: points[start].Session, Points: points[start:]})
	return runs
}
