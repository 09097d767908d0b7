package chart

import (
	"fmt"
	"math"
	"strings"

	"chart-terminal/internal/model"
	"chart-terminal/internal/series"
)

// PathSegment is one rendered session run: a move-to followed by cubic
// curve-to (or line-to) draw commands in pixel space, plus the session
// tag so the renderer can color runs differently.
type PathSegment struct {
	Commands string        `json:"commands"`
	Session  model.Session `json:"sessionTag"`
}

type vec struct {
	x, y float64
}

// SmoothRuns converts each session run into a smooth path. Smoothing
// never alters the numeric prices, only the rendered curve between them:
// every input point is a Bezier endpoint, so the curve passes through
// all samples exactly.
func SmoothRuns(runs []series.Run, m *Mapper, tension float64) []PathSegment {
	segments := make([]PathSegment, 0, len(runs))
	for _, run := range runs {
		if len(run.Points) == 0 {
			continue
		}
		pts := make([]vec, len(run.Points))
		for i, p := range run.Points {
			pts[i] = vec{x: m.TimeToX(p.Timestamp), y: m.PriceToY(p.Close)}
		}
		segments = append(segments, PathSegment{
			Commands: smoothPath(pts, tension),
			Session:  run.Session,
		})
	}
	return segments
}

// smoothPath builds the draw commands for one run. Runs of one or two
// points degrade to a point or straight line; longer runs get a
// centripetal Catmull-Rom spline converted segment-wise to cubic
// Beziers.
func smoothPath(pts []vec, tension float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "M %s %s", fmtCoord(pts[0].x), fmtCoord(pts[0].y))
	if len(pts) == 1 {
		return b.String()
	}
	if len(pts) == 2 {
		fmt.Fprintf(&b, " L %s %s", fmtCoord(pts[1].x), fmtCoord(pts[1].y))
		return b.String()
	}

	n := len(pts)
	for i := 0; i < n-1; i++ {
		p0 := pts[maxInt(i-1, 0)]
		p1 := pts[i]
		p2 := pts[i+1]
		p3 := pts[minInt(i+2, n-1)]

		c1, c2 := bezierControls(p0, p1, p2, p3, tension)
		fmt.Fprintf(&b, " C %s %s %s %s %s %s",
			fmtCoord(c1.x), fmtCoord(c1.y),
			fmtCoord(c2.x), fmtCoord(c2.y),
			fmtCoord(p2.x), fmtCoord(p2.y))
	}
	return b.String()
}

// bezierControls derives cubic Bezier control points for the segment
// p1->p2 from centripetal Catmull-Rom tangents. Centripetal knot spacing
// (alpha 0.5) keeps the curve from overshooting on sharp reversals.
func bezierControls(p0, p1, p2, p3 vec, tension float64) (vec, vec) {
	d01 := centripetalKnot(p0, p1)
	d12 := centripetalKnot(p1, p2)
	d23 := centripetalKnot(p2, p3)

	// Tangent at p1 and p2 under the centripetal parameterization
	var m1, m2 vec
	if d01+d12 > 0 && d12 > 0 {
		m1 = vec{
			x: (p2.x - p0.x) / (d01 + d12) * d12,
			y: (p2.y - p0.y) / (d01 + d12) * d12,
		}
	}
	if d12+d23 > 0 && d12 > 0 {
		m2 = vec{
			x: (p3.x - p1.x) / (d12 + d23) * d12,
			y: (p3.y - p1.y) / (d12 + d23) * d12,
		}
	}

	c1 := vec{x: p1.x + m1.x*tension/3*2, y: p1.y + m1.y*tension/3*2}
	c2 := vec{x: p2.x - m2.x*tension/3*2, y: p2.y - m2.y*tension/3*2}
	return c1, c2
}

// centripetalKnot is the alpha-0.5 knot interval: sqrt of the chord
// length.
func centripetalKnot(a, b vec) float64 {
	return math.Sqrt(math.Hypot(b.x-a.x, b.y-a.y))
}

// fmtCoord trims coordinates to a renderer-friendly precision.
func fmtCoord(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" || s == "-0" {
		return "0"
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
