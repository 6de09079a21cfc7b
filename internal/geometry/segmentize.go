package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/joeblew999/geopyramid/internal/bounds"
)

// GetSegmentizeValue returns min(width, height)/fraction for the
// geometry's bounds, the segment length the source project derives from
// a "segmentize fraction" (e.g. 1/100th of the shorter side).
func GetSegmentizeValue(g orb.Geometry, fraction float64) float64 {
	b := g.Bound()
	bb, err := bounds.New(b.Min[0], b.Min[1], b.Max[0], b.Max[1], false, "")
	if err != nil {
		return 0
	}
	return math.Min(bb.Width(), bb.Height()) / fraction
}

// SegmentizeGeometry inserts interpolated vertices into Polygon,
// LineString, LinearRing or MultiPolygon geometries so that no segment
// exceeds segmentizeValue in length. Other geometry types are rejected.
func SegmentizeGeometry(g orb.Geometry, segmentizeValue float64) (orb.Geometry, error) {
	if segmentizeValue <= 0 {
		return g, nil
	}
	switch geom := g.(type) {
	case orb.LineString:
		return segmentizeLineString(geom, segmentizeValue), nil
	case orb.Ring:
		return orb.Ring(segmentizeLineString(orb.LineString(geom), segmentizeValue)), nil
	case orb.Polygon:
		out := make(orb.Polygon, len(geom))
		for i, ring := range geom {
			out[i] = orb.Ring(segmentizeLineString(orb.LineString(ring), segmentizeValue))
		}
		return out, nil
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(geom))
		for i, poly := range geom {
			seg, err := SegmentizeGeometry(poly, segmentizeValue)
			if err != nil {
				return nil, err
			}
			out[i] = seg.(orb.Polygon)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("segmentize geometry must be a Polygon, LinearRing, LineString or MultiPolygon: got %T", g)
	}
}

func segmentizeLineString(ls orb.LineString, segmentizeValue float64) orb.LineString {
	if len(ls) < 2 {
		return ls
	}
	out := make(orb.LineString, 0, len(ls))
	for i := 0; i < len(ls)-1; i++ {
		a, b := ls[i], ls[i+1]
		out = append(out, a)
		segLen := distance(a, b)
		n := int(segLen / segmentizeValue)
		for j := 1; j <= n; j++ {
			t := float64(j) * segmentizeValue / segLen
			if t >= 1 {
				break
			}
			out = append(out, lerp(a, b, t))
		}
	}
	out = append(out, ls[len(ls)-1])
	return out
}

func distance(a, b orb.Point) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	return math.Sqrt(dx*dx + dy*dy)
}

func lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}
