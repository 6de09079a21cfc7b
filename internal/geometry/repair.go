package geometry

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/joeblew999/geopyramid/internal/mcerrors"
)

// Repair cleans a geometry so it is valid and normalized. orb has no
// buffer(0)-style topology fixer (unlike the shapely/GEOS source this is
// grounded on), so repair here does the part of the job that is purely
// combinatorial: close open rings, drop degenerate (collapsed) rings, and
// normalize ring winding order and ring-start so two topologically equal
// polygons compare equal. Self-intersections are neither detected nor
// repaired: a self-intersecting polygon is returned as it came. The only
// error is a GeometryTypeError for an exterior ring with fewer than four
// points once closed.
func Repair(g orb.Geometry, normalize bool) (orb.Geometry, error) {
	switch geom := g.(type) {
	case orb.Polygon:
		out, err := repairPolygon(geom, normalize)
		if err != nil {
			return nil, err
		}
		return out, nil
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(geom))
		for _, p := range geom {
			rp, err := repairPolygon(p, normalize)
			if err != nil {
				return nil, err
			}
			if len(rp) > 0 {
				out = append(out, rp)
			}
		}
		return out, nil
	default:
		return g, nil
	}
}

func repairPolygon(p orb.Polygon, normalize bool) (orb.Polygon, error) {
	out := make(orb.Polygon, 0, len(p))
	for i, ring := range p {
		closed := closeRing(ring)
		if len(closed) < 4 {
			if i == 0 {
				return nil, fmt.Errorf("%w", &mcerrors.GeometryTypeError{Got: "degenerate ring", Expected: "ring with >= 3 distinct vertices"})
			}
			// degenerate holes are simply dropped, as buffer(0) would.
			continue
		}
		if normalize {
			closed = normalizeRing(closed, i == 0)
		}
		out = append(out, closed)
	}
	return out, nil
}

// closeRing ensures the ring's first and last points are identical.
func closeRing(r orb.Ring) orb.Ring {
	if len(r) == 0 {
		return r
	}
	if r[0] == r[len(r)-1] {
		return r
	}
	out := make(orb.Ring, len(r)+1)
	copy(out, r)
	out[len(r)] = r[0]
	return out
}

// signedArea computes twice the signed area of a closed ring via the
// shoelace formula; positive means counter-clockwise.
func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		sum += (r[i][0] * r[i+1][1]) - (r[i+1][0] * r[i][1])
	}
	return sum
}

// normalizeRing enforces a canonical winding order (CCW for exterior
// rings, CW for holes, the GeoJSON RFC 7946 convention) and rotates the
// ring to start at its lexicographically smallest point, so structurally
// identical polygons compare equal regardless of input ordering.
func normalizeRing(r orb.Ring, exterior bool) orb.Ring {
	area := signedArea(r)
	ccw := area > 0
	if ccw != exterior {
		r = reverseRing(r)
	}

	minIdx := 0
	for i := 1; i < len(r)-1; i++ {
		if less(r[i], r[minIdx]) {
			minIdx = i
		}
	}
	if minIdx == 0 {
		return r
	}
	rotated := make(orb.Ring, 0, len(r))
	for i := minIdx; i < len(r)-1; i++ {
		rotated = append(rotated, r[i])
	}
	for i := 0; i <= minIdx; i++ {
		rotated = append(rotated, r[i])
	}
	return rotated
}

func reverseRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

func less(a, b orb.Point) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}
