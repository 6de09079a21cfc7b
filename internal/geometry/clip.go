package geometry

import "github.com/paulmach/orb"

// ClipRingToBound clips a closed ring to an axis-aligned rectangle using
// the Sutherland-Hodgman algorithm. orb ships no general polygon boolean
// ops, so this is the primitive ClipToBounds and the CRS-bounds clip step
// of ReprojectGeometry build on.
func ClipRingToBound(r orb.Ring, b orb.Bound) orb.Ring {
	if len(r) == 0 {
		return r
	}
	poly := r[:len(r)-1]

	poly = clipEdge(poly, func(p orb.Point) bool { return p[0] >= b.Min[0] }, func(a, b2 orb.Point) orb.Point { return intersectVertical(a, b2, b.Min[0]) })
	poly = clipEdge(poly, func(p orb.Point) bool { return p[0] <= b.Max[0] }, func(a, b2 orb.Point) orb.Point { return intersectVertical(a, b2, b.Max[0]) })
	poly = clipEdge(poly, func(p orb.Point) bool { return p[1] >= b.Min[1] }, func(a, b2 orb.Point) orb.Point { return intersectHorizontal(a, b2, b.Min[1]) })
	poly = clipEdge(poly, func(p orb.Point) bool { return p[1] <= b.Max[1] }, func(a, b2 orb.Point) orb.Point { return intersectHorizontal(a, b2, b.Max[1]) })

	if len(poly) == 0 {
		return nil
	}
	return closeRing(orb.Ring(poly))
}

func clipEdge(poly []orb.Point, inside func(orb.Point) bool, intersect func(a, b orb.Point) orb.Point) []orb.Point {
	if len(poly) == 0 {
		return nil
	}
	var out []orb.Point
	prev := poly[len(poly)-1]
	prevIn := inside(prev)
	for _, cur := range poly {
		curIn := inside(cur)
		if curIn {
			if !prevIn {
				out = append(out, intersect(prev, cur))
			}
			out = append(out, cur)
		} else if prevIn {
			out = append(out, intersect(prev, cur))
		}
		prev, prevIn = cur, curIn
	}
	return out
}

func intersectVertical(a, b orb.Point, x float64) orb.Point {
	if b[0] == a[0] {
		return orb.Point{x, a[1]}
	}
	t := (x - a[0]) / (b[0] - a[0])
	return orb.Point{x, a[1] + t*(b[1]-a[1])}
}

func intersectHorizontal(a, b orb.Point, y float64) orb.Point {
	if b[1] == a[1] {
		return orb.Point{a[0], y}
	}
	t := (y - a[1]) / (b[1] - a[1])
	return orb.Point{a[0] + t*(b[0]-a[0]), y}
}

// ClipToBounds clips a Polygon or MultiPolygon to an axis-aligned
// rectangle, dropping rings that clip away entirely.
func ClipToBounds(g orb.Geometry, b orb.Bound) orb.Geometry {
	switch geom := g.(type) {
	case orb.Polygon:
		return clipPolygon(geom, b)
	case orb.MultiPolygon:
		var out orb.MultiPolygon
		for _, p := range geom {
			clipped := clipPolygon(p, b)
			if len(clipped) > 0 {
				out = append(out, clipped)
			}
		}
		return out
	default:
		if !g.Bound().Intersects(b) {
			return orb.MultiPolygon{}
		}
		return g
	}
}

// ClipToPyramidBounds splits geometry across a global pyramid's antimeridian
// seam: the portion inside pyramidBounds is returned as-is, and every
// out-of-bounds piece is shifted by a full pyramid width back into range,
// mirroring clip_geometry_to_pyramid_bounds. Non-global pyramids (isGlobal
// false) never need splitting and geometry is returned unchanged.
func ClipToPyramidBounds(geometry orb.Geometry, pyramidBounds orb.Bound, isGlobal bool) []orb.Geometry {
	if !isGlobal || within(geometry, pyramidBounds) {
		return []orb.Geometry{geometry}
	}

	inside := ClipToBounds(geometry, pyramidBounds)
	width := pyramidBounds.Max[0] - pyramidBounds.Min[0]
	out := []orb.Geometry{inside}

	for _, part := range outsideParts(geometry, pyramidBounds) {
		pb := part.Bound()
		switch {
		case pb.Min[0] < pyramidBounds.Min[0]:
			out = append(out, MapCoordinates(part, func(p orb.Point) orb.Point {
				return orb.Point{p[0] + width, p[1]}
			}))
		case pb.Max[0] > pyramidBounds.Max[0]:
			out = append(out, MapCoordinates(part, func(p orb.Point) orb.Point {
				return orb.Point{p[0] - width, p[1]}
			}))
		default:
			out = append(out, part)
		}
	}
	return out
}

// outsideParts returns the singlepart pieces of geometry that fall outside
// pyramidBounds, approximating shapely's difference() via clip-and-compare
// since orb has no polygon boolean difference.
func outsideParts(geometry orb.Geometry, pyramidBounds orb.Bound) []orb.Geometry {
	parts, err := MultipartToSingleparts(geometry)
	if err != nil {
		parts = []orb.Geometry{geometry}
	}
	var out []orb.Geometry
	for _, part := range parts {
		if !within(part, pyramidBounds) {
			out = append(out, part)
		}
	}
	return out
}

func clipPolygon(p orb.Polygon, b orb.Bound) orb.Polygon {
	var out orb.Polygon
	for i, ring := range p {
		clipped := ClipRingToBound(ring, b)
		if len(clipped) < 4 {
			if i == 0 {
				return nil
			}
			continue
		}
		out = append(out, clipped)
	}
	return out
}
