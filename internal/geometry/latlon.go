package geometry

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/joeblew999/geopyramid/internal/crs"
)

// LatLonToUTMCRS returns the UTM zone CRS covering (lat, lon). Zone is
// clamp(floor((lon+180)/6)+1, 1, 60); EPSG is 326ZZ (northern, lat > 0)
// or 327ZZ (southern).
func LatLonToUTMCRS(lat, lon float64) crs.CRS {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	base := 32700
	if lat > 0 {
		base = 32600
	}
	return crs.FromEPSG(base + zone)
}

// LongitudinalShift shifts coordinates by offset degrees. When
// onlyNegative is true only vertices with a negative x-coordinate are
// shifted, the Western-hemisphere-only shift the antimeridian repair
// algorithm needs.
func LongitudinalShift(g orb.Geometry, offset float64, onlyNegative bool) orb.Geometry {
	return MapCoordinates(g, func(p orb.Point) orb.Point {
		if onlyNegative && p[0] >= 0 {
			return p
		}
		return orb.Point{p[0] + offset, p[1]}
	})
}

// MapCoordinates applies fn to every coordinate of g, preserving
// structure. It is the Go equivalent of the source's custom_transform
// coordinate-array mapping.
func MapCoordinates(g orb.Geometry, fn func(orb.Point) orb.Point) orb.Geometry {
	switch geom := g.(type) {
	case orb.Point:
		return fn(geom)
	case orb.MultiPoint:
		out := make(orb.MultiPoint, len(geom))
		for i, p := range geom {
			out[i] = fn(p)
		}
		return out
	case orb.LineString:
		out := make(orb.LineString, len(geom))
		for i, p := range geom {
			out[i] = fn(p)
		}
		return out
	case orb.Ring:
		out := make(orb.Ring, len(geom))
		for i, p := range geom {
			out[i] = fn(p)
		}
		return out
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(geom))
		for i, ls := range geom {
			out[i] = MapCoordinates(ls, fn).(orb.LineString)
		}
		return out
	case orb.Polygon:
		out := make(orb.Polygon, len(geom))
		for i, r := range geom {
			out[i] = MapCoordinates(r, fn).(orb.Ring)
		}
		return out
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(geom))
		for i, p := range geom {
			out[i] = MapCoordinates(p, fn).(orb.Polygon)
		}
		return out
	case orb.Collection:
		out := make(orb.Collection, len(geom))
		for i, sub := range geom {
			out[i] = MapCoordinates(sub, fn)
		}
		return out
	default:
		return g
	}
}

// TransformToLatLon transforms every coordinate of g from src to lat/lon.
// If the resulting longitudinal extent exceeds widthThreshold (default
// 180), it assumes an antimeridian crossing and shifts negative
// x-coordinates by +360, producing a geometry that may extend past +180
// but preserves shape.
func TransformToLatLon(g orb.Geometry, src crs.CRS, widthThreshold float64) (orb.Geometry, error) {
	t, err := crs.NewTransformer(src, crs.LatLon)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	var xMin, xMax = math.Inf(1), math.Inf(-1)
	var firstErr error
	shifted := MapCoordinates(g, func(p orb.Point) orb.Point {
		x, y, err := t.Forward(p[0], p[1])
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if x < xMin {
			xMin = x
		}
		if x > xMax {
			xMax = x
		}
		return orb.Point{x, y}
	})
	if firstErr != nil {
		return nil, firstErr
	}

	if xMax-xMin > widthThreshold {
		shifted = LongitudinalShift(shifted, 360, true)
	}
	return shifted, nil
}

// latLonBox is the fixed lat/lon bounding box used by the antimeridian
// repair algorithm.
var latLonBox = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// RepairAntimeridianGeometry repairs a geometry that may cross the
// antimeridian: (a) shift western-hemisphere vertices by +360, (b) split
// at x=180, (c) shift the outside part back by -360, (d) union into a
// MultiPolygon strictly within lat/lon bounds.
func RepairAntimeridianGeometry(g orb.Geometry, widthThreshold float64) (orb.MultiPolygon, error) {
	repaired, err := Repair(g, true)
	if err != nil {
		return nil, err
	}

	b := repaired.Bound()
	crossesWidth := (b.Max[0] - b.Min[0]) >= widthThreshold
	outsideBounds := b.Min[0] < -180 || b.Max[0] > 180 || b.Min[1] < -90 || b.Max[1] > 90

	if !crossesWidth && !outsideBounds {
		return toMultiPolygon(repaired), nil
	}

	shifted := LongitudinalShift(repaired, 360, true)
	inside, outside := splitAtLatLonBox(shifted)
	outsideShifted := LongitudinalShift(outside, -360, false)

	merged := append(toMultiPolygon(inside), toMultiPolygon(outsideShifted)...)
	return merged, nil
}

// splitAtLatLonBox splits a geometry's polygons at x=180 with
// ClipToBounds: inside is the part within the canonical lat/lon box,
// outside the part east of x=180 (up to x=540, the furthest a +360 shift
// reaches).
func splitAtLatLonBox(g orb.Geometry) (inside orb.Geometry, outside orb.Geometry) {
	mp := toMultiPolygon(g)
	east := orb.Bound{
		Min: orb.Point{latLonBox.Max[0], latLonBox.Min[1]},
		Max: orb.Point{latLonBox.Max[0] + 360, latLonBox.Max[1]},
	}
	return ClipToBounds(mp, latLonBox), ClipToBounds(mp, east)
}

func toMultiPolygon(g orb.Geometry) orb.MultiPolygon {
	switch geom := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{geom}
	case orb.MultiPolygon:
		return geom
	default:
		return nil
	}
}

// BufferAntimeridianSafe buffers a lat/lon footprint by a metric distance
// by transforming to the local UTM zone (selected from the centroid),
// buffering there, and transforming back. If the input already straddles
// the antimeridian as a MultiPolygon, it is merged by shifting western
// halves before buffering, then re-split.
func BufferAntimeridianSafe(footprint orb.Geometry, bufferMeters float64, reproj Reprojector) (orb.Geometry, error) {
	repaired, err := Repair(footprint, true)
	if err != nil {
		return nil, err
	}
	if bufferMeters == 0 {
		return repaired, nil
	}

	if mp, ok := repaired.(orb.MultiPolygon); ok {
		var unshifted orb.MultiPolygon
		for _, p := range mp {
			c := centroid(p)
			if c[0] < 0 {
				p = MapCoordinates(p, func(pt orb.Point) orb.Point { return orb.Point{pt[0] + 360, pt[1]} }).(orb.Polygon)
			}
			unshifted = append(unshifted, p)
		}
		var buffered []orb.Geometry
		for _, p := range unshifted {
			b, err := BufferAntimeridianSafe(p, bufferMeters, reproj)
			if err != nil {
				return nil, err
			}
			buffered = append(buffered, b)
		}
		merged := orb.MultiPolygon{}
		for _, b := range buffered {
			merged = append(merged, toMultiPolygon(b)...)
		}
		return RepairAntimeridianGeometry(merged, 180)
	}

	c := centroid(repaired)
	utm := LatLonToUTMCRS(c[1], c[0])

	projected, err := reproj.Reproject(repaired, crs.LatLon, utm, Options{ClipToCRSBounds: false})
	if err != nil {
		return nil, err
	}
	bufferedUTM := bufferPlanar(projected, bufferMeters)
	return TransformToLatLon(bufferedUTM, utm, 180)
}

// centroid approximates the centroid as the mean of a polygon's exterior
// ring vertices (sufficient for UTM-zone selection, which only needs an
// approximate location).
func centroid(g orb.Geometry) orb.Point {
	switch geom := g.(type) {
	case orb.Polygon:
		if len(geom) == 0 {
			return orb.Point{}
		}
		return ringCentroid(geom[0])
	case orb.MultiPolygon:
		if len(geom) == 0 || len(geom[0]) == 0 {
			return orb.Point{}
		}
		return ringCentroid(geom[0][0])
	default:
		b := g.Bound()
		return b.Center()
	}
}

func ringCentroid(r orb.Ring) orb.Point {
	var x, y float64
	n := len(r)
	if n == 0 {
		return orb.Point{}
	}
	for _, p := range r {
		x += p[0]
		y += p[1]
	}
	return orb.Point{x / float64(n), y / float64(n)}
}

// bufferPlanar grows a polygon outward by d units in its own planar CRS.
// orb has no general polygon-offset routine, so this implements a vertex
// normal-offset: each vertex moves along the average of its two adjacent
// edges' outward normals by d. Adequate for the footprint-buffer use case
// (UTM-projected metric buffers of already-repaired, reasonably convex
// polygons); it does not resolve self-intersections that a large buffer
// distance could introduce on sharply concave input.
func bufferPlanar(g orb.Geometry, d float64) orb.Geometry {
	switch geom := g.(type) {
	case orb.Polygon:
		return bufferPolygon(geom, d)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(geom))
		for i, p := range geom {
			out[i] = bufferPolygon(p, d)
		}
		return out
	default:
		return g
	}
}

func bufferPolygon(p orb.Polygon, d float64) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		sign := d
		if i > 0 {
			// holes shrink, rather than grow, under an outward buffer.
			sign = -d
		}
		out[i] = offsetRing(ring, sign)
	}
	return out
}

func offsetRing(r orb.Ring, d float64) orb.Ring {
	n := len(r)
	if n < 4 {
		return r
	}
	pts := r[:n-1] // drop the repeated closing point for normal math
	m := len(pts)
	out := make(orb.Ring, m+1)
	for i := 0; i < m; i++ {
		prev := pts[(i-1+m)%m]
		cur := pts[i]
		next := pts[(i+1)%m]
		n1 := outwardNormal(prev, cur)
		n2 := outwardNormal(cur, next)
		nx := (n1[0] + n2[0]) / 2
		ny := (n1[1] + n2[1]) / 2
		norm := math.Hypot(nx, ny)
		if norm > 0 {
			nx, ny = nx/norm, ny/norm
		}
		out[i] = orb.Point{cur[0] + nx*d, cur[1] + ny*d}
	}
	out[m] = out[0]
	return out
}

// outwardNormal returns the unit normal of edge a->b, rotated so it
// points away from the ring's interior assuming CCW winding.
func outwardNormal(a, b orb.Point) orb.Point {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	length := math.Hypot(dx, dy)
	if length == 0 {
		return orb.Point{}
	}
	return orb.Point{dy / length, -dx / length}
}
