package geometry

import (
	"testing"

	"github.com/paulmach/orb"
)

func box(l, b, r, t float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{l, b}, {r, b}, {r, t}, {l, t}, {l, b},
	}}
}

func TestIsTypeAllowsMultipartCognate(t *testing.T) {
	line := orb.LineString{{0, 0}, {1, 1}}
	if !IsType(line, FamilyLineString, true) {
		t.Fatalf("expected LineString to match its own family")
	}
	mls := orb.MultiLineString{line}
	if !IsType(mls, FamilyLineString, true) {
		t.Fatalf("expected MultiLineString{line} to match LineString when allow_multipart=true")
	}
	if IsType(mls, FamilyLineString, false) {
		t.Fatalf("expected MultiLineString to NOT match LineString when allow_multipart=false")
	}
}

func TestMultipartToSingleparts(t *testing.T) {
	mp := orb.MultiPolygon{box(0, 0, 1, 1), box(2, 2, 3, 3)}
	parts, err := MultipartToSingleparts(mp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 singlepart geometries, got %d", len(parts))
	}
}

func TestSegmentizeGeometryNoSegmentExceedsLength(t *testing.T) {
	poly := box(0, 0, 10, 10)
	out, err := SegmentizeGeometry(poly, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := out.(orb.Polygon)
	for _, ring := range p {
		for i := 0; i < len(ring)-1; i++ {
			d := distance(ring[i], ring[i+1])
			if d > 1.0+1e-9 {
				t.Fatalf("segment length %v exceeds 1.0", d)
			}
		}
	}
}

func TestLatLonToUTMCRS(t *testing.T) {
	if epsg, _ := LatLonToUTMCRS(46.47, 11.33).EPSG(); epsg != 32632 {
		t.Fatalf("expected EPSG 32632, got %d", epsg)
	}
	if epsg, _ := LatLonToUTMCRS(-33.9, 18.4).EPSG(); epsg != 32734 {
		t.Fatalf("expected EPSG 32734, got %d", epsg)
	}
}

func TestRepairAntimeridianGeometryStaysWithinBounds(t *testing.T) {
	wide := box(170, -10, 190, 10)
	mp, err := RepairAntimeridianGeometry(wide, 180)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range mp {
		b := p.Bound()
		if b.Min[0] < -180 || b.Max[0] > 180 || b.Min[1] < -90 || b.Max[1] > 90 {
			t.Fatalf("repaired geometry exceeds lat/lon bounds: %v", b)
		}
	}
}

func TestClipToBoundsDropsOutsidePortion(t *testing.T) {
	poly := box(-5, -5, 5, 5)
	clipped := ClipToBounds(poly, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}})
	p := clipped.(orb.Polygon)
	b := p.Bound()
	if b.Min[0] < 0 || b.Min[1] < 0 {
		t.Fatalf("expected clipped polygon to stay within [0,10], got %v", b)
	}
}

func TestRepairNormalizeIsIdempotent(t *testing.T) {
	poly := box(0, 0, 1, 1)
	once, err := Repair(poly, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twice, err := Repair(once, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if once.(orb.Polygon)[0][0] != twice.(orb.Polygon)[0][0] {
		t.Fatalf("repair(repair(g)) should equal repair(g)")
	}
}
