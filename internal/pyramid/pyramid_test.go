package pyramid

import (
	"testing"

	"github.com/joeblew999/geopyramid/internal/bounds"
)

func TestGeodeticTilesPerZoom(t *testing.T) {
	p, err := New(Geodetic, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cols, rows := p.TilesPerZoom(0)
	if cols != 2 || rows != 1 {
		t.Fatalf("zoom 0 geodetic grid should be 2x1, got %dx%d", cols, rows)
	}
	cols, rows = p.TilesPerZoom(2)
	if cols != 8 || rows != 4 {
		t.Fatalf("zoom 2 geodetic grid should be 8x4, got %dx%d", cols, rows)
	}
}

func TestTileBoundsCoversFullExtentAtZoomZero(t *testing.T) {
	p, err := New(Geodetic, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	left, err := p.TileBounds(0, 0, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	right, err := p.TileBounds(0, 0, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	union := left.Union(right)
	want := bounds.MustNew(-180, -90, 180, 90)
	if !union.Equal(want) {
		t.Fatalf("expected the two zoom-0 tiles to cover the full extent, got %v", union)
	}
}

func TestGetParentGetChildrenRoundtrip(t *testing.T) {
	p, err := New(Geodetic, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tile := Tile{Pyramid: p, Zoom: 3, Row: 2, Col: 5}
	children := tile.GetChildren()
	if len(children) != 4 {
		t.Fatalf("expected 4 children, got %d", len(children))
	}
	for _, c := range children {
		if !c.IsChildOf(tile) {
			t.Fatalf("child %+v should report IsChildOf parent %+v", c, tile)
		}
		parent, ok := c.GetParent()
		if !ok || !parent.Equal(tile) {
			t.Fatalf("child's parent should equal original tile")
		}
	}
}

func TestTilesFromBoundsIntersectsRegion(t *testing.T) {
	p, err := New(Geodetic, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	region := bounds.MustNew(-10, -10, 10, 10)
	tiles, err := p.TilesFromBounds(region, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tiles) == 0 {
		t.Fatalf("expected at least one tile intersecting the region")
	}
	for _, tile := range tiles {
		tb, err := tile.Bounds()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !tb.Intersects(region) {
			t.Fatalf("returned tile %+v does not intersect region", tile)
		}
	}
}
