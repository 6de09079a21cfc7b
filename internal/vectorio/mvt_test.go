package vectorio

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/geopyramid/internal/features"
	"github.com/joeblew999/geopyramid/internal/pyramid"
)

func TestMVTDriverRoundtrip(t *testing.T) {
	p, err := pyramid.New(pyramid.Mercator, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tile := pyramid.Tile{Pyramid: p, Zoom: 2, Row: 1, Col: 1}
	tb, err := tile.Bounds()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cx := (tb.Left + tb.Right) / 2
	cy := (tb.Bottom + tb.Top) / 2
	d := tb.Width() / 8
	square := orb.Polygon{orb.Ring{
		{cx - d, cy - d}, {cx + d, cy - d}, {cx + d, cy + d}, {cx - d, cy + d}, {cx - d, cy - d},
	}}

	driver := NewMVTDriver(tile, "data")
	path := filepath.Join(t.TempDir(), "tile.mvt")
	feats := []features.Feature{{ID: "sq", Geometry: square, Properties: map[string]any{"name": "x"}}}
	if err := driver.Create(path, feats, tile.CRS()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src, err := driver.Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := src.Filter(orb.Bound{Min: orb.Point{tb.Left, tb.Bottom}, Max: orb.Point{tb.Right, tb.Top}})
	if len(got) != 1 {
		t.Fatalf("expected 1 feature roundtripped, got %d", len(got))
	}
	b := got[0].Geometry.Bound()
	if b.Min[0] < tb.Left || b.Max[0] > tb.Right {
		t.Fatalf("unprojected geometry %v escaped tile bounds %v", b, tb)
	}
}
