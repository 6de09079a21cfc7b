package vectorio

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/geopyramid/internal/bounds"
	"github.com/joeblew999/geopyramid/internal/crs"
	"github.com/joeblew999/geopyramid/internal/features"
	"github.com/joeblew999/geopyramid/internal/geometry"
	"github.com/joeblew999/geopyramid/internal/grid"
)

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "a", "properties": {"name": "inside"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "id": "b", "properties": {"name": "far"},
     "geometry": {"type": "Polygon", "coordinates": [[[50,50],[51,50],[51,51],[50,51],[50,50]]]}}
  ]
}`

func TestReadVectorWindowFiltersByGrid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.geojson")
	if err := os.WriteFile(path, []byte(sampleGeoJSON), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := bounds.MustNew(-1, -1, 2, 2)
	g := grid.FromBounds(b, 10, 10, "EPSG:4326")

	driver := NewGeoJSONDriver()
	feats, err := ReadVectorWindow(context.Background(), []string{path}, driver, g, DefaultReadOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(feats) != 1 || feats[0].ID != "a" {
		t.Fatalf("expected only feature %q within the query window, got %+v", "a", feats)
	}
}

func TestReadVectorWindowSkipsMissingFile(t *testing.T) {
	b := bounds.MustNew(-1, -1, 2, 2)
	g := grid.FromBounds(b, 10, 10, "EPSG:4326")
	driver := NewGeoJSONDriver()

	opts := DefaultReadOptions()
	opts.SkipMissingFiles = true
	opts.Retry.Tries = 1

	feats, err := ReadVectorWindow(context.Background(), []string{"/no/such/file.geojson"}, driver, g, opts)
	if err != nil {
		t.Fatalf("expected missing file to be skipped, got error: %v", err)
	}
	if len(feats) != 0 {
		t.Fatalf("expected no features, got %+v", feats)
	}
}

func TestWriteVectorWindowClipsAndRoundtrips(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.geojson")
	if err := os.WriteFile(inPath, []byte(sampleGeoJSON), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	driver := NewGeoJSONDriver()
	src, err := driver.Open(inPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all := src.Filter(bigBound())

	outPath := filepath.Join(dir, "out.geojson")
	outBounds := bounds.MustNew(-1, -1, 2, 2)
	if err := WriteVectorWindow(all, outBounds, geometry.FamilyPolygon, true, driver, outPath, driver.CRS); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	roundtrip, err := driver.Open(outPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := roundtrip.Filter(bigBound())
	if len(got) != 1 {
		t.Fatalf("expected only the in-bounds feature to survive the write, got %+v", got)
	}
}

func TestConvertVectorSkipsWhenExistsAndNoOverwrite(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.geojson")
	outPath := filepath.Join(dir, "out.geojson")
	if err := os.WriteFile(inPath, []byte(sampleGeoJSON), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(outPath, []byte("untouched"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	driver := NewGeoJSONDriver()
	if err := ConvertVector(inPath, outPath, driver, driver, false, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "untouched" {
		t.Fatalf("expected out path to remain untouched without overwrite")
	}
}

func bigBound() orb.Bound {
	return orb.Bound{Min: orb.Point{-1000, -1000}, Max: orb.Point{1000, 1000}}
}

// recordingSource records every bbox it's asked to Filter by, returning one
// distinct feature per call so callers can assert both the call count and
// that results from every call made it into the merged result.
type recordingSource struct {
	calls []orb.Bound
}

func (s *recordingSource) CRS() crs.CRS { return crs.LatLon }

func (s *recordingSource) Filter(bbox orb.Bound) []features.Feature {
	s.calls = append(s.calls, bbox)
	return []features.Feature{{ID: strconv.Itoa(len(s.calls))}}
}

func TestQueryAcrossAntimeridianSingleQueryForPolygon(t *testing.T) {
	src := &recordingSource{}
	poly := orb.Polygon{{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}, {-1, -1}}}

	feats := queryAcrossAntimeridian(src, poly)

	if len(src.calls) != 1 {
		t.Fatalf("expected a single Filter call for a plain polygon, got %d", len(src.calls))
	}
	if len(feats) != 1 {
		t.Fatalf("expected one feature, got %+v", feats)
	}
}

func TestQueryAcrossAntimeridianQueriesEachMultiPolygonPart(t *testing.T) {
	src := &recordingSource{}
	west := orb.Polygon{{{-180, -10}, {-170, -10}, {-170, 10}, {-180, 10}, {-180, -10}}}
	east := orb.Polygon{{{170, -10}, {180, -10}, {180, 10}, {170, 10}, {170, -10}}}
	mp := orb.MultiPolygon{west, east}

	feats := queryAcrossAntimeridian(src, mp)

	if len(src.calls) != 2 {
		t.Fatalf("expected one Filter call per antimeridian-split part, got %d", len(src.calls))
	}
	if len(feats) != 2 {
		t.Fatalf("expected a feature from each part's query, got %+v", feats)
	}
	// Each call's bbox must stay within its own part, never spanning the
	// full width between both sides of the date line.
	for _, b := range src.calls {
		if b.Max[0]-b.Min[0] > 20 {
			t.Fatalf("expected each query to cover only its own part, got bound %+v", b)
		}
	}
}

// multiSource simulates a single feature spanning an antimeridian-split
// query: both of queryAcrossAntimeridian's per-part calls see it, mirroring
// a feature geometry whose source-CRS footprint is reachable from either
// side of the date line.
type multiSource struct{}

func (s *multiSource) CRS() crs.CRS { return crs.LatLon }

func (s *multiSource) Filter(bbox orb.Bound) []features.Feature {
	return []features.Feature{{
		ID:       "shared",
		Geometry: orb.Polygon{{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}, {-1, -1}}},
	}}
}

func TestReprojectedFeaturesDedupesAcrossAntimeridianParts(t *testing.T) {
	src := &multiSource{}
	west := orb.Polygon{{{-180, -10}, {-170, -10}, {-170, 10}, {-180, 10}, {-180, -10}}}
	east := orb.Polygon{{{170, -10}, {180, -10}, {180, 10}, {170, 10}, {170, -10}}}
	mp := orb.MultiPolygon{west, east}

	seen := map[string]bool{}
	var deduped int
	for _, feat := range queryAcrossAntimeridian(src, mp) {
		if feat.ID != "" {
			if seen[feat.ID] {
				continue
			}
			seen[feat.ID] = true
		}
		deduped++
	}
	if deduped != 1 {
		t.Fatalf("expected the feature returned by both antimeridian-part queries to be deduped once, got %d", deduped)
	}
}
