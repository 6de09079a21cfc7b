package features

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/geopyramid/internal/bounds"
)

func square(l, b, r, t float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{l, b}, {r, b}, {r, t}, {l, t}, {l, b}}}
}

func TestFilterReturnsIntersectingFeatures(t *testing.T) {
	feats := []Feature{
		{ID: "a", Geometry: square(0, 0, 1, 1)},
		{ID: "b", Geometry: square(10, 10, 11, 11)},
	}
	idx, err := New(feats, "EPSG:4326", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := idx.Filter(mustBounds(t, -1, -1, 2, 2))
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected only feature %q to intersect, got %+v", "a", got)
	}
}

func TestFilterBroadcastsNonGeoFeatures(t *testing.T) {
	feats := []Feature{
		{ID: "geo", Geometry: square(0, 0, 1, 1)},
		{ID: "meta", Properties: map[string]any{"name": "global config"}},
	}
	idx, err := New(feats, "EPSG:4326", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nearby := idx.Filter(mustBounds(t, -1, -1, 2, 2))
	if !containsID(nearby, "meta") {
		t.Fatalf("expected non-geo feature to be broadcast into a nearby filter, got %+v", nearby)
	}

	farAway := idx.Filter(mustBounds(t, 100, 100, 101, 101))
	if !containsID(farAway, "meta") {
		t.Fatalf("expected non-geo feature to be broadcast even into an unrelated filter, got %+v", farAway)
	}
	if containsID(farAway, "geo") {
		t.Fatalf("expected geo feature to be excluded from an unrelated filter, got %+v", farAway)
	}
}

func TestNonGeoFeatureRejectedWhenNotAllowed(t *testing.T) {
	feats := []Feature{{ID: "meta", Properties: map[string]any{"name": "x"}}}
	if _, err := New(feats, "EPSG:4326", false); err == nil {
		t.Fatalf("expected an error for a non-geo feature when allowNonGeo is false")
	}
}

func TestKeyedLookup(t *testing.T) {
	feats := []Feature{{ID: "a", Geometry: square(0, 0, 1, 1)}}
	idx, err := New(feats, "EPSG:4326", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, ok := idx.Get("a")
	if !ok || f.ID != "a" {
		t.Fatalf("expected to find feature %q", "a")
	}
	if _, ok := idx.Get("missing"); ok {
		t.Fatalf("expected no feature under an unknown id")
	}
}

func TestIDDerivedWhenMissing(t *testing.T) {
	feats := []Feature{
		{Geometry: square(0, 0, 1, 1)},
		{Geometry: square(2, 2, 3, 3)},
	}
	idx, err := New(feats, "EPSG:4326", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 features, got %d", idx.Len())
	}
	for _, f := range idx.All() {
		if f.ID == "" {
			t.Fatalf("expected a derived, non-empty id for every feature")
		}
	}
}

func TestBoundsIsRunningUnion(t *testing.T) {
	feats := []Feature{
		{ID: "a", Geometry: square(0, 0, 1, 1)},
		{ID: "b", Geometry: square(5, 5, 6, 6)},
	}
	idx, err := New(feats, "EPSG:4326", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Bounds.Left != 0 || idx.Bounds.Bottom != 0 || idx.Bounds.Right != 6 || idx.Bounds.Top != 6 {
		t.Fatalf("expected running union bounds (0,0,6,6), got %v", idx.Bounds)
	}
}

func containsID(feats []Feature, id string) bool {
	for _, f := range feats {
		if f.ID == id {
			return true
		}
	}
	return false
}

func mustBounds(t *testing.T, l, b, r, top float64) bounds.Bounds {
	t.Helper()
	bb, err := bounds.New(l, b, r, top, false, "")
	if err != nil {
		t.Fatalf("unexpected error building bounds: %v", err)
	}
	return bb
}
