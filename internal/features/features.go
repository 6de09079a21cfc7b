// Package features implements IndexedFeatures: an id-keyed, bounds-
// filterable feature store. The source project uses an rtree index when
// available and falls back to a linear scan; spec.md explicitly allows
// either, so this package only implements the linear-scan FakeIndex —
// the fallback is the spec's own default, not an avoided dependency
// (see DESIGN.md).
package features

import (
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/joeblew999/geopyramid/internal/bounds"
	"github.com/joeblew999/geopyramid/internal/mcerrors"
)

// Feature is a GeoJSON-like feature: geometry plus properties plus an
// optional id.
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Properties map[string]any
}

// HasGeometry reports whether the feature carries a geometry.
func (f Feature) HasGeometry() bool { return f.Geometry != nil }

// entry is what FakeIndex stores: an id and its precomputed bounds.
type entry struct {
	id     string
	bounds bounds.Bounds
}

// FakeIndex is a linear-scan spatial index: insert(id, bounds) /
// intersection(bounds) with no external dependency, matching the source
// project's own fallback when rtree is unavailable.
type FakeIndex struct {
	items []entry
}

// Insert records id at bounds.
func (f *FakeIndex) Insert(id string, b bounds.Bounds) {
	f.items = append(f.items, entry{id: id, bounds: b})
}

// Intersection returns every id whose stored bounds intersects b.
func (f *FakeIndex) Intersection(b bounds.Bounds) []string {
	var out []string
	for _, e := range f.items {
		if e.bounds.Intersects(b) {
			out = append(out, e.id)
		}
	}
	return out
}

// IndexedFeatures is a spatially indexed, id-keyed feature collection.
// Features without geometry are permitted when allowNonGeo is set; they
// are broadcast (returned by every Filter call) rather than dropped —
// preserved from the source project's behavior even though its intent is
// flagged there as an open review point (see DESIGN.md open questions).
type IndexedFeatures struct {
	index       *FakeIndex
	items       map[string]Feature
	nonGeoItems map[string]struct{}
	CRS         string
	Bounds      bounds.Bounds
	hasBounds   bool
}

// New builds an IndexedFeatures from a slice of features. Each feature
// must carry an ID; features without one have their geometry (or, as a
// last resort, their properties) hashed to derive one.
func New(feats []Feature, crs string, allowNonGeo bool) (*IndexedFeatures, error) {
	idx := &IndexedFeatures{
		index:       &FakeIndex{},
		items:       make(map[string]Feature, len(feats)),
		nonGeoItems: make(map[string]struct{}),
		CRS:         crs,
	}
	for _, f := range feats {
		id := f.ID
		if id == "" {
			derived, err := deriveID(f)
			if err != nil {
				return nil, err
			}
			id = derived
			f.ID = id
		}
		idx.items[id] = f

		if !f.HasGeometry() {
			if !allowNonGeo {
				return nil, &mcerrors.NoGeoError{Source: fmt.Sprintf("feature %q", id)}
			}
			idx.nonGeoItems[id] = struct{}{}
			continue
		}

		b := f.Geometry.Bound()
		fb, err := bounds.New(b.Min[0], b.Min[1], b.Max[0], b.Max[1], false, crs)
		if err != nil {
			return nil, err
		}
		idx.index.Insert(id, fb)
		if idx.hasBounds {
			idx.Bounds = idx.Bounds.Union(fb)
		} else {
			idx.Bounds = fb
			idx.hasBounds = true
		}
	}
	return idx, nil
}

func deriveID(f Feature) (string, error) {
	h := fnv.New64a()
	if f.Geometry != nil {
		fmt.Fprintf(h, "%v", f.Geometry)
	} else if len(f.Properties) > 0 {
		fmt.Fprintf(h, "%v", f.Properties)
	} else {
		return "", fmt.Errorf("features need to have an id or have to be hashable")
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}

// Len returns the number of stored features.
func (idx *IndexedFeatures) Len() int { return len(idx.items) }

// Get returns the feature stored under id.
func (idx *IndexedFeatures) Get(id string) (Feature, bool) {
	f, ok := idx.items[id]
	return f, ok
}

// All returns every stored feature, in unspecified order.
func (idx *IndexedFeatures) All() []Feature {
	out := make([]Feature, 0, len(idx.items))
	for _, f := range idx.items {
		out = append(out, f)
	}
	return out
}

// Filter returns every feature whose bounds intersects b, plus every
// non-geo feature (broadcast).
func (idx *IndexedFeatures) Filter(b bounds.Bounds) []Feature {
	ids := idx.index.Intersection(b)
	out := make([]Feature, 0, len(ids)+len(idx.nonGeoItems))
	for _, id := range ids {
		out = append(out, idx.items[id])
	}
	for id := range idx.nonGeoItems {
		out = append(out, idx.items[id])
	}
	return out
}
