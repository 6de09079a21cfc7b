// Package vectorio implements ReadVectorWindow, WriteVectorWindow and
// ConvertVector: the vector-data read/write/convert surface TileTask
// process functions use, grounded on
// mapchete/io/vector/{read,write,convert}.py. Format support is driven by
// a small Driver interface so GeoJSON (orb/geojson) and MVT
// (orb/encoding/mvt, one driver per tile) share one read/write/convert
// path.
package vectorio

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/joeblew999/geopyramid/internal/bounds"
	"github.com/joeblew999/geopyramid/internal/crs"
	"github.com/joeblew999/geopyramid/internal/features"
	"github.com/joeblew999/geopyramid/internal/geometry"
	"github.com/joeblew999/geopyramid/internal/mcerrors"
	"github.com/joeblew999/geopyramid/internal/retrypolicy"
)

// GridLike is the minimal surface ReadVectorWindow needs from a query
// window: its bounds and CRS. Both grid.Grid and pyramid.Tile implement it.
type GridLike interface {
	GridBounds() bounds.Bounds
	GridCRS() string
}

// Source is an opened vector dataset: its CRS and a bbox filter, mirroring
// fiona.Collection's role in reprojected_features.
type Source interface {
	CRS() crs.CRS
	Filter(bbox orb.Bound) []features.Feature
}

// Driver opens a path for reading and opens a path for writing in one
// format (GeoJSON, MVT, ...).
type Driver interface {
	Name() string
	Open(path string) (Source, error)
	Create(path string, feats []features.Feature, crsOut crs.CRS) error
}

// ReadOptions configures ReadVectorWindow, mirroring
// read_vector_window's keyword arguments.
type ReadOptions struct {
	ValidityCheck    bool
	ClipToCRSBounds  bool
	SkipMissingFiles bool
	PyramidIsGlobal  bool
	PyramidBounds    orb.Bound
	Retry            retrypolicy.IORetrySettings
	Logger           *logrus.Entry
}

// DefaultReadOptions matches read_vector_window's defaults.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{ValidityCheck: true, Retry: retrypolicy.Default()}
}

// ReadVectorWindow reads every path through driver, clips and reprojects
// the result into g's CRS, and concatenates all features. Reading and
// reprojecting each path is retried per opts.Retry; a missing file is
// skipped rather than failing the whole read when SkipMissingFiles is set.
func ReadVectorWindow(ctx context.Context, paths []string, driver Driver, g GridLike, opts ReadOptions) ([]features.Feature, error) {
	var out []features.Feature
	for _, path := range paths {
		feats, err := readOnePath(ctx, path, driver, g, opts)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && opts.SkipMissingFiles {
				if opts.Logger != nil {
					opts.Logger.WithField("path", path).Debug("skip missing file")
				}
				continue
			}
			return nil, err
		}
		out = append(out, feats...)
	}
	return out, nil
}

func readOnePath(ctx context.Context, path string, driver Driver, g GridLike, opts ReadOptions) ([]features.Feature, error) {
	var result []features.Feature
	err := retrypolicy.Do(ctx, opts.Retry, func() error {
		src, err := driver.Open(path)
		if err != nil {
			return &mcerrors.IOError{Path: path, Err: err}
		}
		result, err = reprojectedFeatures(src, g, opts)
		return err
	})
	return result, err
}

// queryAcrossAntimeridian filters src once per part of dstBbox. A query
// window that crosses the antimeridian reprojects into a MultiPolygon with
// one part either side of the date line (geometry.ReprojectGeometry's
// antimeridian cut); its overall Bound spans the whole width between the
// two parts, so a single Filter call there would over-fetch. Any other
// geometry keeps the original single-query behavior.
func queryAcrossAntimeridian(src Source, dstBbox orb.Geometry) []features.Feature {
	mp, ok := dstBbox.(orb.MultiPolygon)
	if !ok {
		return src.Filter(dstBbox.Bound())
	}
	var out []features.Feature
	for _, part := range mp {
		out = append(out, src.Filter(part.Bound())...)
	}
	return out
}

// reprojectedFeatures is the Go port of reprojected_features: reproject
// the query window into the source CRS, filter the source by that bbox,
// then repair/clip/filter-by-type/reproject each matching feature back
// into g's CRS.
func reprojectedFeatures(src Source, g GridLike, opts ReadOptions) ([]features.Feature, error) {
	gridCRS, err := crs.FromUserInput(g.GridCRS())
	if err != nil {
		return nil, err
	}
	gb := g.GridBounds()
	queryBound := orb.Bound{Min: orb.Point{gb.Left, gb.Bottom}, Max: orb.Point{gb.Right, gb.Top}}

	var dstBbox orb.Geometry = boundPolygon(queryBound)
	if !src.CRS().Equal(gridCRS) {
		dstBbox, err = geometry.ReprojectGeometry(dstBbox, gridCRS, src.CRS(), geometry.DefaultOptions())
		if err != nil {
			return nil, err
		}
	}

	var out []features.Feature
	seen := map[string]bool{}
	for _, feat := range queryAcrossAntimeridian(src, dstBbox) {
		if feat.ID != "" {
			if seen[feat.ID] {
				continue
			}
			seen[feat.ID] = true
		}

		originalGeom, err := geometry.Repair(feat.Geometry, true)
		if err != nil {
			continue
		}

		clipped := geometry.ClipToBounds(originalGeom, dstBbox.Bound())
		family, err := geometry.FamilyOf(originalGeom)
		if err != nil {
			continue
		}
		singlepart, ok := geometry.SinglepartCognate(family)
		if !ok {
			singlepart = family
		}
		parts, err := geometry.FilterByGeometryType(clipped, singlepart, false)
		if err != nil {
			continue
		}

		for _, part := range parts {
			reprojected, err := geometry.ReprojectGeometry(part, src.CRS(), gridCRS, geometry.Options{
				ValidityCheck:   opts.ValidityCheck,
				ClipToCRSBounds: false,
			})
			if err != nil {
				continue
			}
			if isEmpty(reprojected) {
				continue
			}
			out = append(out, features.Feature{ID: feat.ID, Geometry: reprojected, Properties: feat.Properties})
		}
	}
	return out, nil
}

func boundPolygon(b orb.Bound) orb.Polygon {
	return orb.Polygon{orb.Ring{b.Min, orb.Point{b.Max[0], b.Min[1]}, b.Max, orb.Point{b.Min[0], b.Max[1]}, b.Min}}
}

func isEmpty(g orb.Geometry) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return len(geom) == 0
	case orb.MultiPolygon:
		return len(geom) == 0
	case orb.LineString:
		return len(geom) == 0
	case orb.MultiLineString:
		return len(geom) == 0
	default:
		return g == nil
	}
}

// WriteVectorWindow clips each feature's geometry to outBounds, filters it
// down to targetType, and hands the surviving features to driver.Create.
// Mirrors write_vector_window.
func WriteVectorWindow(feats []features.Feature, outBounds bounds.Bounds, targetType geometry.Family, allowMultipart bool, driver Driver, outPath string, crsOut crs.CRS) error {
	ob := orb.Bound{Min: orb.Point{outBounds.Left, outBounds.Bottom}, Max: orb.Point{outBounds.Right, outBounds.Top}}

	var outFeatures []features.Feature
	for _, feat := range feats {
		clipped := geometry.ClipToBounds(feat.Geometry, ob)
		parts, err := geometry.FilterByGeometryType(clipped, targetType, allowMultipart)
		if err != nil {
			continue
		}
		for _, part := range parts {
			if isEmpty(part) {
				continue
			}
			outFeatures = append(outFeatures, features.Feature{ID: feat.ID, Geometry: part, Properties: feat.Properties})
		}
	}

	if len(outFeatures) == 0 {
		return nil
	}
	return driver.Create(outPath, outFeatures, crsOut)
}

// indexedSource adapts a features.IndexedFeatures (and its CRS) to the
// Source interface, letting any format driver build its Source from the
// same in-memory store.
type indexedSource struct {
	idx      *features.IndexedFeatures
	crsValue crs.CRS
}

func newIndexedSource(idx *features.IndexedFeatures, crsValue crs.CRS) *indexedSource {
	return &indexedSource{idx: idx, crsValue: crsValue}
}

func (s *indexedSource) CRS() crs.CRS { return s.crsValue }

func (s *indexedSource) Filter(bbox orb.Bound) []features.Feature {
	b, err := bounds.New(bbox.Min[0], bbox.Min[1], bbox.Max[0], bbox.Max[1], false, s.crsValue.Def())
	if err != nil {
		return nil
	}
	return s.idx.Filter(b)
}

// ConvertVector copies or transcodes inPath to outPath. When inDriver and
// outDriver are the same format this is a byte copy; otherwise every
// feature is read from inDriver and re-encoded via outDriver.
func ConvertVector(inPath, outPath string, inDriver, outDriver Driver, overwrite, existsOk bool) error {
	if _, err := os.Stat(outPath); err == nil {
		if !existsOk {
			return fmt.Errorf("%s already exists", outPath)
		}
		if !overwrite {
			return nil
		}
	}

	if inDriver.Name() == outDriver.Name() {
		data, err := os.ReadFile(inPath)
		if err != nil {
			return &mcerrors.IOError{Path: inPath, Err: err}
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return &mcerrors.IOError{Path: outPath, Err: err}
		}
		return nil
	}

	src, err := inDriver.Open(inPath)
	if err != nil {
		return &mcerrors.IOError{Path: inPath, Err: err}
	}
	all := src.Filter(orb.Bound{Min: orb.Point{-1e18, -1e18}, Max: orb.Point{1e18, 1e18}})
	return outDriver.Create(outPath, all, src.CRS())
}
