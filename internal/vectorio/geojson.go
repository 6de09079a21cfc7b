package vectorio

import (
	"os"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geopyramid/internal/crs"
	"github.com/joeblew999/geopyramid/internal/features"
)

// GeoJSONDriver reads and writes GeoJSON FeatureCollections via
// orb/geojson, the format read_vector_window and write_vector_window
// default to (out_driver="GeoJSON").
type GeoJSONDriver struct {
	// CRS is assumed for files that don't embed one (GeoJSON is
	// conventionally always EPSG:4326).
	CRS crs.CRS
}

// NewGeoJSONDriver builds a GeoJSONDriver defaulting to lat/lon.
func NewGeoJSONDriver() *GeoJSONDriver {
	return &GeoJSONDriver{CRS: crs.LatLon}
}

func (d *GeoJSONDriver) Name() string { return "GeoJSON" }

// Open reads path into an in-memory indexed feature store.
func (d *GeoJSONDriver) Open(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	feats := make([]features.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		id := ""
		if s, ok := f.ID.(string); ok {
			id = s
		}
		feats = append(feats, features.Feature{ID: id, Geometry: f.Geometry, Properties: map[string]any(f.Properties)})
	}
	idx, err := features.New(feats, d.CRS.Def(), true)
	if err != nil {
		return nil, err
	}
	return newIndexedSource(idx, d.CRS), nil
}

// Create writes feats to path as a GeoJSON FeatureCollection.
func (d *GeoJSONDriver) Create(path string, feats []features.Feature, crsOut crs.CRS) error {
	fc := geojson.NewFeatureCollection()
	for _, f := range feats {
		gf := geojson.NewFeature(f.Geometry)
		if f.ID != "" {
			gf.ID = f.ID
		}
		for k, v := range f.Properties {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var _ Driver = (*GeoJSONDriver)(nil)
