package vectorio

import (
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/geopyramid/internal/crs"
	"github.com/joeblew999/geopyramid/internal/features"
	"github.com/joeblew999/geopyramid/internal/geometry"
	"github.com/joeblew999/geopyramid/internal/pyramid"
)

// MVTDriver reads and writes a single vector tile layer, grounded on
// gotiler.go's encode path (mvt.NewLayer / mvt.MarshalGzipped). Unlike
// GeoJSON, an MVT tile only makes sense
// relative to one Tile, so a driver instance is scoped to one.
type MVTDriver struct {
	Tile      pyramid.Tile
	LayerName string
}

// NewMVTDriver scopes a driver to tile's bounds, CRS and XYZ address.
func NewMVTDriver(tile pyramid.Tile, layerName string) *MVTDriver {
	return &MVTDriver{Tile: tile, LayerName: layerName}
}

func (d *MVTDriver) Name() string { return "MVT" }

func (d *MVTDriver) maptile() maptile.Tile {
	return maptile.New(uint32(d.Tile.Col), uint32(d.Tile.Row), maptile.Zoom(uint32(d.Tile.Zoom)))
}

// Open decodes a gzipped MVT file and unprojects the named layer's
// tile-pixel coordinates (0..Extent) back to the tile's ground CRS. orb's
// mvt package only documents the encode-direction ProjectToTile, so the
// inverse mapping is done here directly against the layer's own Extent.
func (d *MVTDriver) Open(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	layers, err := mvt.UnmarshalGzipped(data)
	if err != nil {
		return nil, err
	}

	var layer *mvt.Layer
	for _, l := range layers {
		if l.Name == d.LayerName {
			layer = l
			break
		}
	}
	if layer == nil {
		empty, err := features.New(nil, d.Tile.GridCRS(), true)
		if err != nil {
			return nil, err
		}
		return newIndexedSource(empty, d.Tile.CRS()), nil
	}

	tb, err := d.Tile.Bounds()
	if err != nil {
		return nil, err
	}
	extent := float64(layer.Extent)
	if extent == 0 {
		extent = 4096
	}
	unproject := func(p orb.Point) orb.Point {
		lon := tb.Left + (p[0]/extent)*tb.Width()
		lat := tb.Top - (p[1]/extent)*tb.Height()
		return orb.Point{lon, lat}
	}

	feats := make([]features.Feature, 0, len(layer.Features))
	for _, f := range layer.Features {
		id := ""
		if s, ok := f.ID.(string); ok {
			id = s
		}
		feats = append(feats, features.Feature{
			ID:         id,
			Geometry:   geometry.MapCoordinates(f.Geometry, unproject),
			Properties: map[string]any(f.Properties),
		})
	}
	idx, err := features.New(feats, d.Tile.GridCRS(), true)
	if err != nil {
		return nil, err
	}
	return newIndexedSource(idx, d.Tile.CRS()), nil
}

// Create maps feats (in the tile's CRS) linearly onto the layer's
// 0..Extent pixel grid over the tile's bounds, the inverse of Open's
// unprojection, and encodes them as a single-layer gzipped MVT tile.
func (d *MVTDriver) Create(path string, feats []features.Feature, crsOut crs.CRS) error {
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

	layer := mvt.NewLayer(d.LayerName, fc)
	tb, err := d.Tile.Bounds()
	if err != nil {
		return err
	}
	extent := float64(layer.Extent)
	project := func(p orb.Point) orb.Point {
		return orb.Point{(p[0] - tb.Left) / tb.Width() * extent, (tb.Top - p[1]) / tb.Height() * extent}
	}
	for _, f := range layer.Features {
		f.Geometry = geometry.MapCoordinates(f.Geometry, project)
	}
	layer.RemoveEmpty(0.5, 0.5)

	data, err := mvt.MarshalGzipped(mvt.Layers{layer})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var _ Driver = (*MVTDriver)(nil)
