// Package pyramid provides one concrete TilePyramid implementation
// (geodetic and mercator grids) for the core to run its scheduler,
// executor and geometry tests against. spec.md treats TilePyramid as an
// external collaborator; CORE callers only ever see the small surface
// (TilesFromBounds, Intersecting, GetParent, GetChildren, PixelXSize)
// that this package happens to implement concretely.
package pyramid

import (
	"fmt"
	"math"

	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/geopyramid/internal/bounds"
	"github.com/joeblew999/geopyramid/internal/crs"
)

// GridType selects the tiling scheme.
type GridType string

const (
	Geodetic GridType = "geodetic"
	Mercator GridType = "mercator"
)

// TilePyramid describes a family of tilings where each zoom level
// subdivides the previous by 2x in each axis.
type TilePyramid struct {
	Grid        GridType
	Metatiling  int
	TileSizePx  int // pixels per tile edge before metatiling, default 256
	Pixelbuffer int
}

// New builds a TilePyramid. metatiling must be >= 1.
func New(grid GridType, metatiling int) (*TilePyramid, error) {
	if metatiling < 1 {
		return nil, fmt.Errorf("metatiling must be >= 1, got %d", metatiling)
	}
	return &TilePyramid{Grid: grid, Metatiling: metatiling, TileSizePx: 256}, nil
}

// CRS returns the pyramid's coordinate reference system.
func (p *TilePyramid) CRS() crs.CRS {
	if p.Grid == Mercator {
		return crs.FromEPSG(3857)
	}
	return crs.LatLon
}

// Bounds returns the pyramid's full extent, the default process region
// when a run's config gives no explicit bounds.
func (p *TilePyramid) Bounds() bounds.Bounds {
	return p.fullBounds()
}

// fullBounds returns the pyramid's full extent in its own CRS.
func (p *TilePyramid) fullBounds() bounds.Bounds {
	if p.Grid == Mercator {
		const webMercatorExtent = 20037508.342789244
		return bounds.MustNew(-webMercatorExtent, -webMercatorExtent, webMercatorExtent, webMercatorExtent)
	}
	return bounds.MustNew(-180, -90, 180, 90)
}

// gridTilesPerZoom returns the base (non-metatiled) tile grid dimensions
// at zoom: geodetic grids are 2 wide x 1 tall at zoom 0 (wetiles =
// 2^(zoom+1), nstiles = 2^zoom); mercator grids are 1x1 at zoom 0.
func (p *TilePyramid) gridTilesPerZoom(zoom int) (cols, rows int) {
	if p.Grid == Geodetic {
		return int(math.Pow(2, float64(zoom+1))), int(math.Pow(2, float64(zoom)))
	}
	n := int(math.Pow(2, float64(zoom)))
	return n, n
}

// TilesPerZoom returns the metatile grid dimensions at zoom.
func (p *TilePyramid) TilesPerZoom(zoom int) (cols, rows int) {
	baseCols, baseRows := p.gridTilesPerZoom(zoom)
	cols = int(math.Ceil(float64(baseCols) / float64(p.Metatiling)))
	rows = int(math.Ceil(float64(baseRows) / float64(p.Metatiling)))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

// TileSize returns a metatile's size in CRS coordinate units at zoom.
func (p *TilePyramid) TileSize(zoom int) (width, height float64) {
	fb := p.fullBounds()
	baseCols, baseRows := p.gridTilesPerZoom(zoom)
	width = fb.Width() / float64(baseCols) * float64(p.Metatiling)
	height = fb.Height() / float64(baseRows) * float64(p.Metatiling)
	if width > fb.Width() {
		width = fb.Width()
	}
	if height > fb.Height() {
		height = fb.Height()
	}
	return width, height
}

// PixelXSize returns the ground size of one pixel at zoom (the per-base-tile
// pixel size, unaffected by metatiling, matching pixelsize() upstream).
func (p *TilePyramid) PixelXSize(zoom int) float64 {
	fb := p.fullBounds()
	baseCols, _ := p.gridTilesPerZoom(zoom)
	tileWidth := fb.Width() / float64(baseCols)
	return tileWidth / float64(p.TileSizePx)
}

// TopLeftTileCoords returns the upper-left corner of tile (zoom, row, col)
// in CRS coordinates.
func (p *TilePyramid) TopLeftTileCoords(zoom, row, col int) (left, top float64, err error) {
	cols, rows := p.TilesPerZoom(zoom)
	if col >= cols || row >= rows || col < 0 || row < 0 {
		return 0, 0, fmt.Errorf("no tile indices available at zoom %d: row=%d col=%d (grid is %dx%d)", zoom, row, col, rows, cols)
	}
	w, h := p.TileSize(zoom)
	fb := p.fullBounds()
	left = fb.Left + float64(col)*w
	top = fb.Top - float64(row)*h
	return left, top, nil
}

// TileBounds returns the bounds of tile (zoom, row, col), optionally
// expanded by pixelbuffer pixels and clipped to the pyramid's own extent.
func (p *TilePyramid) TileBounds(zoom, row, col, pixelbuffer int) (bounds.Bounds, error) {
	w, h := p.TileSize(zoom)
	left, top, err := p.TopLeftTileCoords(zoom, row, col)
	if err != nil {
		return bounds.Bounds{}, err
	}
	right := left + w
	bottom := top - h

	if pixelbuffer > 0 {
		offset := p.PixelXSize(zoom) * float64(pixelbuffer)
		left -= offset
		bottom -= offset
		right += offset
		top += offset
	}

	fb := p.fullBounds()
	if right > fb.Right {
		right = fb.Right
	}
	if bottom < fb.Bottom {
		bottom = fb.Bottom
	}
	if left < fb.Left {
		left = fb.Left
	}
	if top > fb.Top {
		top = fb.Top
	}
	return bounds.New(left, bottom, right, top, false, p.CRS().Def())
}

// TilesFromBounds returns every tile at zoom whose bounds intersect bbox.
func (p *TilePyramid) TilesFromBounds(bbox bounds.Bounds, zoom int) ([]Tile, error) {
	cols, rows := p.TilesPerZoom(zoom)
	var out []Tile
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			tb, err := p.TileBounds(zoom, row, col, 0)
			if err != nil {
				return nil, err
			}
			if tb.Intersects(bbox) {
				out = append(out, Tile{Pyramid: p, Zoom: zoom, Row: row, Col: col})
			}
		}
	}
	return out, nil
}

// webMercatorTile converts a Tile on a Mercator pyramid to its orb
// maptile.Tile equivalent (XYZ addressing), useful for MVT/PMTiles output.
func (p *TilePyramid) webMercatorTile(t Tile) maptile.Tile {
	return maptile.New(uint32(t.Col), uint32(t.Row), maptile.Zoom(uint32(t.Zoom)))
}
