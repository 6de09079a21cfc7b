package pyramid

import (
	"strconv"

	"github.com/joeblew999/geopyramid/internal/bounds"
	"github.com/joeblew999/geopyramid/internal/crs"
)

// Tile identifies a rectangular element of a TilePyramid by
// (zoom, row, col). Two tiles are equal iff all three components and
// their pyramid identities match; pyramid identity here is pointer
// identity, since a *TilePyramid is constructed once per configured
// process/output grid (see REDESIGN FLAGS: tiles hold value identifiers,
// not back-references, and relate to one another only through the
// pyramid's own functions).
type Tile struct {
	Pyramid     *TilePyramid
	Zoom        int
	Row         int
	Col         int
	Pixelbuffer int
}

// Equal reports whether t and other refer to the same tile on the same
// pyramid.
func (t Tile) Equal(other Tile) bool {
	return t.Pyramid == other.Pyramid && t.Zoom == other.Zoom && t.Row == other.Row && t.Col == other.Col
}

// Bounds returns the tile's bounds, including its pixelbuffer.
func (t Tile) Bounds() (bounds.Bounds, error) {
	return t.Pyramid.TileBounds(t.Zoom, t.Row, t.Col, t.Pixelbuffer)
}

// CRS returns the tile's pyramid's CRS.
func (t Tile) CRS() crs.CRS {
	return t.Pyramid.CRS()
}

// PixelSize returns the tile's ground pixel size.
func (t Tile) PixelSize() float64 {
	return t.Pyramid.PixelXSize(t.Zoom)
}

// WidthHeight returns the tile's raster shape in pixels: TileSizePx times
// Metatiling, plus Pixelbuffer pixels on each side.
func (t Tile) WidthHeight() (width, height int) {
	px := t.Pyramid.TileSizePx*t.Pyramid.Metatiling + 2*t.Pixelbuffer
	return px, px
}

// TouchesPyramidEdge reports whether the tile's unbuffered bounds touch
// the pyramid's own extent, the condition under which antimeridian
// handling in vector reads must split the query bbox (spec.md §4.5 step 1).
func (t Tile) TouchesPyramidEdge() bool {
	b, err := t.Pyramid.TileBounds(t.Zoom, t.Row, t.Col, 0)
	if err != nil {
		return false
	}
	fb := t.Pyramid.fullBounds()
	return b.Left == fb.Left || b.Right == fb.Right || b.Bottom == fb.Bottom || b.Top == fb.Top
}

// GetParent returns the tile one zoom level up whose bounds contain t,
// or ok=false at zoom 0.
func (t Tile) GetParent() (parent Tile, ok bool) {
	if t.Zoom <= 0 {
		return Tile{}, false
	}
	return Tile{Pyramid: t.Pyramid, Zoom: t.Zoom - 1, Row: t.Row / 2, Col: t.Col / 2}, true
}

// GetChildren returns the (up to four) tiles one zoom level down whose
// union covers t.
func (t Tile) GetChildren() []Tile {
	cols, rows := t.Pyramid.TilesPerZoom(t.Zoom + 1)
	var out []Tile
	for dr := 0; dr < 2; dr++ {
		for dc := 0; dc < 2; dc++ {
			row, col := t.Row*2+dr, t.Col*2+dc
			if row < rows && col < cols {
				out = append(out, Tile{Pyramid: t.Pyramid, Zoom: t.Zoom + 1, Row: row, Col: col})
			}
		}
	}
	return out
}

// IsChildOf reports whether t is among other's GetChildren() (the
// baselevel-lower dependency rule TileTaskBatch.intersection uses).
func (t Tile) IsChildOf(other Tile) bool {
	if t.Zoom != other.Zoom+1 {
		return false
	}
	return t.Row/2 == other.Row && t.Col/2 == other.Col
}

// Intersecting returns the tiles at targetZoom that spatially relate to
// t: children when targetZoom == t.Zoom+1, the parent when targetZoom ==
// t.Zoom-1, otherwise every tile on targetZoom whose bounds overlap t's.
func (t Tile) Intersecting(targetZoom int) ([]Tile, error) {
	if targetZoom == t.Zoom+1 {
		return t.GetChildren(), nil
	}
	if targetZoom == t.Zoom-1 {
		if parent, ok := t.GetParent(); ok {
			return []Tile{parent}, nil
		}
		return nil, nil
	}
	tb, err := t.Bounds()
	if err != nil {
		return nil, err
	}
	return t.Pyramid.TilesFromBounds(tb, targetZoom)
}

// GridBounds implements vectorio.GridLike, ignoring the (unreachable in
// practice) tile-index error since t is always constructed against a
// valid pyramid.
func (t Tile) GridBounds() bounds.Bounds {
	b, _ := t.Bounds()
	return b
}

// GridCRS implements vectorio.GridLike.
func (t Tile) GridCRS() string { return t.CRS().Def() }

// ID returns the stable identifier tile_task_{zoom}-{row}-{col} used as
// a TileTask id (spec.md §3).
func (t Tile) ID() string {
	return idString(t.Zoom, t.Row, t.Col)
}

func idString(zoom, row, col int) string {
	return "tile_task_" + strconv.Itoa(zoom) + "-" + strconv.Itoa(row) + "-" + strconv.Itoa(col)
}
