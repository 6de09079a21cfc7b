// Package grid implements the affine-aligned raster window abstraction
// used to snap arbitrary sub-bounds outward to a parent pixel grid.
package grid

import (
	"math"

	"github.com/joeblew999/geopyramid/internal/bounds"
)

// Grid is an affine-aligned raster window over a Bounds rectangle.
type Grid struct {
	Bounds        bounds.Bounds
	Height, Width int
	CRS           string
	PixelX        float64 // pixel width in coordinate units
	PixelY        float64 // pixel height in coordinate units
}

// FromBounds builds a Grid whose pixel size is derived from the bounds'
// extent divided by the given shape.
func FromBounds(b bounds.Bounds, height, width int, crs string) Grid {
	return Grid{
		Bounds: b,
		Height: height,
		Width:  width,
		CRS:    crs,
		PixelX: b.Width() / float64(width),
		PixelY: b.Height() / float64(height),
	}
}

// Extract returns a Grid snapped outward to the parent's pixel grid: it
// never produces a finer resolution than the parent. The snapped bounds
// are clipped to the parent's own bounds. If either resulting dimension
// would be zero, a 1x1 grid covering the nearest pixel is returned instead
// so that sub-pixel queries still yield a valid grid.
func (g Grid) Extract(sub bounds.Bounds) Grid {
	left := snapDown(sub.Left, g.Bounds.Left, g.PixelX)
	bottom := snapDown(sub.Bottom, g.Bounds.Bottom, g.PixelY)
	right := snapUp(sub.Right, g.Bounds.Left, g.PixelX)
	top := snapUp(sub.Top, g.Bounds.Bottom, g.PixelY)

	left = math.Max(left, g.Bounds.Left)
	bottom = math.Max(bottom, g.Bounds.Bottom)
	right = math.Min(right, g.Bounds.Right)
	top = math.Min(top, g.Bounds.Top)

	width := int(math.Round((right - left) / g.PixelX))
	height := int(math.Round((top - bottom) / g.PixelY))

	if width <= 0 || height <= 0 {
		// Snap to the single nearest pixel so the query still yields a
		// valid 1x1 grid (see test_extract in the original suite).
		col := math.Floor((sub.Left - g.Bounds.Left) / g.PixelX)
		row := math.Floor((g.Bounds.Top - sub.Top) / g.PixelY)
		left = g.Bounds.Left + col*g.PixelX
		bottom = g.Bounds.Top - (row+1)*g.PixelY
		right = left + g.PixelX
		top = bottom + g.PixelY
		width, height = 1, 1
	}

	nb, err := bounds.New(left, bottom, right, top, false, g.CRS)
	if err != nil {
		// unreachable: snapped values are always finite and ordered.
		nb = bounds.Bounds{Left: left, Bottom: bottom, Right: right, Top: top, CRS: g.CRS}
	}

	return Grid{
		Bounds: nb,
		Height: height,
		Width:  width,
		CRS:    g.CRS,
		PixelX: g.PixelX,
		PixelY: g.PixelY,
	}
}

// GridBounds implements vectorio.GridLike.
func (g Grid) GridBounds() bounds.Bounds { return g.Bounds }

// GridCRS implements vectorio.GridLike.
func (g Grid) GridCRS() string { return g.CRS }

// snapDown rounds v down to the nearest grid line at spacing step starting
// from origin.
func snapDown(v, origin, step float64) float64 {
	n := math.Floor((v - origin) / step)
	return origin + n*step
}

// snapUp rounds v up to the nearest grid line at spacing step starting
// from origin.
func snapUp(v, origin, step float64) float64 {
	n := math.Ceil((v - origin) / step)
	return origin + n*step
}
