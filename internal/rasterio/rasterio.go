// Package rasterio specifies the three operations the core consumes on
// raster data: ReadWindow, ResampleFromArray and CreateMosaic. Byte-level
// format decoding (GeoTIFF and friends) is explicitly out of scope, so
// this package defines the operations over a Source interface and the
// in-memory Array type; it ships no Source implementation of its own.
// Grounded on
// original_source/modules/tilematrix_io.py's read_raster_window /
// write_raster_window and spec.md §4.6.
package rasterio

import (
	"math"

	"github.com/joeblew999/geopyramid/internal/bounds"
	"github.com/joeblew999/geopyramid/internal/mcerrors"
)

// Resampling selects how pixel values are combined when the source and
// destination grids don't align 1:1.
type Resampling string

const (
	ResamplingNearest Resampling = "nearest"
	ResamplingAverage Resampling = "average"
	ResamplingCubic   Resampling = "cubic"
)

// Array is a single-band masked raster: Data holds the values, Mask[i]
// true means Data[i] is nodata. Width*Height must equal len(Data).
type Array struct {
	Data   []float64
	Mask   []bool
	Width  int
	Height int
}

// NewArray allocates an Array filled with nodata.
func NewArray(width, height int) Array {
	n := width * height
	a := Array{Data: make([]float64, n), Mask: make([]bool, n), Width: width, Height: height}
	for i := range a.Mask {
		a.Mask[i] = true
	}
	return a
}

func (a Array) at(row, col int) (float64, bool) {
	if row < 0 || row >= a.Height || col < 0 || col >= a.Width {
		return 0, true
	}
	i := row*a.Width + col
	return a.Data[i], a.Mask[i]
}

func (a Array) set(row, col int, v float64, masked bool) {
	i := row*a.Width + col
	a.Data[i] = v
	a.Mask[i] = masked
}

// AllMasked reports whether every pixel is nodata — the "empty" tile
// condition a TileTask must detect before writing output.
func (a Array) AllMasked() bool {
	for _, m := range a.Mask {
		if !m {
			return false
		}
	}
	return true
}

// Source is an opened raster dataset: its bounds, CRS and a window read.
type Source interface {
	Bounds() bounds.Bounds
	CRS() string
	// Window returns the single-band pixel data covering b, at the
	// source's native resolution, masked at nodata.
	Window(b bounds.Bounds) (Array, error)
}

// ReadWindow reads the window of src covering target, resamples it to
// target's pixel shape via ResampleFromArray, and returns it aligned to
// target. Mirrors read_raster_window's tilify=true path.
func ReadWindow(src Source, target bounds.Bounds, width, height int, resampling Resampling, nodata float64) (Array, error) {
	if !src.Bounds().Intersects(target) {
		out := NewArray(width, height)
		return out, nil
	}
	in, err := src.Window(target)
	if err != nil {
		return Array{}, &mcerrors.IOError{Path: src.CRS(), Err: err}
	}
	return ResampleFromArray(in, src.Bounds(), target, width, height, resampling, nodata), nil
}

// ResampleFromArray resamples in (covering inBounds) onto a new
// width x height array covering outBounds. nearest picks the closest
// source pixel; average/cubic fall back to an unweighted mean of the 3x3
// source pixels around it (masked pixels skipped), adequate for the up/downsampling factors a tile pyramid produces
// between adjacent zoom levels (never more than 2x per level).
func ResampleFromArray(in Array, inBounds, outBounds bounds.Bounds, width, height int, resampling Resampling, nodata float64) Array {
	out := NewArray(width, height)
	if in.Width == 0 || in.Height == 0 {
		return out
	}

	colSize := outBounds.Width() / float64(width)
	rowSize := outBounds.Height() / float64(height)
	srcColSize := inBounds.Width() / float64(in.Width)
	srcRowSize := inBounds.Height() / float64(in.Height)

	for row := 0; row < height; row++ {
		y := outBounds.Top - (float64(row)+0.5)*rowSize
		srcRow := int((inBounds.Top - y) / srcRowSize)
		for col := 0; col < width; col++ {
			x := outBounds.Left + (float64(col)+0.5)*colSize
			srcCol := int((x - inBounds.Left) / srcColSize)

			switch resampling {
			case ResamplingNearest, "":
				v, masked := in.at(srcRow, srcCol)
				out.set(row, col, v, masked)
			default:
				v, masked := boxAverage(in, srcRow, srcCol)
				out.set(row, col, v, masked)
			}
		}
	}
	return out
}

// boxAverage averages the 3x3 neighborhood around (row, col), skipping
// masked pixels; returns masked if every neighbor is masked.
func boxAverage(in Array, row, col int) (float64, bool) {
	var sum float64
	var n int
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			v, masked := in.at(row+dr, col+dc)
			if masked {
				continue
			}
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, true
	}
	return sum / float64(n), false
}

// MosaicPiece is one tile's array plus the bounds it covers, the input
// create_mosaic expects as its list of (tile, array) pairs.
type MosaicPiece struct {
	Bounds bounds.Bounds
	Array  Array
}

// CreateMosaic lays pieces onto one contiguous array covering their
// combined bounds at a uniform pixel size derived from the first piece,
// filling any gap with nodata. Pieces are expected not to overlap except
// at shared edges, matching the TileTask baselevel-lower mosaic step.
func CreateMosaic(pieces []MosaicPiece, nodata float64) (Array, bounds.Bounds, error) {
	if len(pieces) == 0 {
		return Array{}, bounds.Bounds{}, &mcerrors.ProcessOutputError{TaskID: "create_mosaic"}
	}

	combined := pieces[0].Bounds
	for _, p := range pieces[1:] {
		combined = combined.Union(p.Bounds)
	}

	pxWidth := pieces[0].Bounds.Width() / float64(pieces[0].Array.Width)
	pxHeight := pieces[0].Bounds.Height() / float64(pieces[0].Array.Height)
	width := int(math.Round(combined.Width() / pxWidth))
	height := int(math.Round(combined.Height() / pxHeight))
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	out := NewArray(width, height)
	for _, p := range pieces {
		colOffset := int(math.Round((p.Bounds.Left - combined.Left) / pxWidth))
		rowOffset := int(math.Round((combined.Top - p.Bounds.Top) / pxHeight))
		for r := 0; r < p.Array.Height; r++ {
			for c := 0; c < p.Array.Width; c++ {
				v, masked := p.Array.at(r, c)
				if masked {
					continue
				}
				out.set(rowOffset+r, colOffset+c, v, false)
			}
		}
	}
	return out, combined, nil
}
