// Package bounds implements the Bounds rectangle type: an immutable
// (left, bottom, right, top) tuple with strict-mode validation and
// rectangle-overlap intersection semantics.
package bounds

import (
	"fmt"
	"math"
)

// Bounds is an immutable axis-aligned rectangle with an optional CRS hint.
// Zero value is not valid; construct via New or FromInput.
type Bounds struct {
	Left, Bottom, Right, Top float64
	CRS                      string
}

// Geometric is implemented by anything the rest of the system can derive
// a Bounds from without resorting to duck typing. It replaces the source
// project's __geo_interface__ convention (see DESIGN.md).
type Geometric interface {
	Bounds() (left, bottom, right, top float64)
}

// New constructs a Bounds from four scalars. strict rejects degenerate
// rectangles (left >= right or bottom >= top).
func New(left, bottom, right, top float64, strict bool, crs string) (Bounds, error) {
	for _, v := range []float64{left, bottom, right, top} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Bounds{}, fmt.Errorf("bounds values must be finite: got %v", v)
		}
	}
	if strict {
		if left >= right {
			return Bounds{}, fmt.Errorf("right must be larger than left")
		}
		if bottom >= top {
			return Bounds{}, fmt.Errorf("top must be larger than bottom")
		}
	}
	return Bounds{Left: left, Bottom: bottom, Right: right, Top: top, CRS: crs}, nil
}

// MustNew is New but panics on error; useful for test fixtures and
// compile-time-known rectangles.
func MustNew(left, bottom, right, top float64) Bounds {
	b, err := New(left, bottom, right, top, true, "")
	if err != nil {
		panic(err)
	}
	return b
}

// Width returns right - left.
func (b Bounds) Width() float64 { return b.Right - b.Left }

// Height returns top - bottom.
func (b Bounds) Height() float64 { return b.Top - b.Bottom }

// Slice returns the four components in (left, bottom, right, top) order,
// mirroring the source type's iteration order.
func (b Bounds) Slice() [4]float64 {
	return [4]float64{b.Left, b.Bottom, b.Right, b.Top}
}

// At indexes the four fields by position, 0..3 = left, bottom, right, top.
func (b Bounds) At(i int) (float64, error) {
	switch i {
	case 0:
		return b.Left, nil
	case 1:
		return b.Bottom, nil
	case 2:
		return b.Right, nil
	case 3:
		return b.Top, nil
	default:
		return 0, fmt.Errorf("index %d out of range [0,3]", i)
	}
}

// Equal compares component-wise.
func (b Bounds) Equal(other Bounds) bool {
	return b.Left == other.Left && b.Bottom == other.Bottom &&
		b.Right == other.Right && b.Top == other.Top
}

// Union returns the covering bounds of b and other (the "+" operator in
// the source implementation).
func (b Bounds) Union(other Bounds) Bounds {
	return Bounds{
		Left:   math.Min(b.Left, other.Left),
		Bottom: math.Min(b.Bottom, other.Bottom),
		Right:  math.Max(b.Right, other.Right),
		Top:    math.Max(b.Top, other.Top),
		CRS:    b.CRS,
	}
}

// Intersects reports whether there is any overlap or edge-touch between b
// and other in both axes. This mirrors rectangle-overlap semantics exactly
// (not polygon intersection) per the source implementation.
func (b Bounds) Intersects(other Bounds) bool {
	horizontal := (b.Left <= other.Left && other.Left <= b.Right) ||
		(b.Left <= other.Right && other.Right <= b.Right) ||
		(other.Left <= b.Left && b.Left < b.Right && b.Right <= other.Right) ||
		(b.Left <= other.Left && other.Left < other.Right && other.Right <= b.Right)

	vertical := (b.Bottom <= other.Bottom && other.Bottom <= b.Top) ||
		(b.Bottom <= other.Top && other.Top <= b.Top) ||
		(other.Bottom <= b.Bottom && b.Bottom < b.Top && b.Top <= other.Top) ||
		(b.Bottom <= other.Bottom && other.Bottom < other.Top && other.Top <= b.Top)

	return horizontal && vertical
}

// Ring returns the closed polygon view (LL -> LR -> UR -> UL -> LL) as
// (x, y) coordinate pairs.
func (b Bounds) Ring() [5][2]float64 {
	return [5][2]float64{
		{b.Left, b.Bottom},
		{b.Right, b.Bottom},
		{b.Right, b.Top},
		{b.Left, b.Top},
		{b.Left, b.Bottom},
	}
}

// FromInput is the polymorphic constructor: the only way the rest of the
// system should build a Bounds. It accepts a 4-element slice, a map with
// left/bottom/right/top keys, or anything implementing Geometric.
func FromInput(inp any, strict bool) (Bounds, error) {
	switch v := inp.(type) {
	case Bounds:
		return v, nil
	case [4]float64:
		return New(v[0], v[1], v[2], v[3], strict, "")
	case []float64:
		if len(v) != 4 {
			return Bounds{}, fmt.Errorf("bounds must be initialized with exactly four values, got %d", len(v))
		}
		return New(v[0], v[1], v[2], v[3], strict, "")
	case map[string]float64:
		left, ok1 := v["left"]
		bottom, ok2 := v["bottom"]
		right, ok3 := v["right"]
		top, ok4 := v["top"]
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return Bounds{}, fmt.Errorf("bounds dict must have left/bottom/right/top keys")
		}
		return New(left, bottom, right, top, strict, "")
	case Geometric:
		left, bottom, right, top := v.Bounds()
		return New(left, bottom, right, top, strict, "")
	default:
		return Bounds{}, fmt.Errorf("cannot create Bounds from %T", inp)
	}
}

func (b Bounds) String() string {
	return fmt.Sprintf("<Bounds(left=%v, bottom=%v, right=%v, top=%v)>", b.Left, b.Bottom, b.Right, b.Top)
}
