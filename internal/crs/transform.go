package crs

import (
	"fmt"
	"sync"

	proj "github.com/michiho/go-proj/v10"
)

// Transformer reprojects coordinates between two CRSes using PROJ. It owns
// a single cgo PJ handle and context; callers must Close it once done.
type Transformer struct {
	ctx *proj.Context
	pj  *proj.PJ
	mu  sync.Mutex
	Src CRS
	Dst CRS
}

// NewTransformer builds a Transformer for src -> dst using PROJ's
// create-crs-to-crs path, then normalizes axis order for visualization
// (lon/lat, easting/northing) so callers never have to special-case
// northing-first CRSes.
func NewTransformer(src, dst CRS) (*Transformer, error) {
	ctx := proj.NewContext()

	pj, err := ctx.CreateCRSToCRS(src.Def(), dst.Def(), nil)
	if err != nil {
		ctx.Destroy()
		return nil, fmt.Errorf("creating transform %s -> %s: %w", src, dst, err)
	}

	norm, err := pj.NormalizeForVisualization()
	if err == nil && norm != nil {
		pj.Destroy()
		pj = norm
	}

	return &Transformer{ctx: ctx, pj: pj, Src: src, Dst: dst}, nil
}

// Close releases the underlying PROJ handles.
func (t *Transformer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pj != nil {
		t.pj.Destroy()
		t.pj = nil
	}
	if t.ctx != nil {
		t.ctx.Destroy()
		t.ctx = nil
	}
}

// Forward transforms a single (x, y) coordinate from Src to Dst.
func (t *Transformer) Forward(x, y float64) (float64, float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out, err := t.pj.Forward(proj.Coord{X: x, Y: y})
	if err != nil {
		return 0, 0, err
	}
	return out.X, out.Y, nil
}

// ForwardMany transforms a slice of (x, y) pairs in place order,
// preserving the input slice's shape.
func (t *Transformer) ForwardMany(coords [][2]float64) ([][2]float64, error) {
	out := make([][2]float64, len(coords))
	for i, c := range coords {
		x, y, err := t.Forward(c[0], c[1])
		if err != nil {
			return nil, fmt.Errorf("transforming point %d: %w", i, err)
		}
		out[i] = [2]float64{x, y}
	}
	return out, nil
}
