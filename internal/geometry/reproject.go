package geometry

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/joeblew999/geopyramid/internal/crs"
	"github.com/joeblew999/geopyramid/internal/mcerrors"
)

// Options configures ReprojectGeometry. The zero value differs from
// DefaultOptions() in ClipToCRSBounds, ValidityCheck and RetryWithClip
// (true there) and SegmentizeFraction (100 there); callers should use
// DefaultOptions().
type Options struct {
	ClipToCRSBounds     bool
	ErrorOnClip         bool
	SegmentizeOnClip    bool
	Segmentize          bool
	SegmentizeFraction  float64
	ValidityCheck       bool
	AntimeridianCutting bool
	RetryWithClip       bool
}

// DefaultOptions mirrors mapchete.geometry.reproject.reproject_geometry's
// keyword defaults.
func DefaultOptions() Options {
	return Options{
		ClipToCRSBounds:    true,
		SegmentizeFraction: 100.0,
		ValidityCheck:      true,
		RetryWithClip:      true,
	}
}

// Reprojector is the capability BufferAntimeridianSafe and other helpers
// depend on, so they can be exercised against a fake in tests without
// requiring a live PROJ context.
type Reprojector interface {
	Reproject(g orb.Geometry, src, dst crs.CRS, opts Options) (orb.Geometry, error)
}

// Engine is the default Reprojector, backed by PROJ via internal/crs.
type Engine struct{}

var _ Reprojector = Engine{}

// Reproject implements Reprojector.
func (Engine) Reproject(g orb.Geometry, src, dst crs.CRS, opts Options) (orb.Geometry, error) {
	return ReprojectGeometry(g, src, dst, opts)
}

// ReprojectGeometry is the geometry engine's centerpiece: it validates
// src/dst, clips through an intermediate lat/lon step when the
// destination CRS has known bounds, and retries once with clipping on a
// direct-transform failure. The result is repaired when src equals dst,
// when g is empty, or when opts.ValidityCheck is set.
func ReprojectGeometry(g orb.Geometry, src, dst crs.CRS, opts Options) (orb.Geometry, error) {
	if src.Equal(dst) || isEmpty(g) {
		return Repair(g, true)
	}

	var crsBounds *orb.Bound
	if opts.ClipToCRSBounds && !dst.IsLatLon() {
		if b, err := crs.Bounds(dst); err == nil {
			bound := orb.Bound{Min: orb.Point{b.Left, b.Bottom}, Max: orb.Point{b.Right, b.Top}}
			crsBounds = &bound
		}
	}

	if crsBounds != nil {
		latlon, err := transformDirect(g, src, crs.LatLon, opts.AntimeridianCutting, opts.ValidityCheck)
		if err != nil {
			return nil, &mcerrors.ReprojectionFailed{Src: src.String(), Dst: dst.String(), Cause: err}
		}

		if opts.ErrorOnClip && !within(latlon, *crsBounds) {
			return nil, &mcerrors.OutsideCRSBounds{CRS: dst.String()}
		}

		clipped := ClipToBounds(latlon, *crsBounds)

		if opts.SegmentizeOnClip || opts.Segmentize {
			if seg := GetSegmentizeValue(clipped, opts.SegmentizeFraction); seg > 0 {
				if s, err := SegmentizeGeometry(clipped, seg); err == nil {
					clipped = s
				}
			}
		}

		return transformDirect(clipped, crs.LatLon, dst, opts.AntimeridianCutting, opts.ValidityCheck)
	}

	geomToTransform := g
	if opts.Segmentize {
		if seg := GetSegmentizeValue(g, opts.SegmentizeFraction); seg > 0 {
			if s, err := SegmentizeGeometry(g, seg); err == nil {
				geomToTransform = s
			}
		}
	}

	out, err := transformDirect(geomToTransform, src, dst, opts.AntimeridianCutting, opts.ValidityCheck)
	if err == nil {
		return out, nil
	}

	if opts.RetryWithClip {
		retryOpts := opts
		retryOpts.ClipToCRSBounds = true
		retryOpts.RetryWithClip = false
		out, retryErr := ReprojectGeometry(g, src, dst, retryOpts)
		if retryErr != nil {
			return nil, &mcerrors.ReprojectionFailed{Src: src.String(), Dst: dst.String(), Cause: fmt.Errorf("%v (retry with clip also failed: %v)", err, retryErr)}
		}
		return out, nil
	}
	return nil, err
}

// transformDirect reprojects every coordinate of g from src to dst via a
// single PROJ transformer, then optionally repairs the result.
func transformDirect(g orb.Geometry, src, dst crs.CRS, antimeridianCutting, validityCheck bool) (orb.Geometry, error) {
	if isEmpty(g) {
		return g, nil
	}
	t, err := crs.NewTransformer(src, dst)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	var firstErr error
	out := MapCoordinates(g, func(p orb.Point) orb.Point {
		x, y, err := t.Forward(p[0], p[1])
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return p
		}
		return orb.Point{x, y}
	})
	if firstErr != nil {
		return nil, firstErr
	}

	if antimeridianCutting {
		mp, err := RepairAntimeridianGeometry(out, 180)
		if err == nil {
			out = mp
		}
	}

	if validityCheck {
		return Repair(out, true)
	}
	return out, nil
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
	case orb.MultiPoint:
		return len(geom) == 0
	case orb.Collection:
		return len(geom) == 0
	default:
		return g == nil
	}
}

// within reports whether g lies entirely inside bound b (a conservative
// corner/vertex containment check, since orb has no general within()
// predicate; adequate for the CRS-bounds "outside bounds" error check,
// which only needs to detect gross violations).
func within(g orb.Geometry, b orb.Bound) bool {
	gb := g.Bound()
	return gb.Min[0] >= b.Min[0] && gb.Min[1] >= b.Min[1] && gb.Max[0] <= b.Max[0] && gb.Max[1] <= b.Max[1]
}
