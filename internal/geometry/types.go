// Package geometry implements the repair, filtering, segmentization,
// reprojection and antimeridian-handling operations the scheduler and
// vector I/O layers consume. Geometry values are github.com/paulmach/orb
// types; this package adds the singlepart/multipart type-family reasoning
// the source project built on top of shapely.
package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Family tags the geometry type families the engine reasons over.
type Family int

const (
	FamilyPoint Family = iota
	FamilyMultiPoint
	FamilyLineString
	FamilyMultiLineString
	FamilyLinearRing
	FamilyPolygon
	FamilyMultiPolygon
	FamilyCollection
)

func (f Family) String() string {
	switch f {
	case FamilyPoint:
		return "Point"
	case FamilyMultiPoint:
		return "MultiPoint"
	case FamilyLineString:
		return "LineString"
	case FamilyMultiLineString:
		return "MultiLineString"
	case FamilyLinearRing:
		return "LinearRing"
	case FamilyPolygon:
		return "Polygon"
	case FamilyMultiPolygon:
		return "MultiPolygon"
	case FamilyCollection:
		return "GeometryCollection"
	default:
		return "Unknown"
	}
}

// FamilyOf returns the Family tag for an orb.Geometry value.
func FamilyOf(g orb.Geometry) (Family, error) {
	switch g.(type) {
	case orb.Point:
		return FamilyPoint, nil
	case orb.MultiPoint:
		return FamilyMultiPoint, nil
	case orb.LineString:
		return FamilyLineString, nil
	case orb.MultiLineString:
		return FamilyMultiLineString, nil
	case orb.Ring:
		return FamilyLinearRing, nil
	case orb.Polygon:
		return FamilyPolygon, nil
	case orb.MultiPolygon:
		return FamilyMultiPolygon, nil
	case orb.Collection:
		return FamilyCollection, nil
	default:
		return 0, fmt.Errorf("invalid geometry type: %T", g)
	}
}

// IsSinglepart reports whether f is one of the single-part families
// (Point, LineString, LinearRing, Polygon).
func IsSinglepart(f Family) bool {
	switch f {
	case FamilyPoint, FamilyLineString, FamilyLinearRing, FamilyPolygon:
		return true
	default:
		return false
	}
}

// IsMultipart reports whether f is one of the multi-part families
// (MultiPoint, MultiLineString, MultiPolygon).
func IsMultipart(f Family) bool {
	switch f {
	case FamilyMultiPoint, FamilyMultiLineString, FamilyMultiPolygon:
		return true
	default:
		return false
	}
}

// MultipartCognate returns the multipart family deterministically
// associated with a singlepart family: Point->MultiPoint,
// LineString->MultiLineString, Polygon->MultiPolygon. LinearRing has no
// multipart cognate (mirrors the source project, which never multiparts
// a bare ring).
func MultipartCognate(f Family) (Family, bool) {
	switch f {
	case FamilyPoint:
		return FamilyMultiPoint, true
	case FamilyLineString:
		return FamilyMultiLineString, true
	case FamilyPolygon:
		return FamilyMultiPolygon, true
	default:
		return 0, false
	}
}

// SinglepartCognate is the inverse of MultipartCognate.
func SinglepartCognate(f Family) (Family, bool) {
	switch f {
	case FamilyMultiPoint:
		return FamilyPoint, true
	case FamilyMultiLineString:
		return FamilyLineString, true
	case FamilyMultiPolygon:
		return FamilyPolygon, true
	default:
		return 0, false
	}
}

// IsType reports whether geometry matches targetType, optionally also
// matching the target's multipart cognate.
func IsType(geometry orb.Geometry, targetType Family, allowMultipart bool) bool {
	f, err := FamilyOf(geometry)
	if err != nil {
		return false
	}
	if f == targetType {
		return true
	}
	if f == FamilyCollection {
		return false
	}
	if allowMultipart {
		if cognate, ok := MultipartCognate(targetType); ok {
			return f == cognate
		}
	}
	return false
}
