package geometry

import "github.com/paulmach/orb"

// MultipartToSingleparts yields single-part geometries: it recurses into
// GeometryCollections and multipart geometries, returning only
// Point/LineString/LinearRing/Polygon values.
func MultipartToSingleparts(geometry orb.Geometry) ([]orb.Geometry, error) {
	var out []orb.Geometry
	f, err := FamilyOf(geometry)
	if err != nil {
		return nil, err
	}

	switch g := geometry.(type) {
	case orb.Collection:
		for _, sub := range g {
			parts, err := MultipartToSingleparts(sub)
			if err != nil {
				return nil, err
			}
			out = append(out, parts...)
		}
		return out, nil
	case orb.MultiPoint:
		for _, p := range g {
			out = append(out, p)
		}
		return out, nil
	case orb.MultiLineString:
		for _, ls := range g {
			out = append(out, ls)
		}
		return out, nil
	case orb.MultiPolygon:
		for _, p := range g {
			out = append(out, p)
		}
		return out, nil
	default:
		if IsSinglepart(f) {
			return []orb.Geometry{geometry}, nil
		}
		return nil, &unsupportedGeometryError{f}
	}
}

// FilterByGeometryType yields the subgeometries of geometry that match
// targetType, unpacking GeometryCollections and, when allowMultipart is
// false, breaking multipart geometries into their singlepart members.
func FilterByGeometryType(geometry orb.Geometry, targetType Family, allowMultipart bool) ([]orb.Geometry, error) {
	if IsType(geometry, targetType, allowMultipart) {
		return []orb.Geometry{geometry}, nil
	}

	f, err := FamilyOf(geometry)
	if err != nil {
		return nil, err
	}
	if IsMultipart(f) || f == FamilyCollection {
		parts, err := MultipartToSingleparts(geometry)
		if err != nil {
			return nil, err
		}
		var out []orb.Geometry
		for _, sub := range parts {
			matched, err := FilterByGeometryType(sub, targetType, allowMultipart)
			if err != nil {
				return nil, err
			}
			out = append(out, matched...)
		}
		return out, nil
	}
	return nil, nil
}

type unsupportedGeometryError struct{ f Family }

func (e *unsupportedGeometryError) Error() string {
	return "invalid geometry type: " + e.f.String()
}
