// Package crs resolves opaque coordinate-reference-system identifiers
// (EPSG code, proj string or WKT) and exposes a small fixed registry of
// known CRS bounding boxes, falling back to PROJ's own area-of-use lookup
// for everything else.
package crs

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	proj "github.com/michiho/go-proj/v10"

	"github.com/joeblew999/geopyramid/internal/bounds"
)

// CRS is an opaque, semantically-comparable coordinate reference system
// identifier. Two CRS values are Equal if they resolve to the same
// underlying spatial reference, regardless of how each was spelled.
type CRS struct {
	// def is the canonical definition string handed to PROJ: "EPSG:4326",
	// a proj4 string, or WKT.
	def string
	// epsg is the resolved EPSG code, 0 if unknown.
	epsg int
}

// LatLon is EPSG:4326, the CRS used for clip-through-latlon reprojection
// and antimeridian handling.
var LatLon = CRS{def: "EPSG:4326", epsg: 4326}

// FromEPSG builds a CRS from a numeric EPSG code.
func FromEPSG(code int) CRS {
	return CRS{def: fmt.Sprintf("EPSG:%d", code), epsg: code}
}

// FromUserInput resolves a CRS from an EPSG code ("EPSG:4326" or "4326"),
// a proj4 string, or WKT. It does not itself contact PROJ; resolution to a
// concrete PJ object happens lazily in Transformer.
func FromUserInput(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CRS{}, fmt.Errorf("empty CRS definition")
	}
	if code, ok := parseEPSG(s); ok {
		return FromEPSG(code), nil
	}
	return CRS{def: s}, nil
}

func parseEPSG(s string) (int, bool) {
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "EPSG:") {
		n, err := strconv.Atoi(strings.TrimPrefix(upper, "EPSG:"))
		return n, err == nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	return 0, false
}

// Def returns the canonical definition string passed to PROJ.
func (c CRS) Def() string { return c.def }

// EPSG returns the resolved EPSG code and whether one is known.
func (c CRS) EPSG() (int, bool) { return c.epsg, c.epsg != 0 }

// Equal reports whether c and other resolve to the same spatial
// reference. EPSG codes compare directly; otherwise definitions compare
// as normalized strings (a conservative approximation of PROJ's own CRS
// equality, sufficient for the registry/bounds lookups this package does;
// two different spellings of the same non-EPSG CRS, such as a proj string
// and its WKT, compare unequal).
func (c CRS) Equal(other CRS) bool {
	if c.epsg != 0 && other.epsg != 0 {
		return c.epsg == other.epsg
	}
	return strings.EqualFold(c.def, other.def)
}

// IsLatLon reports whether c is EPSG:4326.
func (c CRS) IsLatLon() bool {
	return c.Equal(LatLon)
}

func (c CRS) String() string { return c.def }

// registry holds the fixed set of CRS bounds the source project ships
// with, keyed by EPSG code. Values are in the CRS's own lat/lon bounds
// (degrees), per spec.
var registry = map[int]bounds.Bounds{
	4326: bounds.MustNew(-180.0, -90.0, 180.0, 90.0),
	3857: bounds.MustNew(-180.0, -85.0511, 180.0, 85.0511),
	3035: bounds.MustNew(-10.67, 34.50, 31.55, 71.05),
}

var (
	areaOfUseMu    sync.Mutex
	areaOfUseCache = map[string]bounds.Bounds{}
)

// Bounds returns c's known lat/lon bounds. It first checks the fixed
// registry (EPSG 4326/3857/3035), then falls back to PROJ's area-of-use
// lookup via go-proj. Returns an error ("bounds unknown") if neither
// source has an answer.
func Bounds(c CRS) (bounds.Bounds, error) {
	if epsg, ok := c.EPSG(); ok {
		if b, found := registry[epsg]; found {
			return b, nil
		}
	}

	areaOfUseMu.Lock()
	defer areaOfUseMu.Unlock()
	if b, ok := areaOfUseCache[c.def]; ok {
		return b, nil
	}

	b, err := areaOfUseFromPROJ(c)
	if err != nil {
		return bounds.Bounds{}, fmt.Errorf("bounds of CRS %s could not be determined: %w", c.def, err)
	}
	areaOfUseCache[c.def] = b
	return b, nil
}

// areaOfUseFromPROJ asks PROJ for the CRS's registered area of use via
// go-proj's PJ.GetAreaOfUse, the fallback path the source implementation
// takes through pyproj.CRS.area_of_use.
func areaOfUseFromPROJ(c CRS) (bounds.Bounds, error) {
	ctx := proj.NewContext()
	defer ctx.Destroy()

	pj, err := ctx.Create(c.def)
	if err != nil {
		return bounds.Bounds{}, err
	}
	defer pj.Destroy()

	aou := pj.GetAreaOfUse()
	if aou == nil {
		return bounds.Bounds{}, fmt.Errorf("no area of use for %s", c.def)
	}
	return bounds.New(aou.WestLon, aou.SouthLat, aou.EastLon, aou.NorthLat, true, LatLon.def)
}
