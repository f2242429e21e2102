// Package projection converts geographic coordinates (longitude, latitude in
// degrees) to and from a planar coordinate space.
//
// Projections are partial: every method reports ok=false instead of producing
// non-finite values or accepting input outside ValidDomain, so callers can drop
// points that cannot be placed on the map.
package projection

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

type Projection interface {
	// Project maps a geographic point (lon, lat) to the projected plane.
	Project(geo orb.Point) (orb.Point, bool)
	// Invert maps a projected point back to (lon, lat).
	Invert(p orb.Point) (orb.Point, bool)
	// ValidDomain is the rectangle of accepted geographic input.
	ValidDomain() orb.Bound
	// Nonlinear reports whether straight geographic segments become curves.
	Nonlinear() bool
	// Cylindrical reports whether x depends on longitude only and y on latitude
	// only. Meaningful only for linear projections.
	Cylindrical() bool
}

const epsilon = 1e-9

var worldDomain = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func finite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsInf(p[0], 0) && !math.IsNaN(p[1]) && !math.IsInf(p[1], 0)
}

func inside(b orb.Bound, p orb.Point) bool {
	return finite(p) && p[0] >= b.Min[0] && p[0] <= b.Max[0] && p[1] >= b.Min[1] && p[1] <= b.Max[1]
}

// invertTolerance is how far, in degrees, an inverted point may overshoot the
// domain and still be accepted (and clamped onto it).
const invertTolerance = 1e-4

// fitInside accepts p within invertTolerance of b and clamps it onto b.
func fitInside(b orb.Bound, p orb.Point) (orb.Point, bool) {
	if !finite(p) ||
		p[0] < b.Min[0]-invertTolerance || p[0] > b.Max[0]+invertTolerance ||
		p[1] < b.Min[1]-invertTolerance || p[1] > b.Max[1]+invertTolerance {
		return orb.Point{}, false
	}
	return orb.Point{
		math.Max(b.Min[0], math.Min(b.Max[0], p[0])),
		math.Max(b.Min[1], math.Min(b.Max[1], p[1])),
	}, true
}

// checked filters out non-finite projection output.
func checked(p orb.Point) (orb.Point, bool) {
	if !finite(p) {
		return orb.Point{}, false
	}
	return p, true
}

// ByName returns a projection by its configuration name: "mercator",
// "geographic", "identity", "azimuthal_equal_area", "azimuthal_equidistant",
// "conic_conformal" and "conic_equal_area" (both with 0 and 60 degree parallels).
func ByName(name string) (Projection, error) {
	switch strings.ToLower(name) {
	case "mercator", "":
		return Mercator{}, nil
	case "geographic":
		return Geographic{}, nil
	case "identity":
		return Identity{}, nil
	case "azimuthal_equal_area", "azimuthal":
		return AzimuthalEqualArea{}, nil
	case "azimuthal_equidistant":
		return AzimuthalEquidistant{}, nil
	case "conic_conformal", "conic":
		return NewConicConformal(0, 60), nil
	case "conic_equal_area":
		return NewConicEqualArea(0, 60), nil
	}
	return nil, fmt.Errorf("livemap: unknown projection %q", name)
}
