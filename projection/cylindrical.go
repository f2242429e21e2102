package projection

import (
	"math"

	"github.com/paulmach/orb"
)

// MercatorMaxLatitude bounds the latitudes accepted by Mercator. Input with
// |lat| > MercatorMaxLatitude is rejected.
const MercatorMaxLatitude = 85.0

// Mercator is the spherical Mercator projection; output is in radians of the
// unit sphere (x in [-pi, pi]).
type Mercator struct{}

func (Mercator) Project(geo orb.Point) (orb.Point, bool) {
	if !finite(geo) || math.Abs(geo[0]) > 180 || math.Abs(geo[1]) > MercatorMaxLatitude {
		return orb.Point{}, false
	}
	lat := radians(geo[1])
	return checked(orb.Point{radians(geo[0]), math.Log(math.Tan(math.Pi/4 + lat/2))})
}

func (Mercator) Invert(p orb.Point) (orb.Point, bool) {
	if !finite(p) || math.Abs(p[0]) > math.Pi+epsilon {
		return orb.Point{}, false
	}
	geo := orb.Point{degrees(p[0]), degrees(2*math.Atan(math.Exp(p[1])) - math.Pi/2)}
	return fitInside(Mercator{}.ValidDomain(), geo)
}

func (Mercator) ValidDomain() orb.Bound {
	return orb.Bound{Min: orb.Point{-180, -MercatorMaxLatitude}, Max: orb.Point{180, MercatorMaxLatitude}}
}

func (Mercator) Nonlinear() bool   { return false }
func (Mercator) Cylindrical() bool { return true }

// Geographic is the equirectangular (plate carrée) projection in degrees.
type Geographic struct{}

func (Geographic) Project(geo orb.Point) (orb.Point, bool) {
	if !inside(worldDomain, geo) {
		return orb.Point{}, false
	}
	return geo, true
}

func (Geographic) Invert(p orb.Point) (orb.Point, bool) {
	if !inside(worldDomain, p) {
		return orb.Point{}, false
	}
	return p, true
}

func (Geographic) ValidDomain() orb.Bound { return worldDomain }
func (Geographic) Nonlinear() bool        { return false }
func (Geographic) Cylindrical() bool      { return true }

// Identity passes coordinates through unchanged. It is used for
// non-geographic coordinate systems.
type Identity struct{}

func (Identity) Project(p orb.Point) (orb.Point, bool) { return checked(p) }
func (Identity) Invert(p orb.Point) (orb.Point, bool)  { return checked(p) }

func (Identity) ValidDomain() orb.Bound {
	inf := math.Inf(1)
	return orb.Bound{Min: orb.Point{-inf, -inf}, Max: orb.Point{inf, inf}}
}

func (Identity) Nonlinear() bool   { return false }
func (Identity) Cylindrical() bool { return false }
