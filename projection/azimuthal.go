package projection

import (
	"math"

	"github.com/paulmach/orb"
)

// azimuthal projects through a radial scale function k(c) of the angular
// distance c from the center (0, 0), and inverts through c(rho).
type azimuthal struct {
	scale  func(cosC float64) float64
	angle  func(rho float64) float64
	maxRho float64
}

// azimuthalMaxLongitude keeps the antipode of the center, which has no
// image, out of the domain.
const azimuthalMaxLongitude = 179.9

var azimuthalDomain = orb.Bound{
	Min: orb.Point{-azimuthalMaxLongitude, -90},
	Max: orb.Point{azimuthalMaxLongitude, 90},
}

func (a azimuthal) project(geo orb.Point) (orb.Point, bool) {
	if !inside(azimuthalDomain, geo) {
		return orb.Point{}, false
	}
	lon, lat := radians(geo[0]), radians(geo[1])
	cosLat := math.Cos(lat)
	k := a.scale(cosLat * math.Cos(lon))
	return checked(orb.Point{k * cosLat * math.Sin(lon), k * math.Sin(lat)})
}

func (a azimuthal) invert(p orb.Point) (orb.Point, bool) {
	if !finite(p) {
		return orb.Point{}, false
	}
	rho := math.Hypot(p[0], p[1])
	if rho > a.maxRho+epsilon {
		return orb.Point{}, false
	}
	if rho < epsilon {
		return orb.Point{}, true
	}
	c := a.angle(math.Min(rho, a.maxRho))
	sinC, cosC := math.Sin(c), math.Cos(c)
	lon := math.Atan2(p[0]*sinC, rho*cosC)
	lat := math.Asin(math.Max(-1, math.Min(1, p[1]*sinC/rho)))
	geo := orb.Point{degrees(lon), degrees(lat)}
	if 90-math.Abs(geo[1]) < invertTolerance {
		// any longitude names the pole
		geo[0] = math.Max(-azimuthalMaxLongitude, math.Min(azimuthalMaxLongitude, geo[0]))
	}
	return fitInside(azimuthalDomain, geo)
}

var equalArea = azimuthal{
	scale: func(cosC float64) float64 {
		if 1+cosC < epsilon {
			return math.NaN()
		}
		return math.Sqrt(2 / (1 + cosC))
	},
	angle:  func(rho float64) float64 { return 2 * math.Asin(rho/2) },
	maxRho: 2,
}

var equidistant = azimuthal{
	scale: func(cosC float64) float64 {
		c := math.Acos(math.Max(-1, math.Min(1, cosC)))
		if c < epsilon {
			return 1
		}
		if math.Pi-c < epsilon {
			return math.NaN()
		}
		return c / math.Sin(c)
	},
	angle:  func(rho float64) float64 { return rho },
	maxRho: math.Pi,
}

// AzimuthalEqualArea is the Lambert azimuthal equal-area projection centered
// at (0, 0). The domain stops short of the antipode of the center.
type AzimuthalEqualArea struct{}

func (AzimuthalEqualArea) Project(geo orb.Point) (orb.Point, bool) { return equalArea.project(geo) }
func (AzimuthalEqualArea) Invert(p orb.Point) (orb.Point, bool)    { return equalArea.invert(p) }
func (AzimuthalEqualArea) ValidDomain() orb.Bound                  { return azimuthalDomain }
func (AzimuthalEqualArea) Nonlinear() bool                         { return true }
func (AzimuthalEqualArea) Cylindrical() bool                       { return false }

// AzimuthalEquidistant is the azimuthal equidistant projection centered at (0, 0).
type AzimuthalEquidistant struct{}

func (AzimuthalEquidistant) Project(geo orb.Point) (orb.Point, bool) { return equidistant.project(geo) }
func (AzimuthalEquidistant) Invert(p orb.Point) (orb.Point, bool)    { return equidistant.invert(p) }
func (AzimuthalEquidistant) ValidDomain() orb.Bound                  { return azimuthalDomain }
func (AzimuthalEquidistant) Nonlinear() bool                         { return true }
func (AzimuthalEquidistant) Cylindrical() bool                       { return false }
