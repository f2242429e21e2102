package projection

import (
	"math"

	"github.com/paulmach/orb"
)

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// ConicConformal is the Lambert conformal conic projection with two standard
// parallels. The pole on the side opposite to the cone apex cannot be projected.
type ConicConformal struct {
	n, f float64
}

func tanHalf(lat float64) float64 {
	return math.Tan((math.Pi/2 + lat) / 2)
}

// NewConicConformal creates the projection for standard parallels lat1 and lat2 (degrees).
func NewConicConformal(lat1, lat2 float64) ConicConformal {
	y0, y1 := radians(lat1), radians(lat2)
	cy0 := math.Cos(y0)
	var n float64
	if y0 == y1 {
		n = math.Sin(y0)
	} else {
		n = math.Log(cy0/math.Cos(y1)) / math.Log(tanHalf(y1)/tanHalf(y0))
	}
	return ConicConformal{n: n, f: cy0 * math.Pow(tanHalf(y0), n) / n}
}

func (c ConicConformal) Project(geo orb.Point) (orb.Point, bool) {
	if !inside(c.ValidDomain(), geo) {
		return orb.Point{}, false
	}
	lon, lat := radians(geo[0]), radians(geo[1])
	if c.n > 0 && lat <= -math.Pi/2+epsilon || c.n < 0 && lat >= math.Pi/2-epsilon {
		return orb.Point{}, false
	}
	r := c.f / math.Pow(tanHalf(lat), c.n)
	return checked(orb.Point{r * math.Sin(c.n*lon), c.f - r*math.Cos(c.n*lon)})
}

func (c ConicConformal) Invert(p orb.Point) (orb.Point, bool) {
	if !finite(p) {
		return orb.Point{}, false
	}
	fy := c.f - p[1]
	r := sign(c.n) * math.Hypot(p[0], fy)
	l := math.Atan2(p[0], math.Abs(fy)) * sign(fy)
	if fy*c.n < 0 {
		l -= math.Pi * sign(p[0]) * sign(fy)
	}
	geo := orb.Point{degrees(l / c.n), degrees(2*math.Atan(math.Pow(c.f/r, 1/c.n)) - math.Pi/2)}
	return fitInside(c.ValidDomain(), geo)
}

// conicConformalMaxLatitude bounds the domain on the side of the
// unprojectable pole, where the projected radius grows without limit.
const conicConformalMaxLatitude = 80.0

func (c ConicConformal) ValidDomain() orb.Bound {
	d := worldDomain
	if c.n > 0 {
		d.Min[1] = -conicConformalMaxLatitude
	} else {
		d.Max[1] = conicConformalMaxLatitude
	}
	return d
}

func (ConicConformal) Nonlinear() bool   { return true }
func (ConicConformal) Cylindrical() bool { return false }

// ConicEqualArea is the Albers equal-area conic projection with two standard parallels.
type ConicEqualArea struct {
	n, c, r0 float64
}

// NewConicEqualArea creates the projection for standard parallels lat1 and lat2 (degrees).
func NewConicEqualArea(lat1, lat2 float64) ConicEqualArea {
	sy0 := math.Sin(radians(lat1))
	n := (sy0 + math.Sin(radians(lat2))) / 2
	c := 1 + sy0*(2*n-sy0)
	return ConicEqualArea{n: n, c: c, r0: math.Sqrt(c) / n}
}

func (a ConicEqualArea) Project(geo orb.Point) (orb.Point, bool) {
	if !inside(worldDomain, geo) {
		return orb.Point{}, false
	}
	lon, lat := radians(geo[0]), radians(geo[1])
	r := math.Sqrt(a.c-2*a.n*math.Sin(lat)) / a.n
	return checked(orb.Point{r * math.Sin(lon*a.n), a.r0 - r*math.Cos(lon*a.n)})
}

func (a ConicEqualArea) Invert(p orb.Point) (orb.Point, bool) {
	if !finite(p) {
		return orb.Point{}, false
	}
	r0y := a.r0 - p[1]
	l := math.Atan2(p[0], math.Abs(r0y)) * sign(r0y)
	if r0y*a.n < 0 {
		l -= math.Pi * sign(p[0]) * sign(r0y)
	}
	s := (a.c - (p[0]*p[0]+r0y*r0y)*a.n*a.n) / (2 * a.n)
	if s < -1-epsilon || s > 1+epsilon {
		return orb.Point{}, false
	}
	geo := orb.Point{degrees(l / a.n), degrees(math.Asin(math.Max(-1, math.Min(1, s))))}
	return fitInside(a.ValidDomain(), geo)
}

func (ConicEqualArea) ValidDomain() orb.Bound { return worldDomain }
func (ConicEqualArea) Nonlinear() bool        { return true }
func (ConicEqualArea) Cylindrical() bool      { return false }
