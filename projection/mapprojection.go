package projection

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
)

// WorldSize is the side of the square world plane; one world unit is one
// pixel at zoom level 0, so the root cell spans one 256 pixel tile.
const WorldSize = 256.0

// samplingSteps is the grid resolution used to estimate projected extents.
const samplingSteps = 64

var ErrEmptyDomain = errors.New("livemap: projection domain has no projectable points")

// MapProjection fits a Projection into the square world plane [0, WorldSize]²
// with the y axis pointing south, so that world rectangles line up with XYZ tiles.
type MapProjection struct {
	proj  Projection
	box   orb.Bound
	scale float64
}

// NewMapProjection fits the projection's own valid domain.
func NewMapProjection(proj Projection) (MapProjection, error) {
	return NewMapProjectionDomain(proj, proj.ValidDomain())
}

// NewMapProjectionDomain fits the given geographic domain. It is required for
// projections with an unbounded domain such as Identity.
func NewMapProjectionDomain(proj Projection, domain orb.Bound) (MapProjection, error) {
	box, ok := projectedBound(proj, domain)
	if !ok {
		return MapProjection{}, ErrEmptyDomain
	}

	// Expand to a square around the center so the aspect ratio is preserved.
	center := box.Center()
	half := math.Max(box.Max[0]-box.Min[0], box.Max[1]-box.Min[1]) / 2
	if half <= 0 {
		half = 1
	}
	box = orb.Bound{
		Min: orb.Point{center[0] - half, center[1] - half},
		Max: orb.Point{center[0] + half, center[1] + half},
	}

	return MapProjection{proj: proj, box: box, scale: WorldSize / (2 * half)}, nil
}

// MustMapProjection is like NewMapProjection but panics on error.
func MustMapProjection(proj Projection) MapProjection {
	m, err := NewMapProjection(proj)
	if err != nil {
		panic(err)
	}
	return m
}

func (m MapProjection) Projection() Projection { return m.proj }

// MapRect is the world rectangle covered by the root cell.
func (m MapProjection) MapRect() orb.Bound {
	return orb.Bound{Max: orb.Point{WorldSize, WorldSize}}
}

// Project maps (lon, lat) to world coordinates.
func (m MapProjection) Project(geo orb.Point) (orb.Point, bool) {
	p, ok := m.proj.Project(geo)
	if !ok {
		return orb.Point{}, false
	}
	return orb.Point{(p[0] - m.box.Min[0]) * m.scale, (m.box.Max[1] - p[1]) * m.scale}, true
}

// Invert maps world coordinates back to (lon, lat).
func (m MapProjection) Invert(world orb.Point) (orb.Point, bool) {
	p := orb.Point{world[0]/m.scale + m.box.Min[0], m.box.Max[1] - world[1]/m.scale}
	return m.proj.Invert(p)
}

// ProjectBound returns the world bounding box of a geographic rectangle.
func (m MapProjection) ProjectBound(geo orb.Bound) (orb.Bound, bool) {
	var result orb.Bound
	found := false
	sample(m.proj, geo, func(g, _ orb.Point) {
		w, ok := m.Project(g)
		if !ok {
			return
		}
		if !found {
			result = orb.Bound{Min: w, Max: w}
			found = true
			return
		}
		result = result.Extend(w)
	})
	return result, found
}

func projectedBound(proj Projection, domain orb.Bound) (orb.Bound, bool) {
	var result orb.Bound
	found := false
	sample(proj, domain, func(_, p orb.Point) {
		if !found {
			result = orb.Bound{Min: p, Max: p}
			found = true
			return
		}
		result = result.Extend(p)
	})
	return result, found
}

// sample walks a grid over the domain and calls visit for every grid point
// that projects. Points on an open domain edge are retried slightly inside,
// first along the latitude only.
func sample(proj Projection, domain orb.Bound, visit func(geo, projected orb.Point)) {
	minX, minY := clampInf(domain.Min[0], -180), clampInf(domain.Min[1], -90)
	maxX, maxY := clampInf(domain.Max[0], 180), clampInf(domain.Max[1], 90)
	center := orb.Point{(minX + maxX) / 2, (minY + maxY) / 2}

	steps := samplingSteps
	if !proj.Nonlinear() && proj.Cylindrical() {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		for j := 0; j <= steps; j++ {
			g := orb.Point{
				minX + (maxX-minX)*float64(i)/float64(steps),
				minY + (maxY-minY)*float64(j)/float64(steps),
			}
			candidates := [...]orb.Point{
				g,
				{g[0], g[1] + (center[1]-g[1])*1e-9},
				{g[0] + (center[0]-g[0])*1e-9, g[1] + (center[1]-g[1])*1e-9},
			}
			for _, c := range candidates {
				if p, ok := proj.Project(c); ok {
					visit(c, p)
					break
				}
			}
		}
	}
}

func clampInf(v, fallback float64) float64 {
	if math.IsInf(v, 0) {
		return fallback
	}
	return v
}
