package projection

import (
	"math"

	"github.com/paulmach/orb"
)

// DefaultResampleStep is the maximal segment length (degrees) kept by Resample.
const DefaultResampleStep = 1.0

// Resample densifies a geographic polyline so that no segment is longer than
// step degrees. Nonlinear projections bend straight geographic segments, and
// projecting only the vertices would draw chords instead of curves.
func Resample(line []orb.Point, step float64) []orb.Point {
	if len(line) < 2 || step <= 0 {
		return line
	}
	result := make([]orb.Point, 0, len(line))
	result = append(result, line[0])
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		n := int(math.Ceil(math.Max(math.Abs(b[0]-a[0]), math.Abs(b[1]-a[1])) / step))
		for k := 1; k < n; k++ {
			t := float64(k) / float64(n)
			result = append(result, orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t})
		}
		result = append(result, b)
	}
	return result
}
