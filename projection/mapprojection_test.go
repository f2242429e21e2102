package projection_test

import (
	"math"
	"testing"

	"github.com/eak1mov/go-livemap/projection"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func TestMercatorWorld(t *testing.T) {
	m := projection.MustMapProjection(projection.Mercator{})
	require.Equal(t, orb.Bound{Max: orb.Point{256, 256}}, m.MapRect())

	w, ok := m.Project(orb.Point{0, 0})
	require.True(t, ok)
	require.InDelta(t, 128, w[0], 1e-6)
	require.InDelta(t, 128, w[1], 1e-6)

	w, ok = m.Project(orb.Point{-180, 0})
	require.True(t, ok)
	require.InDelta(t, 0, w[0], 1e-6)

	// North is up: positive latitude maps to smaller y.
	w, ok = m.Project(orb.Point{0, 60})
	require.True(t, ok)
	require.Less(t, w[1], 128.0)

	// Matches the standard web mercator tile grid.
	lat := 66.51326044311186
	w, ok = m.Project(orb.Point{90, lat})
	require.True(t, ok)
	require.InDelta(t, 192, w[0], 1e-6)
	require.InDelta(t, 64, w[1], 1e-6)

	_, ok = m.Project(orb.Point{0, 85.1})
	require.False(t, ok)
}

func TestMapProjectionInvert(t *testing.T) {
	for _, name := range allProjections {
		if name == "identity" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			proj, err := projection.ByName(name)
			require.NoError(t, err)
			m, err := projection.NewMapProjection(proj)
			require.NoError(t, err)

			geo := orb.Point{30, 40}
			w, ok := m.Project(geo)
			require.True(t, ok)
			require.True(t, w[0] >= 0 && w[0] <= projection.WorldSize, "x %v", w[0])
			require.True(t, w[1] >= 0 && w[1] <= projection.WorldSize, "y %v", w[1])

			back, ok := m.Invert(w)
			require.True(t, ok)
			require.InDelta(t, geo[0], back[0], 1e-6)
			require.InDelta(t, geo[1], back[1], 1e-6)
		})
	}
}

func TestIdentityDomain(t *testing.T) {
	_, err := projection.NewMapProjection(projection.Identity{})
	require.NoError(t, err)

	m, err := projection.NewMapProjectionDomain(projection.Identity{},
		orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{100, 50}})
	require.NoError(t, err)
	w, ok := m.Project(orb.Point{50, 25})
	require.True(t, ok)
	require.InDelta(t, 128, w[0], 1e-3)
	require.InDelta(t, 128, w[1], 1e-3)
}

func TestProjectBound(t *testing.T) {
	m := projection.MustMapProjection(projection.Mercator{})
	b, ok := m.ProjectBound(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{180, 80}})
	require.True(t, ok)
	require.InDelta(t, 128, b.Min[0], 1e-3)
	require.InDelta(t, 256, b.Max[0], 1e-3)
	require.InDelta(t, 128, b.Max[1], 1e-3)
	require.Less(t, b.Min[1], 128.0)
}

func TestResample(t *testing.T) {
	line := []orb.Point{{0, 0}, {10, 0}, {10, 2.5}}
	got := projection.Resample(line, 1)
	require.Len(t, got, 14)
	require.Equal(t, line[0], got[0])
	require.Equal(t, line[2], got[len(got)-1])
	for i := 1; i < len(got); i++ {
		d := math.Max(math.Abs(got[i][0]-got[i-1][0]), math.Abs(got[i][1]-got[i-1][1]))
		require.LessOrEqual(t, d, 1+1e-9)
	}

	require.Equal(t, line[:1], projection.Resample(line[:1], 1))
}
