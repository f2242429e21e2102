package cell_test

import (
	"testing"

	"github.com/eak1mov/go-livemap/cell"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func TestCover(t *testing.T) {
	testCases := []struct {
		name string
		rect orb.Bound
		zoom int
		want []cell.Key
	}{
		{"root", world, 0, []cell.Key{cell.Root}},
		{"whole world", world, 1, []cell.Key{"0", "1", "2", "3"}},
		{"top left", orb.Bound{Max: orb.Point{100, 100}}, 1, []cell.Key{"0"}},
		{"edge is exclusive", orb.Bound{Max: orb.Point{128, 128}}, 1, []cell.Key{"0"}},
		{"straddle", orb.Bound{Min: orb.Point{100, 10}, Max: orb.Point{150, 20}}, 1, []cell.Key{"0", "1"}},
		{"clamped", orb.Bound{Min: orb.Point{-500, 200}, Max: orb.Point{50, 900}}, 2, []cell.Key{"22"}},
		{"outside", orb.Bound{Min: orb.Point{300, 300}, Max: orb.Point{400, 400}}, 3, nil},
		{"far edge only", orb.Bound{Min: orb.Point{256, 0}, Max: orb.Point{300, 256}}, 2, nil},
		{"bottom edge only", orb.Bound{Min: orb.Point{0, 256}, Max: orb.Point{256, 256}}, 1, nil},
		{"zero width", orb.Bound{Min: orb.Point{64, 0}, Max: orb.Point{64, 256}}, 1, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := cell.Cover(world, tc.rect, tc.zoom)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Cover mismatch (-want+got):\n%v", diff)
			}
		})
	}
}

func TestCoverLength(t *testing.T) {
	for zoom := 0; zoom <= 6; zoom++ {
		keys := cell.Cover(world, world, zoom)
		require.Len(t, keys, 1<<(2*zoom))
		for _, k := range keys {
			require.Equal(t, zoom, k.Len())
		}
	}
}
