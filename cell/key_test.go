package cell_test

import (
	"testing"

	"github.com/eak1mov/go-livemap/cell"
	"github.com/eak1mov/go-livemap/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

var world = orb.Bound{Max: orb.Point{256, 256}}

func TestKeyTileID(t *testing.T) {
	testCases := []struct {
		key    cell.Key
		tileID tile.ID
	}{
		{cell.Root, tile.ID{}},
		{cell.New(0), tile.ID{X: 0, Y: 0, Z: 1}},
		{cell.New(1), tile.ID{X: 1, Y: 0, Z: 1}},
		{cell.New(2), tile.ID{X: 0, Y: 1, Z: 1}},
		{cell.New(3), tile.ID{X: 1, Y: 1, Z: 1}},
		{cell.New(1, 2, 3), tile.ID{X: 5, Y: 3, Z: 3}},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.tileID, tc.key.TileID(), tc.key)
		require.Equal(t, tc.key, cell.FromTileID(tc.tileID), tc.tileID)
	}
}

func TestKeyLenAndParent(t *testing.T) {
	k := cell.New(3, 0, 2)
	require.Equal(t, 3, k.Len())
	require.Equal(t, "302", k.String())

	var path []cell.Key
	for p, ok := k.Parent(); ok; p, ok = p.Parent() {
		path = append(path, p)
	}
	if diff := cmp.Diff([]cell.Key{"30", "3", cell.Root}, path); diff != "" {
		t.Errorf("parents mismatch (-want+got):\n%v", diff)
	}

	_, ok := cell.Root.Parent()
	require.False(t, ok)
	require.Equal(t, "-", cell.Root.String())
}

func TestKeyAncestor(t *testing.T) {
	k := cell.New(1, 2)
	require.True(t, cell.Root.IsAncestorOf(k))
	require.True(t, cell.New(1).IsAncestorOf(k))
	require.False(t, k.IsAncestorOf(k))
	require.False(t, cell.New(2).IsAncestorOf(k))
	for _, child := range k.Children() {
		require.True(t, k.IsAncestorOf(child))
		require.Equal(t, k.Len()+1, child.Len())
	}
	require.Equal(t, cell.Key("123"), k.Child(3))
	require.Panics(t, func() { k.Child(4) })
}

func TestKeyProjectNests(t *testing.T) {
	k := cell.New(3, 1, 0, 2)
	rect := k.Project(world)
	for p, ok := k.Parent(); ok; p, ok = p.Parent() {
		parentRect := p.Project(world)
		require.True(t, parentRect.Contains(rect.Min), p)
		require.True(t, parentRect.Contains(rect.Max), p)
	}
	require.Equal(t, orb.Bound{Max: orb.Point{128, 128}}, cell.New(0).Project(world))
	require.Equal(t, orb.Bound{Min: orb.Point{128, 128}, Max: orb.Point{256, 256}}, cell.New(3).Project(world))
	require.Equal(t, orb.Bound{Min: orb.Point{160, 96}, Max: orb.Point{192, 128}}, cell.New(1, 2, 3).Project(world))
}

func TestFromQuadkey(t *testing.T) {
	k, err := cell.FromQuadkey("0123")
	require.NoError(t, err)
	require.Equal(t, cell.New(0, 1, 2, 3), k)

	_, err = cell.FromQuadkey("014")
	require.ErrorIs(t, err, cell.ErrInvalidKey)
}

func TestKeyCode(t *testing.T) {
	require.Equal(t, uint64(0), cell.Root.Code())
	seen := map[uint64]bool{}
	for _, k := range cell.Cover(world, world, 2) {
		code := k.Code()
		require.False(t, seen[code])
		seen[code] = true
		require.Equal(t, k, cell.FromTileID(tile.FromCode(code)))
	}
	require.Len(t, seen, 16)
}
