package mb_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-livemap/mb"
	"github.com/eak1mov/go-livemap/tile"
	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func createTileset(t *testing.T, metadata map[string]string, tiles map[tile.ID][]byte) string {
	t.Helper()

	filePath := filepath.Join(t.TempDir(), "tiles.mbtiles")
	db, err := sql.Open("sqlite3", filePath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB);
	`)
	require.NoError(t, err)

	for name, value := range metadata {
		_, err = db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", name, value)
		require.NoError(t, err)
	}

	for tileID, data := range tiles {
		tmsY := (1 << tileID.Z) - 1 - tileID.Y
		_, err = db.Exec("INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)", tileID.Z, tileID.X, tmsY, data)
		require.NoError(t, err)
	}
	return filePath
}

func TestReader(t *testing.T) {
	tiles := map[tile.ID][]byte{
		{X: 0, Y: 0, Z: 0}: []byte("tile000"),
		{X: 1, Y: 0, Z: 1}: []byte("tile101"),
		{X: 6, Y: 2, Z: 6}: []byte("tile626"),
	}
	reader, err := mb.NewReader(createTileset(t, map[string]string{"format": "png"}, tiles))
	require.NoError(t, err)
	defer reader.Close()

	for tileID, want := range tiles {
		got, err := reader.ReadTile(tileID)
		require.NoError(t, err)
		require.Equal(t, want, got, "ReadTile(%v)", tileID)
	}

	got, err := reader.ReadTile(tile.ID{X: 9, Y: 9, Z: 9})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDescribe(t *testing.T) {
	reader, err := mb.NewReader(createTileset(t, map[string]string{
		"format":  "pbf",
		"minzoom": "0",
		"maxzoom": "14",
		"bounds":  "-10.5,35,30,60.25",
		"center":  "13.4, 52.5, 6",
	}, nil))
	require.NoError(t, err)
	defer reader.Close()

	info, err := reader.Describe()
	require.NoError(t, err)
	want := tile.Info{
		MaxZoom:    14,
		Bounds:     orb.Bound{Min: orb.Point{-10.5, 35}, Max: orb.Point{30, 60.25}},
		Center:     orb.Point{13.4, 52.5},
		CenterZoom: 6,
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("Describe mismatch (-want+got):\n%v", diff)
	}
}

func TestDescribeRaster(t *testing.T) {
	for _, format := range []string{"png", "JPG", "webp"} {
		reader, err := mb.NewReader(createTileset(t, map[string]string{"format": format}, nil))
		require.NoError(t, err)

		info, err := reader.Describe()
		require.NoError(t, err)
		require.True(t, info.Raster, format)
		require.Equal(t, orb.Bound{}, info.Bounds)
		require.NoError(t, reader.Close())
	}
}

func TestDescribeMalformed(t *testing.T) {
	for _, metadata := range []map[string]string{
		{"bounds": "1,2,3"},
		{"center": "a,b,c"},
		{"maxzoom": "high"},
	} {
		reader, err := mb.NewReader(createTileset(t, metadata, nil))
		require.NoError(t, err)

		_, err = reader.Describe()
		require.ErrorIs(t, err, mb.ErrBadMetadata, "%v", metadata)
		require.NoError(t, reader.Close())
	}
}
