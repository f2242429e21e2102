package pm_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-livemap/pm"
	"github.com/eak1mov/go-livemap/pm/spec"
	"github.com/eak1mov/go-livemap/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// buildArchive lays out header, root directory, leaf directories and tile data.
// With leafSize > 0 the root points to leaf directories of leafSize entries.
func buildArchive(t *testing.T, tiles map[tile.ID][]byte, maxZoom uint8, leafSize int) []byte {
	t.Helper()

	entries := make([]spec.Entry, 0)
	tileData := make([]byte, 0)
	for code := range (tile.ID{Z: uint32(maxZoom) + 1}).Code() {
		data, ok := tiles[tile.FromCode(code)]
		if !ok {
			continue
		}
		entries = append(entries, spec.Entry{TileCode: code, Offset: uint64(len(tileData)), Length: uint32(len(data)), RunLength: 1})
		tileData = append(tileData, data...)
	}

	rootEntries := entries
	leaves := make([]byte, 0)
	if leafSize > 0 {
		rootEntries = nil
		for i := 0; i < len(entries); i += leafSize {
			chunk := entries[i:min(i+leafSize, len(entries))]
			leaf, err := spec.Compress(spec.SerializeDirectory(chunk), spec.CompressionGzip)
			require.NoError(t, err)
			rootEntries = append(rootEntries, spec.Entry{TileCode: chunk[0].TileCode, Offset: uint64(len(leaves)), Length: uint32(len(leaf))})
			leaves = append(leaves, leaf...)
		}
	}
	root, err := spec.Compress(spec.SerializeDirectory(rootEntries), spec.CompressionGzip)
	require.NoError(t, err)

	header := spec.Header{
		HeaderMagic:         spec.HeaderMagicV3,
		RootOffset:          spec.RootDirOffset,
		RootLength:          uint64(len(root)),
		InternalCompression: spec.CompressionGzip,
		TileCompression:     spec.CompressionNone,
		TileType:            spec.TileTypePng,
		MaxZoom:             maxZoom,
		CenterZoom:          1,
	}
	header.LeafDirectoryOffset = header.RootOffset + header.RootLength
	header.LeafDirectoryLength = uint64(len(leaves))
	header.TileDataOffset = header.LeafDirectoryOffset + header.LeafDirectoryLength
	header.TileDataLength = uint64(len(tileData))

	archive := spec.SerializeHeader(&header)
	archive = append(archive, root...)
	archive = append(archive, leaves...)
	archive = append(archive, tileData...)
	return archive
}

func testTiles(maxZoom int) map[tile.ID][]byte {
	tiles := make(map[tile.ID][]byte)
	for z := range maxZoom + 1 {
		for x := range 1 << z {
			for y := range 1 << z {
				if (x+y)%3 == 2 {
					continue
				}
				tileID := tile.ID{X: uint32(x), Y: uint32(y), Z: uint32(z)}
				tiles[tileID] = fmt.Appendf(nil, "tile-%v", tileID)
			}
		}
	}
	return tiles
}

func TestReader(t *testing.T) {
	for _, tc := range []struct {
		Name     string
		LeafSize int
	}{
		{Name: "RootOnly", LeafSize: 0},
		{Name: "Leaves", LeafSize: 7},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			tiles := testTiles(4)
			archive := buildArchive(t, tiles, 4, tc.LeafSize)

			filePath := filepath.Join(t.TempDir(), "tiles.pmtiles")
			require.NoError(t, os.WriteFile(filePath, archive, 0644))

			reader, err := pm.NewFileReader(filePath)
			if err != nil {
				t.Fatalf("NewFileReader failed: %v", err)
			}
			defer reader.Close()

			for z := range 5 {
				for x := range 1 << z {
					for y := range 1 << z {
						tileID := tile.ID{X: uint32(x), Y: uint32(y), Z: uint32(z)}
						data, err := reader.ReadTile(tileID)
						if err != nil {
							t.Fatalf("ReadTile(%v) failed: %v", tileID, err)
						}
						want, ok := tiles[tileID]
						if !ok {
							want = []byte{}
						}
						if diff := cmp.Diff(want, data); diff != "" {
							t.Errorf("ReadTile(%v) mismatch (-want+got):\n%v", tileID, diff)
						}
					}
				}
			}

			data, err := reader.ReadTile(tile.ID{Z: 9})
			require.NoError(t, err)
			require.Empty(t, data)
		})
	}
}

func TestReaderDescribe(t *testing.T) {
	archive := buildArchive(t, testTiles(1), 1, 0)
	reader, err := pm.NewReader(func(offset, length uint64) ([]byte, error) {
		return archive[offset : offset+length], nil
	})
	require.NoError(t, err)

	info, err := reader.Describe()
	require.NoError(t, err)
	want := tile.Info{Raster: true, MaxZoom: 1, CenterZoom: 1}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("Describe mismatch (-want+got):\n%v", diff)
	}

	metadata, err := reader.ReadMetadata()
	require.NoError(t, err)
	require.Empty(t, metadata)
}

func TestReaderInvalidFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "broken.pmtiles")
	require.NoError(t, os.WriteFile(filePath, make([]byte, spec.HeaderLength), 0644))

	_, err := pm.NewFileReader(filePath)
	require.ErrorIs(t, err, spec.ErrInvalidHeader)
}
