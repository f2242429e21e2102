package tile

import (
	"math/bits"

	"github.com/google/hilbert"
)

// Code returns the position of the tile on the cumulative hilbert curve:
// all tiles of lower zoom levels come first, tiles of the same zoom follow
// the hilbert order of (x, y). This is the PMTiles v3 TileID.
func (t ID) Code() uint64 {
	h, _ := hilbert.NewHilbert(1 << t.Z)
	tileCode, _ := h.MapInverse(int(t.X), int(t.Y))

	tilesCount := (1<<(t.Z*2) - 1) / 3
	return uint64(tileCode + tilesCount)
}

// FromCode is the inverse of ID.Code.
func FromCode(tileCode uint64) ID {
	z := (bits.Len64(3*tileCode+1) - 1) / 2
	tilesCount := (1<<(z*2) - 1) / 3

	h, _ := hilbert.NewHilbert(1 << z)
	x, y, _ := h.Map(int(tileCode) - tilesCount)

	return ID{X: uint32(x), Y: uint32(y), Z: uint32(z)}
}
