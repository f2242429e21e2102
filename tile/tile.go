// Package tile provides common tile interfaces and types.
package tile

import (
	"fmt"

	"github.com/paulmach/orb"
)

// ID represents tile coordinates in the XYZ scheme (Tiled web map).
type ID struct {
	X uint32
	Y uint32
	Z uint32
}

func (t ID) Valid() bool {
	return t.Z < 32 && t.X < (1<<t.Z) && t.Y < (1<<t.Z)
}

func (t ID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Reader defines an interface for synchronous local tile sources.
type Reader interface {
	// ReadTile reads a single tile from the tileset.
	// It returns the tile data or an error if the tile cannot be read.
	// If the tile does not exist, it returns an empty slice with no error.
	ReadTile(tileID ID) ([]byte, error)
}

// Writer defines an interface for writing tiles to a tileset.
type Writer interface {
	// WriteTile writes a single tile to the tileset.
	WriteTile(tileID ID, tileData []byte) error

	// Finalize completes the writing process.
	// It must be called before closing the Writer.
	Finalize() error
}

// Location represents the absolute location of tile data inside a tileset file.
type Location struct {
	Offset uint64
	Length uint64
}

// Info is the tileset description a source may carry: the payload type
// decides between the raster and vector pipelines, the rest seeds the camera.
type Info struct {
	Raster  bool
	MinZoom int
	MaxZoom int
	// Bounds and Center are (lon, lat) degrees, zero when not declared.
	Bounds     orb.Bound
	Center     orb.Point
	CenterZoom int
}

// Describer is implemented by sources with tileset metadata.
type Describer interface {
	Describe() (Info, error)
}
