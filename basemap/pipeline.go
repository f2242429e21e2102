package basemap

import (
	"image"

	"github.com/eak1mov/go-livemap/cell"
	"github.com/eak1mov/go-livemap/layers"
	"github.com/eak1mov/go-livemap/task"
	"github.com/paulmach/orb/encoding/mvt"
)

// TileData is the parsed content of a tile: vector layers for vector
// sources, a decoded image for raster ones.
type TileData struct {
	Layers mvt.Layers
	Image  image.Image
}

// Features returns the number of vector features in the tile.
func (d *TileData) Features() int {
	n := 0
	for _, l := range d.Layers {
		n += len(l.Features)
	}
	return n
}

// Parser turns fetched bytes into TileData.
type Parser interface {
	Parse(key cell.Key, data []byte) task.Microtask[*TileData]
}

// Renderer draws one layer kind of parsed tile data into a tile image.
type Renderer interface {
	Render(key cell.Key, data *TileData, kind layers.Kind) task.Microtask[image.Image]
}
