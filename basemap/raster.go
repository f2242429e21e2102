package basemap

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/eak1mov/go-livemap/cell"
	"github.com/eak1mov/go-livemap/layers"
	"github.com/eak1mov/go-livemap/task"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrNoImage = errors.New("livemap: tile has no image")

// RasterParser decodes PNG, JPEG and WebP tiles.
type RasterParser struct{}

func (RasterParser) Parse(key cell.Key, data []byte) task.Microtask[*TileData] {
	return task.Func(func() (*TileData, error) {
		if len(data) == 0 {
			return nil, ErrEmptyTile
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode raster tile %v: %w", key, err)
		}
		return &TileData{Image: img}, nil
	})
}

// RasterRenderer scales decoded images to the tile size.
type RasterRenderer struct {
	tileSize int
}

func NewRasterRenderer(tileSize int) *RasterRenderer {
	return &RasterRenderer{tileSize: tileSize}
}

func (r *RasterRenderer) Render(key cell.Key, data *TileData, kind layers.Kind) task.Microtask[image.Image] {
	return task.Func(func() (image.Image, error) {
		if data.Image == nil {
			return nil, fmt.Errorf("%w: %v", ErrNoImage, key)
		}
		dst := image.NewRGBA(image.Rect(0, 0, r.tileSize, r.tileSize))
		if kind != layers.Raster {
			return dst, nil
		}
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), data.Image, data.Image.Bounds(), draw.Src, nil)
		return dst, nil
	})
}
