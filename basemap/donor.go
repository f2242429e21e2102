package basemap

import (
	"image"

	"github.com/eak1mov/go-livemap/cell"
	"github.com/eak1mov/go-livemap/ecs"
	"github.com/eak1mov/go-livemap/layers"
	"github.com/paulmach/orb"
	"golang.org/x/image/draw"
)

// donorIndex collects the real (rendered, cacheable) tiles by kind and cell.
func donorIndex(s *ecs.Store) map[layers.Kind]map[cell.Key]*Tile {
	index := make(map[layers.Kind]map[cell.Key]*Tile)
	for e := range s.Query(ecs.TypeOf[*CellComponent](), ecs.TypeOf[*KindComponent](), ecs.TypeOf[*TileComponent]()) {
		tc, _ := ecs.Get[*TileComponent](s, e)
		if tc.Tile == nil || tc.Tile.Donor || tc.Tile.NonCacheable || tc.Tile.Image == nil {
			continue
		}
		c, _ := ecs.Get[*CellComponent](s, e)
		k, _ := ecs.Get[*KindComponent](s, e)
		if index[k.Kind] == nil {
			index[k.Kind] = make(map[cell.Key]*Tile)
		}
		index[k.Kind][c.Key] = tc.Tile
	}
	return index
}

// donorTile crops the part of the nearest resident ancestor tile covering
// key and scales it to the tile size. It returns nil when no ancestor has a
// tile or the crop would be smaller than a pixel.
func donorTile(tiles map[cell.Key]*Tile, key cell.Key, tileSize int) *Tile {
	for p, ok := key.Parent(); ok; p, ok = p.Parent() {
		t, found := tiles[p]
		if !found {
			continue
		}
		src := t.Image.Bounds()
		rel := key[p.Len():].Project(orb.Bound{
			Min: orb.Point{float64(src.Min.X), float64(src.Min.Y)},
			Max: orb.Point{float64(src.Max.X), float64(src.Max.Y)},
		})
		sr := image.Rect(int(rel.Min[0]), int(rel.Min[1]), int(rel.Max[0]), int(rel.Max[1]))
		if sr.Dx() < 1 || sr.Dy() < 1 {
			return nil
		}
		dst := image.NewRGBA(image.Rect(0, 0, tileSize, tileSize))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), t.Image, sr, draw.Src, nil)
		return &Tile{Image: dst, Donor: true}
	}
	return nil
}
