package internal

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
)

// VectorTile encodes a vector tile with a "water" layer of square polygons
// and a "place" layer of named points, features in total, geometry in tile
// extent coordinates.
func VectorTile(features int, gzip bool) []byte {
	water := geojson.NewFeatureCollection()
	place := geojson.NewFeatureCollection()
	const extent = mvt.DefaultExtent
	for i := 0; i < features; i++ {
		x := float64((i*397)%extent/256*256 + 64)
		y := float64((i*911)%extent/256*256 + 64)
		if i%2 == 0 {
			ring := orb.Ring{{x, y}, {x + 128, y}, {x + 128, y + 128}, {x, y + 128}, {x, y}}
			water.Append(geojson.NewFeature(orb.Polygon{ring}))
			continue
		}
		f := geojson.NewFeature(orb.Point{x, y})
		f.Properties["name"] = fmt.Sprintf("P%d", i)
		place.Append(f)
	}

	layers := mvt.Layers{mvt.NewLayer("water", water), mvt.NewLayer("place", place)}
	var data []byte
	var err error
	if gzip {
		data, err = mvt.MarshalGzipped(layers)
	} else {
		data, err = mvt.Marshal(layers)
	}
	if err != nil {
		panic(err)
	}
	return data
}
