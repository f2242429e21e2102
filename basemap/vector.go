package basemap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/eak1mov/go-livemap/cell"
	"github.com/eak1mov/go-livemap/layers"
	"github.com/eak1mov/go-livemap/task"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

var ErrEmptyTile = errors.New("livemap: empty tile data")

// VectorParser decodes Mapbox Vector Tiles, gzipped or not. Each layer is
// clipped and simplified in its own step.
type VectorParser struct {
	// Tolerance is the Douglas-Peucker threshold in tile extent units; zero
	// disables simplification.
	Tolerance float64
}

func NewVectorParser() *VectorParser {
	return &VectorParser{Tolerance: 1}
}

func gzipped(data []byte) bool {
	return len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b
}

func (p *VectorParser) Parse(key cell.Key, data []byte) task.Microtask[*TileData] {
	decode := task.Func(func() (mvt.Layers, error) {
		if len(data) == 0 {
			return nil, ErrEmptyTile
		}
		var ls mvt.Layers
		var err error
		if gzipped(data) {
			ls, err = mvt.UnmarshalGzipped(data)
		} else {
			ls, err = mvt.Unmarshal(data)
		}
		if err != nil {
			return nil, fmt.Errorf("decode vector tile %v: %w", key, err)
		}
		return ls, nil
	})
	return task.FlatMap(decode, func(ls mvt.Layers) task.Microtask[*TileData] {
		return task.Loop(len(ls),
			func(i int) error {
				p.prepare(ls[i])
				return nil
			},
			func() (*TileData, error) { return &TileData{Layers: ls}, nil })
	})
}

func (p *VectorParser) prepare(l *mvt.Layer) {
	extent := float64(l.Extent)
	if extent == 0 {
		extent = mvt.DefaultExtent
		l.Extent = mvt.DefaultExtent
	}
	buffer := extent / 64
	l.Clip(orb.Bound{Min: orb.Point{-buffer, -buffer}, Max: orb.Point{extent + buffer, extent + buffer}})
	if p.Tolerance > 0 {
		l.Simplify(simplify.DouglasPeucker(p.Tolerance))
		l.RemoveEmpty(p.Tolerance, p.Tolerance*p.Tolerance)
	}
}

// Style tells how the features of one vector tile layer are drawn.
type Style struct {
	Kind        layers.Kind
	Fill        color.Color
	Stroke      color.Color
	StrokeWidth float64
	// Label is the feature property drawn as text at point features.
	Label string
}

// Symbolizer maps vector tile layer names to styles. Layers without a style
// are not drawn.
type Symbolizer map[string]Style

func DefaultSymbolizer() Symbolizer {
	water := color.RGBA{0xaa, 0xd3, 0xdf, 0xff}
	green := color.RGBA{0xc8, 0xe6, 0xb4, 0xff}
	return Symbolizer{
		"water":          {Kind: layers.World, Fill: water},
		"waterway":       {Kind: layers.World, Stroke: water, StrokeWidth: 1},
		"landcover":      {Kind: layers.World, Fill: green},
		"landuse":        {Kind: layers.World, Fill: color.RGBA{0xe8, 0xe4, 0xd8, 0xff}},
		"park":           {Kind: layers.World, Fill: green},
		"building":       {Kind: layers.World, Fill: color.RGBA{0xd9, 0xd0, 0xc9, 0xff}},
		"transportation": {Kind: layers.World, Stroke: color.RGBA{0xff, 0xff, 0xff, 0xff}, StrokeWidth: 1.5},
		"roads":          {Kind: layers.World, Stroke: color.RGBA{0xff, 0xff, 0xff, 0xff}, StrokeWidth: 1.5},
		"boundary":       {Kind: layers.World, Stroke: color.RGBA{0x9e, 0x9c, 0xab, 0xff}, StrokeWidth: 1},
		"place":          {Kind: layers.Labels, Fill: color.RGBA{0x33, 0x33, 0x33, 0xff}, Label: "name"},
		"poi":            {Kind: layers.Labels, Fill: color.RGBA{0x55, 0x55, 0x55, 0xff}, Label: "name"},
		"labels":         {Kind: layers.Labels, Fill: color.RGBA{0x33, 0x33, 0x33, 0xff}, Label: "name"},
	}
}

// VectorRenderer draws vector tile features, one feature per step.
type VectorRenderer struct {
	symbolizer Symbolizer
	tileSize   int
}

func NewVectorRenderer(symbolizer Symbolizer, tileSize int) *VectorRenderer {
	return &VectorRenderer{symbolizer: symbolizer, tileSize: tileSize}
}

type styledFeature struct {
	feature *geojson.Feature
	style   Style
	scale   float64
}

func (r *VectorRenderer) Render(key cell.Key, data *TileData, kind layers.Kind) task.Microtask[image.Image] {
	var features []styledFeature
	for _, l := range data.Layers {
		style, ok := r.symbolizer[l.Name]
		if !ok || style.Kind != kind {
			continue
		}
		extent := float64(l.Extent)
		if extent == 0 {
			extent = mvt.DefaultExtent
		}
		for _, f := range l.Features {
			features = append(features, styledFeature{f, style, float64(r.tileSize) / extent})
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, r.tileSize, r.tileSize))
	return task.Loop(len(features),
		func(i int) error {
			r.draw(img, features[i])
			return nil
		},
		func() (image.Image, error) { return img, nil })
}

func (r *VectorRenderer) draw(img *image.RGBA, sf styledFeature) {
	scale := func(p orb.Point) (float32, float32) {
		return float32(p[0] * sf.scale), float32(p[1] * sf.scale)
	}

	switch g := sf.feature.Geometry.(type) {
	case orb.Point:
		r.drawPoint(img, sf, g)
	case orb.MultiPoint:
		for _, p := range g {
			r.drawPoint(img, sf, p)
		}
	case orb.LineString:
		r.stroke(img, sf.style, []orb.LineString{g}, scale)
	case orb.MultiLineString:
		r.stroke(img, sf.style, g, scale)
	case orb.Polygon:
		r.fill(img, sf.style, orb.MultiPolygon{g}, scale)
	case orb.MultiPolygon:
		r.fill(img, sf.style, g, scale)
	}
}

func (r *VectorRenderer) fill(img *image.RGBA, style Style, mp orb.MultiPolygon, scale func(orb.Point) (float32, float32)) {
	if style.Fill != nil {
		z := vector.NewRasterizer(r.tileSize, r.tileSize)
		for _, polygon := range mp {
			for _, ring := range polygon {
				if len(ring) < 3 {
					continue
				}
				z.MoveTo(scale(ring[0]))
				for _, p := range ring[1:] {
					z.LineTo(scale(p))
				}
				z.ClosePath()
			}
		}
		z.Draw(img, img.Bounds(), image.NewUniform(style.Fill), image.Point{})
	}
	if style.Stroke != nil {
		var lines []orb.LineString
		for _, polygon := range mp {
			for _, ring := range polygon {
				lines = append(lines, orb.LineString(ring))
			}
		}
		r.stroke(img, style, lines, scale)
	}
}

// stroke draws every segment as a quad of the stroke width.
func (r *VectorRenderer) stroke(img *image.RGBA, style Style, lines []orb.LineString, scale func(orb.Point) (float32, float32)) {
	if style.Stroke == nil {
		return
	}
	half := float32(max(style.StrokeWidth, 0.5) / 2)
	z := vector.NewRasterizer(r.tileSize, r.tileSize)
	for _, line := range lines {
		for i := 1; i < len(line); i++ {
			ax, ay := scale(line[i-1])
			bx, by := scale(line[i])
			dx, dy := bx-ax, by-ay
			length := float32(math.Hypot(float64(dx), float64(dy)))
			if length == 0 {
				continue
			}
			nx, ny := -dy/length*half, dx/length*half
			z.MoveTo(ax+nx, ay+ny)
			z.LineTo(bx+nx, by+ny)
			z.LineTo(bx-nx, by-ny)
			z.LineTo(ax-nx, ay-ny)
			z.ClosePath()
		}
	}
	z.Draw(img, img.Bounds(), image.NewUniform(style.Stroke), image.Point{})
}

func (r *VectorRenderer) drawPoint(img *image.RGBA, sf styledFeature, p orb.Point) {
	x, y := int(p[0]*sf.scale), int(p[1]*sf.scale)
	fill := sf.style.Fill
	if fill == nil {
		return
	}
	if sf.style.Label != "" {
		if text := sf.feature.Properties.MustString(sf.style.Label, ""); text != "" {
			d := &font.Drawer{Dst: img, Src: image.NewUniform(fill), Face: basicfont.Face7x13}
			width := d.MeasureString(text).Ceil()
			d.Dot = fixed.P(x-width/2, y)
			d.DrawString(text)
			return
		}
	}
	dot := image.Rect(x-1, y-1, x+2, y+2).Intersect(img.Bounds())
	for py := dot.Min.Y; py < dot.Max.Y; py++ {
		for px := dot.Min.X; px < dot.Max.X; px++ {
			img.Set(px, py, fill)
		}
	}
}
