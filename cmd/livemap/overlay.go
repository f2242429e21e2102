package main

import (
	"image"
	"image/color"
	"math"

	"github.com/eak1mov/go-livemap/feature"
	"github.com/eak1mov/go-livemap/viewport"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

var overlayStyle = feature.Style{
	Fill:        color.NRGBA{0xd6, 0x27, 0x28, 0x80},
	Stroke:      color.NRGBA{0xd6, 0x27, 0x28, 0xff},
	StrokeWidth: 2,
	Radius:      4,
}

// fromGeoJSON maps a geojson feature to a map feature. Points with a "name"
// property become text labels, multipoints become heatmaps.
func fromGeoJSON(f *geojson.Feature) (feature.Feature, bool) {
	switch g := f.Geometry.(type) {
	case orb.Point:
		if name := f.Properties.MustString("name", ""); name != "" {
			return feature.NewText(g, name, overlayStyle), true
		}
		return feature.NewPoint(g, overlayStyle), true
	case orb.MultiPoint:
		return feature.NewHeatmap(g, 3*overlayStyle.Radius, nil), true
	case orb.LineString, orb.MultiLineString:
		return feature.Feature{Kind: feature.Path, Geometry: g, Style: overlayStyle}, true
	case orb.Polygon, orb.MultiPolygon:
		return feature.Feature{Kind: feature.Polygon, Geometry: g, Style: overlayStyle}, true
	}
	return feature.Feature{}, false
}

type overlay struct {
	dst *image.RGBA
	vp  *viewport.Viewport
	r   *vector.Rasterizer
}

func drawFeatures(dst *image.RGBA, vp *viewport.Viewport, features []feature.Projected) {
	size := dst.Bounds().Size()
	o := &overlay{dst: dst, vp: vp, r: vector.NewRasterizer(size.X, size.Y)}
	for _, p := range features {
		o.draw(p)
	}
}

func (o *overlay) fill(c color.Color) {
	if c == nil {
		c = overlayStyle.Fill
	}
	o.r.Draw(o.dst, o.dst.Bounds(), image.NewUniform(c), image.Point{})
	size := o.dst.Bounds().Size()
	o.r.Reset(size.X, size.Y)
}

func (o *overlay) ring(ring []orb.Point) {
	for i, p := range ring {
		s := o.vp.WorldToScreen(p)
		if i == 0 {
			o.r.MoveTo(float32(s[0]), float32(s[1]))
		} else {
			o.r.LineTo(float32(s[0]), float32(s[1]))
		}
	}
	o.r.ClosePath()
}

// sector adds a circle sector around a screen point.
func (o *overlay) sector(center orb.Point, radius, start, end float64) {
	const segments = 32
	n := max(int(math.Ceil(segments*(end-start)/(2*math.Pi))), 1)
	full := end-start >= 2*math.Pi
	if !full {
		o.r.MoveTo(float32(center[0]), float32(center[1]))
	}
	for i := 0; i <= n; i++ {
		a := start + (end-start)*float64(i)/float64(n)
		x := float32(center[0] + radius*math.Sin(a))
		y := float32(center[1] - radius*math.Cos(a))
		if full && i == 0 {
			o.r.MoveTo(x, y)
		} else {
			o.r.LineTo(x, y)
		}
	}
	o.r.ClosePath()
}

func (o *overlay) line(line []orb.Point, width float64) {
	for i := 1; i < len(line); i++ {
		a, b := o.vp.WorldToScreen(line[i-1]), o.vp.WorldToScreen(line[i])
		dx, dy := b[0]-a[0], b[1]-a[1]
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		nx, ny := -dy/length*width/2, dx/length*width/2
		o.r.MoveTo(float32(a[0]+nx), float32(a[1]+ny))
		o.r.LineTo(float32(b[0]+nx), float32(b[1]+ny))
		o.r.LineTo(float32(b[0]-nx), float32(b[1]-ny))
		o.r.LineTo(float32(a[0]-nx), float32(a[1]-ny))
		o.r.ClosePath()
	}
}

func (o *overlay) draw(p feature.Projected) {
	style := p.Feature.Style
	switch g := p.World.Geometry.(type) {
	case orb.Point:
		at := o.vp.WorldToScreen(g)
		switch p.Feature.Kind {
		case feature.Pie:
			for _, s := range p.Feature.Sectors() {
				o.sector(at, style.Radius, s.Start, s.End)
				o.fill(s.Color)
			}
		case feature.Text:
			d := font.Drawer{
				Dst:  o.dst,
				Src:  image.NewUniform(color.Black),
				Face: basicfont.Face7x13,
				Dot:  fixed.P(int(at[0]), int(at[1])),
			}
			d.DrawString(p.Feature.Label)
		default:
			o.sector(at, max(style.Radius, 1), 0, 2*math.Pi)
			o.fill(style.Fill)
		}
	case orb.MultiPoint:
		weights := p.Weights()
		for i, pt := range g {
			alpha := uint8(0x40)
			if i < len(weights) {
				alpha = uint8(math.Min(weights[i], 1) * 0xc0)
			}
			o.sector(o.vp.WorldToScreen(pt), style.Radius, 0, 2*math.Pi)
			o.fill(color.NRGBA{0xff, 0x40, 0x00, alpha})
		}
	case orb.LineString:
		o.line(g, style.StrokeWidth)
		o.fill(style.Stroke)
	case orb.MultiLineString:
		for _, ls := range g {
			o.line(ls, style.StrokeWidth)
		}
		o.fill(style.Stroke)
	case orb.Polygon:
		for _, r := range g {
			o.ring(r)
		}
		o.fill(style.Fill)
	case orb.MultiPolygon:
		for _, poly := range g {
			for _, r := range poly {
				o.ring(r)
			}
		}
		o.fill(style.Fill)
	}
}
