// Package feature holds application geometry injected into the map: points,
// paths, polygons, pies, text and heatmaps given in (lon, lat) degrees.
// A projection system turns them into world geometry with microtasks.
package feature

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/eak1mov/go-livemap/ecs"
	"github.com/eak1mov/go-livemap/layers"
	"github.com/eak1mov/go-livemap/task"
	"github.com/paulmach/orb"
)

var (
	ErrInvalidFeature = errors.New("livemap: invalid feature")
	ErrOutsideDomain  = errors.New("livemap: feature is outside the projection domain")
)

type Kind int

const (
	Point Kind = iota
	Path
	Polygon
	Pie
	Text
	Heatmap
)

func (k Kind) String() string {
	switch k {
	case Point:
		return "point"
	case Path:
		return "path"
	case Polygon:
		return "polygon"
	case Pie:
		return "pie"
	case Text:
		return "text"
	case Heatmap:
		return "heatmap"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Style struct {
	Fill        color.Color
	Stroke      color.Color
	StrokeWidth float64
	// Radius is the marker, pie or heatmap kernel radius in pixels.
	Radius float64
}

// Feature is application geometry in (lon, lat) degrees.
type Feature struct {
	Kind     Kind
	Geometry orb.Geometry
	Style    Style
	// Label is the text of Text features.
	Label string
	// Values are pie sector values or heatmap point weights.
	Values []float64
	// Colors are pie sector colors, one per value.
	Colors []color.Color
}

func NewPoint(at orb.Point, style Style) Feature {
	return Feature{Kind: Point, Geometry: at, Style: style}
}

func NewPath(line orb.LineString, style Style) Feature {
	return Feature{Kind: Path, Geometry: line, Style: style}
}

func NewPolygon(polygon orb.Polygon, style Style) Feature {
	return Feature{Kind: Polygon, Geometry: polygon, Style: style}
}

func NewPie(at orb.Point, radius float64, values []float64, colors []color.Color) Feature {
	return Feature{Kind: Pie, Geometry: at, Style: Style{Radius: radius}, Values: values, Colors: colors}
}

func NewText(at orb.Point, text string, style Style) Feature {
	return Feature{Kind: Text, Geometry: at, Style: style, Label: text}
}

// NewHeatmap builds a heatmap; weights may be nil for unit weights.
func NewHeatmap(points orb.MultiPoint, radius float64, weights []float64) Feature {
	return Feature{Kind: Heatmap, Geometry: points, Style: Style{Radius: radius}, Values: weights}
}

// Validate checks that the geometry type fits the kind and that values line
// up with the geometry.
func (f Feature) Validate() error {
	switch f.Kind {
	case Point, Pie, Text:
		if _, ok := f.Geometry.(orb.Point); !ok {
			return fmt.Errorf("%w: %v needs a point, got %T", ErrInvalidFeature, f.Kind, f.Geometry)
		}
	case Path:
		switch f.Geometry.(type) {
		case orb.LineString, orb.MultiLineString:
		default:
			return fmt.Errorf("%w: path needs lines, got %T", ErrInvalidFeature, f.Geometry)
		}
	case Polygon:
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			return fmt.Errorf("%w: polygon needs polygons, got %T", ErrInvalidFeature, f.Geometry)
		}
	case Heatmap:
		points, ok := f.Geometry.(orb.MultiPoint)
		if !ok {
			return fmt.Errorf("%w: heatmap needs a multipoint, got %T", ErrInvalidFeature, f.Geometry)
		}
		if f.Values != nil && len(f.Values) != len(points) {
			return fmt.Errorf("%w: %d weights for %d points", ErrInvalidFeature, len(f.Values), len(points))
		}
	default:
		return fmt.Errorf("%w: unknown kind %v", ErrInvalidFeature, f.Kind)
	}

	if f.Kind == Pie {
		sum := 0.0
		for _, v := range f.Values {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: pie value %v", ErrInvalidFeature, v)
			}
			sum += v
		}
		if sum == 0 {
			return fmt.Errorf("%w: pie has no values", ErrInvalidFeature)
		}
		if len(f.Colors) != 0 && len(f.Colors) != len(f.Values) {
			return fmt.Errorf("%w: %d colors for %d pie values", ErrInvalidFeature, len(f.Colors), len(f.Values))
		}
	}
	return nil
}

// Sector is a pie slice; angles are radians clockwise from north.
type Sector struct {
	Start, End float64
	Value      float64
	Color      color.Color
}

// Sectors splits a pie into slices proportional to its values. Zero values
// produce empty slices.
func (f Feature) Sectors() []Sector {
	sum := 0.0
	for _, v := range f.Values {
		sum += v
	}
	if f.Kind != Pie || sum <= 0 {
		return nil
	}
	sectors := make([]Sector, len(f.Values))
	angle := 0.0
	for i, v := range f.Values {
		end := angle + 2*math.Pi*v/sum
		sectors[i] = Sector{Start: angle, End: end, Value: v}
		if i < len(f.Colors) {
			sectors[i].Color = f.Colors[i]
		}
		angle = end
	}
	sectors[len(sectors)-1].End = 2 * math.Pi
	return sectors
}

// Source is the component holding the feature as injected.
type Source struct {
	Feature Feature
}

// World is the projected geometry of a feature in world coordinates.
type World struct {
	Geometry orb.Geometry
	Bound    orb.Bound
	// Kept lists the source indices of the points that survived projection,
	// for multipoint geometries.
	Kept []int
	// Dropped counts points outside the projection domain.
	Dropped int
}

// Add creates a feature entity owned by the layer. The geometry is projected
// by the ProjectionSystem on a later tick.
func Add(s *ecs.Store, layer ecs.Entity, f Feature) (ecs.Entity, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	if !ecs.Has[*layers.Layer](s, layer) {
		return 0, fmt.Errorf("%w: entity %d is not a layer", ErrInvalidFeature, layer)
	}
	e := s.CreateEntity("feature_" + f.Kind.String())
	s.Attach(e, &Source{Feature: f})
	s.Attach(e, &layers.Parent{Layer: layer})
	return e, nil
}

// Remove deletes a feature entity, cancelling its projection if it is still
// running. It reports whether e was a feature.
func Remove(s *ecs.Store, e ecs.Entity) bool {
	if !ecs.Has[*Source](s, e) {
		return false
	}
	task.Cancel(s, e)
	if ecs.Has[*World](s, e) {
		layers.TagDirtyParent(s, e)
	}
	s.Remove(e)
	return true
}

// Projected is a drawable feature.
type Projected struct {
	Entity  ecs.Entity
	Feature Feature
	World   *World
}

// Weights returns the weights of the heatmap points kept by projection.
func (p Projected) Weights() []float64 {
	weights := make([]float64, len(p.World.Kept))
	for i, k := range p.World.Kept {
		weights[i] = 1
		if k < len(p.Feature.Values) {
			weights[i] = p.Feature.Values[k]
		}
	}
	return weights
}

// All returns the projected features in creation order.
func All(s *ecs.Store) []Projected {
	return InRect(s, orb.Bound{
		Min: orb.Point{math.Inf(-1), math.Inf(-1)},
		Max: orb.Point{math.Inf(1), math.Inf(1)},
	})
}

// InRect returns the projected features whose bound intersects rect. Point
// like features are matched by their anchor.
func InRect(s *ecs.Store, rect orb.Bound) []Projected {
	var result []Projected
	for e := range s.Query(ecs.TypeOf[*Source](), ecs.TypeOf[*World]()) {
		w, _ := ecs.Get[*World](s, e)
		if !rect.Intersects(w.Bound) {
			continue
		}
		src, _ := ecs.Get[*Source](s, e)
		result = append(result, Projected{Entity: e, Feature: src.Feature, World: w})
	}
	return result
}
