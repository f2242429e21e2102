// Package viewport implements the map camera: which part of the world
// rectangle is shown, at what zoom, on a screen of a given pixel size.
package viewport

import (
	"math"
	"time"

	"github.com/eak1mov/go-livemap/cell"
	"github.com/paulmach/orb"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

const (
	DefaultTileSize = 256
	DefaultMaxZoom  = 18
)

type viewportConfig struct {
	tileSize     float64
	minZoom      float64
	maxZoom      float64
	maxCellZoom  int
	center       *orb.Point
	zoom         *float64
	clampToWorld bool
}

type Option func(*viewportConfig)

// WithTileSize sets the on-screen pixel size of a cell at integral zoom.
func WithTileSize(size int) Option {
	return func(c *viewportConfig) { c.tileSize = float64(size) }
}

func WithZoomRange(minZoom, maxZoom float64) Option {
	return func(c *viewportConfig) {
		c.minZoom = minZoom
		c.maxZoom = maxZoom
	}
}

// WithMaxCellZoom limits the zoom of requested cells; deeper zoom levels
// scale up the cells of this level.
func WithMaxCellZoom(zoom int) Option {
	return func(c *viewportConfig) { c.maxCellZoom = zoom }
}

// WithCamera sets the initial center (world coordinates) and zoom.
func WithCamera(center orb.Point, zoom float64) Option {
	return func(c *viewportConfig) {
		c.center = &center
		c.zoom = &zoom
	}
}

// WithoutClamp allows the center to leave the world rectangle.
func WithoutClamp() Option {
	return func(c *viewportConfig) { c.clampToWorld = false }
}

type flight struct {
	progress   *gween.Tween
	fromCenter orb.Point
	toCenter   orb.Point
	fromZoom   float64
	toZoom     float64
}

// Viewport is not safe for concurrent use.
type Viewport struct {
	mapRect orb.Bound
	size    orb.Point
	center  orb.Point
	zoom    float64
	config  viewportConfig
	version uint64
	flight  *flight
}

// New creates a viewport over mapRect (the world rectangle of the root cell)
// for a screen of size pixels.
func New(mapRect orb.Bound, size orb.Point, opts ...Option) *Viewport {
	config := viewportConfig{
		tileSize:     DefaultTileSize,
		maxZoom:      DefaultMaxZoom,
		maxCellZoom:  -1,
		clampToWorld: true,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.maxCellZoom < 0 {
		config.maxCellZoom = int(math.Ceil(config.maxZoom))
	}
	config.maxCellZoom = min(config.maxCellZoom, cell.MaxZoom)

	v := &Viewport{
		mapRect: mapRect,
		size:    size,
		center:  mapRect.Center(),
		zoom:    config.minZoom,
		config:  config,
	}
	if config.center != nil {
		v.center = v.clampCenter(*config.center)
	}
	if config.zoom != nil {
		v.zoom = v.clampZoom(*config.zoom)
	}
	return v
}

func (v *Viewport) MapRect() orb.Bound { return v.mapRect }
func (v *Viewport) Size() orb.Point    { return v.size }
func (v *Viewport) Center() orb.Point  { return v.center }
func (v *Viewport) Zoom() float64      { return v.zoom }
func (v *Viewport) MinZoom() float64   { return v.config.minZoom }
func (v *Viewport) MaxZoom() float64   { return v.config.maxZoom }
func (v *Viewport) TileSize() float64  { return v.config.tileSize }

// Version increases on every change of the visible area.
func (v *Viewport) Version() uint64 { return v.version }

// CellZoom is the zoom of the cells covering the screen.
func (v *Viewport) CellZoom() int {
	return max(0, min(int(math.Floor(v.zoom)), v.config.maxCellZoom))
}

// Scale is the number of screen pixels per world unit.
func (v *Viewport) Scale() float64 {
	return math.Exp2(v.zoom) * v.config.tileSize / (v.mapRect.Max[0] - v.mapRect.Min[0])
}

func (v *Viewport) VisibleRect() orb.Bound {
	s := v.Scale()
	hw, hh := v.size[0]/2/s, v.size[1]/2/s
	return orb.Bound{
		Min: orb.Point{v.center[0] - hw, v.center[1] - hh},
		Max: orb.Point{v.center[0] + hw, v.center[1] + hh},
	}
}

// VisibleCells returns the cells of CellZoom intersecting the visible rectangle.
func (v *Viewport) VisibleCells() []cell.Key {
	return cell.Cover(v.mapRect, v.VisibleRect(), v.CellZoom())
}

func (v *Viewport) WorldToScreen(p orb.Point) orb.Point {
	s := v.Scale()
	return orb.Point{(p[0]-v.center[0])*s + v.size[0]/2, (p[1]-v.center[1])*s + v.size[1]/2}
}

func (v *Viewport) ScreenToWorld(p orb.Point) orb.Point {
	s := v.Scale()
	return orb.Point{(p[0]-v.size[0]/2)/s + v.center[0], (p[1]-v.size[1]/2)/s + v.center[1]}
}

func (v *Viewport) SetSize(size orb.Point) {
	if size != v.size {
		v.size = size
		v.version++
	}
}

func (v *Viewport) SetCenter(center orb.Point) {
	v.flight = nil
	v.setCenter(center)
}

func (v *Viewport) SetZoom(zoom float64) {
	v.flight = nil
	v.setZoom(zoom)
}

// Move pans the map by a screen pixel delta, as when dragging the content.
func (v *Viewport) Move(delta orb.Point) {
	s := v.Scale()
	v.SetCenter(orb.Point{v.center[0] - delta[0]/s, v.center[1] - delta[1]/s})
}

// ZoomAt changes zoom by delta keeping the world point under the screen
// point fixed.
func (v *Viewport) ZoomAt(delta float64, screen orb.Point) {
	v.flight = nil
	anchor := v.ScreenToWorld(screen)
	v.setZoom(v.zoom + delta)
	s := v.Scale()
	v.setCenter(orb.Point{
		anchor[0] - (screen[0]-v.size[0]/2)/s,
		anchor[1] - (screen[1]-v.size[1]/2)/s,
	})
}

// FitBounds centers the world rectangle and picks the largest zoom that shows it whole.
func (v *Viewport) FitBounds(rect orb.Bound) {
	v.flight = nil
	center, zoom := v.fit(rect)
	v.setZoom(zoom)
	v.setCenter(center)
}

func (v *Viewport) fit(rect orb.Bound) (orb.Point, float64) {
	w, h := rect.Max[0]-rect.Min[0], rect.Max[1]-rect.Min[1]
	base := v.config.tileSize / (v.mapRect.Max[0] - v.mapRect.Min[0])
	zoom := v.config.maxZoom
	if w > 0 || h > 0 {
		zoom = math.Inf(1)
		if w > 0 {
			zoom = math.Log2(v.size[0] / (w * base))
		}
		if h > 0 {
			zoom = math.Min(zoom, math.Log2(v.size[1]/(h*base)))
		}
	}
	return rect.Center(), zoom
}

// FlyTo animates center and zoom over the given duration. Any camera call
// other than Update interrupts the flight.
func (v *Viewport) FlyTo(center orb.Point, zoom float64, duration time.Duration, easing ease.TweenFunc) {
	if easing == nil {
		easing = ease.InOutQuad
	}
	if duration <= 0 {
		v.SetZoom(zoom)
		v.SetCenter(center)
		return
	}
	v.flight = &flight{
		progress:   gween.New(0, 1, float32(duration.Seconds()), easing),
		fromCenter: v.center,
		toCenter:   v.clampCenter(center),
		fromZoom:   v.zoom,
		toZoom:     v.clampZoom(zoom),
	}
}

// Flying reports whether a FlyTo animation is in progress.
func (v *Viewport) Flying() bool { return v.flight != nil }

// Update advances the camera animation.
func (v *Viewport) Update(dt time.Duration) {
	f := v.flight
	if f == nil {
		return
	}
	t, done := f.progress.Update(float32(dt.Seconds()))
	if done {
		t = 1
		v.flight = nil
	}
	k := float64(t)
	v.setZoom(f.fromZoom + (f.toZoom-f.fromZoom)*k)
	v.setCenter(orb.Point{
		f.fromCenter[0] + (f.toCenter[0]-f.fromCenter[0])*k,
		f.fromCenter[1] + (f.toCenter[1]-f.fromCenter[1])*k,
	})
}

func (v *Viewport) setCenter(center orb.Point) {
	center = v.clampCenter(center)
	if center != v.center {
		v.center = center
		v.version++
	}
}

func (v *Viewport) setZoom(zoom float64) {
	zoom = v.clampZoom(zoom)
	if zoom != v.zoom {
		v.zoom = zoom
		v.version++
	}
}

func (v *Viewport) clampZoom(zoom float64) float64 {
	if math.IsNaN(zoom) {
		return v.zoom
	}
	return max(v.config.minZoom, min(zoom, v.config.maxZoom))
}

func (v *Viewport) clampCenter(center orb.Point) orb.Point {
	if math.IsNaN(center[0]) || math.IsNaN(center[1]) {
		return v.center
	}
	if !v.config.clampToWorld {
		return center
	}
	return orb.Point{
		max(v.mapRect.Min[0], min(center[0], v.mapRect.Max[0])),
		max(v.mapRect.Min[1], min(center[1], v.mapRect.Max[1])),
	}
}
