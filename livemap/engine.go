// Package livemap assembles the map engine: a store with the camera, tile
// pipeline, feature projection and scheduler systems, behind the API a host
// drives from its frame loop.
package livemap

import (
	"cmp"
	"errors"
	"fmt"
	"image"
	"image/color"
	"slices"
	"time"

	"github.com/eak1mov/go-livemap/basemap"
	"github.com/eak1mov/go-livemap/cell"
	"github.com/eak1mov/go-livemap/ecs"
	"github.com/eak1mov/go-livemap/feature"
	"github.com/eak1mov/go-livemap/layers"
	"github.com/eak1mov/go-livemap/projection"
	"github.com/eak1mov/go-livemap/task"
	"github.com/eak1mov/go-livemap/viewport"
	"github.com/paulmach/orb"
	"github.com/tanema/gween/ease"
)

var (
	ErrNoFetcher     = errors.New("livemap: no tile fetcher")
	ErrOutsideDomain = errors.New("livemap: location is outside the projection domain")
)

// Engine is not safe for concurrent use: every method must be called from
// the goroutine that calls Tick.
type Engine struct {
	store       *ecs.Store
	viewport    *viewport.Viewport
	mp          projection.MapProjection
	cells       *basemap.CellStateSystem
	loading     *basemap.TileLoadingSystem
	features    *feature.ProjectionSystem
	scheduler   *task.Scheduler
	stats       *basemap.Stats
	layerOrder  map[ecs.Entity]int
	featureLyr  ecs.Entity
	diagnostics *diagnostics
}

// New builds an engine for a screen of width×height pixels.
func New(width, height int, opts ...Option) (*Engine, error) {
	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	if c.fetcher == nil {
		return nil, ErrNoFetcher
	}

	mp, err := projection.NewMapProjection(c.projection)
	if err != nil {
		return nil, err
	}
	center := mp.MapRect().Center()
	if c.center != nil {
		w, ok := mp.Project(*c.center)
		if !ok {
			return nil, fmt.Errorf("%w: camera %v", ErrOutsideDomain, *c.center)
		}
		center = w
	}

	vp := viewport.New(mp.MapRect(), orb.Point{float64(width), float64(height)},
		viewport.WithTileSize(c.tileSize),
		viewport.WithZoomRange(c.minZoom, c.maxZoom),
		viewport.WithCamera(center, c.zoom))
	e := &Engine{
		store:      ecs.NewStore(ecs.WithLogger(c.logger), ecs.WithClock(c.clock)),
		viewport:   vp,
		mp:         mp,
		layerOrder: make(map[ecs.Entity]int),
	}
	s := e.store
	if c.onDirty != nil {
		layers.SetDirtyHandler(s, func(_ ecs.Entity, l *layers.Layer) { c.onDirty(l.Name) })
	}

	var parser basemap.Parser
	var renderer basemap.Renderer
	var kinds []layers.Kind
	if c.raster {
		e.addLayer("http_ground", layers.Raster)
		e.featureLyr = e.addLayer("features", layers.Features)
		parser = basemap.RasterParser{}
		renderer = basemap.NewRasterRenderer(c.tileSize)
		kinds = []layers.Kind{layers.Raster}
	} else {
		e.addLayer("ground", layers.World)
		e.featureLyr = e.addLayer("features", layers.Features)
		e.addLayer("labels", layers.Labels)
		symbolizer := c.symbolizer
		if symbolizer == nil {
			symbolizer = basemap.DefaultSymbolizer()
		}
		parser = basemap.NewVectorParser()
		renderer = basemap.NewVectorRenderer(symbolizer, c.tileSize)
		kinds = []layers.Kind{layers.World, layers.Labels}
	}

	fetcher := c.fetcher
	var onEvict func(cell.Key)
	if c.debugStats {
		e.stats = basemap.NewStats()
		fetcher = basemap.NewDebugFetcher(e.stats, c.clock, fetcher)
		parser = basemap.NewDebugParser(e.stats, c.clock, parser)
		renderer = basemap.NewDebugRenderer(e.stats, c.clock, renderer)
		onEvict = e.stats.Remove
	}

	e.cells = basemap.NewCellStateSystem(e.viewport)
	e.loading = basemap.NewTileLoadingSystem(fetcher, parser, renderer,
		basemap.WithTileSize(c.tileSize),
		basemap.WithQuantum(c.quantum),
		basemap.WithKinds(kinds...))
	e.features = feature.NewProjectionSystem(mp)
	e.scheduler = task.SchedulerSystem(c.frameBudget)

	s.AddSystem(ecs.SystemFunc("camera", func(_ *ecs.Context, dt time.Duration) { e.viewport.Update(dt) }))
	s.AddSystem(e.cells)
	s.AddSystem(e.loading)
	s.AddSystem(e.features)
	s.AddSystem(e.scheduler)
	s.AddSystem(basemap.NewCellRemovingSystem(c.cacheLimit, onEvict))

	e.diagnostics = newDiagnostics()
	return e, nil
}

func (e *Engine) addLayer(name string, kind layers.Kind) ecs.Entity {
	le := layers.Create(e.store, name, kind)
	e.layerOrder[le] = len(e.layerOrder)
	return le
}

// Tick advances the engine by dt: posted transport results are applied, the
// camera animates, tiles and features make progress within the frame budget.
func (e *Engine) Tick(dt time.Duration) {
	e.store.Update(dt)
	e.diagnostics.update(e, dt)
}

func (e *Engine) Store() *ecs.Store                    { return e.store }
func (e *Engine) Viewport() *viewport.Viewport         { return e.viewport }
func (e *Engine) Projection() projection.MapProjection { return e.mp }

// Move pans the camera by a screen delta in pixels.
func (e *Engine) Move(dx, dy float64) { e.viewport.Move(orb.Point{dx, dy}) }

// ZoomAt zooms by delta keeping the world point under the screen point fixed.
func (e *Engine) ZoomAt(delta float64, screen orb.Point) { e.viewport.ZoomAt(delta, screen) }

func (e *Engine) SetZoom(zoom float64) { e.viewport.SetZoom(zoom) }

// Resize changes the screen size in pixels.
func (e *Engine) Resize(width, height int) {
	e.viewport.SetSize(orb.Point{float64(width), float64(height)})
}

// SetCenterGeo centers the camera on a (lon, lat) location.
func (e *Engine) SetCenterGeo(lonLat orb.Point) error {
	w, ok := e.mp.Project(lonLat)
	if !ok {
		return fmt.Errorf("%w: %v", ErrOutsideDomain, lonLat)
	}
	e.viewport.SetCenter(w)
	return nil
}

// CenterGeo is the camera center in (lon, lat) degrees.
func (e *Engine) CenterGeo() (orb.Point, bool) {
	return e.mp.Invert(e.viewport.Center())
}

func (e *Engine) Zoom() float64 { return e.viewport.Zoom() }

// FitGeoBounds shows the whole geographic bound.
func (e *Engine) FitGeoBounds(bound orb.Bound) error {
	w, ok := e.mp.ProjectBound(bound)
	if !ok {
		return fmt.Errorf("%w: %v", ErrOutsideDomain, bound)
	}
	e.viewport.FitBounds(w)
	return nil
}

// FlyTo animates the camera to a (lon, lat) location and zoom.
func (e *Engine) FlyTo(lonLat orb.Point, zoom float64, duration time.Duration) error {
	w, ok := e.mp.Project(lonLat)
	if !ok {
		return fmt.Errorf("%w: %v", ErrOutsideDomain, lonLat)
	}
	e.viewport.FlyTo(w, zoom, duration, ease.InOutQuad)
	return nil
}

// TakeDirtyLayers returns the layers to redraw and clears their flags.
func (e *Engine) TakeDirtyLayers() []string { return layers.TakeDirty(e.store) }

func (e *Engine) AddPoint(at orb.Point, style feature.Style) (ecs.Entity, error) {
	return e.AddFeature(feature.NewPoint(at, style))
}

func (e *Engine) AddPath(line orb.LineString, style feature.Style) (ecs.Entity, error) {
	return e.AddFeature(feature.NewPath(line, style))
}

func (e *Engine) AddPolygon(polygon orb.Polygon, style feature.Style) (ecs.Entity, error) {
	return e.AddFeature(feature.NewPolygon(polygon, style))
}

func (e *Engine) AddPie(at orb.Point, radius float64, values []float64, colors []color.Color) (ecs.Entity, error) {
	return e.AddFeature(feature.NewPie(at, radius, values, colors))
}

func (e *Engine) AddText(at orb.Point, text string, style feature.Style) (ecs.Entity, error) {
	return e.AddFeature(feature.NewText(at, text, style))
}

func (e *Engine) AddHeatmap(points orb.MultiPoint, radius float64, weights []float64) (ecs.Entity, error) {
	return e.AddFeature(feature.NewHeatmap(points, radius, weights))
}

// AddFeature injects a feature into the features layer.
func (e *Engine) AddFeature(f feature.Feature) (ecs.Entity, error) {
	return feature.Add(e.store, e.featureLyr, f)
}

func (e *Engine) RemoveFeature(id ecs.Entity) bool {
	return feature.Remove(e.store, id)
}

// Features returns the projected features inside the visible rectangle.
func (e *Engine) Features() []feature.Projected {
	return feature.InRect(e.store, e.viewport.VisibleRect())
}

// DrawTile is a tile placed on the screen.
type DrawTile struct {
	Key   cell.Key
	Kind  layers.Kind
	Image image.Image
	// Rect is the screen rectangle in pixels the image is scaled into.
	Rect         orb.Bound
	Donor        bool
	NonCacheable bool
}

// Tiles returns the tiles of the visible cells in drawing order: by layer,
// then by cell key.
func (e *Engine) Tiles() []DrawTile {
	visible := make(map[cell.Key]bool)
	for _, key := range e.viewport.VisibleCells() {
		visible[key] = true
	}

	type placed struct {
		order int
		tile  DrawTile
	}
	var result []placed
	for _, r := range basemap.ResidentTiles(e.store) {
		if !visible[r.Key] {
			continue
		}
		world := r.Key.Project(e.mp.MapRect())
		result = append(result, placed{
			order: e.layerOrder[r.Layer],
			tile: DrawTile{
				Key:   r.Key,
				Kind:  r.Kind,
				Image: r.Tile.Image,
				Rect: orb.Bound{
					Min: e.viewport.WorldToScreen(world.Min),
					Max: e.viewport.WorldToScreen(world.Max),
				},
				Donor:        r.Tile.Donor,
				NonCacheable: r.Tile.NonCacheable,
			},
		})
	}
	slices.SortFunc(result, func(a, b placed) int {
		if c := cmp.Compare(a.order, b.order); c != 0 {
			return c
		}
		return cmp.Compare(a.tile.Key, b.tile.Key)
	})

	tiles := make([]DrawTile, len(result))
	for i, p := range result {
		tiles[i] = p.tile
	}
	return tiles
}

// Stats returns a snapshot of the per-cell statistics, nil unless
// WithDebugStats is set.
func (e *Engine) Stats() map[cell.Key]basemap.CellStats {
	if e.stats == nil {
		return nil
	}
	return e.stats.Snapshot()
}

// Loading reports whether tiles or features are still in progress.
func (e *Engine) Loading() bool {
	return e.scheduler.Loading() || basemap.DownloadingCount(e.store) > 0 || e.store.Pending() > 0
}

// Invalidate forces visible cells to be recomputed on the next tick, so
// error placeholders are requested again.
func (e *Engine) Invalidate() { e.cells.Invalidate() }

// Fetches is the number of tile fetches issued so far.
func (e *Engine) Fetches() int { return e.loading.Fetches() }
