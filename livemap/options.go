package livemap

import (
	"log/slog"
	"time"

	"github.com/eak1mov/go-livemap/basemap"
	"github.com/eak1mov/go-livemap/ecs"
	"github.com/eak1mov/go-livemap/projection"
	"github.com/eak1mov/go-livemap/tile"
	"github.com/eak1mov/go-livemap/viewport"
	"github.com/paulmach/orb"
)

const (
	DefaultFrameBudget = 10 * time.Millisecond
	DefaultZoom        = 1
)

type config struct {
	fetcher     tile.Fetcher
	tileSize    int
	projection  projection.Projection
	center      *orb.Point
	zoom        float64
	minZoom     float64
	maxZoom     float64
	logger      *slog.Logger
	frameBudget time.Duration
	quantum     int
	cacheLimit  int
	raster      bool
	symbolizer  basemap.Symbolizer
	debugStats  bool
	clock       ecs.Clock
	onDirty     func(layer string)
}

func defaultConfig() config {
	return config{
		tileSize:    basemap.DefaultTileSize,
		projection:  projection.Mercator{},
		zoom:        DefaultZoom,
		maxZoom:     viewport.DefaultMaxZoom,
		logger:      slog.New(slog.DiscardHandler),
		frameBudget: DefaultFrameBudget,
		quantum:     basemap.DefaultQuantum,
		cacheLimit:  basemap.DefaultCacheLimit,
		clock:       ecs.SystemClock{},
	}
}

type Option func(*config)

// WithFetcher sets the tile source. It is required.
func WithFetcher(fetcher tile.Fetcher) Option {
	return func(c *config) { c.fetcher = fetcher }
}

func WithTileSize(size int) Option {
	return func(c *config) { c.tileSize = size }
}

// WithProjection sets the map projection; the default is Mercator, the
// only one XYZ basemap tiles line up with.
func WithProjection(p projection.Projection) Option {
	return func(c *config) { c.projection = p }
}

// WithCamera sets the initial center in (lon, lat) degrees and the zoom.
func WithCamera(center orb.Point, zoom float64) Option {
	return func(c *config) {
		c.center = &center
		c.zoom = zoom
	}
}

func WithZoomRange(minZoom, maxZoom float64) Option {
	return func(c *config) {
		c.minZoom = minZoom
		c.maxZoom = maxZoom
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithFrameBudget bounds the time the scheduler spends on microtasks per tick.
func WithFrameBudget(d time.Duration) Option {
	return func(c *config) { c.frameBudget = d }
}

// WithQuantum sets how many steps a tile pipeline makes per slice.
func WithQuantum(n int) Option {
	return func(c *config) { c.quantum = n }
}

// WithCacheLimit bounds the number of resident cells.
func WithCacheLimit(n int) Option {
	return func(c *config) { c.cacheLimit = n }
}

// WithRaster switches the basemap to raster (PNG, JPEG, WebP) tiles.
func WithRaster() Option {
	return func(c *config) { c.raster = true }
}

// WithVector selects vector tiles drawn with symbolizer, or with
// basemap.DefaultSymbolizer when it is nil. This is the default.
func WithVector(symbolizer basemap.Symbolizer) Option {
	return func(c *config) {
		c.raster = false
		c.symbolizer = symbolizer
	}
}

// WithDebugStats records per-cell fetch, parse and render statistics.
func WithDebugStats() Option {
	return func(c *config) { c.debugStats = true }
}

func WithClock(clock ecs.Clock) Option {
	return func(c *config) { c.clock = clock }
}

// WithDirtyHandler is called with the layer name whenever a layer needs a redraw.
func WithDirtyHandler(f func(layer string)) Option {
	return func(c *config) { c.onDirty = f }
}
