package basemap

import (
	"cmp"
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"time"

	"github.com/eak1mov/go-livemap/cell"
	"github.com/eak1mov/go-livemap/ecs"
	"github.com/eak1mov/go-livemap/layers"
	"github.com/eak1mov/go-livemap/task"
	"github.com/eak1mov/go-livemap/tile"
)

const (
	DefaultTileSize = 256
	DefaultQuantum  = 10
)

type loadingConfig struct {
	tileSize int
	quantum  int
	kinds    []layers.Kind
}

type LoadingOption func(*loadingConfig)

// WithTileSize sets the pixel size of rendered tiles.
func WithTileSize(size int) LoadingOption {
	return func(c *loadingConfig) { c.tileSize = size }
}

// WithQuantum sets how many microtask steps a cell's pipeline makes per
// scheduling slice.
func WithQuantum(n int) LoadingOption {
	return func(c *loadingConfig) { c.quantum = n }
}

// WithKinds selects the layer kinds that get a tile entity per cell.
func WithKinds(kinds ...layers.Kind) LoadingOption {
	return func(c *loadingConfig) { c.kinds = kinds }
}

// TileLoadingSystem issues one fetch per requested cell and turns completed
// responses into parse and render microtasks.
type TileLoadingSystem struct {
	fetcher  tile.Fetcher
	parser   Parser
	renderer Renderer
	config   loadingConfig
	ctx      context.Context
	fetches  int
}

func NewTileLoadingSystem(fetcher tile.Fetcher, parser Parser, renderer Renderer, opts ...LoadingOption) *TileLoadingSystem {
	config := loadingConfig{
		tileSize: DefaultTileSize,
		quantum:  DefaultQuantum,
		kinds:    []layers.Kind{layers.World, layers.Labels},
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &TileLoadingSystem{
		fetcher:  fetcher,
		parser:   parser,
		renderer: renderer,
		config:   config,
		ctx:      context.Background(),
	}
}

func (*TileLoadingSystem) Name() string { return "tile_loading" }

// Fetches is the total number of fetches issued.
func (l *TileLoadingSystem) Fetches() int { return l.fetches }

func (l *TileLoadingSystem) Update(ctx *ecs.Context, _ time.Duration) {
	s := ctx.Store
	state := cellState(s)
	if len(state.Requested) > 0 {
		l.request(ctx, state.Requested)
		state.Requested = nil
	}

	for e := range s.Query(ecs.TypeOf[*Response]()) {
		r, _ := ecs.Get[*Response](s, e)
		if !r.Done {
			continue
		}
		ecs.DetachType[*Response](s, e)
		if r.Err != nil {
			l.fail(ctx, e, r.Err)
			continue
		}
		l.spawn(ctx, e, r.Data)
	}
}

func (l *TileLoadingSystem) request(ctx *ecs.Context, requested []cell.Key) {
	s := ctx.Store
	resident := cellEntities(s)

	var keys []cell.Key
	for _, key := range requested {
		if _, ok := resident[key]; !ok && !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return
	}
	slices.SortFunc(keys, func(a, b cell.Key) int {
		return cmp.Compare(a.Code(), b.Code())
	})

	donors := donorIndex(s)
	var layerEntities []ecs.Entity
	for _, kind := range l.config.kinds {
		layerEntities = append(layerEntities, layers.OfKind(s, kind)...)
	}

	for _, key := range keys {
		ce := s.CreateEntity("cell_" + key.String())
		s.Attach(ce, &CellComponent{Key: key})
		s.Attach(ce, &StateComponent{State: Requested})
		s.Attach(ce, &Response{})

		tiles := make([]ecs.Entity, 0, len(layerEntities))
		for _, le := range layerEntities {
			layer, _ := ecs.Get[*layers.Layer](s, le)
			te := s.CreateEntity(fmt.Sprintf("tile_%v_%v", layer.Kind, key))
			s.Attach(te, &CellComponent{Key: key})
			s.Attach(te, &KindComponent{Kind: layer.Kind})
			s.Attach(te, &layers.Parent{Layer: le})
			donor := donorTile(donors[layer.Kind], key, l.config.tileSize)
			s.Attach(te, &TileComponent{Tile: donor})
			if donor != nil {
				layers.TagDirty(s, le)
			}
			tiles = append(tiles, te)
		}
		s.Attach(ce, &TileLayers{Entities: tiles})

		l.fetch(ctx, ce, key)
	}
}

func (l *TileLoadingSystem) fetch(ctx *ecs.Context, ce ecs.Entity, key cell.Key) {
	s := ctx.Store
	setState(s, ce, Downloading, nil)
	l.fetches++
	ctx.Logger.Debug("livemap: fetch", slog.String("cell", key.String()), slog.String("tile", key.TileID().String()))

	deliver := func(data []byte, err error) {
		s.Post(func(s *ecs.Store) {
			r, ok := ecs.Get[*Response](s, ce)
			if !ok {
				return
			}
			r.Data, r.Err, r.Done = data, err, true
			if err != nil {
				setState(s, ce, DownloadFailed, err)
			} else {
				setState(s, ce, Downloaded, nil)
			}
		})
	}
	l.fetcher.Fetch(l.ctx, key.TileID()).OnResult(
		func(data []byte) { deliver(data, nil) },
		func(err error) { deliver(nil, err) },
	)
}

// fail replaces every layer of the cell with an error placeholder.
func (l *TileLoadingSystem) fail(ctx *ecs.Context, ce ecs.Entity, err error) {
	s := ctx.Store
	c, _ := ecs.Get[*CellComponent](s, ce)
	ctx.Logger.Info("livemap: tile download failed", slog.String("cell", c.Key.String()), slog.Any("error", err))

	setState(s, ce, DownloadFailed, err)
	placeholder := &Tile{Image: Placeholder(err, l.config.tileSize), NonCacheable: true}
	if tl, ok := ecs.Get[*TileLayers](s, ce); ok {
		for _, te := range tl.Entities {
			if tc, ok := ecs.Get[*TileComponent](s, te); ok {
				tc.Tile = placeholder
				layers.TagDirtyParent(s, te)
			}
		}
	}
	setState(s, ce, Rendered, err)
}

type done = struct{}

// spawn starts parse.FlatMap(join(render per layer)) on the cell entity.
func (l *TileLoadingSystem) spawn(ctx *ecs.Context, ce ecs.Entity, data []byte) {
	s := ctx.Store
	c, _ := ecs.Get[*CellComponent](s, ce)
	key := c.Key
	var tiles []ecs.Entity
	if tl, ok := ecs.Get[*TileLayers](s, ce); ok {
		tiles = tl.Entities
	}

	setState(s, ce, Parsing, nil)
	pipeline := task.FlatMap(l.parser.Parse(key, data), func(td *TileData) task.Microtask[[]done] {
		setState(s, ce, Parsed, nil)
		renders := make([]task.Microtask[done], 0, len(tiles))
		for _, te := range tiles {
			kind, _ := ecs.Get[*KindComponent](s, te)
			renders = append(renders, task.Map(l.renderer.Render(key, td, kind.Kind), func(img image.Image) (done, error) {
				if tc, ok := ecs.Get[*TileComponent](s, te); ok {
					tc.Tile = &Tile{Image: img}
					layers.TagDirtyParent(s, te)
				}
				return done{}, nil
			}))
		}
		return task.FlatMap(
			task.Func(func() (done, error) {
				setState(s, ce, Rendering, nil)
				return done{}, nil
			}),
			func(done) task.Microtask[[]done] { return task.Join(renders...) },
		)
	})

	task.Spawn(s, ce, pipeline,
		task.WithName("pipeline_"+key.String()),
		task.WithQuantum(l.config.quantum),
		task.OnResult(func([]done) { setState(s, ce, Rendered, nil) }),
		task.OnFailure(func(err error) {
			s.Logger().Warn("livemap: tile pipeline failed", slog.String("cell", key.String()), slog.Any("error", err))
			if st, ok := ecs.Get[*StateComponent](s, ce); ok {
				st.Err = err
			}
		}),
	)
}

// DownloadingCount returns the number of cells waiting for their fetch.
func DownloadingCount(s *ecs.Store) int {
	return s.CountOf(ecs.TypeOf[*Response]())
}
