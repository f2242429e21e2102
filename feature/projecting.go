package feature

import (
	"log/slog"
	"time"

	"github.com/eak1mov/go-livemap/ecs"
	"github.com/eak1mov/go-livemap/layers"
	"github.com/eak1mov/go-livemap/projection"
	"github.com/eak1mov/go-livemap/task"
	"github.com/paulmach/orb"
)

const (
	DefaultQuantum = 4
	// pointBatch is the number of multipoint points projected per step.
	pointBatch = 512
)

type Option func(*ProjectionSystem)

func WithQuantum(n int) Option {
	return func(p *ProjectionSystem) { p.quantum = n }
}

// WithResampleStep sets the segment length, in degrees, used to densify
// lines before a nonlinear projection.
func WithResampleStep(step float64) Option {
	return func(p *ProjectionSystem) { p.step = step }
}

// ProjectionSystem spawns a projection microtask for every feature that has
// no world geometry yet. Points outside the projection domain are dropped;
// a feature left with nothing records ErrOutsideDomain as its failure.
type ProjectionSystem struct {
	mp       projection.MapProjection
	quantum  int
	step     float64
	launched int
}

func NewProjectionSystem(mp projection.MapProjection, opts ...Option) *ProjectionSystem {
	p := &ProjectionSystem{mp: mp, quantum: DefaultQuantum, step: projection.DefaultResampleStep}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (*ProjectionSystem) Name() string { return "feature_projection" }

// Launched is the number of projection tasks spawned so far.
func (p *ProjectionSystem) Launched() int { return p.launched }

func (p *ProjectionSystem) Update(ctx *ecs.Context, _ time.Duration) {
	s := ctx.Store
	for e := range s.Query(ecs.TypeOf[*Source]()) {
		if ecs.Has[*World](s, e) || ecs.Has[*task.Thread](s, e) || ecs.Has[*task.Failure](s, e) {
			continue
		}
		src, _ := ecs.Get[*Source](s, e)
		p.spawn(ctx, e, src.Feature)
	}
}

func (p *ProjectionSystem) spawn(ctx *ecs.Context, e ecs.Entity, f Feature) {
	s := ctx.Store
	b := &builder{mp: p.mp, densify: p.mp.Projection().Nonlinear(), step: p.step}
	steps, finish := b.plan(f.Geometry)
	mt := task.Loop(len(steps),
		func(i int) error {
			steps[i]()
			return nil
		},
		func() (*World, error) {
			g := finish()
			if g == nil {
				return nil, ErrOutsideDomain
			}
			return &World{Geometry: g, Bound: g.Bound(), Kept: b.kept, Dropped: b.dropped}, nil
		})

	p.launched++
	task.Spawn(s, e, mt,
		task.WithName(s.Name(e)),
		task.WithQuantum(p.quantum),
		task.OnResult(func(w *World) {
			if !s.Exists(e) {
				return
			}
			s.Replace(e, w)
			layers.TagDirtyParent(s, e)
			if w.Dropped > 0 {
				s.Logger().Debug("livemap: feature points dropped", slog.String("feature", s.Name(e)), slog.Int("dropped", w.Dropped))
			}
		}),
		task.OnFailure(func(err error) {
			s.Logger().Info("livemap: feature not projected", slog.String("feature", s.Name(e)), slog.Any("error", err))
		}),
	)
}

type builder struct {
	mp      projection.MapProjection
	densify bool
	step    float64
	kept    []int
	dropped int
}

func (b *builder) point(p orb.Point) (orb.Point, bool) {
	w, ok := b.mp.Project(p)
	if !ok {
		b.dropped++
	}
	return w, ok
}

func (b *builder) line(line []orb.Point) []orb.Point {
	if b.densify {
		line = projection.Resample(line, b.step)
	}
	result := make([]orb.Point, 0, len(line))
	for _, p := range line {
		if w, ok := b.point(p); ok {
			result = append(result, w)
		}
	}
	return result
}

// ring returns nil when fewer than three distinct corners survive.
func (b *builder) ring(r orb.Ring) orb.Ring {
	points := b.line(r)
	if n := len(points); n > 0 && points[0] != points[n-1] {
		points = append(points, points[0])
	}
	if len(points) < 4 {
		return nil
	}
	return orb.Ring(points)
}

// plan splits the projection of g into steps; finish assembles the result,
// nil when nothing survived.
func (b *builder) plan(g orb.Geometry) (steps []func(), finish func() orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		var result orb.Geometry
		steps = append(steps, func() {
			if w, ok := b.point(g); ok {
				result = w
			}
		})
		return steps, func() orb.Geometry { return result }

	case orb.MultiPoint:
		result := make(orb.MultiPoint, 0, len(g))
		for start := 0; start < len(g); start += pointBatch {
			end := min(start+pointBatch, len(g))
			steps = append(steps, func() {
				for i := start; i < end; i++ {
					if w, ok := b.point(g[i]); ok {
						result = append(result, w)
						b.kept = append(b.kept, i)
					}
				}
			})
		}
		return steps, func() orb.Geometry {
			if len(result) == 0 {
				return nil
			}
			return result
		}

	case orb.LineString:
		var result orb.LineString
		steps = append(steps, func() { result = b.line(g) })
		return steps, func() orb.Geometry {
			if len(result) < 2 {
				return nil
			}
			return result
		}

	case orb.MultiLineString:
		var result orb.MultiLineString
		for _, line := range g {
			steps = append(steps, func() {
				if l := b.line(line); len(l) >= 2 {
					result = append(result, l)
				}
			})
		}
		return steps, func() orb.Geometry {
			if len(result) == 0 {
				return nil
			}
			return result
		}

	case orb.Polygon:
		rings := make([]orb.Ring, len(g))
		for i, r := range g {
			steps = append(steps, func() { rings[i] = b.ring(r) })
		}
		return steps, func() orb.Geometry {
			if p := assemble(rings); p != nil {
				return p
			}
			return nil
		}

	case orb.MultiPolygon:
		polygons := make([][]orb.Ring, len(g))
		for i, polygon := range g {
			polygons[i] = make([]orb.Ring, len(polygon))
			for j, r := range polygon {
				steps = append(steps, func() { polygons[i][j] = b.ring(r) })
			}
		}
		return steps, func() orb.Geometry {
			var result orb.MultiPolygon
			for _, rings := range polygons {
				if p := assemble(rings); p != nil {
					result = append(result, p)
				}
			}
			if len(result) == 0 {
				return nil
			}
			return result
		}
	}
	return nil, func() orb.Geometry { return nil }
}

// assemble drops a polygon whose outer ring is gone and the holes that are.
func assemble(rings []orb.Ring) orb.Polygon {
	if len(rings) == 0 || rings[0] == nil {
		return nil
	}
	p := orb.Polygon{rings[0]}
	for _, r := range rings[1:] {
		if r != nil {
			p = append(p, r)
		}
	}
	return p
}
