package basemap

import (
	"context"
	"image"
	"maps"
	"sync"
	"time"

	"github.com/eak1mov/go-livemap/async"
	"github.com/eak1mov/go-livemap/cell"
	"github.com/eak1mov/go-livemap/ecs"
	"github.com/eak1mov/go-livemap/layers"
	"github.com/eak1mov/go-livemap/task"
	"github.com/eak1mov/go-livemap/tile"
)

// CellStats are the timings and sizes recorded for one cell.
type CellStats struct {
	FetchTime  time.Duration
	ParseTime  time.Duration
	RenderTime time.Duration
	// Size is the fetched payload size in bytes.
	Size     int
	Features int
	Layers   int
	Err      string
}

// Stats is a per-cell statistics table. It is written from transport
// goroutines and read by the host, so every access is locked.
type Stats struct {
	mu    sync.Mutex
	cells map[cell.Key]CellStats
}

func NewStats() *Stats {
	return &Stats{cells: make(map[cell.Key]CellStats)}
}

func (s *Stats) update(key cell.Key, f func(*CellStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := s.cells[key]
	f(&cs)
	s.cells[key] = cs
}

func (s *Stats) Get(key cell.Key) (CellStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.cells[key]
	return cs, ok
}

// Snapshot returns a copy of the whole table.
func (s *Stats) Snapshot() map[cell.Key]CellStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.cells)
}

func (s *Stats) Remove(key cell.Key) {
	s.mu.Lock()
	delete(s.cells, key)
	s.mu.Unlock()
}

func (s *Stats) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cells)
}

// DebugFetcher records fetch time and payload size.
type DebugFetcher struct {
	stats *Stats
	clock ecs.Clock
	next  tile.Fetcher
}

func NewDebugFetcher(stats *Stats, clock ecs.Clock, next tile.Fetcher) *DebugFetcher {
	return &DebugFetcher{stats: stats, clock: clock, next: next}
}

func (d *DebugFetcher) Fetch(ctx context.Context, tileID tile.ID) *async.Future[[]byte] {
	key := cell.FromTileID(tileID)
	start := d.clock.Now()
	future := d.next.Fetch(ctx, tileID)
	future.Then(func(data []byte, err error) {
		elapsed := d.clock.Now().Sub(start)
		d.stats.update(key, func(cs *CellStats) {
			cs.FetchTime = elapsed
			cs.Size = len(data)
			cs.Err = ""
			if err != nil {
				cs.Err = err.Error()
			}
		})
	})
	return future
}

// DebugParser records parse time and the number of parsed features.
type DebugParser struct {
	stats *Stats
	clock ecs.Clock
	next  Parser
}

func NewDebugParser(stats *Stats, clock ecs.Clock, next Parser) *DebugParser {
	return &DebugParser{stats: stats, clock: clock, next: next}
}

func (d *DebugParser) Parse(key cell.Key, data []byte) task.Microtask[*TileData] {
	return timed(d.clock, d.next.Parse(key, data), func(elapsed time.Duration, td *TileData, err error) {
		d.stats.update(key, func(cs *CellStats) {
			cs.ParseTime = elapsed
			if err != nil {
				cs.Err = err.Error()
				return
			}
			cs.Features = td.Features()
		})
	})
}

// DebugRenderer accumulates render time over the layers of a cell.
type DebugRenderer struct {
	stats *Stats
	clock ecs.Clock
	next  Renderer
}

func NewDebugRenderer(stats *Stats, clock ecs.Clock, next Renderer) *DebugRenderer {
	return &DebugRenderer{stats: stats, clock: clock, next: next}
}

func (d *DebugRenderer) Render(key cell.Key, data *TileData, kind layers.Kind) task.Microtask[image.Image] {
	return timed(d.clock, d.next.Render(key, data, kind), func(elapsed time.Duration, _ image.Image, err error) {
		d.stats.update(key, func(cs *CellStats) {
			cs.RenderTime += elapsed
			cs.Layers++
			if err != nil {
				cs.Err = err.Error()
			}
		})
	})
}

// timedTask sums the time spent in Resume and reports it once on completion.
type timedTask[T any] struct {
	inner    task.Microtask[T]
	clock    ecs.Clock
	elapsed  time.Duration
	report   func(time.Duration, T, error)
	reported bool
}

func timed[T any](clock ecs.Clock, inner task.Microtask[T], report func(time.Duration, T, error)) task.Microtask[T] {
	return &timedTask[T]{inner: inner, clock: clock, report: report}
}

func (t *timedTask[T]) Resume() {
	if !t.inner.Alive() {
		return
	}
	start := t.clock.Now()
	t.inner.Resume()
	t.elapsed += t.clock.Now().Sub(start)
	if !t.inner.Alive() && !t.reported {
		t.reported = true
		v, err := t.inner.Result()
		t.report(t.elapsed, v, err)
	}
}

func (t *timedTask[T]) Alive() bool        { return t.inner.Alive() }
func (t *timedTask[T]) Result() (T, error) { return t.inner.Result() }
