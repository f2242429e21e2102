package basemap

import (
	"cmp"
	"log/slog"
	"slices"
	"time"

	"github.com/eak1mov/go-livemap/cell"
	"github.com/eak1mov/go-livemap/ecs"
)

const DefaultCacheLimit = 256

// CellRemovingSystem keeps the number of resident cells under a limit. Only
// cells that are neither visible nor in flight are evicted: the deepest zoom
// first, then the ones visible least recently, so coarse ancestors stay
// around longest as donors.
type CellRemovingSystem struct {
	limit   int
	onEvict func(cell.Key)
}

func NewCellRemovingSystem(limit int, onEvict func(cell.Key)) *CellRemovingSystem {
	return &CellRemovingSystem{limit: limit, onEvict: onEvict}
}

func (*CellRemovingSystem) Name() string { return "cell_removing" }

func (r *CellRemovingSystem) Update(ctx *ecs.Context, _ time.Duration) {
	s := ctx.Store
	resident := cellEntities(s)
	excess := len(resident) - r.limit
	if excess <= 0 {
		return
	}

	state := cellState(s)
	type candidate struct {
		key  cell.Key
		e    ecs.Entity
		seen uint64
	}
	var candidates []candidate
	for key, e := range resident {
		if state.Visible[key] || inFlight(s, e) {
			continue
		}
		candidates = append(candidates, candidate{key, e, state.LastVisible[key]})
	}
	slices.SortFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(b.key.Len(), a.key.Len()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.seen, b.seen); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})

	for _, c := range candidates[:min(excess, len(candidates))] {
		removeCell(s, c.e)
		delete(state.LastVisible, c.key)
		if r.onEvict != nil {
			r.onEvict(c.key)
		}
		ctx.Logger.Debug("livemap: cell evicted", slog.String("cell", c.key.String()))
	}
}
