package basemap

import (
	"time"

	"github.com/eak1mov/go-livemap/cell"
	"github.com/eak1mov/go-livemap/ecs"
)

// Camera is the part of the viewport the cell systems depend on.
type Camera interface {
	VisibleCells() []cell.Key
	Version() uint64
}

// CellStateSystem recomputes visible cells whenever the camera changes and
// publishes the cells that need to be requested.
type CellStateSystem struct {
	camera  Camera
	version uint64
	invalid bool
}

func NewCellStateSystem(camera Camera) *CellStateSystem {
	return &CellStateSystem{camera: camera, invalid: true}
}

func (*CellStateSystem) Name() string { return "cell_state" }

// Invalidate forces a recomputation on the next Update.
func (c *CellStateSystem) Invalidate() { c.invalid = true }

func (c *CellStateSystem) Update(ctx *ecs.Context, _ time.Duration) {
	s := ctx.Store
	state := cellState(s)
	if !c.invalid && c.camera.Version() == c.version {
		return
	}
	c.invalid = false
	c.version = c.camera.Version()

	visible := c.camera.VisibleCells()
	state.Visible = make(map[cell.Key]bool, len(visible))
	for _, key := range visible {
		state.Visible[key] = true
		state.LastVisible[key] = ctx.Tick
	}

	resident := cellEntities(s)
	for key, e := range resident {
		if !inFlight(s, e) && nonCacheable(s, e) {
			removeCell(s, e)
			delete(resident, key)
		}
	}

	state.Requested = state.Requested[:0]
	for _, key := range visible {
		if _, ok := resident[key]; !ok {
			state.Requested = append(state.Requested, key)
		}
	}
}

func nonCacheable(s *ecs.Store, ce ecs.Entity) bool {
	tl, ok := ecs.Get[*TileLayers](s, ce)
	if !ok {
		return false
	}
	for _, te := range tl.Entities {
		if tc, ok := ecs.Get[*TileComponent](s, te); ok && tc.Tile != nil && tc.Tile.NonCacheable {
			return true
		}
	}
	return false
}
