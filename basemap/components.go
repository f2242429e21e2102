// Package basemap implements the tile pipeline: visible cells are requested,
// fetched, parsed and rendered into per-layer tile images, and evicted when
// the cache grows past its limit.
package basemap

import (
	"fmt"
	"image"

	"github.com/eak1mov/go-livemap/cell"
	"github.com/eak1mov/go-livemap/ecs"
	"github.com/eak1mov/go-livemap/layers"
	"github.com/eak1mov/go-livemap/task"
)

// State is the pipeline stage of a cell.
type State int

const (
	Requested State = iota
	Downloading
	Downloaded
	DownloadFailed
	Parsing
	Parsed
	Rendering
	Rendered
)

func (s State) String() string {
	switch s {
	case Requested:
		return "requested"
	case Downloading:
		return "downloading"
	case Downloaded:
		return "downloaded"
	case DownloadFailed:
		return "download failed"
	case Parsing:
		return "parsing"
	case Parsed:
		return "parsed"
	case Rendering:
		return "rendering"
	case Rendered:
		return "rendered"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Tile is a rendered snapshot of one layer of one cell.
type Tile struct {
	Image image.Image
	// NonCacheable marks error placeholders: the cell is fetched again on the
	// next visibility recomputation.
	NonCacheable bool
	// Donor marks an upscaled crop of an ancestor tile shown until the cell's
	// own tile is rendered.
	Donor bool
}

// CellComponent is attached to cell entities and to their tile entities.
type CellComponent struct {
	Key cell.Key
}

// KindComponent is the layer kind of a tile entity.
type KindComponent struct {
	Kind layers.Kind
}

// TileComponent holds the current tile of a tile entity; Tile is nil until
// something can be shown.
type TileComponent struct {
	Tile *Tile
}

// StateComponent tracks a cell entity through the pipeline.
type StateComponent struct {
	State State
	// Err is the error that stopped the pipeline, if any.
	Err error
}

// TileLayers lists the tile entities of a cell entity, one per basemap layer.
type TileLayers struct {
	Entities []ecs.Entity
}

// Response receives the fetch outcome of a cell. It is filled on the
// simulation goroutine through the store inbox.
type Response struct {
	Data []byte
	Err  error
	Done bool
}

// CellState is the singleton shared by the cell systems.
type CellState struct {
	Visible map[cell.Key]bool
	// Requested are visible cells that are neither resident nor in flight.
	// The loading system consumes them.
	Requested []cell.Key
	// LastVisible is the tick at which a cell was last visible.
	LastVisible map[cell.Key]uint64
}

func NewCellState() *CellState {
	return &CellState{
		Visible:     make(map[cell.Key]bool),
		LastVisible: make(map[cell.Key]uint64),
	}
}

func cellState(s *ecs.Store) *CellState {
	st, ok := ecs.Singleton[*CellState](s)
	if !ok {
		st = NewCellState()
		s.Attach(s.CreateEntity("cell_state"), st)
	}
	return st
}

// cellEntities returns resident cell entities by key.
func cellEntities(s *ecs.Store) map[cell.Key]ecs.Entity {
	result := make(map[cell.Key]ecs.Entity)
	for e := range s.Query(ecs.TypeOf[*CellComponent](), ecs.TypeOf[*StateComponent]()) {
		c, _ := ecs.Get[*CellComponent](s, e)
		result[c.Key] = e
	}
	return result
}

// inFlight reports whether the cell still waits for its fetch or its task.
func inFlight(s *ecs.Store, e ecs.Entity) bool {
	return ecs.Has[*Response](s, e) || ecs.Has[*task.Thread](s, e)
}

// removeCell removes the cell entity and its tile entities, and marks the
// affected layers dirty.
func removeCell(s *ecs.Store, e ecs.Entity) {
	if tl, ok := ecs.Get[*TileLayers](s, e); ok {
		for _, te := range tl.Entities {
			layers.TagDirtyParent(s, te)
			s.Remove(te)
		}
	}
	s.Remove(e)
}

func setState(s *ecs.Store, e ecs.Entity, state State, err error) {
	if st, ok := ecs.Get[*StateComponent](s, e); ok {
		st.State = state
		st.Err = err
	}
}

// CellStateOf returns the pipeline state of a resident cell.
func CellStateOf(s *ecs.Store, key cell.Key) (State, bool) {
	e, ok := cellEntities(s)[key]
	if !ok {
		return 0, false
	}
	st, _ := ecs.Get[*StateComponent](s, e)
	return st.State, true
}

// TileOf returns the tile of the given layer kind of a resident cell.
func TileOf(s *ecs.Store, key cell.Key, kind layers.Kind) (*Tile, bool) {
	for e := range s.Query(ecs.TypeOf[*CellComponent](), ecs.TypeOf[*KindComponent](), ecs.TypeOf[*TileComponent]()) {
		c, _ := ecs.Get[*CellComponent](s, e)
		k, _ := ecs.Get[*KindComponent](s, e)
		if c.Key != key || k.Kind != kind {
			continue
		}
		t, _ := ecs.Get[*TileComponent](s, e)
		return t.Tile, t.Tile != nil
	}
	return nil, false
}

// Resident is a tile entity with something to show.
type Resident struct {
	Key   cell.Key
	Kind  layers.Kind
	Layer ecs.Entity
	Tile  *Tile
}

// ResidentTiles returns the tiles that can be drawn, in entity order.
func ResidentTiles(s *ecs.Store) []Resident {
	var result []Resident
	for e := range s.Query(ecs.TypeOf[*CellComponent](), ecs.TypeOf[*KindComponent](), ecs.TypeOf[*TileComponent]()) {
		tc, _ := ecs.Get[*TileComponent](s, e)
		if tc.Tile == nil || tc.Tile.Image == nil {
			continue
		}
		c, _ := ecs.Get[*CellComponent](s, e)
		k, _ := ecs.Get[*KindComponent](s, e)
		r := Resident{Key: c.Key, Kind: k.Kind, Tile: tc.Tile}
		if p, ok := ecs.Get[*layers.Parent](s, e); ok {
			r.Layer = p.Layer
		}
		result = append(result, r)
	}
	return result
}
