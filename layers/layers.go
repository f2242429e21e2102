// Package layers keeps the screen layers the host draws, and which of them
// need a redraw.
package layers

import (
	"github.com/eak1mov/go-livemap/ecs"
)

// Kind identifies what a layer shows.
type Kind int

const (
	// World holds the vector basemap ground: land, water, roads.
	World Kind = iota
	// Labels holds basemap text drawn above features.
	Labels
	// Raster holds raster basemap tiles.
	Raster
	// Features holds application features.
	Features
)

func (k Kind) String() string {
	switch k {
	case World:
		return "world"
	case Labels:
		return "labels"
	case Raster:
		return "raster"
	case Features:
		return "features"
	}
	return "unknown"
}

// Layer is the component of a layer entity.
type Layer struct {
	Name  string
	Kind  Kind
	Order int
	dirty bool
}

func (l *Layer) Dirty() bool { return l.dirty }

// Parent links a drawable entity to its layer entity.
type Parent struct {
	Layer ecs.Entity
}

// DirtyHandler is told about every layer becoming dirty.
type DirtyHandler func(layer ecs.Entity, l *Layer)

// notifier is the singleton component holding the dirty handler.
type notifier struct {
	handler DirtyHandler
}

// Create adds a layer entity. Layers are drawn in creation order.
func Create(s *ecs.Store, name string, kind Kind) ecs.Entity {
	e := s.CreateEntity("layer_" + name)
	s.Attach(e, &Layer{Name: name, Kind: kind, Order: s.CountOf(ecs.TypeOf[*Layer]())})
	return e
}

// SetDirtyHandler installs a callback run whenever a layer turns dirty.
func SetDirtyHandler(s *ecs.Store, h DirtyHandler) {
	if e, ok := ecs.SingletonEntity[*notifier](s); ok {
		s.Replace(e, &notifier{handler: h})
		return
	}
	e := s.CreateEntity("dirty_notifier")
	s.Attach(e, &notifier{handler: h})
}

// All returns layer entities in drawing order.
func All(s *ecs.Store) []ecs.Entity {
	var result []ecs.Entity
	for e := range s.Query(ecs.TypeOf[*Layer]()) {
		result = append(result, e)
	}
	return result
}

// OfKind returns the layers of the given kind in drawing order.
func OfKind(s *ecs.Store, kind Kind) []ecs.Entity {
	var result []ecs.Entity
	for e := range s.Query(ecs.TypeOf[*Layer]()) {
		if l, _ := ecs.Get[*Layer](s, e); l.Kind == kind {
			result = append(result, e)
		}
	}
	return result
}

// TagDirty marks the layer for redraw.
func TagDirty(s *ecs.Store, layer ecs.Entity) {
	l, ok := ecs.Get[*Layer](s, layer)
	if !ok {
		return
	}
	wasDirty := l.dirty
	l.dirty = true
	if wasDirty {
		return
	}
	if n, ok := ecs.Singleton[*notifier](s); ok && n.handler != nil {
		n.handler(layer, l)
	}
}

// TagDirtyParent marks the layer owning e for redraw.
func TagDirtyParent(s *ecs.Store, e ecs.Entity) {
	if p, ok := ecs.Get[*Parent](s, e); ok {
		TagDirty(s, p.Layer)
	}
}

// TakeDirty returns the names of dirty layers in drawing order and clears
// their flags.
func TakeDirty(s *ecs.Store) []string {
	var names []string
	for e := range s.Query(ecs.TypeOf[*Layer]()) {
		l, _ := ecs.Get[*Layer](s, e)
		if l.dirty {
			names = append(names, l.Name)
			l.dirty = false
		}
	}
	return names
}

// DirtyNames is TakeDirty without clearing the flags.
func DirtyNames(s *ecs.Store) []string {
	var names []string
	for e := range s.Query(ecs.TypeOf[*Layer]()) {
		if l, _ := ecs.Get[*Layer](s, e); l.dirty {
			names = append(names, l.Name)
		}
	}
	return names
}
