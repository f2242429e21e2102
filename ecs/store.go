// Package ecs implements the entity-component store the map engine runs on.
//
// Entities are opaque ids, components are arbitrary values keyed by their
// dynamic type, and systems run in registration order once per Update. The
// store is owned by a single simulation goroutine; other goroutines talk to it
// only through Post.
package ecs

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"sync"
	"time"
)

var (
	ErrNoEntity           = errors.New("livemap: entity does not exist")
	ErrDuplicateComponent = errors.New("livemap: component already attached")
)

// Entity is a unique identifier of an entity. Zero is never a valid entity.
type Entity uint64

type Component any

type entityRecord struct {
	name       string
	components map[reflect.Type]Component
}

type storeConfig struct {
	logger *slog.Logger
	clock  Clock
}

type StoreOption func(*storeConfig)

func WithLogger(logger *slog.Logger) StoreOption {
	return func(c *storeConfig) { c.logger = logger }
}

func WithClock(clock Clock) StoreOption {
	return func(c *storeConfig) { c.clock = clock }
}

type Store struct {
	nextEntity Entity
	entities   map[Entity]*entityRecord
	byType     map[reflect.Type]map[Entity]struct{}

	systems     []System
	systemTimes []SystemTime
	tick        uint64

	logger *slog.Logger
	clock  Clock

	inboxMu sync.Mutex
	inbox   []func(*Store)
}

func NewStore(opts ...StoreOption) *Store {
	config := storeConfig{
		logger: slog.New(slog.DiscardHandler),
		clock:  SystemClock{},
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Store{
		nextEntity: 1,
		entities:   make(map[Entity]*entityRecord),
		byType:     make(map[reflect.Type]map[Entity]struct{}),
		logger:     config.logger,
		clock:      config.clock,
	}
}

func (s *Store) Logger() *slog.Logger { return s.logger }
func (s *Store) Clock() Clock         { return s.clock }

// CreateEntity creates an entity without components. The name is used in
// diagnostics only.
func (s *Store) CreateEntity(name string) Entity {
	e := s.nextEntity
	s.nextEntity++
	s.entities[e] = &entityRecord{name: name, components: make(map[reflect.Type]Component)}
	return e
}

// Remove destroys the entity and detaches all its components. Removing an
// unknown entity is a no-op.
func (s *Store) Remove(e Entity) {
	rec, ok := s.entities[e]
	if !ok {
		return
	}
	for t := range rec.components {
		s.unindex(e, t)
	}
	delete(s.entities, e)
}

func (s *Store) Exists(e Entity) bool {
	_, ok := s.entities[e]
	return ok
}

// Count returns the number of live entities.
func (s *Store) Count() int { return len(s.entities) }

func (s *Store) Name(e Entity) string {
	if rec, ok := s.entities[e]; ok {
		return rec.name
	}
	return ""
}

func (s *Store) record(e Entity) *entityRecord {
	rec, ok := s.entities[e]
	if !ok {
		panic(fmt.Errorf("%w: %d", ErrNoEntity, e))
	}
	return rec
}

// Attach adds a component to the entity. It panics if a component of the same
// type is already attached or the entity does not exist.
func (s *Store) Attach(e Entity, c Component) {
	rec := s.record(e)
	t := reflect.TypeOf(c)
	if _, ok := rec.components[t]; ok {
		panic(fmt.Errorf("%w: %v on %q", ErrDuplicateComponent, t, rec.name))
	}
	rec.components[t] = c
	s.index(e, t)
}

// Replace attaches the component, overwriting one of the same type.
func (s *Store) Replace(e Entity, c Component) {
	rec := s.record(e)
	t := reflect.TypeOf(c)
	rec.components[t] = c
	s.index(e, t)
}

// Detach removes the component of type t; it reports whether one was attached.
func (s *Store) Detach(e Entity, t reflect.Type) bool {
	rec, ok := s.entities[e]
	if !ok {
		return false
	}
	if _, ok := rec.components[t]; !ok {
		return false
	}
	delete(rec.components, t)
	s.unindex(e, t)
	return true
}

func (s *Store) Component(e Entity, t reflect.Type) (Component, bool) {
	rec, ok := s.entities[e]
	if !ok {
		return nil, false
	}
	c, ok := rec.components[t]
	return c, ok
}

func (s *Store) HasType(e Entity, t reflect.Type) bool {
	_, ok := s.Component(e, t)
	return ok
}

// Components returns the types attached to the entity, in no particular order.
func (s *Store) Components(e Entity) []reflect.Type {
	rec, ok := s.entities[e]
	if !ok {
		return nil
	}
	return slices.Collect(maps.Keys(rec.components))
}

func (s *Store) index(e Entity, t reflect.Type) {
	set, ok := s.byType[t]
	if !ok {
		set = make(map[Entity]struct{})
		s.byType[t] = set
	}
	set[e] = struct{}{}
}

func (s *Store) unindex(e Entity, t reflect.Type) {
	if set, ok := s.byType[t]; ok {
		delete(set, e)
		if len(set) == 0 {
			delete(s.byType, t)
		}
	}
}

// Query yields entities carrying all of the given types, in creation order.
// Candidates are captured when iteration starts: entities created during the
// iteration are not yielded, and entities that are removed or lose a
// required component before their turn are skipped.
func (s *Store) Query(types ...reflect.Type) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		if len(types) == 0 {
			return
		}
		smallest := s.byType[types[0]]
		for _, t := range types[1:] {
			if set := s.byType[t]; len(set) < len(smallest) {
				smallest = set
			}
		}
		candidates := slices.Sorted(maps.Keys(smallest))
		for _, e := range candidates {
			if s.hasAll(e, types) && !yield(e) {
				return
			}
		}
	}
}

// CountOf returns the number of entities carrying a component of type t.
func (s *Store) CountOf(t reflect.Type) int { return len(s.byType[t]) }

func (s *Store) hasAll(e Entity, types []reflect.Type) bool {
	rec, ok := s.entities[e]
	if !ok {
		return false
	}
	for _, t := range types {
		if _, ok := rec.components[t]; !ok {
			return false
		}
	}
	return true
}

// Post schedules f to run on the simulation goroutine at the start of the
// next Update. It is safe to call from any goroutine.
func (s *Store) Post(f func(*Store)) {
	s.inboxMu.Lock()
	s.inbox = append(s.inbox, f)
	s.inboxMu.Unlock()
}

func (s *Store) drainInbox() {
	s.inboxMu.Lock()
	inbox := s.inbox
	s.inbox = nil
	s.inboxMu.Unlock()

	for _, f := range inbox {
		f(s)
	}
}

// Pending returns the number of posted closures not yet run.
func (s *Store) Pending() int {
	s.inboxMu.Lock()
	defer s.inboxMu.Unlock()
	return len(s.inbox)
}

// Tick is the number of completed Update calls.
func (s *Store) Tick() uint64 { return s.tick }

func (s *Store) AddSystem(sys System) {
	s.systems = append(s.systems, sys)
}

// Update drains the inbox and runs every system in registration order.
func (s *Store) Update(dt time.Duration) {
	s.drainInbox()

	ctx := &Context{
		Store:      s,
		Logger:     s.logger,
		Clock:      s.clock,
		Tick:       s.tick,
		FrameStart: s.clock.Now(),
	}
	times := make([]SystemTime, 0, len(s.systems))
	for _, sys := range s.systems {
		start := s.clock.Now()
		sys.Update(ctx, dt)
		times = append(times, SystemTime{Name: SystemName(sys), Duration: s.clock.Now().Sub(start)})
	}
	s.systemTimes = times
	s.tick++
}

// SystemTimes returns the duration of every system during the last Update.
func (s *Store) SystemTimes() []SystemTime {
	return slices.Clone(s.systemTimes)
}

// SlowestSystem returns the system that took the most time during the last Update.
func (s *Store) SlowestSystem() (SystemTime, bool) {
	if len(s.systemTimes) == 0 {
		return SystemTime{}, false
	}
	return slices.MaxFunc(s.systemTimes, func(a, b SystemTime) int {
		return cmp.Compare(a.Duration, b.Duration)
	}), true
}
