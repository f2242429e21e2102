package task

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/eak1mov/go-livemap/ecs"
)

// Thread is the component that makes an entity's microtask schedulable.
type Thread struct {
	name      string
	quantum   int
	resumes   int
	resume    func()
	alive     func() bool
	complete  func(store *ecs.Store, e ecs.Entity)
	onResult  func(any)
	onFailure func(error)
	finished  bool
}

func (t *Thread) Name() string { return t.name }

// Resumes is the number of Resume calls made so far.
func (t *Thread) Resumes() int { return t.resumes }

// Result is attached to the entity when a spawned task completes without an
// OnResult continuation.
type Result[T any] struct {
	Value T
}

// Failure is attached to the entity when a spawned task fails.
type Failure struct {
	Err error
}

type Option func(*Thread)

// WithQuantum sets how many times the task is resumed per scheduling slice.
func WithQuantum(n int) Option {
	return func(t *Thread) { t.quantum = max(1, n) }
}

func WithName(name string) Option {
	return func(t *Thread) { t.name = name }
}

// OnResult replaces the Result component with a continuation. It runs on the
// simulation goroutine.
func OnResult[T any](f func(T)) Option {
	return func(t *Thread) { t.onResult = func(v any) { f(v.(T)) } }
}

// OnFailure registers a continuation called with the task error.
func OnFailure(f func(error)) Option {
	return func(t *Thread) { t.onFailure = f }
}

// Spawn attaches the task to the entity as a *Thread component. The entity
// must not already run a task.
func Spawn[T any](s *ecs.Store, e ecs.Entity, mt Microtask[T], opts ...Option) *Thread {
	t := &Thread{
		name:    s.Name(e),
		quantum: 1,
		resume:  mt.Resume,
		alive:   mt.Alive,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.complete = func(s *ecs.Store, e ecs.Entity) {
		v, err := mt.Result()
		if err != nil {
			if s.Exists(e) {
				s.Replace(e, &Failure{Err: err})
			}
			t.fail(s, err)
			return
		}
		if t.onResult != nil {
			t.onResult(v)
			return
		}
		if s.Exists(e) {
			s.Replace(e, &Result[T]{Value: v})
		}
	}
	s.Attach(e, t)
	return t
}

// Cancel stops scheduling the entity's task. Work already done is kept.
func Cancel(s *ecs.Store, e ecs.Entity) bool {
	t, ok := ecs.Get[*Thread](s, e)
	if !ok {
		return false
	}
	t.finished = true
	return ecs.DetachType[*Thread](s, e)
}

func (t *Thread) fail(s *ecs.Store, err error) {
	s.Logger().Debug("livemap: microtask failed", slog.String("task", t.name), slog.Any("error", err))
	if t.onFailure != nil {
		t.onFailure(err)
	}
}

// slice resumes the task up to quantum times and reports whether it is
// still alive afterwards.
func (t *Thread) slice(s *ecs.Store, e ecs.Entity) (alive bool) {
	defer func() {
		if r := recover(); r != nil {
			t.finished = true
			ecs.DetachType[*Thread](s, e)
			err := fmt.Errorf("%w: %v", ErrTaskPanic, r)
			if s.Exists(e) {
				s.Replace(e, &Failure{Err: err})
			}
			t.fail(s, err)
			alive = false
		}
	}()

	for i := 0; i < t.quantum && t.alive(); i++ {
		t.resume()
		t.resumes++
	}
	if t.alive() {
		return true
	}
	t.finished = true
	ecs.DetachType[*Thread](s, e)
	t.complete(s, e)
	return false
}

// Scheduler is the system that advances spawned microtasks within a time
// budget per tick.
type Scheduler struct {
	budget  time.Duration
	loading int
	slices  int
}

func SchedulerSystem(budget time.Duration) *Scheduler {
	return &Scheduler{budget: budget}
}

func (*Scheduler) Name() string { return "scheduler" }

// Update gives every live thread one slice, then keeps resuming threads
// round-robin until the budget is spent or all of them finish.
func (sc *Scheduler) Update(ctx *ecs.Context, _ time.Duration) {
	s := ctx.Store
	start := ctx.Clock.Now()

	type entry struct {
		e ecs.Entity
		t *Thread
	}
	var active []entry
	for e := range s.Query(ecs.TypeOf[*Thread]()) {
		t, _ := ecs.Get[*Thread](s, e)
		active = append(active, entry{e, t})
	}

	sc.slices = 0
	for len(active) > 0 {
		next := active[:0]
		for _, en := range active {
			if cur, ok := ecs.Get[*Thread](s, en.e); !ok || cur != en.t || en.t.finished {
				continue
			}
			sc.slices++
			if en.t.slice(s, en.e) {
				next = append(next, en)
			}
		}
		active = next
		if ctx.Clock.Now().Sub(start) >= sc.budget {
			break
		}
	}
	sc.loading = s.CountOf(ecs.TypeOf[*Thread]())
}

// Loading reports whether threads were left unfinished by the last Update.
func (sc *Scheduler) Loading() bool { return sc.loading > 0 }

// Pending is the number of threads left unfinished by the last Update.
func (sc *Scheduler) Pending() int { return sc.loading }

// Slices is the number of slices run during the last Update.
func (sc *Scheduler) Slices() int { return sc.slices }
