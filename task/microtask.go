// Package task implements microtasks: resumable units of work that the
// scheduler advances a few steps per tick, so parsing and rendering never
// block the simulation goroutine for long.
package task

import (
	"errors"
)

var (
	ErrTaskPanic = errors.New("livemap: microtask panicked")
	ErrCancelled = errors.New("livemap: microtask cancelled")
)

// Microtask is a state machine advanced by Resume. Once Alive reports false
// the task is finished for good: Result is final and Resume does nothing.
type Microtask[T any] interface {
	Resume()
	Alive() bool
	// Result is meaningful only after Alive reports false.
	Result() (T, error)
}

// outcome holds the final state shared by all task implementations.
type outcome[T any] struct {
	done  bool
	value T
	err   error
}

func (o *outcome[T]) Alive() bool        { return !o.done }
func (o *outcome[T]) Result() (T, error) { return o.value, o.err }

func (o *outcome[T]) finish(value T, err error) {
	o.done = true
	o.value = value
	o.err = err
}

func (o *outcome[T]) fail(err error) {
	var zero T
	o.finish(zero, err)
}

type funcTask[T any] struct {
	outcome[T]
	f func() (T, error)
}

// Func runs f in a single step.
func Func[T any](f func() (T, error)) Microtask[T] {
	return &funcTask[T]{f: f}
}

func (t *funcTask[T]) Resume() {
	if t.done {
		return
	}
	t.finish(t.f())
}

// Run resumes t until it finishes and returns its result. It is meant for
// callers outside the scheduler, such as batch rendering.
func Run[T any](t Microtask[T]) (T, error) {
	for t.Alive() {
		t.Resume()
	}
	return t.Result()
}

// Value is a task that completes with v on its first Resume.
func Value[T any](v T) Microtask[T] {
	return Func(func() (T, error) { return v, nil })
}

// Fail is a task that fails with err on its first Resume.
func Fail[T any](err error) Microtask[T] {
	return Func(func() (T, error) {
		var zero T
		return zero, err
	})
}

type loopTask[T any] struct {
	outcome[T]
	n     int
	i     int
	step  func(i int) error
	final func() (T, error)
}

// Loop calls step for i in [0, n), one call per Resume, then completes with
// the result of finish. A step error fails the task immediately.
func Loop[T any](n int, step func(i int) error, finish func() (T, error)) Microtask[T] {
	return &loopTask[T]{n: n, step: step, final: finish}
}

func (t *loopTask[T]) Resume() {
	if t.done {
		return
	}
	if t.i < t.n {
		err := t.step(t.i)
		t.i++
		if err != nil {
			t.fail(err)
		}
		return
	}
	t.finish(t.final())
}

// Steps runs the functions one per Resume.
func Steps(steps ...func() error) Microtask[struct{}] {
	return Loop(len(steps),
		func(i int) error { return steps[i]() },
		func() (struct{}, error) { return struct{}{}, nil })
}

type mapTask[T, U any] struct {
	outcome[U]
	inner Microtask[T]
	f     func(T) (U, error)
}

// Map transforms the result of t; f runs in the same Resume in which t completes.
func Map[T, U any](t Microtask[T], f func(T) (U, error)) Microtask[U] {
	return &mapTask[T, U]{inner: t, f: f}
}

func (t *mapTask[T, U]) Resume() {
	if t.done {
		return
	}
	t.inner.Resume()
	if t.inner.Alive() {
		return
	}
	v, err := t.inner.Result()
	if err != nil {
		t.fail(err)
		return
	}
	t.finish(t.f(v))
}

type flatMapTask[T, U any] struct {
	outcome[U]
	first Microtask[T]
	f     func(T) Microtask[U]
	next  Microtask[U]
}

// FlatMap runs t and then the task built from its result.
func FlatMap[T, U any](t Microtask[T], f func(T) Microtask[U]) Microtask[U] {
	return &flatMapTask[T, U]{first: t, f: f}
}

func (t *flatMapTask[T, U]) Resume() {
	if t.done {
		return
	}
	if t.next == nil {
		t.first.Resume()
		if t.first.Alive() {
			return
		}
		v, err := t.first.Result()
		if err != nil {
			t.fail(err)
			return
		}
		t.next = t.f(v)
		return
	}
	t.next.Resume()
	if !t.next.Alive() {
		t.finish(t.next.Result())
	}
}

type joinTask[T any] struct {
	outcome[[]T]
	tasks  []Microtask[T]
	cursor int
}

// Join completes when all tasks complete, with their results in order. Each
// Resume advances the next unfinished child, round-robin; the first child
// failure fails the join.
func Join[T any](tasks ...Microtask[T]) Microtask[[]T] {
	return &joinTask[T]{tasks: tasks}
}

func (t *joinTask[T]) Resume() {
	if t.done {
		return
	}
	for range len(t.tasks) {
		child := t.tasks[t.cursor]
		t.cursor = (t.cursor + 1) % len(t.tasks)
		if !child.Alive() {
			continue
		}
		child.Resume()
		if !child.Alive() {
			if _, err := child.Result(); err != nil {
				t.fail(err)
				return
			}
		}
		break
	}
	t.collect()
}

// collect fails the join on any settled child error, including children that
// settled before the join first resumed them.
func (t *joinTask[T]) collect() {
	results := make([]T, len(t.tasks))
	pending := false
	for i, child := range t.tasks {
		if child.Alive() {
			pending = true
			continue
		}
		v, err := child.Result()
		if err != nil {
			t.fail(err)
			return
		}
		results[i] = v
	}
	if !pending {
		t.finish(results, nil)
	}
}
