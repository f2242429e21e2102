package task_test

import (
	"testing"
	"time"

	"github.com/eak1mov/go-livemap/ecs"
	"github.com/eak1mov/go-livemap/internal"
	"github.com/eak1mov/go-livemap/task"
	"github.com/stretchr/testify/require"
)

func newStore(budget time.Duration) (*ecs.Store, *task.Scheduler) {
	s := ecs.NewStore(ecs.WithClock(internal.NewManualClock(time.Millisecond)))
	sc := task.SchedulerSystem(budget)
	s.AddSystem(sc)
	return s, sc
}

func counting(n int, counter *int) task.Microtask[int] {
	return task.Loop(n,
		func(int) error { *counter++; return nil },
		func() (int, error) { return *counter, nil })
}

func TestSchedulerFairness(t *testing.T) {
	s, sc := newStore(0)
	counters := make([]int, 3)
	var entities []ecs.Entity
	for i := range counters {
		e := s.CreateEntity("worker")
		task.Spawn(s, e, counting(10, &counters[i]))
		entities = append(entities, e)
	}

	for tick := 1; tick <= 5; tick++ {
		s.Update(time.Millisecond)
		for i := range counters {
			require.Equal(t, tick, counters[i], "worker %d at tick %d", i, tick)
		}
	}
	require.True(t, sc.Loading())
	require.Equal(t, 3, sc.Pending())
	require.Equal(t, 3, sc.Slices())
}

func TestSchedulerBudget(t *testing.T) {
	s, sc := newStore(time.Hour)
	var a, b int
	ea := s.CreateEntity("a")
	eb := s.CreateEntity("b")
	task.Spawn(s, ea, counting(3, &a))
	task.Spawn(s, eb, counting(50, &b), task.WithQuantum(10))

	s.Update(time.Millisecond)
	require.False(t, sc.Loading())
	require.Equal(t, 3, a)
	require.Equal(t, 50, b)

	result, ok := ecs.Get[*task.Result[int]](s, ea)
	require.True(t, ok)
	require.Equal(t, 3, result.Value)
	require.False(t, ecs.Has[*task.Thread](s, ea))
}

func TestSchedulerContinuations(t *testing.T) {
	s, _ := newStore(time.Hour)
	e := s.CreateEntity("ok")
	var got string
	task.Spawn(s, e, task.Value("tile"), task.OnResult(func(v string) { got = v }))

	f := s.CreateEntity("failing")
	var failure error
	task.Spawn(s, f, task.Fail[string](errBoom), task.OnFailure(func(err error) { failure = err }))

	s.Update(0)
	require.Equal(t, "tile", got)
	require.False(t, ecs.Has[*task.Result[string]](s, e))
	require.ErrorIs(t, failure, errBoom)
	rec, ok := ecs.Get[*task.Failure](s, f)
	require.True(t, ok)
	require.ErrorIs(t, rec.Err, errBoom)
}

func TestSchedulerRecoversPanic(t *testing.T) {
	s, sc := newStore(time.Hour)
	bad := s.CreateEntity("bad")
	task.Spawn(s, bad, task.Func(func() (int, error) { panic("corrupted tile") }))
	good := s.CreateEntity("good")
	var n int
	task.Spawn(s, good, counting(2, &n))

	s.Update(0)
	require.False(t, sc.Loading())
	rec, ok := ecs.Get[*task.Failure](s, bad)
	require.True(t, ok)
	require.ErrorIs(t, rec.Err, task.ErrTaskPanic)
	require.Equal(t, 2, n)
}

func TestCancel(t *testing.T) {
	s, sc := newStore(0)
	e := s.CreateEntity("worker")
	var n int
	thread := task.Spawn(s, e, counting(10, &n))
	s.Update(0)
	require.Equal(t, 1, n)
	require.Equal(t, 1, thread.Resumes())

	require.True(t, task.Cancel(s, e))
	require.False(t, task.Cancel(s, e))
	s.Update(0)
	s.Update(0)
	require.Equal(t, 1, n)
	require.False(t, sc.Loading())
}

func TestRemovedEntityStopsTask(t *testing.T) {
	s, _ := newStore(0)
	e := s.CreateEntity("worker")
	var n int
	task.Spawn(s, e, counting(10, &n))
	s.Update(0)
	s.Remove(e)
	s.Update(0)
	require.Equal(t, 1, n)
}
