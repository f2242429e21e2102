package task_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/eak1mov/go-livemap/task"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// drain resumes the task until it finishes and returns the number of resumes.
func drain[T any](mt task.Microtask[T]) int {
	n := 0
	for mt.Alive() {
		mt.Resume()
		n++
	}
	return n
}

func TestFunc(t *testing.T) {
	mt := task.Func(func() (int, error) { return 7, nil })
	require.True(t, mt.Alive())
	require.Equal(t, 1, drain(mt))
	v, err := mt.Result()
	require.NoError(t, err)
	require.Equal(t, 7, v)

	_, err = task.Fail[string](errBoom).Result()
	require.NoError(t, err, "result of an unstarted task is zero")
	f := task.Fail[string](errBoom)
	drain(f)
	_, err = f.Result()
	require.ErrorIs(t, err, errBoom)
}

func TestLoop(t *testing.T) {
	var visited []int
	mt := task.Loop(3,
		func(i int) error {
			visited = append(visited, i)
			return nil
		},
		func() (string, error) { return "done", nil })
	require.Equal(t, 4, drain(mt))
	v, err := mt.Result()
	require.NoError(t, err)
	require.Equal(t, "done", v)
	if diff := cmp.Diff([]int{0, 1, 2}, visited); diff != "" {
		t.Errorf("visited mismatch (-want+got):\n%v", diff)
	}
}

func TestLoopStepError(t *testing.T) {
	calls := 0
	mt := task.Loop(5,
		func(i int) error {
			calls++
			if i == 1 {
				return errBoom
			}
			return nil
		},
		func() (int, error) { return 0, nil })
	require.Equal(t, 2, drain(mt))
	_, err := mt.Result()
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, 2, calls)
}

func TestFinishedTaskHasNoSideEffects(t *testing.T) {
	calls := 0
	mt := task.Steps(
		func() error { calls++; return nil },
		func() error { calls++; return nil },
	)
	drain(mt)
	require.Equal(t, 2, calls)
	for range 5 {
		mt.Resume()
	}
	require.Equal(t, 2, calls)
	require.False(t, mt.Alive())
}

func TestMap(t *testing.T) {
	mt := task.Map(task.Value(20), func(v int) (int, error) { return v + 1, nil })
	require.Equal(t, 1, drain(mt))
	v, err := mt.Result()
	require.NoError(t, err)
	require.Equal(t, 21, v)

	called := false
	failed := task.Map(task.Fail[int](errBoom), func(v int) (int, error) {
		called = true
		return v, nil
	})
	drain(failed)
	_, err = failed.Result()
	require.ErrorIs(t, err, errBoom)
	require.False(t, called)
}

func TestFlatMap(t *testing.T) {
	mt := task.FlatMap(task.Value(3), func(n int) task.Microtask[[]int] {
		var out []int
		return task.Loop(n,
			func(i int) error {
				out = append(out, i*n)
				return nil
			},
			func() ([]int, error) { return out, nil })
	})
	require.Equal(t, 5, drain(mt))
	v, err := mt.Result()
	require.NoError(t, err)
	if diff := cmp.Diff([]int{0, 3, 6}, v); diff != "" {
		t.Errorf("result mismatch (-want+got):\n%v", diff)
	}
}

func TestJoin(t *testing.T) {
	var order []string
	step := func(name string, n int) task.Microtask[string] {
		return task.Loop(n,
			func(int) error {
				order = append(order, name)
				return nil
			},
			func() (string, error) { return name, nil })
	}
	mt := task.Join(step("a", 2), step("b", 1), step("c", 0))
	drain(mt)
	v, err := mt.Result()
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"a", "b", "c"}, v); diff != "" {
		t.Errorf("result mismatch (-want+got):\n%v", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "a"}, order); diff != "" {
		t.Errorf("round robin mismatch (-want+got):\n%v", diff)
	}

	empty := task.Join[int]()
	require.Equal(t, 1, drain(empty))
	got, err := empty.Result()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestJoinFailsEagerly(t *testing.T) {
	slowCalls := 0
	slow := task.Loop(100,
		func(int) error { slowCalls++; return nil },
		func() (int, error) { return 0, nil })
	mt := task.Join(slow, task.Fail[int](errBoom))
	require.Equal(t, 2, drain(mt))
	_, err := mt.Result()
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, 1, slowCalls)
}

func TestJoinSettledFailure(t *testing.T) {
	for _, failedFirst := range []bool{false, true} {
		failed := task.Fail[int](errBoom)
		failed.Resume()
		require.False(t, failed.Alive())

		tasks := []task.Microtask[int]{task.Value(1), failed}
		if failedFirst {
			tasks[0], tasks[1] = tasks[1], tasks[0]
		}
		mt := task.Join(tasks...)
		drain(mt)
		v, err := mt.Result()
		require.ErrorIs(t, err, errBoom, "failedFirst=%v", failedFirst)
		require.Nil(t, v)
	}
}

func TestRun(t *testing.T) {
	counter := 0
	v, err := task.Run(task.Map(counting(4, &counter), func(n int) (string, error) {
		return strings.Repeat("x", n), nil
	}))
	require.NoError(t, err)
	require.Equal(t, "xxxx", v)

	_, err = task.Run(task.Fail[int](errBoom))
	require.ErrorIs(t, err, errBoom)
}
