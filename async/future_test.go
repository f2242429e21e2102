package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eak1mov/go-livemap/async"
	"github.com/stretchr/testify/require"
)

func TestPromiseResolve(t *testing.T) {
	p := async.NewPromise[int]()
	var got []int
	p.Future().OnResult(func(v int) { got = append(got, v) }, func(error) { t.Error("unexpected failure") })
	require.False(t, p.Future().Settled())

	p.Resolve(42)
	p.Resolve(43)
	p.Reject(errors.New("late"))

	require.Equal(t, []int{42}, got)
	require.True(t, p.Future().Settled())
}

func TestLateContinuation(t *testing.T) {
	errBoom := errors.New("boom")
	f := async.Failed[string](errBoom)

	var got error
	f.OnResult(nil, func(err error) { got = err })
	require.ErrorIs(t, got, errBoom)
}

func TestGoAndWait(t *testing.T) {
	f := async.Go(func() (string, error) { return "tile", nil })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	v, err := f.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "tile", v)
}

func TestMap(t *testing.T) {
	f := async.Map(async.Resolved([]byte("abc")), func(b []byte) int { return len(b) })
	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, v)

	errBoom := errors.New("boom")
	_, err = async.Map(async.Failed[[]byte](errBoom), func(b []byte) int { return len(b) }).Wait(context.Background())
	require.ErrorIs(t, err, errBoom)
}

func TestWaitCancelled(t *testing.T) {
	f := async.NewPromise[int]().Future()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
