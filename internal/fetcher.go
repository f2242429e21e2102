package internal

import (
	"context"
	"sync"

	"github.com/eak1mov/go-livemap/async"
	"github.com/eak1mov/go-livemap/tile"
)

// FakeFetcher is a tile.Fetcher whose fetches stay pending until the test
// resolves them, unless Respond is set.
type FakeFetcher struct {
	// Respond, if set, settles every fetch immediately.
	Respond func(tileID tile.ID) ([]byte, error)

	mu      sync.Mutex
	calls   map[tile.ID]int
	pending map[tile.ID][]*async.Promise[[]byte]
}

func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		calls:   make(map[tile.ID]int),
		pending: make(map[tile.ID][]*async.Promise[[]byte]),
	}
}

func (f *FakeFetcher) Fetch(_ context.Context, tileID tile.ID) *async.Future[[]byte] {
	f.mu.Lock()
	f.calls[tileID]++
	respond := f.Respond
	promise := async.NewPromise[[]byte]()
	if respond == nil {
		f.pending[tileID] = append(f.pending[tileID], promise)
	}
	f.mu.Unlock()

	if respond != nil {
		data, err := respond(tileID)
		if err != nil {
			promise.Reject(err)
		} else {
			promise.Resolve(data)
		}
	}
	return promise.Future()
}

// Calls returns the number of fetches issued for the tile.
func (f *FakeFetcher) Calls(tileID tile.ID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[tileID]
}

func (f *FakeFetcher) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// Pending returns the number of unsettled fetches.
func (f *FakeFetcher) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.pending {
		n += len(p)
	}
	return n
}

// Resolve settles the pending fetches of the tile with data. It reports
// whether there were any.
func (f *FakeFetcher) Resolve(tileID tile.ID, data []byte) bool {
	promises := f.take(tileID)
	for _, p := range promises {
		p.Resolve(data)
	}
	return len(promises) > 0
}

func (f *FakeFetcher) Reject(tileID tile.ID, err error) bool {
	promises := f.take(tileID)
	for _, p := range promises {
		p.Reject(err)
	}
	return len(promises) > 0
}

func (f *FakeFetcher) take(tileID tile.ID) []*async.Promise[[]byte] {
	f.mu.Lock()
	defer f.mu.Unlock()
	promises := f.pending[tileID]
	delete(f.pending, tileID)
	return promises
}
