package tile

import (
	"context"
	"errors"
	"fmt"

	"github.com/eak1mov/go-livemap/async"
)

var ErrNotFound = errors.New("livemap: tile not found")

// Fetcher is an asynchronous tile source. Fetch must not block: the returned
// future settles later, possibly on another goroutine.
type Fetcher interface {
	Fetch(ctx context.Context, tileID ID) *async.Future[[]byte]
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, tileID ID) *async.Future[[]byte]

func (f FetcherFunc) Fetch(ctx context.Context, tileID ID) *async.Future[[]byte] {
	return f(ctx, tileID)
}

type readerFetcher struct {
	reader Reader
}

// ReaderFetcher turns a synchronous Reader into a Fetcher running each read on
// its own goroutine. Missing tiles (empty data) are reported as ErrNotFound.
func ReaderFetcher(reader Reader) Fetcher {
	return &readerFetcher{reader: reader}
}

func (f *readerFetcher) Fetch(ctx context.Context, tileID ID) *async.Future[[]byte] {
	return async.Go(func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := f.reader.ReadTile(tileID)
		if err != nil {
			return nil, fmt.Errorf("read tile %v: %w", tileID, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, tileID)
		}
		return data, nil
	})
}
