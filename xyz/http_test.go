package xyz_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eak1mov/go-livemap/tile"
	"github.com/eak1mov/go-livemap/xyz"
	"github.com/stretchr/testify/require"
)

func TestPatternValidation(t *testing.T) {
	_, err := xyz.NewHTTPFetcher([]string{"http://example.org/{z}/{x}.png"})
	require.ErrorIs(t, err, xyz.ErrInvalidPattern)

	_, err = xyz.NewHTTPFetcher(nil)
	require.ErrorIs(t, err, xyz.ErrInvalidPattern)

	_, err = xyz.NewHTTPFetcher([]string{"http://example.org/tiles/{q}.jpeg"})
	require.NoError(t, err)
}

func TestURLRoundRobin(t *testing.T) {
	fetcher, err := xyz.NewHTTPFetcher([]string{
		"https://a.example.org/{z}/{x}/{y}.png",
		"https://b.example.org/{z}/{x}/{y}.png",
		"https://c.example.org/q/{q}",
	})
	require.NoError(t, err)

	tileID := tile.ID{X: 1, Y: 2, Z: 2}
	require.Equal(t, "https://a.example.org/2/1/2.png", fetcher.URL(tileID))
	require.Equal(t, "https://b.example.org/2/1/2.png", fetcher.URL(tileID))
	require.Equal(t, "https://c.example.org/q/21", fetcher.URL(tileID))
	require.Equal(t, "https://a.example.org/2/1/2.png", fetcher.URL(tileID))
}

func TestHTTPFetch(t *testing.T) {
	var hitsA, hitsB atomic.Int32
	serverA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitsA.Add(1)
		fmt.Fprintf(w, "a:%s", r.URL.Path)
	}))
	defer serverA.Close()
	serverB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitsB.Add(1)
		fmt.Fprintf(w, "b:%s", r.URL.Path)
	}))
	defer serverB.Close()

	fetcher, err := xyz.NewHTTPFetcher([]string{
		serverA.URL + "/{z}/{x}/{y}.pbf",
		serverB.URL + "/{z}/{x}/{y}.pbf",
	}, xyz.WithMaxActive(1), xyz.WithClient(serverA.Client()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	data, err := fetcher.Fetch(ctx, tile.ID{X: 1, Y: 1, Z: 2}).Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "a:/2/1/1.pbf", string(data))

	data, err = fetcher.Fetch(ctx, tile.ID{X: 3, Y: 0, Z: 2}).Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "b:/2/3/0.pbf", string(data))

	require.Equal(t, int32(1), hitsA.Load())
	require.Equal(t, int32(1), hitsB.Load())
}

func TestHTTPFetchBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	fetcher, err := xyz.NewHTTPFetcher([]string{server.URL + "/{z}/{x}/{y}.png"})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = fetcher.Fetch(ctx, tile.ID{}).Wait(ctx)
	require.ErrorIs(t, err, xyz.ErrBadStatus)
	require.ErrorContains(t, err, "404")
}
