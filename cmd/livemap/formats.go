package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eak1mov/go-livemap/mb"
	"github.com/eak1mov/go-livemap/pm"
	"github.com/eak1mov/go-livemap/tile"
	"github.com/eak1mov/go-livemap/xyz"
)

func deduceFormat(format, path string) string {
	if format == "" && strings.HasSuffix(path, ".mbtiles") {
		return "mbtiles"
	}
	if format == "" && strings.HasSuffix(path, ".pmtiles") {
		return "pmtiles"
	}
	if format == "" && (strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")) {
		return "http"
	}
	if format == "" && strings.Contains(path, "{z}") {
		return "xyz"
	}
	return format
}

type source struct {
	fetcher tile.Fetcher
	info    tile.Info
	closer  io.Closer
}

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// openSource opens a tileset. Sources without metadata get the tile type
// guessed from the pattern extension.
func openSource(format, path string) (*source, error) {
	var reader tile.Reader
	switch deduceFormat(format, path) {
	case "mbtiles":
		r, err := mb.NewReader(path)
		if err != nil {
			return nil, err
		}
		reader = r
	case "pmtiles":
		r, err := pm.NewFileReader(path)
		if err != nil {
			return nil, err
		}
		reader = r
	case "xyz":
		dir, err := xyz.OpenDir(path)
		if err != nil {
			return nil, err
		}
		return &source{fetcher: tile.ReaderFetcher(dir), info: tile.Info{Raster: rasterPattern(path)}}, nil
	case "http":
		fetcher, err := xyz.NewHTTPFetcher(strings.Split(path, ","))
		if err != nil {
			return nil, err
		}
		return &source{fetcher: fetcher, info: tile.Info{Raster: rasterPattern(path)}}, nil
	default:
		return nil, fmt.Errorf("invalid input format: %q", format)
	}

	src := &source{fetcher: tile.ReaderFetcher(reader)}
	if closer, ok := reader.(io.Closer); ok {
		src.closer = closer
	}
	if describer, ok := reader.(tile.Describer); ok {
		info, err := describer.Describe()
		if err != nil {
			return nil, errors.Join(err, src.Close())
		}
		src.info = info
	}
	return src, nil
}

func rasterPattern(pattern string) bool {
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".webp"} {
		if strings.HasSuffix(pattern, ext) {
			return true
		}
	}
	return false
}
