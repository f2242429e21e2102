// Package mb reads MBTiles tilesets, used as a local tile source for the map
// engine.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package mb

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/eak1mov/go-livemap/tile"
	"github.com/paulmach/orb"
)

var ErrBadMetadata = errors.New("livemap: malformed mbtiles metadata")

const tileQuery = "SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?"

// Reader is a tile.Reader and tile.Describer over an MBTiles file opened read
// only. It is safe for concurrent use.
type Reader struct {
	db     *sql.DB
	tiles  *sql.Stmt
	logger *slog.Logger
}

type Option func(*Reader)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) { r.logger = logger }
}

// NewReader opens the tileset at filePath. The Reader must be closed after use.
func NewReader(filePath string, opts ...Option) (*Reader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}

	tiles, err := db.Prepare(tileQuery)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	r := &Reader{db: db, tiles: tiles, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Reader) Close() error {
	return errors.Join(r.tiles.Close(), r.db.Close())
}

// ReadMetadata returns the name/value pairs of the metadata table.
func (r *Reader) ReadMetadata() (map[string]string, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metadata := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		metadata[name] = value
	}
	return metadata, rows.Err()
}

// Describe reads format, zoom range, bounds and center from the metadata.
// Missing keys leave the zero value.
func (r *Reader) Describe() (tile.Info, error) {
	metadata, err := r.ReadMetadata()
	if err != nil {
		return tile.Info{}, err
	}

	var info tile.Info
	switch strings.ToLower(metadata["format"]) {
	case "png", "jpg", "jpeg", "webp":
		info.Raster = true
	}
	if info.MinZoom, err = parseInt(metadata, "minzoom"); err != nil {
		return tile.Info{}, err
	}
	if info.MaxZoom, err = parseInt(metadata, "maxzoom"); err != nil {
		return tile.Info{}, err
	}

	if v, ok := metadata["bounds"]; ok {
		b, err := parseFloats(v, 4)
		if err != nil {
			return tile.Info{}, fmt.Errorf("%w: bounds: %w", ErrBadMetadata, err)
		}
		info.Bounds = orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}}
	}
	if v, ok := metadata["center"]; ok {
		c, err := parseFloats(v, 3)
		if err != nil {
			return tile.Info{}, fmt.Errorf("%w: center: %w", ErrBadMetadata, err)
		}
		info.Center = orb.Point{c[0], c[1]}
		info.CenterZoom = int(c[2])
	}
	r.logger.Debug("livemap: mbtiles metadata", "format", metadata["format"], "bounds", info.Bounds)
	return info, nil
}

func parseInt(metadata map[string]string, key string) (int, error) {
	v, ok := metadata[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrBadMetadata, key, err)
	}
	return n, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d values, got %q", n, s)
	}
	values := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// ReadTile reads the tile stored under its TMS row. A missing tile is an
// empty slice.
func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	row := (1 << tileID.Z) - 1 - tileID.Y

	var data []byte
	err := r.tiles.QueryRow(tileID.Z, tileID.X, row).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %v: %w", tileID, err)
	}
	return data, nil
}
