package xyz

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-livemap/tile"
)

// Dir is a tileset stored as one file per tile, addressed by a pattern such
// as "/home/user/tiles/{z}/{x}/{y}.png". It implements tile.Reader and
// tile.Writer.
type Dir struct {
	pattern string
}

func OpenDir(pattern string) (*Dir, error) {
	if err := validatePattern(pattern); err != nil {
		return nil, err
	}
	return &Dir{pattern: pattern}, nil
}

// Path returns the file path of the tile.
func (d *Dir) Path(tileID tile.ID) string {
	return formatPattern(d.pattern, tileID)
}

// ReadTile returns an empty slice for tiles without a file.
func (d *Dir) ReadTile(tileID tile.ID) ([]byte, error) {
	data, err := os.ReadFile(d.Path(tileID))
	if errors.Is(err, fs.ErrNotExist) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteTile writes through a temporary file renamed into place, so a
// concurrent reader never observes a partial tile.
func (d *Dir) WriteTile(tileID tile.ID, data []byte) error {
	path := d.Path(tileID)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tile-*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(data)
	err = errors.Join(err, tmp.Close())
	if err == nil {
		err = os.Chmod(tmp.Name(), 0644)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %v: %w", tileID, err)
	}
	return nil
}

func (d *Dir) Finalize() error {
	return nil
}
