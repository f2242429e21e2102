// Package pm provides read access to tiles stored in PMTiles v3 archives,
// used as a local tile source for the map engine.
package pm

import (
	"errors"
	"os"
	"sync"

	"github.com/eak1mov/go-livemap/pm/spec"
	"github.com/eak1mov/go-livemap/tile"
)

// FileAccessFunc reads length bytes at offset of the archive.
type FileAccessFunc = func(offset, length uint64) ([]byte, error)

// Reader implements tile.Reader for PMTiles archives. It is safe for
// concurrent use; decoded directories are cached by offset.
type Reader struct {
	fileAccess FileAccessFunc
	fileCloser func() error
	header     *spec.Header

	mu       sync.Mutex
	dirCache map[uint64][]spec.Entry
}

func NewFileReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	fileAccess := func(offset uint64, length uint64) ([]byte, error) {
		buffer := make([]byte, length)
		if _, err := file.ReadAt(buffer, int64(offset)); err != nil {
			return nil, err
		}
		return buffer, nil
	}
	r, err := newReader(fileAccess, file.Close)
	if err != nil {
		return nil, errors.Join(err, file.Close())
	}
	return r, nil
}

func NewReader(fileAccess FileAccessFunc) (*Reader, error) {
	return newReader(fileAccess, func() error { return nil })
}

func newReader(fileAccess FileAccessFunc, closer func() error) (*Reader, error) {
	headerData, err := fileAccess(0, spec.HeaderLength)
	if err != nil {
		return nil, err
	}
	header, err := spec.DeserializeHeader(headerData)
	if err != nil {
		return nil, err
	}
	return &Reader{
		fileAccess: fileAccess,
		fileCloser: closer,
		header:     header,
		dirCache:   make(map[uint64][]spec.Entry),
	}, nil
}

func (r *Reader) Close() error {
	return r.fileCloser()
}

// Header returns a copy of the archive header.
func (r *Reader) Header() spec.Header {
	return *r.header
}

// Describe reports the tile type, zoom range, bounds and center from the
// archive header.
func (r *Reader) Describe() (tile.Info, error) {
	center, zoom := r.header.Center()
	return tile.Info{
		Raster:     r.header.TileType.Raster(),
		MinZoom:    int(r.header.MinZoom),
		MaxZoom:    int(r.header.MaxZoom),
		Bounds:     r.header.Bounds(),
		Center:     center,
		CenterZoom: zoom,
	}, nil
}

// ReadMetadata returns the decompressed JSON metadata, nil when absent.
func (r *Reader) ReadMetadata() ([]byte, error) {
	if r.header.MetadataLength == 0 {
		return nil, nil
	}
	metadata, err := r.fileAccess(r.header.MetadataOffset, r.header.MetadataLength)
	if err != nil {
		return nil, err
	}
	return spec.Decompress(metadata, r.header.InternalCompression)
}

func (r *Reader) readDirectory(dirOffset, dirLength uint64) ([]spec.Entry, error) {
	r.mu.Lock()
	entries, ok := r.dirCache[dirOffset]
	r.mu.Unlock()
	if ok {
		return entries, nil
	}

	dirCompressed, err := r.fileAccess(dirOffset, dirLength)
	if err != nil {
		return nil, err
	}
	dirData, err := spec.Decompress(dirCompressed, r.header.InternalCompression)
	if err != nil {
		return nil, err
	}
	entries, err = spec.DeserializeDirectory(dirData)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.dirCache[dirOffset] = entries
	r.mu.Unlock()
	return entries, nil
}

// ReadLocation returns the location of tile data; a zero Location means the
// tile is absent.
func (r *Reader) ReadLocation(tileID tile.ID) (tile.Location, error) {
	tileCode := tileID.Code()
	dirOffset := r.header.RootOffset
	dirLength := r.header.RootLength
	for {
		dirEntries, err := r.readDirectory(dirOffset, dirLength)
		if err != nil {
			return tile.Location{}, err
		}
		entry, found := spec.FindEntry(dirEntries, tileCode)
		if !found {
			return tile.Location{}, nil
		}
		if !entry.Leaf() {
			return tile.Location{
				Offset: r.header.TileDataOffset + entry.Offset,
				Length: uint64(entry.Length),
			}, nil
		}
		dirOffset = r.header.LeafDirectoryOffset + entry.Offset
		dirLength = uint64(entry.Length)
	}
}

// ReadTile returns the tile payload with the archive tile compression
// removed. Tiles outside the zoom range or absent are empty.
func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	if tileID.Z < uint32(r.header.MinZoom) || tileID.Z > uint32(r.header.MaxZoom) {
		return make([]byte, 0), nil
	}
	location, err := r.ReadLocation(tileID)
	if err != nil {
		return nil, err
	}
	if location.Length == 0 {
		return make([]byte, 0), nil
	}
	data, err := r.fileAccess(location.Offset, location.Length)
	if err != nil {
		return nil, err
	}
	return spec.Decompress(data, r.header.TileCompression)
}
