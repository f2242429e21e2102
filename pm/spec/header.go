// Package spec implements the binary structures of the PMTiles v3 archive format
// needed to read tiles from a local archive.
package spec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

type Compression uint8

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionGzip
	CompressionBrotli
	CompressionZstd
)

type TileType uint8

const (
	TileTypeUnknown TileType = iota
	TileTypeMvt
	TileTypePng
	TileTypeJpeg
	TileTypeWebp
	TileTypeAvif
)

// Raster reports whether tiles of this type are encoded images.
func (t TileType) Raster() bool {
	return t == TileTypePng || t == TileTypeJpeg || t == TileTypeWebp || t == TileTypeAvif
}

type Header struct {
	HeaderMagic         uint64
	RootOffset          uint64
	RootLength          uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64
	Clustered           bool
	InternalCompression Compression
	TileCompression     Compression
	TileType            TileType
	MinZoom             uint8
	MaxZoom             uint8
	MinLonE7            int32
	MinLatE7            int32
	MaxLonE7            int32
	MaxLatE7            int32
	CenterZoom          uint8
	CenterLonE7         int32
	CenterLatE7         int32
}

const (
	headerMagic     uint64 = 0x73656C69544D50 // "PMTiles"
	headerMagicMask uint64 = 1<<56 - 1
	HeaderMagicV3   uint64 = headerMagic | (0x03 << 56)

	HeaderLength = 127

	// root directory must be contained in the first 16 KiB
	HeaderRootDirMaxLength = 16 << 10
	RootDirOffset          = HeaderLength
	RootDirMaxLength       = HeaderRootDirMaxLength - HeaderLength

	e7 = 10000000.0
)

var ErrInvalidHeader = errors.New("livemap: invalid pmtiles header")
var ErrInvalidVersion = errors.New("livemap: invalid pmtiles version")

func SerializeHeader(header *Header) []byte {
	var buffer bytes.Buffer
	writer := bufio.NewWriter(&buffer)
	binary.Write(writer, binary.LittleEndian, header)
	writer.Flush()
	return buffer.Bytes()
}

func DeserializeHeader(buffer []byte) (*Header, error) {
	header := Header{}
	reader := bytes.NewReader(buffer)
	err := binary.Read(reader, binary.LittleEndian, &header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if header.HeaderMagic&headerMagicMask != headerMagic {
		return nil, ErrInvalidHeader
	}
	if header.HeaderMagic != HeaderMagicV3 {
		return nil, ErrInvalidVersion
	}
	return &header, nil
}

// Bounds returns the geographic extent declared by the archive (lon/lat degrees).
func (h *Header) Bounds() orb.Bound {
	return orb.Bound{
		Min: orb.Point{float64(h.MinLonE7) / e7, float64(h.MinLatE7) / e7},
		Max: orb.Point{float64(h.MaxLonE7) / e7, float64(h.MaxLatE7) / e7},
	}
}

// Center returns the suggested initial camera position and zoom.
func (h *Header) Center() (orb.Point, int) {
	return orb.Point{float64(h.CenterLonE7) / e7, float64(h.CenterLatE7) / e7}, int(h.CenterZoom)
}

// SetBounds stores a geographic extent with E7 precision.
func (h *Header) SetBounds(bound orb.Bound) {
	h.MinLonE7 = int32(bound.Min[0] * e7)
	h.MinLatE7 = int32(bound.Min[1] * e7)
	h.MaxLonE7 = int32(bound.Max[0] * e7)
	h.MaxLatE7 = int32(bound.Max[1] * e7)
}
