// Package cell addresses the nodes of the map quadtree. The root cell covers
// the whole world rectangle; each cell splits into four quadrants one zoom
// level deeper.
package cell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eak1mov/go-livemap/tile"
	"github.com/paulmach/orb"
)

// MaxZoom is the deepest addressable zoom level.
const MaxZoom = 30

var ErrInvalidKey = errors.New("livemap: invalid cell key")

// Key is the path from the root cell to a cell, one quadrant digit per zoom
// level. Bit 0 of a digit selects the right half, bit 1 the lower half, so a
// Key reads exactly like a Bing quadkey. The empty Key is the root.
type Key string

// Root is the key of the cell covering the whole world.
const Root Key = ""

// New builds a key from quadrants in 0..3, starting at the root.
func New(quadrants ...uint8) Key {
	var sb strings.Builder
	for _, q := range quadrants {
		if q > 3 {
			panic(fmt.Errorf("%w: quadrant %d", ErrInvalidKey, q))
		}
		sb.WriteByte('0' + q)
	}
	return Key(sb.String())
}

// FromQuadkey validates a quadkey string.
func FromQuadkey(s string) (Key, error) {
	if len(s) > MaxZoom {
		return Root, fmt.Errorf("%w: %q is too deep", ErrInvalidKey, s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '3' {
			return Root, fmt.Errorf("%w: %q", ErrInvalidKey, s)
		}
	}
	return Key(s), nil
}

func FromTileID(tileID tile.ID) Key {
	b := make([]byte, tileID.Z)
	for i := tileID.Z; i > 0; i-- {
		digit := byte('0')
		mask := uint32(1) << (i - 1)
		if tileID.X&mask != 0 {
			digit++
		}
		if tileID.Y&mask != 0 {
			digit += 2
		}
		b[tileID.Z-i] = digit
	}
	return Key(b)
}

// Len is the zoom level of the cell.
func (k Key) Len() int { return len(k) }

// Zoom is an alias for Len.
func (k Key) Zoom() int { return len(k) }

// Quadrant returns the i-th quadrant digit of the path.
func (k Key) Quadrant(i int) uint8 { return k[i] - '0' }

// Parent returns the enclosing cell; ok is false for the root.
func (k Key) Parent() (Key, bool) {
	if len(k) == 0 {
		return Root, false
	}
	return k[:len(k)-1], true
}

func (k Key) Child(q uint8) Key {
	if q > 3 {
		panic(fmt.Errorf("%w: quadrant %d", ErrInvalidKey, q))
	}
	return k + Key('0'+q)
}

func (k Key) Children() [4]Key {
	return [4]Key{k + "0", k + "1", k + "2", k + "3"}
}

// IsAncestorOf reports whether other lies strictly inside k.
func (k Key) IsAncestorOf(other Key) bool {
	return len(k) < len(other) && strings.HasPrefix(string(other), string(k))
}

// Project returns the rectangle of the cell inside the root rectangle.
// The root's Min corner is the top-left one.
func (k Key) Project(root orb.Bound) orb.Bound {
	b := root
	for i := 0; i < len(k); i++ {
		q := k.Quadrant(i)
		cx := (b.Min[0] + b.Max[0]) / 2
		cy := (b.Min[1] + b.Max[1]) / 2
		if q&1 == 0 {
			b.Max[0] = cx
		} else {
			b.Min[0] = cx
		}
		if q&2 == 0 {
			b.Max[1] = cy
		} else {
			b.Min[1] = cy
		}
	}
	return b
}

func (k Key) TileID() tile.ID {
	var x, y uint32
	for i := 0; i < len(k); i++ {
		q := k.Quadrant(i)
		x = x<<1 | uint32(q&1)
		y = y<<1 | uint32(q>>1)
	}
	return tile.ID{X: x, Y: y, Z: uint32(len(k))}
}

// Code is the hilbert tile code of the cell (see tile.ID.Code).
func (k Key) Code() uint64 { return k.TileID().Code() }

// String returns the quadkey; the root is printed as "-".
func (k Key) String() string {
	if k == Root {
		return "-"
	}
	return string(k)
}
