package spec

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidDirectory = errors.New("livemap: invalid pmtiles directory")

// Entry is a run of tiles sharing one data blob, or (RunLength == 0) a pointer
// to a leaf directory.
type Entry struct {
	TileCode  uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

// Leaf reports whether the entry points to a leaf directory.
func (e Entry) Leaf() bool {
	return e.RunLength == 0
}

// end is the offset right after the entry data.
func (e Entry) end() uint64 {
	return e.Offset + uint64(e.Length)
}

// SerializeDirectory encodes entries column by column: count, delta tile
// codes, run lengths, lengths, then offsets where 0 means "contiguous with
// the previous entry" and anything else is offset+1.
func SerializeDirectory(entries []Entry) []byte {
	buf := binary.AppendUvarint(nil, uint64(len(entries)))
	prev := Entry{}
	for _, e := range entries {
		buf = binary.AppendUvarint(buf, e.TileCode-prev.TileCode)
		prev = e
	}
	for _, e := range entries {
		buf = binary.AppendUvarint(buf, uint64(e.RunLength))
	}
	for _, e := range entries {
		buf = binary.AppendUvarint(buf, uint64(e.Length))
	}
	for i, e := range entries {
		if i > 0 && e.Offset == entries[i-1].end() {
			buf = binary.AppendUvarint(buf, 0)
		} else {
			buf = binary.AppendUvarint(buf, e.Offset+1)
		}
	}
	return buf
}

// uvarints reads a sequence of uvarints, keeping the first error.
type uvarints struct {
	r   *bytes.Reader
	err error
}

func (u *uvarints) next() uint64 {
	if u.err != nil {
		return 0
	}
	v, err := binary.ReadUvarint(u.r)
	u.err = err
	return v
}

func DeserializeDirectory(data []byte) ([]Entry, error) {
	u := &uvarints{r: bytes.NewReader(data)}

	n := u.next()
	if n > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d entries in %d bytes", ErrInvalidDirectory, n, len(data))
	}
	entries := make([]Entry, n)

	code := uint64(0)
	for i := range entries {
		code += u.next()
		entries[i].TileCode = code
	}
	for i := range entries {
		entries[i].RunLength = uint32(u.next())
	}
	for i := range entries {
		entries[i].Length = uint32(u.next())
	}
	for i := range entries {
		v := u.next()
		switch {
		case v == 0 && i > 0:
			entries[i].Offset = entries[i-1].end()
		case v == 0:
			u.err = cmp.Or(u.err, errors.New("first entry has no offset"))
		default:
			entries[i].Offset = v - 1
		}
	}

	if u.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDirectory, u.err)
	}
	return entries, nil
}

// FindEntry looks up the entry covering tileCode in a sorted directory.
// A found leaf entry means the search continues in that leaf directory.
func FindEntry(entries []Entry, tileCode uint64) (Entry, bool) {
	// index of the first entry starting after tileCode
	i, found := slices.BinarySearchFunc(entries, tileCode, func(e Entry, code uint64) int {
		return cmp.Compare(e.TileCode, code)
	})
	if found {
		i++
	}
	if i == 0 {
		return Entry{}, false
	}

	entry := entries[i-1]
	if entry.Leaf() || tileCode < entry.TileCode+uint64(entry.RunLength) {
		return entry, true
	}
	return Entry{}, false
}
