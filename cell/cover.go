package cell

import (
	"math"

	"github.com/paulmach/orb"
)

// Cover returns the keys at the given zoom whose rectangles intersect rect,
// in row-major order. Cells outside root are never returned; touching only an
// edge does not count as intersecting.
func Cover(root orb.Bound, rect orb.Bound, zoom int) []Key {
	zoom = max(0, min(zoom, MaxZoom))
	rect, ok := intersect(root, rect)
	if !ok {
		return nil
	}

	n := 1 << zoom
	cellW := (root.Max[0] - root.Min[0]) / float64(n)
	cellH := (root.Max[1] - root.Min[1]) / float64(n)

	x0, x1 := span(rect.Min[0]-root.Min[0], rect.Max[0]-root.Min[0], cellW, n)
	y0, y1 := span(rect.Min[1]-root.Min[1], rect.Max[1]-root.Min[1], cellH, n)

	keys := make([]Key, 0, (x1-x0+1)*(y1-y0+1))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			keys = append(keys, fromXY(uint32(x), uint32(y), zoom))
		}
	}
	return keys
}

// span converts a segment to the inclusive range of cell indices it overlaps.
func span(lo, hi, size float64, n int) (int, int) {
	first := int(math.Floor(lo / size))
	last := int(math.Ceil(hi/size)) - 1
	if last < first {
		last = first
	}
	return max(0, min(first, n-1)), max(0, min(last, n-1))
}

func intersect(a, b orb.Bound) (orb.Bound, bool) {
	r := orb.Bound{
		Min: orb.Point{max(a.Min[0], b.Min[0]), max(a.Min[1], b.Min[1])},
		Max: orb.Point{min(a.Max[0], b.Max[0]), min(a.Max[1], b.Max[1])},
	}
	if r.Min[0] >= r.Max[0] || r.Min[1] >= r.Max[1] {
		return orb.Bound{}, false
	}
	return r, true
}

func fromXY(x, y uint32, zoom int) Key {
	b := make([]byte, zoom)
	for i := zoom - 1; i >= 0; i-- {
		b[i] = '0' + (byte(x&1) | byte(y&1)<<1)
		x >>= 1
		y >>= 1
	}
	return Key(b)
}
