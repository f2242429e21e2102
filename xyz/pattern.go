// Package xyz provides tile access through "{z}/{x}/{y}" patterns: tiles served
// over HTTP from one or more domains, and tiles stored as individual files
// with paths like "/z/x/y.ext".
package xyz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eak1mov/go-livemap/tile"
)

var ErrInvalidPattern = errors.New("livemap: invalid tile pattern")

func validatePattern(pattern string) error {
	if strings.Contains(pattern, "{q}") {
		return nil
	}
	for _, p := range []string{"{x}", "{y}", "{z}"} {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%w: placeholder %v not found in %q", ErrInvalidPattern, p, pattern)
		}
	}
	return nil
}

// quadkey returns the Bing-style quadkey of the tile ("" for the root tile).
func quadkey(tileID tile.ID) string {
	var sb strings.Builder
	for i := tileID.Z; i > 0; i-- {
		digit := byte('0')
		mask := uint32(1) << (i - 1)
		if tileID.X&mask != 0 {
			digit++
		}
		if tileID.Y&mask != 0 {
			digit += 2
		}
		sb.WriteByte(digit)
	}
	return sb.String()
}

func formatPattern(pattern string, tileID tile.ID) string {
	return strings.NewReplacer(
		"{x}", strconv.FormatUint(uint64(tileID.X), 10),
		"{y}", strconv.FormatUint(uint64(tileID.Y), 10),
		"{z}", strconv.FormatUint(uint64(tileID.Z), 10),
		"{q}", quadkey(tileID),
	).Replace(pattern)
}
