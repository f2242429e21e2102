package basemap

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	placeholderBackground = color.RGBA{0xee, 0xee, 0xee, 0xff}
	placeholderBorder     = color.RGBA{0xcc, 0x66, 0x66, 0xff}
	placeholderText       = color.RGBA{0x99, 0x22, 0x22, 0xff}
)

// Placeholder draws the error text into a tile sized image.
func Placeholder(err error, tileSize int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, tileSize, tileSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholderBackground), image.Point{}, draw.Src)

	border := image.NewUniform(placeholderBorder)
	for _, r := range []image.Rectangle{
		image.Rect(0, 0, tileSize, 1),
		image.Rect(0, tileSize-1, tileSize, tileSize),
		image.Rect(0, 0, 1, tileSize),
		image.Rect(tileSize-1, 0, tileSize, tileSize),
	} {
		draw.Draw(img, r, border, image.Point{}, draw.Src)
	}

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(placeholderText), Face: face}
	lineHeight := face.Metrics().Height.Ceil()
	const margin = 4
	y := margin + face.Metrics().Ascent.Ceil()
	for _, line := range wrapText(err.Error(), (tileSize-2*margin)/face.Advance) {
		if y > tileSize-margin {
			break
		}
		d.Dot = fixed.P(margin, y)
		d.DrawString(line)
		y += lineHeight
	}
	return img
}

// wrapText splits text into lines of at most width runes, breaking at spaces
// where possible.
func wrapText(text string, width int) []string {
	if width < 1 {
		return nil
	}
	var lines []string
	var current []rune
	for _, field := range strings.Fields(text) {
		word := []rune(field)
		for len(word) > width {
			if len(current) > 0 {
				lines = append(lines, string(current))
				current = current[:0]
			}
			lines = append(lines, string(word[:width]))
			word = word[width:]
		}
		if len(current) > 0 && len(current)+1+len(word) > width {
			lines = append(lines, string(current))
			current = current[:0]
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, word...)
	}
	if len(current) > 0 {
		lines = append(lines, string(current))
	}
	return lines
}
