// Package stamp renders a capture-date string into photo pixel data.
package stamp

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"

	"photostamp/core"
)

// Native glyph cell geometry of the built-in face, in pixels.
const (
	glyphWidth   = 8
	glyphHeight  = 14
	glyphAdvance = 10
	segThickness = 2
)

// segment bit flags, classic seven-segment naming
const (
	segA = 1 << iota // top
	segB             // top right
	segC             // bottom right
	segD             // bottom
	segE             // bottom left
	segF             // top left
	segG             // middle
)

// segments lit per displayable character. The face covers exactly what a
// date stamp and a canonical name can contain: digits, hyphen, underscore,
// colon and space.
var segsByChar = map[rune]int{
	'0': segA | segB | segC | segD | segE | segF,
	'1': segB | segC,
	'2': segA | segB | segG | segE | segD,
	'3': segA | segB | segG | segC | segD,
	'4': segF | segG | segB | segC,
	'5': segA | segF | segG | segC | segD,
	'6': segA | segF | segG | segE | segC | segD,
	'7': segA | segB | segC,
	'8': segA | segB | segC | segD | segE | segF | segG,
	'9': segA | segB | segC | segD | segF | segG,
	'-': segG,
	'_': segD,
	':': 0, // drawn as two dots, special-cased below
	' ': 0,
}

// segRects maps each segment flag to its rectangle within the glyph cell.
var segRects = map[int]image.Rectangle{
	segA: image.Rect(1, 0, glyphWidth-1, segThickness),
	segF: image.Rect(0, 1, segThickness, glyphHeight/2),
	segB: image.Rect(glyphWidth-segThickness, 1, glyphWidth, glyphHeight/2),
	segG: image.Rect(1, glyphHeight/2-1, glyphWidth-1, glyphHeight/2+1),
	segE: image.Rect(0, glyphHeight/2, segThickness, glyphHeight-1),
	segC: image.Rect(glyphWidth-segThickness, glyphHeight/2, glyphWidth, glyphHeight-1),
	segD: image.Rect(1, glyphHeight-segThickness, glyphWidth-1, glyphHeight),
}

// glyphRanges fixes each character's row in the shared mask strip. Runs of
// consecutive runes map onto basicfont ranges.
var glyphRanges = []basicfont.Range{
	{Low: ' ', High: '!', Offset: 0},
	{Low: '-', High: '.', Offset: 1},
	{Low: '0', High: ':', Offset: 2},
	{Low: ':', High: ';', Offset: 12},
	{Low: '_', High: '`', Offset: 13},
}

const glyphCount = 14

var (
	builtinOnce sync.Once
	builtinFace *basicfont.Face
)

// BuiltinFace returns the process-wide segment-style bitmap face. It is
// rasterized exactly once and read-only afterwards, so it is safe to share
// across concurrent workers without locking.
func BuiltinFace() font.Face {
	builtinOnce.Do(func() {
		builtinFace = rasterizeBuiltin()
	})
	return builtinFace
}

func rasterizeBuiltin() *basicfont.Face {
	mask := image.NewAlpha(image.Rect(0, 0, glyphWidth, glyphCount*glyphHeight))

	drawCell := func(row int, r rune) {
		top := row * glyphHeight
		segs := segsByChar[r]
		for flag, rect := range segRects {
			if segs&flag == 0 {
				continue
			}
			fillAlpha(mask, rect.Add(image.Pt(0, top)))
		}
		if r == ':' {
			dot := image.Rect(3, 3, 5, 5)
			fillAlpha(mask, dot.Add(image.Pt(0, top)))
			fillAlpha(mask, dot.Add(image.Pt(0, top+6)))
		}
	}

	for _, rng := range glyphRanges {
		for r := rng.Low; r < rng.High; r++ {
			drawCell(rng.Offset+int(r-rng.Low), r)
		}
	}

	return &basicfont.Face{
		Advance: glyphAdvance,
		Width:   glyphWidth,
		Height:  glyphHeight,
		Ascent:  glyphHeight,
		Descent: 0,
		Mask:    mask,
		Ranges:  glyphRanges,
	}
}

func fillAlpha(dst *image.Alpha, r image.Rectangle) {
	r = r.Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.SetAlpha(x, y, color.Alpha{A: 0xFF})
		}
	}
}

// LoadTTF parses an external TTF file for stamping with a custom font.
// Any failure wraps core.ErrFontLoad; the caller treats it as fatal when
// stamping was requested.
func LoadTTF(path string) (*opentype.Font, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrFontLoad, path, err)
	}
	ft, err := opentype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrFontLoad, path, err)
	}
	return ft, nil
}
