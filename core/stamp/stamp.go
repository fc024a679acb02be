package stamp

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DefaultScaleDivisor sets the glyph height to shorter-dimension/45,
// the proportion the stamp keeps legible from thumbnails to full-frame.
const DefaultScaleDivisor = 45

// Stamp colors: deep orange text on a black legibility plate, replacing
// destination pixels outright (no alpha blending).
var (
	textColor  = color.RGBA{R: 255, G: 110, B: 30, A: 255}
	plateColor = color.RGBA{A: 255}
)

// Stamper renders date strings into pixel buffers. Zero-value-unusable;
// construct with New. A Stamper is immutable after construction and safe
// for concurrent use.
type Stamper struct {
	ttf     *opentype.Font // nil selects the built-in segment face
	divisor int
}

// New returns a Stamper using the built-in segment face, or the TTF at
// fontPath when it is non-empty. A fontPath that cannot be loaded is a
// fatal configuration error (core.ErrFontLoad).
func New(fontPath string) (*Stamper, error) {
	s := &Stamper{divisor: DefaultScaleDivisor}
	if fontPath != "" {
		ft, err := LoadTTF(fontPath)
		if err != nil {
			return nil, err
		}
		s.ttf = ft
	}
	return s, nil
}

// GlyphHeight returns the stamp glyph height in pixels for an image with
// the given shorter dimension. Monotonically non-decreasing in the input,
// and never below the native glyph height of the built-in face.
func (s *Stamper) GlyphHeight(shorter int) int {
	h := shorter / s.divisor
	if h < glyphHeight {
		h = glyphHeight
	}
	return h
}

// Stamp renders text into the bottom-right region of img, opaque-over.
// Returns false when the image is too small to fit a single glyph row, in
// which case img is untouched. All writes are confined to img's bounds by
// rectangle intersection regardless of the computed stamp geometry.
func (s *Stamper) Stamp(img *image.RGBA, text string) bool {
	b := img.Bounds()
	shorter := b.Dx()
	if b.Dy() < shorter {
		shorter = b.Dy()
	}
	// minimum renderable size: one native glyph cell
	if b.Dy() < glyphHeight || b.Dx() < glyphAdvance {
		return false
	}

	target := s.GlyphHeight(shorter)
	if s.ttf != nil {
		return s.stampTTF(img, text, target)
	}
	return s.stampBuiltin(img, text, target)
}

// stampBuiltin draws the segment face at native size onto a plate, scales
// the plate to the target glyph height with nearest-neighbour (preserving
// the hard segment edges), and composites it bottom-right.
func (s *Stamper) stampBuiltin(img *image.RGBA, text string, target int) bool {
	const pad = 1 // native pixels around the text

	plateW := len(text)*glyphAdvance + 2*pad
	plateH := glyphHeight + 2*pad
	plate := image.NewRGBA(image.Rect(0, 0, plateW, plateH))
	draw.Draw(plate, plate.Bounds(), image.NewUniform(plateColor), image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  plate,
		Src:  image.NewUniform(textColor),
		Face: BuiltinFace(),
		Dot:  fixed.P(pad, pad+glyphHeight),
	}
	d.DrawString(text)

	scaledH := target * plateH / glyphHeight
	scaledW := plateW * scaledH / plateH
	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), plate, plate.Bounds(), xdraw.Src, nil)

	compose(img, scaled, target)
	return true
}

// stampTTF sizes an opentype face to the target glyph height and draws
// onto a plate at final size; no scaling pass is needed.
func (s *Stamper) stampTTF(img *image.RGBA, text string, target int) bool {
	face, err := opentype.NewFace(s.ttf, &opentype.FaceOptions{
		Size:    float64(target),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		// face creation at a sane size should not fail once the font
		// parsed; fall back to the built-in glyphs rather than abort
		return s.stampBuiltin(img, text, target)
	}
	defer face.Close()

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	pad := target / glyphHeight
	if pad < 1 {
		pad = 1
	}

	width := font.MeasureString(face, text).Ceil()
	plate := image.NewRGBA(image.Rect(0, 0, width+2*pad, ascent+descent+2*pad))
	draw.Draw(plate, plate.Bounds(), image.NewUniform(plateColor), image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  plate,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(pad, pad+ascent),
	}
	d.DrawString(text)

	compose(img, plate, target)
	return true
}

// compose pastes the rendered plate into the bottom-right corner of img
// with a margin proportional to the glyph size. The destination rectangle
// is clamped into img's bounds and then intersected with them, so a plate
// larger than the image degrades to a cropped stamp instead of an
// out-of-bounds write.
func compose(img *image.RGBA, plate *image.RGBA, target int) {
	b := img.Bounds()
	margin := target / 2

	x := b.Max.X - plate.Bounds().Dx() - margin
	y := b.Max.Y - plate.Bounds().Dy() - margin
	if x < b.Min.X {
		x = b.Min.X
	}
	if y < b.Min.Y {
		y = b.Min.Y
	}

	dst := image.Rect(x, y, x+plate.Bounds().Dx(), y+plate.Bounds().Dy()).Intersect(b)
	draw.Draw(img, dst, plate, image.Point{}, draw.Src)
}

// Upright rotates decoded pixels so the stamp lands on the visually
// bottom-right corner, per the EXIF orientation values cameras actually
// produce for photos (3, 6, 8). Other values return img unchanged.
func Upright(img *image.RGBA, orientation int) *image.RGBA {
	switch orientation {
	case 3:
		return rotate180(img)
	case 6:
		return rotate90(img)
	case 8:
		return rotate270(img)
	default:
		return img
	}
}

func rotate90(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(h-1-y, x, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func rotate180(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(w-1-x, h-1-y, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func rotate270(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(y, w-1-x, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
