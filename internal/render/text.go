package render

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const textDPI = 72

// TextRenderer rasterizes glyphs from a single parsed font, caching one
// face per requested size. It is not safe for concurrent use; all drawing
// happens on the control loop.
type TextRenderer struct {
	font  *opentype.Font
	faces map[float64]font.Face
}

// NewTextRenderer parses the font at path, or the built-in Go Regular face
// when path is empty.
func NewTextRenderer(path string) (*TextRenderer, error) {
	data := goregular.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", path, err)
		}
		data = b
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	return &TextRenderer{
		font:  f,
		faces: make(map[float64]font.Face),
	}, nil
}

func (t *TextRenderer) face(size float64) (font.Face, error) {
	if f, ok := t.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(t.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     textDPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("face at size %g: %w", size, err)
	}
	t.faces[size] = f
	return f, nil
}

// MeasureText returns the advance width of s at the given size, in pixels.
func (t *TextRenderer) MeasureText(s string, size float64) int {
	f, err := t.face(size)
	if err != nil {
		return 0
	}
	return font.MeasureString(f, s).Round()
}

// Metrics returns the ascent and total line height at the given size.
func (t *TextRenderer) Metrics(size float64) (ascent, height int) {
	f, err := t.face(size)
	if err != nil {
		return 0, 0
	}
	m := f.Metrics()
	return m.Ascent.Round(), m.Height.Round()
}

// DrawText rasterizes s onto the canvas with its baseline origin at (x, y).
// Glyph coverage is alpha-composited with straight over-blending; glyphs
// missing from the font advance by the space width and render nothing.
// Drawing never panics on malformed input: errors degrade to a no-op.
func (t *TextRenderer) DrawText(c *Canvas, x, y int, s string, size float64, col Color) {
	f, err := t.face(size)
	if err != nil {
		return
	}

	blankAdvance, _ := f.GlyphAdvance(' ')
	dot := fixed.P(x, y)

	for _, r := range s {
		dr, mask, maskp, advance, ok := f.Glyph(dot, r)
		if !ok {
			// Missing glyph: blank advance, nothing drawn.
			dot.X += blankAdvance
			continue
		}
		t.compositeMask(c, dr, mask, maskp, col)
		dot.X += advance
	}
}

// compositeMask blends a glyph coverage mask into the canvas, scaling the
// text color's alpha by per-pixel coverage.
func (t *TextRenderer) compositeMask(c *Canvas, dr image.Rectangle, mask image.Image, maskp image.Point, col Color) {
	x0 := max(dr.Min.X, 0)
	y0 := max(dr.Min.Y, 0)
	x1 := min(dr.Max.X, c.width)
	y1 := min(dr.Max.Y, c.height)

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			mx := maskp.X + (x - dr.Min.X)
			my := maskp.Y + (y - dr.Min.Y)
			cov := color.AlphaModel.Convert(mask.At(mx, my)).(color.Alpha).A
			if cov == 0 {
				continue
			}
			c.blendPixel(x, y, Color{
				R: col.R,
				G: col.G,
				B: col.B,
				A: uint8(uint32(col.A) * uint32(cov) / 255),
			})
		}
	}
}
