package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextRenderer_BuiltinFace(t *testing.T) {
	tr, err := NewTextRenderer("")
	require.NoError(t, err)
	assert.Positive(t, tr.MeasureText("12:34:56", 16))
}

func TestNewTextRenderer_MissingFile(t *testing.T) {
	_, err := NewTextRenderer("/nonexistent/font.ttf")
	assert.Error(t, err)
}

func TestDrawText_PaintsCoverage(t *testing.T) {
	tr, err := NewTextRenderer("")
	require.NoError(t, err)

	c := newTestCanvas(120, 40)
	ascent, _ := tr.Metrics(16)
	tr.DrawText(c, 4, 4+ascent, "12:34", 16, White)

	var painted int
	for i := 3; i < len(c.data); i += 4 {
		if c.data[i] != 0 {
			painted++
		}
	}
	assert.Positive(t, painted, "expected some glyph coverage")
}

func TestDrawText_ClipsAtEdges(t *testing.T) {
	tr, err := NewTextRenderer("")
	require.NoError(t, err)

	// Baseline outside the canvas on every side: must not panic.
	c := newTestCanvas(10, 10)
	tr.DrawText(c, -50, -50, "clipped", 32, White)
	tr.DrawText(c, 8, 9, "clipped", 32, White)
}

func TestDrawText_MissingGlyphBlankAdvance(t *testing.T) {
	tr, err := NewTextRenderer("")
	require.NoError(t, err)

	c := newTestCanvas(200, 40)
	ascent, _ := tr.Metrics(16)

	// Go Regular has no CJK coverage; the run must still advance and not
	// panic, rendering the surrounding ASCII.
	tr.DrawText(c, 2, 2+ascent, "a世b", 16, White)

	w := tr.MeasureText("ab", 16)
	assert.Positive(t, w)
}

func TestMetrics(t *testing.T) {
	tr, err := NewTextRenderer("")
	require.NoError(t, err)

	ascent, height := tr.Metrics(16)
	assert.Positive(t, ascent)
	assert.GreaterOrEqual(t, height, ascent)
}
