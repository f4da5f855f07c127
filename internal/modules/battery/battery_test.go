package battery

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/notchd/internal/module"
	"github.com/jmylchreest/notchd/internal/render"
)

type fakeReader struct {
	st     status
	err    error
	closed bool
}

func (f *fakeReader) read() (status, error) { return f.st, f.err }
func (f *fakeReader) close()                { f.closed = true }

func TestConfigure_OnlySettingsErrorsFail(t *testing.T) {
	b := New().(*Battery)
	require.NoError(t, b.Configure(nil), "missing bus must not fail configuration")
	require.NoError(t, b.Configure(map[string]any{"font_size": int64(14)}))
	assert.Equal(t, 14.0, b.fontSize)

	assert.Error(t, b.Configure(map[string]any{"font_size": "huge"}))
	assert.Error(t, b.Configure(map[string]any{"font_size": int64(-3)}))
}

func TestTick_FormatsDischarging(t *testing.T) {
	b := New().(*Battery)
	b.bus = &fakeReader{st: status{
		percentage:  73.4,
		state:       stateDischarging,
		timeToEmpty: 2 * 60 * 60,
	}}

	now := time.Now()
	assert.True(t, b.Tick(now))
	assert.Contains(t, b.rendered, "73%")
	assert.Contains(t, b.rendered, "left")
}

func TestTick_FormatsCharging(t *testing.T) {
	b := New().(*Battery)
	b.bus = &fakeReader{st: status{
		percentage: 40,
		state:      stateCharging,
		timeToFull: 45 * 60,
	}}

	assert.True(t, b.Tick(time.Now()))
	assert.Contains(t, b.rendered, "40%")
	assert.Contains(t, b.rendered, "full")
}

func TestTick_FullCharge(t *testing.T) {
	b := New().(*Battery)
	b.bus = &fakeReader{st: status{percentage: 100, state: stateFullCharged}}

	assert.True(t, b.Tick(time.Now()))
	assert.Equal(t, "100% full", b.rendered)
}

func TestTick_DirtyOnlyOnChange(t *testing.T) {
	b := New().(*Battery)
	b.bus = &fakeReader{st: status{percentage: 50, state: stateFullCharged}}

	now := time.Now()
	assert.True(t, b.Tick(now))
	assert.False(t, b.Tick(now.Add(pollInterval)), "unchanged status stays clean")
}

func TestTick_ReadFailureFallsBackToPlaceholder(t *testing.T) {
	b := New().(*Battery)
	fr := &fakeReader{st: status{percentage: 50, state: stateFullCharged}}
	b.bus = fr
	require.True(t, b.Tick(time.Now()))

	fr.err = errors.New("device vanished")
	assert.True(t, b.Tick(time.Now()), "placeholder replaces stale reading")
	assert.Equal(t, placeholder, b.rendered)
	assert.True(t, fr.closed)
	assert.Nil(t, b.bus, "connection is dropped for a later retry")
}

func TestDraw_ScalesFontWithOutput(t *testing.T) {
	text, err := render.NewTextRenderer("")
	require.NoError(t, err)

	extent := func(scale int) int {
		b := New().(*Battery)
		b.bus = &fakeReader{st: status{percentage: 73, state: stateDischarging}}
		require.True(t, b.Tick(time.Now()))

		w, h := 400*scale, 40*scale
		buf := make([]byte, w*h*4)
		canvas := render.NewCanvas(buf, w, h, w*4)
		dc := module.NewDrawContext(canvas, text, scale, false, nil)
		require.NoError(t, b.Draw(dc, render.Rect{W: w, H: h}))
		dc.Release()

		minX, maxX := w, 0
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if buf[(y*w+x)*4+3] != 0 {
					if x < minX {
						minX = x
					}
					if x > maxX {
						maxX = x
					}
				}
			}
		}
		require.Greater(t, maxX, minX, "scale %d draw painted nothing", scale)
		return maxX - minX
	}

	one := extent(1)
	two := extent(2)
	assert.Greater(t, two, one+one/2, "text must roughly double at scale 2")
}
