package clock

import (
	"fmt"
	"time"

	"github.com/jmylchreest/notchd/internal/config"
	"github.com/jmylchreest/notchd/internal/module"
	"github.com/jmylchreest/notchd/internal/render"
)

const (
	defaultFormat   = "15:04:05"
	defaultFontSize = 16.0
)

// Clock renders the current local time. It ticks once a second and only
// requests a redraw when the formatted string actually changes, so a
// minute-resolution format repaints once a minute.
type Clock struct {
	format   string
	fontSize float64
	color    render.Color
	bg       render.Color
	hasBG    bool

	rendered string
}

// New creates a clock with default settings.
func New() module.Module {
	return &Clock{
		format:   defaultFormat,
		fontSize: defaultFontSize,
		color:    render.White,
	}
}

func (c *Clock) ID() string { return "clock" }

// Configure applies the module's settings table. Recognised keys: format
// (Go reference layout), font_size, color and background ([]int RGBA).
func (c *Clock) Configure(settings map[string]any) error {
	if v, ok := settings["format"]; ok {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("clock: format must be a string, got %T", v)
		}
		c.format = s
	}
	if v, ok := settings["font_size"]; ok {
		size, err := asFloat(v)
		if err != nil || size <= 0 {
			return fmt.Errorf("clock: invalid font_size %v", v)
		}
		c.fontSize = size
	}
	if v, ok := settings["color"]; ok {
		col, err := asColor(v)
		if err != nil {
			return fmt.Errorf("clock: invalid color: %w", err)
		}
		c.color = col
	}
	if v, ok := settings["background"]; ok {
		col, err := asColor(v)
		if err != nil {
			return fmt.Errorf("clock: invalid background: %w", err)
		}
		c.bg = col
		c.hasBG = true
	}
	return nil
}

func (c *Clock) Interval() time.Duration { return time.Second }

// Tick reformats the time and reports whether the visible string changed.
func (c *Clock) Tick(now time.Time) bool {
	s := now.Format(c.format)
	if s == c.rendered {
		return false
	}
	c.rendered = s
	return true
}

func (c *Clock) HandleInput(ev module.InputEvent) bool { return false }

func (c *Clock) PreferredSize() config.Size {
	// Wide enough for the default format at the default size; the draw
	// pass centers the actual string within the allotted area.
	w := int(c.fontSize) * len(c.format)
	if w < 80 {
		w = 80
	}
	return config.Size{Width: w, Height: int(c.fontSize) + 8}
}

func (c *Clock) DesiredSize() (config.Size, bool) {
	return config.Size{}, false
}

func (c *Clock) Draw(dc *module.DrawContext, bounds render.Rect) error {
	if c.rendered == "" {
		c.rendered = time.Now().Format(c.format)
	}
	if c.hasBG {
		dc.FillRoundedRect(bounds, 4*dc.Scale(), c.bg)
	}

	// Bounds are buffer pixels; the face size follows the output scale.
	size := c.fontSize * float64(dc.Scale())
	w := dc.MeasureText(c.rendered, size)
	ascent, height := dc.TextMetrics(size)
	x := bounds.X + (bounds.W-w)/2
	y := bounds.Y + (bounds.H-height)/2 + ascent
	dc.DrawText(x, y, c.rendered, size, c.color)
	return nil
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

func asColor(v any) (render.Color, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 4 {
		return render.Color{}, fmt.Errorf("expected a 4-element array, got %T", v)
	}
	var out [4]uint8
	for i, e := range arr {
		n, err := asFloat(e)
		if err != nil || n < 0 || n > 255 {
			return render.Color{}, fmt.Errorf("channel %d out of range: %v", i, e)
		}
		out[i] = uint8(n)
	}
	return render.Color{R: out[0], G: out[1], B: out[2], A: out[3]}, nil
}
