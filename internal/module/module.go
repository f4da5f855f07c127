package module

import (
	"log/slog"
	"time"

	"github.com/jmylchreest/notchd/internal/config"
	"github.com/jmylchreest/notchd/internal/render"
)

// InputKind discriminates InputEvent variants.
type InputKind int

// Input event kinds.
const (
	PointerMove InputKind = iota
	PointerButton
	PointerLeave
)

// InputEvent is a pointer event in surface-local coordinates. Events are
// transient: routed, never stored.
type InputEvent struct {
	Kind    InputKind
	X, Y    float64
	Button  uint32
	Pressed bool
}

// Module is the capability contract every widget implements. All callbacks
// run on the control loop; implementations must not retain the DrawContext
// past the Draw call that produced it.
type Module interface {
	// ID returns the unique module identifier used in configuration.
	ID() string

	// Configure is called once at construction with the module's private
	// settings table. An error disables the module; it never aborts the
	// process.
	Configure(settings map[string]any) error

	// Interval returns the module's tick period. Zero means untimed.
	Interval() time.Duration

	// Tick advances time-based state and reports whether a redraw is
	// needed.
	Tick(now time.Time) bool

	// HandleInput processes an event routed to this module and reports
	// whether it was consumed.
	HandleInput(ev InputEvent) bool

	// PreferredSize returns the module's layout footprint.
	PreferredSize() config.Size

	// DesiredSize is an expansion hint: a module that wants the notch
	// expanded (e.g. after a click) returns the size it would like. The
	// orchestrator treats this purely as a hint.
	DesiredSize() (config.Size, bool)

	// Draw paints the module into its allotted bounds.
	Draw(dc *DrawContext, bounds render.Rect) error
}

// DrawContext is a borrowed view over one frame buffer plus the current
// surface geometry, handed to exactly one module at a time during a paint
// pass. It is released when the pass ends; drawing through a released
// context is a logged no-op rather than a write into a buffer the
// compositor may own.
type DrawContext struct {
	canvas   *render.Canvas
	text     *render.TextRenderer
	logger   *slog.Logger
	width    int
	height   int
	scale    int
	expanded bool
	released bool
}

// NewDrawContext wraps a canvas for one paint pass.
func NewDrawContext(canvas *render.Canvas, text *render.TextRenderer, scale int, expanded bool, logger *slog.Logger) *DrawContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &DrawContext{
		canvas:   canvas,
		text:     text,
		logger:   logger,
		width:    canvas.Width(),
		height:   canvas.Height(),
		scale:    scale,
		expanded: expanded,
	}
}

// Release ends the borrow. Called by the orchestrator at the end of the
// paint pass.
func (dc *DrawContext) Release() {
	dc.released = true
	dc.canvas = nil
}

func (dc *DrawContext) live(op string) bool {
	if dc.released {
		dc.logger.Warn("draw context used after paint pass", "op", op)
		return false
	}
	return true
}

// Width returns the surface width in buffer pixels.
func (dc *DrawContext) Width() int { return dc.width }

// Height returns the surface height in buffer pixels.
func (dc *DrawContext) Height() int { return dc.height }

// Scale returns the output scale factor.
func (dc *DrawContext) Scale() int { return dc.scale }

// Expanded reports whether the notch is expanded.
func (dc *DrawContext) Expanded() bool { return dc.expanded }

// FillRect fills a rectangle.
func (dc *DrawContext) FillRect(r render.Rect, col render.Color) {
	if dc.live("fill_rect") {
		dc.canvas.FillRect(r, col)
	}
}

// FillRoundedRect fills a rounded rectangle.
func (dc *DrawContext) FillRoundedRect(r render.Rect, radius int, col render.Color) {
	if dc.live("fill_rounded_rect") {
		dc.canvas.FillRoundedRect(r, radius, col)
	}
}

// Blit composites a source canvas.
func (dc *DrawContext) Blit(r render.Rect, src *render.Canvas) {
	if dc.live("blit") {
		dc.canvas.Blit(r, src)
	}
}

// DrawText draws text with its baseline at (x, y).
func (dc *DrawContext) DrawText(x, y int, s string, size float64, col render.Color) {
	if dc.live("draw_text") && dc.text != nil {
		dc.text.DrawText(dc.canvas, x, y, s, size, col)
	}
}

// MeasureText returns the advance width of s at the given size.
func (dc *DrawContext) MeasureText(s string, size float64) int {
	if dc.text == nil {
		return 0
	}
	return dc.text.MeasureText(s, size)
}

// TextMetrics returns ascent and line height at the given size.
func (dc *DrawContext) TextMetrics(size float64) (ascent, height int) {
	if dc.text == nil {
		return 0, 0
	}
	return dc.text.Metrics(size)
}
