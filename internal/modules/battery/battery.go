package battery

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/notchd/internal/config"
	"github.com/jmylchreest/notchd/internal/module"
	"github.com/jmylchreest/notchd/internal/render"
)

const (
	upowerBus    = "org.freedesktop.UPower"
	displayPath  = "/org/freedesktop/UPower/devices/DisplayDevice"
	deviceIface  = "org.freedesktop.UPower.Device"
	pollInterval = 30 * time.Second
)

// UPower device states we care about.
const (
	stateCharging    = 1
	stateDischarging = 2
	stateFullCharged = 4
)

// reader abstracts the UPower property fetch so tests can run without a
// system bus.
type reader interface {
	read() (status, error)
	close()
}

type status struct {
	percentage  float64
	state       uint32
	timeToEmpty int64
	timeToFull  int64
}

// Battery shows charge state from UPower. When the bus or the display
// device is unavailable the module stays enabled and renders a placeholder.
type Battery struct {
	logger   *slog.Logger
	fontSize float64
	color    render.Color

	bus reader

	current  status
	rendered string
}

// New creates a battery module that connects lazily on the first tick.
func New() module.Module {
	return &Battery{
		logger:   slog.Default(),
		fontSize: 16.0,
		color:    render.White,
	}
}

func (b *Battery) ID() string { return "battery" }

// Configure applies settings. An unreachable bus is not a configuration
// error; only malformed settings disable the module.
func (b *Battery) Configure(settings map[string]any) error {
	if v, ok := settings["font_size"]; ok {
		size, ok := asFloat(v)
		if !ok || size <= 0 {
			return fmt.Errorf("battery: invalid font_size %v", v)
		}
		b.fontSize = size
	}
	return nil
}

func (b *Battery) Interval() time.Duration { return pollInterval }

// Tick polls UPower and reports whether the rendered string changed.
func (b *Battery) Tick(now time.Time) bool {
	if b.bus == nil {
		r, err := newSystemReader()
		if err != nil {
			b.logger.Debug("upower unavailable", "error", err)
			return b.setRendered(placeholder)
		}
		b.bus = r
	}

	st, err := b.bus.read()
	if err != nil {
		b.logger.Warn("upower read failed", "error", err)
		b.bus.close()
		b.bus = nil
		return b.setRendered(placeholder)
	}

	b.current = st
	return b.setRendered(b.format(now))
}

const placeholder = "--%"

func (b *Battery) setRendered(s string) bool {
	if s == b.rendered {
		return false
	}
	b.rendered = s
	return true
}

func (b *Battery) format(now time.Time) string {
	pct := fmt.Sprintf("%d%%", int(b.current.percentage+0.5))
	switch b.current.state {
	case stateCharging:
		if b.current.timeToFull > 0 {
			full := now.Add(time.Duration(b.current.timeToFull) * time.Second)
			return fmt.Sprintf("%s ↑ full %s", pct, humanize.RelTime(full, now, "", ""))
		}
		return pct + " ↑"
	case stateDischarging:
		if b.current.timeToEmpty > 0 {
			empty := now.Add(time.Duration(b.current.timeToEmpty) * time.Second)
			return fmt.Sprintf("%s ↓ %s left", pct, humanize.RelTime(empty, now, "", ""))
		}
		return pct + " ↓"
	case stateFullCharged:
		return pct + " full"
	}
	return pct
}

func (b *Battery) HandleInput(ev module.InputEvent) bool { return false }

func (b *Battery) PreferredSize() config.Size {
	return config.Size{Width: 140, Height: int(b.fontSize) + 8}
}

func (b *Battery) DesiredSize() (config.Size, bool) {
	return config.Size{}, false
}

func (b *Battery) Draw(dc *module.DrawContext, bounds render.Rect) error {
	s := b.rendered
	if s == "" {
		s = placeholder
	}
	size := b.fontSize * float64(dc.Scale())
	w := dc.MeasureText(s, size)
	ascent, height := dc.TextMetrics(size)
	x := bounds.X + (bounds.W-w)/2
	y := bounds.Y + (bounds.H-height)/2 + ascent
	dc.DrawText(x, y, s, size, b.color)
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// systemReader fetches device properties from the system bus.
type systemReader struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func newSystemReader() (reader, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &systemReader{conn: conn, obj: conn.Object(upowerBus, displayPath)}, nil
}

func (r *systemReader) read() (status, error) {
	var st status

	pct, err := r.prop("Percentage")
	if err != nil {
		return st, err
	}
	if v, ok := pct.Value().(float64); ok {
		st.percentage = v
	}

	state, err := r.prop("State")
	if err != nil {
		return st, err
	}
	if v, ok := state.Value().(uint32); ok {
		st.state = v
	}

	if tte, err := r.prop("TimeToEmpty"); err == nil {
		if v, ok := tte.Value().(int64); ok {
			st.timeToEmpty = v
		}
	}
	if ttf, err := r.prop("TimeToFull"); err == nil {
		if v, ok := ttf.Value().(int64); ok {
			st.timeToFull = v
		}
	}
	return st, nil
}

func (r *systemReader) prop(name string) (dbus.Variant, error) {
	v, err := r.obj.GetProperty(deviceIface + "." + name)
	if err != nil {
		return dbus.Variant{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return v, nil
}

func (r *systemReader) close() {
	// The shared system bus connection is owned by the dbus library.
	r.conn = nil
	r.obj = nil
}
