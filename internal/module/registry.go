package module

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/notchd/internal/config"
	"github.com/jmylchreest/notchd/internal/render"
)

// Factory creates a new module instance.
type Factory func() Module

// Registry maps module identifiers to constructor functions. Built-in
// modules register themselves at startup; building the active set is a
// one-time call.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given id, replacing any previous one.
func (r *Registry) Register(id string, f Factory) {
	r.factories[id] = f
}

// Build instantiates the enabled modules in configured order. Unknown ids
// are dropped with a warning; a module whose Configure fails (or panics) is
// disabled without affecting the others. Order defines draw z-order (later
// = on top) and, reversed, input routing priority.
func (r *Registry) Build(cfg *config.Config, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	set := &Set{logger: logger, restartAt: time.Now()}

	for _, id := range cfg.Modules.Enabled {
		factory, ok := r.factories[id]
		if !ok {
			logger.Warn("unknown module id in config, skipping", "module", id)
			continue
		}

		mod := factory()
		if err := safeConfigure(mod, cfg.ModuleSettings(id)); err != nil {
			logger.Warn("module configuration failed, disabling",
				"module", id, "error", err)
			continue
		}

		am := &active{mod: mod, placement: placementFor(cfg.ModuleSettings(id))}
		if iv := mod.Interval(); iv > 0 {
			am.nextTick = set.restartAt
		}
		set.mods = append(set.mods, am)
		logger.Debug("module enabled", "module", id, "interval", mod.Interval())
	}

	return set
}

func safeConfigure(m Module, settings map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("configure panicked: %v", r)
		}
	}()
	return m.Configure(settings)
}

func placementFor(settings map[string]any) string {
	if p, ok := settings["align"].(string); ok {
		switch p {
		case "left", "right", "center":
			return p
		}
	}
	return "center"
}

// active tracks one module instance for the process lifetime.
type active struct {
	mod       Module
	placement string
	area      render.Rect
	nextTick  time.Time
	disabled  bool
}

// Set is the insertion-ordered list of live modules.
type Set struct {
	logger    *slog.Logger
	mods      []*active
	restartAt time.Time
}

// Len returns the number of modules still enabled.
func (s *Set) Len() int {
	n := 0
	for _, m := range s.mods {
		if !m.disabled {
			n++
		}
	}
	return n
}

// IDs returns the ids of enabled modules in draw order.
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.mods))
	for _, m := range s.mods {
		if !m.disabled {
			ids = append(ids, m.mod.ID())
		}
	}
	return ids
}

const moduleSpacing = 8

// Layout assigns each module an area within the w×h surface, both in buffer
// pixels. PreferredSize is reported in logical pixels and multiplied by the
// output scale. Modules are grouped by their configured placement (left,
// center, right) in a single row and vertically centered.
func (s *Set) Layout(w, h, scale int) {
	if scale < 1 {
		scale = 1
	}
	spacing := moduleSpacing * scale

	var left, center, right []*active
	for _, m := range s.mods {
		if m.disabled {
			continue
		}
		switch m.placement {
		case "left":
			left = append(left, m)
		case "right":
			right = append(right, m)
		default:
			center = append(center, m)
		}
	}

	footprint := func(m *active) config.Size {
		size := m.mod.PreferredSize()
		return config.Size{Width: size.Width * scale, Height: size.Height * scale}
	}

	place := func(m *active, x int) int {
		size := footprint(m)
		m.area = render.Rect{
			X: x,
			Y: (h - size.Height) / 2,
			W: size.Width,
			H: size.Height,
		}
		return x + size.Width + spacing
	}

	x := 0
	for _, m := range left {
		x = place(m, x)
	}

	x = w
	for i := len(right) - 1; i >= 0; i-- {
		m := right[i]
		x -= footprint(m).Width
		place(m, x)
		x -= spacing
	}

	total := 0
	for _, m := range center {
		total += footprint(m).Width
	}
	if n := len(center); n > 1 {
		total += (n - 1) * spacing
	}
	x = (w - total) / 2
	if x < 0 {
		x = 0
	}
	for _, m := range center {
		x = place(m, x)
	}
}

// TickDue invokes Tick on every module whose interval has elapsed and
// reports whether any module wants a redraw. A panicking module is disabled
// for the remainder of the run without affecting the others.
func (s *Set) TickDue(now time.Time) bool {
	dirty := false
	for _, m := range s.mods {
		if m.disabled || m.mod.Interval() == 0 || now.Before(m.nextTick) {
			continue
		}
		m.nextTick = now.Add(m.mod.Interval())

		changed, err := safeTick(m.mod, now)
		if err != nil {
			s.logger.Error("module tick panicked, disabling",
				"module", m.mod.ID(), "error", err)
			m.disabled = true
			continue
		}
		dirty = dirty || changed
	}
	return dirty
}

func safeTick(m Module, now time.Time) (changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()
	return m.Tick(now), nil
}

// NextTick returns the earliest pending tick deadline, or ok=false when no
// module is timed.
func (s *Set) NextTick() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, m := range s.mods {
		if m.disabled || m.mod.Interval() == 0 {
			continue
		}
		if !found || m.nextTick.Before(earliest) {
			earliest = m.nextTick
			found = true
		}
	}
	return earliest, found
}

// Draw paints every module in registry order within its allotted area. A
// failing or panicking module never prevents the others from drawing.
func (s *Set) Draw(dc *DrawContext) {
	for _, m := range s.mods {
		if m.disabled {
			continue
		}
		if err := safeDraw(m.mod, dc, m.area); err != nil {
			s.logger.Warn("module draw failed", "module", m.mod.ID(), "error", err)
		}
	}
}

func safeDraw(m Module, dc *DrawContext, area render.Rect) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("draw panicked: %v", r)
		}
	}()
	return m.Draw(dc, area)
}

// Route dispatches a pointer event. Positional events walk modules top-first
// (reverse registry order); the first module whose area contains the point
// and whose handler returns true consumes the event. Leave events go to
// every module.
func (s *Set) Route(ev InputEvent) bool {
	if ev.Kind == PointerLeave {
		handled := false
		for _, m := range s.mods {
			if m.disabled {
				continue
			}
			if ok, err := safeInput(m.mod, ev); err != nil {
				s.routeFailure(m, err)
			} else if ok {
				handled = true
			}
		}
		return handled
	}

	for i := len(s.mods) - 1; i >= 0; i-- {
		m := s.mods[i]
		if m.disabled || !m.area.Contains(int(ev.X), int(ev.Y)) {
			continue
		}
		ok, err := safeInput(m.mod, ev)
		if err != nil {
			s.routeFailure(m, err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func (s *Set) routeFailure(m *active, err error) {
	s.logger.Error("module input handler panicked, disabling",
		"module", m.mod.ID(), "error", err)
	m.disabled = true
}

func safeInput(m Module, ev InputEvent) (handled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("input handler panicked: %v", r)
		}
	}()
	return m.HandleInput(ev), nil
}

// DesiredExpansion reports whether any enabled module currently hints that
// the notch should be expanded.
func (s *Set) DesiredExpansion() bool {
	for _, m := range s.mods {
		if m.disabled {
			continue
		}
		if _, ok := m.mod.DesiredSize(); ok {
			return true
		}
	}
	return false
}
