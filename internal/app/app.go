package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/notchd/internal/buffer"
	"github.com/jmylchreest/notchd/internal/compositor"
	"github.com/jmylchreest/notchd/internal/config"
	"github.com/jmylchreest/notchd/internal/module"
	"github.com/jmylchreest/notchd/internal/render"
	"github.com/jmylchreest/notchd/internal/surface"
)

const (
	// timeoutFloor bounds loop wakeups to roughly one frame at 60Hz.
	timeoutFloor = 16 * time.Millisecond
	// timeoutCap keeps the loop responsive to cancellation even with no
	// timed modules.
	timeoutCap = time.Second

	poolCapacity = 3
)

// App owns the run loop. Construct with New, drive with Run.
type App struct {
	logger *slog.Logger
	cfg    *config.Config
	conn   compositor.Conn
	surf   *surface.Surface
	pool   *buffer.Pool
	mods   *module.Set
	text   *render.TextRenderer

	dirty         bool
	pointerInside bool
}

// New assembles an app around an established compositor connection. The
// module set must already be built from the config.
func New(conn compositor.Conn, cfg *config.Config, mods *module.Set, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", ulid.Make().String())

	text, err := render.NewTextRenderer(cfg.Font)
	if err != nil {
		return nil, err
	}

	return &App{
		logger: logger,
		cfg:    cfg,
		conn:   conn,
		surf:   surface.New(conn, cfg, logger),
		pool:   buffer.NewPool(conn, poolCapacity, logger),
		mods:   mods,
		text:   text,
	}, nil
}

// Run opens the surface and drives the control loop until the surface
// closes or ctx is cancelled. Returns nil on a graceful close, including a
// compositor-initiated one, and the fatal error otherwise.
func (a *App) Run(ctx context.Context) error {
	if err := a.surf.Open(); err != nil {
		return err
	}
	defer a.pool.Destroy()

	a.logger.Info("notch running",
		"collapsed", a.cfg.Collapsed, "expanded", a.cfg.Expanded,
		"modules", a.mods.IDs())

	timer := time.NewTimer(timeoutFloor)
	defer timer.Stop()

	for {
		if a.surf.State() == surface.StateClosed {
			return a.surf.Err()
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(a.waitTimeout(time.Now()))

		select {
		case <-ctx.Done():
			a.logger.Info("shutting down", "reason", ctx.Err())
			a.surf.Close()
			return nil

		case ev, ok := <-a.conn.Events():
			if !ok {
				a.surf.Close()
				return a.surf.Err()
			}
			if err := a.handleEvent(ev); err != nil {
				return err
			}
			if err := a.drainEvents(); err != nil {
				return err
			}

		case <-timer.C:
		}

		if a.surf.State() == surface.StateClosed {
			return a.surf.Err()
		}
		if a.mods.TickDue(time.Now()) {
			a.dirty = true
		}
		if a.dirty {
			if err := a.paint(); err != nil {
				return err
			}
		}
	}
}

// waitTimeout returns the select timeout: time until the earliest module
// tick, floored and capped.
func (a *App) waitTimeout(now time.Time) time.Duration {
	d := timeoutCap
	if next, ok := a.mods.NextTick(); ok {
		if until := next.Sub(now); until < d {
			d = until
		}
	}
	if d < timeoutFloor {
		d = timeoutFloor
	}
	return d
}

// drainEvents processes every already-queued event, preserving arrival
// order, without blocking.
func (a *App) drainEvents() error {
	for {
		select {
		case ev, ok := <-a.conn.Events():
			if !ok {
				return nil
			}
			if err := a.handleEvent(ev); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (a *App) handleEvent(ev compositor.Event) error {
	switch e := ev.(type) {
	case compositor.Configure:
		resized, err := a.surf.HandleConfigure(e)
		if err != nil {
			return err
		}
		if resized {
			a.pool.InvalidateAll()
			a.relayout()
			a.dirty = true
		}

	case compositor.Scale:
		changed, err := a.surf.SetScale(e.Factor)
		if err != nil {
			return err
		}
		if changed {
			a.pool.InvalidateAll()
			a.relayout()
			a.dirty = true
		}

	case compositor.PointerMove:
		if !a.pointerInside {
			a.pointerInside = true
			if err := a.updateExpansion(); err != nil {
				return err
			}
		}
		x, y := a.toBuffer(e.X, e.Y)
		if a.mods.Route(module.InputEvent{Kind: module.PointerMove, X: x, Y: y}) {
			a.dirty = true
		}

	case compositor.PointerButton:
		x, y := a.toBuffer(e.X, e.Y)
		if a.mods.Route(module.InputEvent{
			Kind:    module.PointerButton,
			Button:  e.Button,
			Pressed: e.Pressed,
			X:       x,
			Y:       y,
		}) {
			a.dirty = true
		}
		// A consumed click may flip a module's expansion wish.
		if err := a.updateExpansion(); err != nil {
			return err
		}

	case compositor.PointerLeave:
		a.pointerInside = false
		if a.mods.Route(module.InputEvent{Kind: module.PointerLeave}) {
			a.dirty = true
		}
		if err := a.updateExpansion(); err != nil {
			return err
		}

	case compositor.BufferReleased:
		a.pool.Release(e.Buffer)

	case compositor.Closed:
		a.surf.HandleClosed()

	case compositor.ProtocolError:
		a.surf.HandleProtocolError(e.Err)

	case compositor.Disconnected:
		a.surf.HandleDisconnected(e.Err)

	default:
		a.logger.Debug("unhandled compositor event", "event", ev)
	}
	return nil
}

// updateExpansion reconciles the surface size with pointer presence and
// module wishes: the pointer entering expands, leaving collapses, unless a
// module holds the notch open.
func (a *App) updateExpansion() error {
	want := surface.Collapsed
	if a.pointerInside || a.mods.DesiredExpansion() {
		want = surface.Expanded
	}

	switch a.surf.State() {
	case surface.StateReady, surface.StateResizing:
	default:
		return nil
	}
	if want == a.surf.Expansion() {
		return nil
	}
	return a.surf.SetExpansion(want)
}

// toBuffer maps surface-local logical coordinates to buffer pixels.
func (a *App) toBuffer(x, y float64) (float64, float64) {
	s := float64(a.surf.Scale())
	return x * s, y * s
}

func (a *App) relayout() {
	size := a.surf.BufferSize()
	a.mods.Layout(size.Width, size.Height, a.surf.Scale())
}

// paint renders one frame and presents it. Buffer exhaustion skips the
// frame and leaves the dirty flag set; the next release or tick retries.
func (a *App) paint() error {
	switch a.surf.State() {
	case surface.StateReady, surface.StateResizing:
	default:
		return nil
	}

	size := a.surf.BufferSize()
	if size.Width <= 0 || size.Height <= 0 {
		return nil
	}
	stride := size.Width * 4

	buf, err := a.pool.Acquire(size.Width, size.Height, stride)
	if err != nil {
		if errors.Is(err, buffer.ErrNoFreeBuffer) {
			a.logger.Debug("no free buffer, skipping frame")
			return nil
		}
		a.surf.HandleDisconnected(err)
		return err
	}

	canvas := render.NewCanvas(buf.Bytes(), size.Width, size.Height, buf.Stride())
	canvas.Clear(render.Transparent)

	r, g, b, alpha := a.cfg.Background.RGBA()
	bg := render.Color{R: r, G: g, B: b, A: alpha}
	radius := a.cfg.CornerRadius * a.surf.Scale()
	canvas.FillRoundedRect(render.Rect{W: size.Width, H: size.Height}, radius, bg)

	a.mods.Layout(size.Width, size.Height, a.surf.Scale())
	dc := module.NewDrawContext(canvas, a.text, a.surf.Scale(),
		a.surf.Expansion() == surface.Expanded, a.logger)
	a.mods.Draw(dc)
	dc.Release()

	if err := a.surf.Present(buf, 0, 0, size.Width, size.Height); err != nil {
		a.pool.Release(buf)
		if a.surf.State() == surface.StateClosed {
			return err
		}
		a.logger.Warn("present failed", "error", err)
		return nil
	}

	a.dirty = false
	return nil
}
