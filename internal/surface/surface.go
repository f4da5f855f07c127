package surface

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/notchd/internal/compositor"
	"github.com/jmylchreest/notchd/internal/config"
)

// State is the surface lifecycle state.
type State int

// Lifecycle states.
const (
	StateConnecting State = iota
	StateConfiguring
	StateReady
	StateResizing
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConfiguring:
		return "configuring"
	case StateReady:
		return "ready"
	case StateResizing:
		return "resizing"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Expansion selects which configured size the surface requests.
type Expansion int

// Expansion values.
const (
	Collapsed Expansion = iota
	Expanded
)

// maxProtocolErrors is the number of consecutive protocol errors tolerated
// before the surface gives up.
const maxProtocolErrors = 3

// ErrClosed is returned by operations on a surface past its lifetime.
var ErrClosed = errors.New("surface closed")

// Surface is the state machine for the notch layer surface. It is not safe
// for concurrent use; the orchestrator owns it from a single goroutine.
type Surface struct {
	conn   compositor.Conn
	logger *slog.Logger
	cfg    *config.Config

	ls    compositor.LayerSurface
	state State

	expansion Expansion
	requested config.Size
	acked     config.Size
	ackedOnce bool
	scale     int

	protoErrs int
	fatal     error
}

// New creates an unopened surface.
func New(conn compositor.Conn, cfg *config.Config, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	return &Surface{
		conn:      conn,
		logger:    logger,
		cfg:       cfg,
		state:     StateConnecting,
		requested: cfg.Collapsed,
		scale:     1,
	}
}

// State returns the current lifecycle state.
func (s *Surface) State() State { return s.state }

// Expansion returns the currently requested expansion.
func (s *Surface) Expansion() Expansion { return s.expansion }

// Size returns the last acknowledged surface size in logical pixels.
// Valid once Ready.
func (s *Surface) Size() config.Size { return s.acked }

// Scale returns the current buffer scale factor.
func (s *Surface) Scale() int { return s.scale }

// BufferSize returns the pixel size frames must be rendered at: the
// acknowledged logical size multiplied by the buffer scale.
func (s *Surface) BufferSize() config.Size {
	return config.Size{
		Width:  s.acked.Width * s.scale,
		Height: s.acked.Height * s.scale,
	}
}

// SetScale declares a new buffer scale. Subsequent frames must be rendered
// at the scaled size. Returns true when the scale actually changed.
func (s *Surface) SetScale(factor int) (bool, error) {
	if factor < 1 {
		factor = 1
	}
	if factor == s.scale {
		return false, nil
	}
	switch s.state {
	case StateConfiguring, StateReady, StateResizing:
	default:
		return false, fmt.Errorf("set scale in state %s", s.state)
	}

	if err := s.ls.SetBufferScale(factor); err != nil {
		s.fail(fmt.Errorf("set buffer scale failed: %w", err))
		return false, s.fatal
	}
	s.scale = factor
	s.logger.Debug("buffer scale changed", "scale", factor)
	return true, nil
}

// Err returns the fatal error that forced Closing, if any.
func (s *Surface) Err() error { return s.fatal }

// Open creates the layer surface anchored to the top edge at the collapsed
// size and performs the initial commit. The surface then waits for the
// first configure.
func (s *Surface) Open() error {
	if s.state != StateConnecting {
		return fmt.Errorf("open in state %s", s.state)
	}

	ls, err := s.conn.CreateLayerSurface(compositor.SurfaceSpec{
		Namespace:     "notchd",
		Anchor:        compositor.AnchorTop,
		Width:         s.cfg.Collapsed.Width,
		Height:        s.cfg.Collapsed.Height,
		ExclusiveZone: 0,
	})
	if err != nil {
		s.state = StateClosed
		return fmt.Errorf("failed to create layer surface: %w", err)
	}
	s.ls = ls

	// Initial commit with no buffer prompts the first configure.
	if err := ls.Commit(); err != nil {
		s.state = StateClosed
		return fmt.Errorf("initial commit failed: %w", err)
	}

	s.state = StateConfiguring
	s.logger.Debug("layer surface opened",
		"width", s.requested.Width, "height", s.requested.Height)
	return nil
}

// HandleConfigure acknowledges the configure and applies its geometry. The
// compositor may send 0×0 meaning "your choice"; the requested size is kept
// in that case. Every configure is acked exactly once, including ones whose
// size we override. Returns true when the usable size changed and a repaint
// is needed.
func (s *Surface) HandleConfigure(ev compositor.Configure) (resized bool, err error) {
	switch s.state {
	case StateConfiguring, StateReady, StateResizing:
	case StateClosing, StateClosed:
		return false, nil
	default:
		return false, fmt.Errorf("configure in state %s", s.state)
	}

	size := config.Size{Width: ev.Width, Height: ev.Height}
	if size.Width == 0 || size.Height == 0 {
		size = s.requested
	}

	if err := s.ls.AckConfigure(ev.Serial); err != nil {
		s.fail(fmt.Errorf("ack configure %d failed: %w", ev.Serial, err))
		return false, s.fatal
	}

	resized = !s.ackedOnce || size != s.acked
	s.acked = size
	s.ackedOnce = true
	s.protoErrs = 0
	s.state = StateReady

	if resized {
		s.logger.Debug("surface configured",
			"serial", ev.Serial, "width", size.Width, "height", size.Height)
	}
	return resized, nil
}

// SetExpansion requests the configured size for the given expansion. The
// surface enters Resizing until the compositor configures the new size.
// A no-op when the expansion already matches.
func (s *Surface) SetExpansion(e Expansion) error {
	if s.state != StateReady && s.state != StateResizing {
		return fmt.Errorf("resize in state %s", s.state)
	}
	if e == s.expansion {
		return nil
	}

	target := s.cfg.Collapsed
	if e == Expanded {
		target = s.cfg.Expanded
	}

	if err := s.ls.SetSize(target.Width, target.Height); err != nil {
		s.fail(fmt.Errorf("set size failed: %w", err))
		return s.fatal
	}
	if err := s.ls.Commit(); err != nil {
		s.fail(fmt.Errorf("resize commit failed: %w", err))
		return s.fatal
	}

	s.expansion = e
	s.requested = target
	s.state = StateResizing
	s.logger.Debug("expansion requested",
		"expanded", e == Expanded, "width", target.Width, "height", target.Height)
	return nil
}

// Present attaches a frame, damages the given region and commits. The frame
// dimensions must match the last acknowledged size; a mismatched frame is
// rejected without touching the surface.
func (s *Surface) Present(frame compositor.Buffer, x, y, w, h int) error {
	if s.state != StateReady && s.state != StateResizing {
		return fmt.Errorf("present in state %s", s.state)
	}
	if want := s.BufferSize(); frame.Width() != want.Width || frame.Height() != want.Height {
		return fmt.Errorf("frame %dx%d does not match configured %dx%d",
			frame.Width(), frame.Height(), want.Width, want.Height)
	}

	if err := s.ls.Attach(frame); err != nil {
		s.fail(fmt.Errorf("attach failed: %w", err))
		return s.fatal
	}
	if err := s.ls.Damage(x, y, w, h); err != nil {
		s.fail(fmt.Errorf("damage failed: %w", err))
		return s.fatal
	}
	if err := s.ls.Commit(); err != nil {
		s.fail(fmt.Errorf("present commit failed: %w", err))
		return s.fatal
	}
	return nil
}

// HandleProtocolError records a non-fatal protocol error. Errors are
// tolerated individually but three in a row without a successful configure
// force the surface closed.
func (s *Surface) HandleProtocolError(err error) {
	if s.state == StateClosing || s.state == StateClosed {
		return
	}
	s.protoErrs++
	s.logger.Warn("protocol error",
		"error", err, "consecutive", s.protoErrs)
	if s.protoErrs >= maxProtocolErrors {
		s.fail(fmt.Errorf("%d consecutive protocol errors, last: %w",
			s.protoErrs, err))
	}
}

// HandleClosed processes a compositor-initiated close. Graceful; Err stays
// nil.
func (s *Surface) HandleClosed() {
	if s.state == StateClosed {
		return
	}
	s.logger.Info("surface closed by compositor")
	s.state = StateClosing
	s.teardown()
}

// HandleDisconnected processes loss of the compositor connection. Fatal.
func (s *Surface) HandleDisconnected(err error) {
	if s.state == StateClosed {
		return
	}
	s.fatal = fmt.Errorf("compositor connection lost: %w", err)
	s.state = StateClosing
	s.teardown()
}

// Close tears the surface down from our side. Graceful.
func (s *Surface) Close() {
	if s.state == StateClosing || s.state == StateClosed {
		return
	}
	s.state = StateClosing
	s.teardown()
}

func (s *Surface) fail(err error) {
	s.fatal = err
	s.logger.Error("surface failure", "error", err, "state", s.state.String())
	s.state = StateClosing
	s.teardown()
}

func (s *Surface) teardown() {
	if s.ls != nil {
		s.ls.Destroy()
		s.ls = nil
	}
	s.state = StateClosed
}
