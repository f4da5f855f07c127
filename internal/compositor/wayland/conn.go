package wayland

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/jmylchreest/notchd/internal/compositor"
	"github.com/jmylchreest/notchd/internal/proto/wlr_layer_shell"
)

// Conn is a live connection to the Wayland compositor. Requests may be
// issued from the control loop goroutine while the dispatch goroutine reads
// events; reqMu serialises outgoing writes.
type Conn struct {
	logger *slog.Logger

	display  *client.Display
	ctx      *client.Context
	registry *client.Registry

	reqMu      sync.Mutex
	compositor *client.Compositor
	shm        *client.Shm
	seat       *client.Seat
	pointer    *client.Pointer
	output     *client.Output
	layerShell *wlr_layer_shell.ZwlrLayerShellV1

	events    chan compositor.Event
	closeOnce sync.Once
	done      chan struct{}

	pointerX float64
	pointerY float64
}

// Connect establishes the compositor connection, binds the required
// globals and starts the dispatch goroutine. It fails when the compositor
// lacks wl_shm or the layer-shell protocol.
func Connect(logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	display, err := client.Connect("")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to wayland display: %w", err)
	}

	c := &Conn{
		logger:  logger,
		display: display,
		ctx:     display.Context(),
		events:  make(chan compositor.Event, 64),
		done:    make(chan struct{}),
	}

	registry, err := display.GetRegistry()
	if err != nil {
		c.ctx.Close()
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}
	c.registry = registry
	registry.SetGlobalHandler(c.handleGlobal)

	if err := c.roundtrip(); err != nil {
		c.ctx.Close()
		return nil, fmt.Errorf("registry roundtrip failed: %w", err)
	}
	// A second roundtrip flushes events from the binds themselves, seat
	// capabilities in particular.
	if err := c.roundtrip(); err != nil {
		c.ctx.Close()
		return nil, fmt.Errorf("bind roundtrip failed: %w", err)
	}

	var missing []string
	if c.compositor == nil {
		missing = append(missing, "wl_compositor")
	}
	if c.shm == nil {
		missing = append(missing, "wl_shm")
	}
	if c.layerShell == nil {
		missing = append(missing, wlr_layer_shell.ZwlrLayerShellV1InterfaceName)
	}
	if len(missing) > 0 {
		c.ctx.Close()
		return nil, fmt.Errorf("compositor does not advertise %v", missing)
	}

	go c.dispatchLoop()

	logger.Debug("wayland connection established")
	return c, nil
}

func (c *Conn) handleGlobal(e client.RegistryGlobalEvent) {
	switch e.Interface {
	case "wl_compositor":
		comp := client.NewCompositor(c.ctx)
		if err := c.registry.Bind(e.Name, e.Interface, e.Version, comp); err == nil {
			c.compositor = comp
		}

	case "wl_shm":
		shm := client.NewShm(c.ctx)
		if err := c.registry.Bind(e.Name, e.Interface, e.Version, shm); err == nil {
			c.shm = shm
		}

	case "wl_seat":
		seat := client.NewSeat(c.ctx)
		if err := c.registry.Bind(e.Name, e.Interface, e.Version, seat); err == nil {
			c.seat = seat
			seat.SetCapabilitiesHandler(c.handleSeatCapabilities)
		}

	case "wl_output":
		// First output only; multi-monitor placement is out of scope.
		if c.output != nil {
			return
		}
		output := client.NewOutput(c.ctx)
		version := e.Version
		if version > 4 {
			version = 4
		}
		if err := c.registry.Bind(e.Name, e.Interface, version, output); err == nil {
			c.output = output
			output.SetScaleHandler(func(ev client.OutputScaleEvent) {
				c.emit(compositor.Scale{Factor: int(ev.Factor)})
			})
		}

	case wlr_layer_shell.ZwlrLayerShellV1InterfaceName:
		ls := wlr_layer_shell.NewZwlrLayerShellV1(c.ctx)
		version := e.Version
		if version > 4 {
			version = 4
		}
		if err := c.registry.Bind(e.Name, e.Interface, version, ls); err == nil {
			c.layerShell = ls
		}
	}
}

func (c *Conn) handleSeatCapabilities(e client.SeatCapabilitiesEvent) {
	hasPointer := e.Capabilities&uint32(client.SeatCapabilityPointer) != 0

	if hasPointer && c.pointer == nil {
		pointer, err := c.seat.GetPointer()
		if err != nil {
			c.logger.Warn("failed to get pointer", "error", err)
			return
		}
		c.pointer = pointer
		c.setupPointer(pointer)
	} else if !hasPointer && c.pointer != nil {
		c.pointer.Release()
		c.pointer = nil
		c.emit(compositor.PointerLeave{})
	}
}

func (c *Conn) setupPointer(pointer *client.Pointer) {
	pointer.SetEnterHandler(func(e client.PointerEnterEvent) {
		c.pointerX, c.pointerY = e.SurfaceX, e.SurfaceY
		c.emit(compositor.PointerMove{X: e.SurfaceX, Y: e.SurfaceY})
	})
	pointer.SetMotionHandler(func(e client.PointerMotionEvent) {
		c.pointerX, c.pointerY = e.SurfaceX, e.SurfaceY
		c.emit(compositor.PointerMove{X: e.SurfaceX, Y: e.SurfaceY})
	})
	pointer.SetLeaveHandler(func(e client.PointerLeaveEvent) {
		c.emit(compositor.PointerLeave{})
	})
	pointer.SetButtonHandler(func(e client.PointerButtonEvent) {
		c.emit(compositor.PointerButton{
			Button:  e.Button,
			Pressed: e.State == uint32(client.PointerButtonStatePressed),
			X:       c.pointerX,
			Y:       c.pointerY,
		})
	})
}

// roundtrip blocks until the compositor has processed all prior requests.
func (c *Conn) roundtrip() error {
	callback, err := c.display.Sync()
	if err != nil {
		return err
	}
	defer callback.Destroy()

	done := false
	callback.SetDoneHandler(func(client.CallbackDoneEvent) {
		done = true
	})
	for !done {
		if err := c.ctx.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}

// dispatchLoop reads protocol events until the connection dies. Handlers
// run on this goroutine and feed the event channel.
func (c *Conn) dispatchLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}
		if err := c.ctx.Dispatch(); err != nil {
			select {
			case <-c.done:
			default:
				c.emit(compositor.Disconnected{Err: err})
			}
			return
		}
	}
}

func (c *Conn) emit(ev compositor.Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// CreateLayerSurface creates a wl_surface with the layer-surface role on
// the overlay layer, anchored to the requested edge.
func (c *Conn) CreateLayerSurface(spec compositor.SurfaceSpec) (compositor.LayerSurface, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	wlSurface, err := c.compositor.CreateSurface()
	if err != nil {
		return nil, fmt.Errorf("failed to create wl_surface: %w", err)
	}

	layerSurf, err := c.layerShell.GetLayerSurface(wlSurface, nil,
		uint32(wlr_layer_shell.ZwlrLayerShellV1LayerOverlay), spec.Namespace)
	if err != nil {
		wlSurface.Destroy()
		return nil, fmt.Errorf("failed to create layer surface: %w", err)
	}

	anchor := wlr_layer_shell.ZwlrLayerSurfaceV1AnchorTop
	if spec.Anchor == compositor.AnchorBottom {
		anchor = wlr_layer_shell.ZwlrLayerSurfaceV1AnchorBottom
	}
	if err := layerSurf.SetAnchor(uint32(anchor)); err != nil {
		return nil, fmt.Errorf("set_anchor failed: %w", err)
	}
	if err := layerSurf.SetSize(uint32(spec.Width), uint32(spec.Height)); err != nil {
		return nil, fmt.Errorf("set_size failed: %w", err)
	}
	if err := layerSurf.SetExclusiveZone(int32(spec.ExclusiveZone)); err != nil {
		return nil, fmt.Errorf("set_exclusive_zone failed: %w", err)
	}

	ls := &layerSurface{conn: c, wl: wlSurface, layer: layerSurf}

	layerSurf.SetConfigureHandler(func(e wlr_layer_shell.ZwlrLayerSurfaceV1ConfigureEvent) {
		c.emit(compositor.Configure{
			Serial: e.Serial,
			Width:  int(e.Width),
			Height: int(e.Height),
		})
	})
	layerSurf.SetClosedHandler(func(wlr_layer_shell.ZwlrLayerSurfaceV1ClosedEvent) {
		c.emit(compositor.Closed{})
	})

	return ls, nil
}

// CreateBuffer allocates a shared-memory ARGB8888 buffer.
func (c *Conn) CreateBuffer(width, height, stride int) (compositor.Buffer, error) {
	return c.newShmBuffer(width, height, stride)
}

// Events returns the protocol event channel.
func (c *Conn) Events() <-chan compositor.Event { return c.events }

// Close tears down the connection. Safe to call more than once. The event
// channel is deliberately left open: the dispatch goroutine may be parked in
// emit, and closing the channel under it would turn shutdown into a send on
// a closed channel. Consumers stop on Closed or Disconnected events instead.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ctx != nil {
			c.ctx.Close()
		}
	})
	return nil
}

// layerSurface adapts the wl_surface / zwlr_layer_surface_v1 pair to the
// LayerSurface contract.
type layerSurface struct {
	conn  *Conn
	wl    *client.Surface
	layer *wlr_layer_shell.ZwlrLayerSurfaceV1
}

func (l *layerSurface) SetSize(width, height int) error {
	l.conn.reqMu.Lock()
	defer l.conn.reqMu.Unlock()
	return l.layer.SetSize(uint32(width), uint32(height))
}

func (l *layerSurface) AckConfigure(serial uint32) error {
	l.conn.reqMu.Lock()
	defer l.conn.reqMu.Unlock()
	return l.layer.AckConfigure(serial)
}

func (l *layerSurface) SetBufferScale(scale int) error {
	l.conn.reqMu.Lock()
	defer l.conn.reqMu.Unlock()
	return l.wl.SetBufferScale(int32(scale))
}

func (l *layerSurface) Attach(buf compositor.Buffer) error {
	sb, ok := buf.(*shmBuffer)
	if !ok {
		return errors.New("buffer does not belong to this connection")
	}
	l.conn.reqMu.Lock()
	defer l.conn.reqMu.Unlock()
	return l.wl.Attach(sb.wlBuf, 0, 0)
}

func (l *layerSurface) Damage(x, y, width, height int) error {
	l.conn.reqMu.Lock()
	defer l.conn.reqMu.Unlock()
	return l.wl.Damage(int32(x), int32(y), int32(width), int32(height))
}

func (l *layerSurface) Commit() error {
	l.conn.reqMu.Lock()
	defer l.conn.reqMu.Unlock()
	return l.wl.Commit()
}

func (l *layerSurface) Destroy() {
	l.conn.reqMu.Lock()
	defer l.conn.reqMu.Unlock()
	l.layer.Destroy()
	l.wl.Destroy()
}
