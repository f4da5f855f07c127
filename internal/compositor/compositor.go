package compositor

// Anchor selects the screen edge a layer surface sticks to.
type Anchor int

// Anchor values.
const (
	AnchorTop Anchor = iota
	AnchorBottom
)

// SurfaceSpec describes the layer surface to create.
type SurfaceSpec struct {
	Namespace     string
	Anchor        Anchor
	Width         int
	Height        int
	ExclusiveZone int
}

// Buffer is a pixel buffer the compositor can scan out. Bytes is only valid
// to write while the buffer is not attached and pending release.
type Buffer interface {
	Bytes() []byte
	Width() int
	Height() int
	Stride() int
	Destroy()
}

// LayerSurface is the compositor-side surface object.
type LayerSurface interface {
	// SetSize requests a new surface size; the compositor answers with a
	// configure event.
	SetSize(width, height int) error

	// AckConfigure acknowledges a configure event by serial. Every
	// configure must be acked exactly once, before or at the next commit.
	AckConfigure(serial uint32) error

	// SetBufferScale declares the scale factor of attached buffers.
	SetBufferScale(scale int) error

	Attach(buf Buffer) error
	Damage(x, y, width, height int) error
	Commit() error
	Destroy()
}

// Conn is a live compositor connection.
type Conn interface {
	// CreateLayerSurface registers a layer surface with the compositor.
	CreateLayerSurface(spec SurfaceSpec) (LayerSurface, error)

	// CreateBuffer allocates a shared-memory pixel buffer.
	CreateBuffer(width, height, stride int) (Buffer, error)

	// Events delivers protocol events in arrival order. The channel closes
	// when the connection is torn down.
	Events() <-chan Event

	Close() error
}

// Event is a protocol event delivered to the control loop.
type Event interface {
	isEvent()
}

// Configure carries a size the surface should render at. It must be acked.
type Configure struct {
	Serial uint32
	Width  int
	Height int
}

// Scale reports a change of the output scale factor.
type Scale struct {
	Factor int
}

// PointerMove reports pointer motion in surface-local coordinates. Entering
// the surface is reported as the first motion after a leave.
type PointerMove struct {
	X, Y float64
}

// PointerButton reports a button press or release at surface-local
// coordinates.
type PointerButton struct {
	Button  uint32
	Pressed bool
	X, Y    float64
}

// PointerLeave reports the pointer leaving the surface.
type PointerLeave struct{}

// BufferReleased reports the compositor is done reading a buffer.
type BufferReleased struct {
	Buffer Buffer
}

// Closed reports a compositor-initiated teardown of the surface. This is a
// graceful close.
type Closed struct{}

// ProtocolError reports a malformed or unexpected protocol message that did
// not kill the connection.
type ProtocolError struct {
	Err error
}

// Disconnected reports loss of the compositor connection. Always fatal; no
// reconnection is attempted.
type Disconnected struct {
	Err error
}

func (Configure) isEvent()      {}
func (Scale) isEvent()          {}
func (PointerMove) isEvent()    {}
func (PointerButton) isEvent()  {}
func (PointerLeave) isEvent()   {}
func (BufferReleased) isEvent() {}
func (Closed) isEvent()         {}
func (ProtocolError) isEvent()  {}
func (Disconnected) isEvent()   {}
