package comptest

import (
	"errors"
	"sync"

	"github.com/jmylchreest/notchd/internal/compositor"
)

// Buffer is a heap-backed compositor.Buffer.
type Buffer struct {
	data      []byte
	width     int
	height    int
	stride    int
	Destroyed bool
}

// Bytes returns the pixel memory.
func (b *Buffer) Bytes() []byte { return b.data }

// Width returns the buffer width.
func (b *Buffer) Width() int { return b.width }

// Height returns the buffer height.
func (b *Buffer) Height() int { return b.height }

// Stride returns the buffer stride.
func (b *Buffer) Stride() int { return b.stride }

// Destroy marks the buffer destroyed.
func (b *Buffer) Destroy() { b.Destroyed = true }

// CommitRecord captures one attach+damage+commit cycle.
type CommitRecord struct {
	Buffer compositor.Buffer
	Damage [4]int
}

// Surface is a scripted compositor.LayerSurface. It records every request
// so tests can assert ordering and counts.
type Surface struct {
	mu sync.Mutex

	SetSizes     [][2]int
	Acked        []uint32
	BufferScales []int
	Commits      []CommitRecord
	Destroyed    bool

	pendingBuf    compositor.Buffer
	pendingDamage [4]int
}

// SetSize records the size request.
func (s *Surface) SetSize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetSizes = append(s.SetSizes, [2]int{width, height})
	return nil
}

// AckConfigure records the ack.
func (s *Surface) AckConfigure(serial uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Acked = append(s.Acked, serial)
	return nil
}

// SetBufferScale records the scale declaration.
func (s *Surface) SetBufferScale(scale int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BufferScales = append(s.BufferScales, scale)
	return nil
}

// Attach stages a buffer for the next commit.
func (s *Surface) Attach(buf compositor.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingBuf = buf
	return nil
}

// Damage stages the damage region for the next commit.
func (s *Surface) Damage(x, y, width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingDamage = [4]int{x, y, width, height}
	return nil
}

// Commit records the staged buffer and damage.
func (s *Surface) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Commits = append(s.Commits, CommitRecord{Buffer: s.pendingBuf, Damage: s.pendingDamage})
	s.pendingBuf = nil
	return nil
}

// Destroy marks the surface destroyed.
func (s *Surface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Destroyed = true
}

// AllCommits returns a snapshot of every commit so far.
func (s *Surface) AllCommits() []CommitRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CommitRecord(nil), s.Commits...)
}

// SizeRequests returns a snapshot of the SetSize history.
func (s *Surface) SizeRequests() [][2]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][2]int(nil), s.SetSizes...)
}

// AckedSerials returns a snapshot of the acked serials.
func (s *Surface) AckedSerials() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint32(nil), s.Acked...)
}

// ScaleRequests returns a snapshot of the SetBufferScale history.
func (s *Surface) ScaleRequests() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.BufferScales...)
}

// LastCommit returns the most recent commit, or nil.
func (s *Surface) LastCommit() *CommitRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Commits) == 0 {
		return nil
	}
	c := s.Commits[len(s.Commits)-1]
	return &c
}

// Conn is a fake compositor.Conn. Tests push events with Emit and inspect
// the Surface for requests.
type Conn struct {
	Surface *Surface

	mu       sync.Mutex
	events   chan compositor.Event
	buffers  []*Buffer
	closed   bool
	FailNext bool // next CreateBuffer returns an error
}

// New creates a fake connection with a buffered event channel.
func New() *Conn {
	return &Conn{
		Surface: &Surface{},
		events:  make(chan compositor.Event, 64),
	}
}

// CreateLayerSurface returns the scripted surface.
func (c *Conn) CreateLayerSurface(spec compositor.SurfaceSpec) (compositor.LayerSurface, error) {
	return c.Surface, nil
}

// CreateBuffer allocates a heap buffer.
func (c *Conn) CreateBuffer(width, height, stride int) (compositor.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailNext {
		c.FailNext = false
		return nil, errors.New("buffer allocation refused")
	}
	b := &Buffer{
		data:   make([]byte, stride*height),
		width:  width,
		height: height,
		stride: stride,
	}
	c.buffers = append(c.buffers, b)
	return b, nil
}

// Buffers returns every buffer ever allocated.
func (c *Conn) Buffers() []*Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Buffer(nil), c.buffers...)
}

// Events returns the event channel.
func (c *Conn) Events() <-chan compositor.Event { return c.events }

// Emit queues an event for the control loop.
func (c *Conn) Emit(ev compositor.Event) {
	c.events <- ev
}

// Close closes the event channel.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}
