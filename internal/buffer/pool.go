package buffer

import (
	"errors"
	"log/slog"

	"github.com/jmylchreest/notchd/internal/compositor"
)

// MinCapacity is the smallest useful pool: one buffer on screen, one being
// painted.
const MinCapacity = 2

// ErrNoFreeBuffer is returned when every buffer is in flight. The caller
// skips the frame; it must not block.
var ErrNoFreeBuffer = errors.New("buffer: all buffers in use")

type slot struct {
	buf  compositor.Buffer
	busy bool
}

// Pool lazily allocates up to capacity buffers from the compositor
// connection and hands them out round-robin.
type Pool struct {
	conn     compositor.Conn
	logger   *slog.Logger
	capacity int
	slots    []*slot
	next     int
}

// NewPool creates a pool allocating from conn. Capacity below MinCapacity
// is raised to MinCapacity.
func NewPool(conn compositor.Conn, capacity int, logger *slog.Logger) *Pool {
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		conn:     conn,
		logger:   logger,
		capacity: capacity,
	}
}

// Acquire returns a free buffer of the requested dimensions, allocating one
// if the pool is not yet at capacity. Free buffers with stale dimensions
// (left over from a resize) are destroyed and replaced. Returns
// ErrNoFreeBuffer when every buffer is in flight.
func (p *Pool) Acquire(width, height, stride int) (compositor.Buffer, error) {
	// Round-robin scan for a matching free slot.
	for i := 0; i < len(p.slots); i++ {
		s := p.slots[(p.next+i)%len(p.slots)]
		if s.busy {
			continue
		}
		if s.buf.Width() != width || s.buf.Height() != height || s.buf.Stride() != stride {
			// Stale dimensions from before a resize.
			s.buf.Destroy()
			buf, err := p.conn.CreateBuffer(width, height, stride)
			if err != nil {
				return nil, err
			}
			s.buf = buf
		}
		s.busy = true
		p.next = (p.next + i + 1) % len(p.slots)
		return s.buf, nil
	}

	if len(p.slots) < p.capacity {
		buf, err := p.conn.CreateBuffer(width, height, stride)
		if err != nil {
			return nil, err
		}
		p.slots = append(p.slots, &slot{buf: buf, busy: true})
		return buf, nil
	}

	return nil, ErrNoFreeBuffer
}

// Release marks the slot holding buf free again. Called from the control
// loop when the compositor's release notification arrives. Unknown buffers
// (already invalidated by a resize) are ignored.
func (p *Pool) Release(buf compositor.Buffer) {
	for _, s := range p.slots {
		if s.buf == buf {
			if !s.busy {
				p.logger.Warn("release for buffer that was not in use")
			}
			s.busy = false
			return
		}
	}
	p.logger.Debug("release for unknown buffer, likely invalidated by resize")
}

// InvalidateAll drops every free buffer so the next Acquire allocates at the
// new dimensions. In-flight buffers stay until the compositor releases them,
// then their slots are dropped too.
func (p *Pool) InvalidateAll() {
	kept := p.slots[:0]
	for _, s := range p.slots {
		if s.busy {
			// Still owned by the compositor; Release will free the slot
			// and the stale-dimension check replaces the buffer on reuse.
			kept = append(kept, s)
			continue
		}
		s.buf.Destroy()
	}
	p.slots = kept
	p.next = 0
}

// FreeCount returns the number of slots not in flight.
func (p *Pool) FreeCount() int {
	n := 0
	for _, s := range p.slots {
		if !s.busy {
			n++
		}
	}
	return n
}

// Destroy tears down every buffer. Only called at shutdown.
func (p *Pool) Destroy() {
	for _, s := range p.slots {
		s.buf.Destroy()
	}
	p.slots = nil
	p.next = 0
}
