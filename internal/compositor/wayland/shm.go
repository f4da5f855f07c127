package wayland

import (
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"

	"github.com/jmylchreest/notchd/internal/compositor"
)

// shmBuffer is a memfd-backed wl_buffer. The mapping stays valid for the
// buffer's lifetime; the compositor reads it directly.
type shmBuffer struct {
	conn *Conn

	data   []byte
	width  int
	height int
	stride int

	wlBuf     *client.Buffer
	fd        int
	destroyed bool
}

func (c *Conn) newShmBuffer(width, height, stride int) (*shmBuffer, error) {
	size := stride * height

	fd, err := unix.MemfdCreate("notchd-shm", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("memfd_create failed: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ftruncate failed: %w", err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	b := &shmBuffer{
		conn:   c,
		data:   data,
		width:  width,
		height: height,
		stride: stride,
		fd:     fd,
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	pool, err := c.shm.CreatePool(fd, int32(size))
	if err != nil {
		b.unmap()
		return nil, fmt.Errorf("failed to create shm pool: %w", err)
	}
	wlBuf, err := pool.CreateBuffer(0, int32(width), int32(height), int32(stride),
		uint32(client.ShmFormatArgb8888))
	if err != nil {
		pool.Destroy()
		b.unmap()
		return nil, fmt.Errorf("failed to create wl_buffer: %w", err)
	}
	// The pool is only needed to mint the buffer.
	pool.Destroy()

	b.wlBuf = wlBuf
	wlBuf.SetReleaseHandler(func(client.BufferReleaseEvent) {
		c.emit(compositor.BufferReleased{Buffer: b})
	})
	return b, nil
}

func (b *shmBuffer) Bytes() []byte { return b.data }
func (b *shmBuffer) Width() int    { return b.width }
func (b *shmBuffer) Height() int   { return b.height }
func (b *shmBuffer) Stride() int   { return b.stride }

func (b *shmBuffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true

	b.conn.reqMu.Lock()
	if b.wlBuf != nil {
		b.wlBuf.Destroy()
		b.wlBuf = nil
	}
	b.conn.reqMu.Unlock()
	b.unmap()
}

func (b *shmBuffer) unmap() {
	if b.data != nil {
		unix.Munmap(b.data)
		b.data = nil
	}
	unix.Close(b.fd)
	b.fd = -1
}
