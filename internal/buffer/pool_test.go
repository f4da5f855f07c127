package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/notchd/internal/compositor/comptest"
)

func TestAcquire_LazyUpToCapacity(t *testing.T) {
	conn := comptest.New()
	pool := NewPool(conn, 2, nil)

	a, err := pool.Acquire(300, 40, 1200)
	require.NoError(t, err)
	b, err := pool.Acquire(300, 40, 1200)
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	_, err = pool.Acquire(300, 40, 1200)
	assert.ErrorIs(t, err, ErrNoFreeBuffer)
	assert.Len(t, conn.Buffers(), 2)
}

func TestAcquire_NeverReturnsBusyBuffer(t *testing.T) {
	conn := comptest.New()
	pool := NewPool(conn, 3, nil)

	seen := map[any]bool{}
	for i := 0; i < 3; i++ {
		buf, err := pool.Acquire(100, 10, 400)
		require.NoError(t, err)
		require.False(t, seen[buf], "buffer handed out twice while in use")
		seen[buf] = true
	}
}

func TestRelease_MakesBufferReacquirable(t *testing.T) {
	conn := comptest.New()
	pool := NewPool(conn, 2, nil)

	a, err := pool.Acquire(100, 10, 400)
	require.NoError(t, err)
	_, err = pool.Acquire(100, 10, 400)
	require.NoError(t, err)

	_, err = pool.Acquire(100, 10, 400)
	require.ErrorIs(t, err, ErrNoFreeBuffer)

	pool.Release(a)
	assert.Equal(t, 1, pool.FreeCount())

	c, err := pool.Acquire(100, 10, 400)
	require.NoError(t, err)
	assert.Same(t, a, c)
}

func TestAcquire_ReplacesStaleDimensions(t *testing.T) {
	conn := comptest.New()
	pool := NewPool(conn, 2, nil)

	a, err := pool.Acquire(300, 40, 1200)
	require.NoError(t, err)
	pool.Release(a)

	b, err := pool.Acquire(800, 400, 3200)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 800, b.Width())
	assert.True(t, conn.Buffers()[0].Destroyed, "stale buffer should be destroyed")
}

func TestInvalidateAll_KeepsInFlightDropsFree(t *testing.T) {
	conn := comptest.New()
	pool := NewPool(conn, 2, nil)

	inFlight, err := pool.Acquire(300, 40, 1200)
	require.NoError(t, err)
	free, err := pool.Acquire(300, 40, 1200)
	require.NoError(t, err)
	pool.Release(free)

	pool.InvalidateAll()

	bufs := conn.Buffers()
	require.Len(t, bufs, 2)
	assert.False(t, bufs[0].Destroyed, "in-flight buffer must survive invalidation")
	assert.True(t, bufs[1].Destroyed)

	// Releasing after invalidation frees the slot; the next acquire at new
	// dimensions replaces the stale buffer.
	pool.Release(inFlight)
	next, err := pool.Acquire(800, 400, 3200)
	require.NoError(t, err)
	assert.Equal(t, 800, next.Width())
}

func TestRelease_UnknownBufferIgnored(t *testing.T) {
	conn := comptest.New()
	pool := NewPool(conn, 2, nil)

	stray, err := conn.CreateBuffer(10, 10, 40)
	require.NoError(t, err)

	// Must not panic or corrupt pool state.
	pool.Release(stray)
	assert.Zero(t, pool.FreeCount())
}

func TestNewPool_EnforcesMinimumCapacity(t *testing.T) {
	conn := comptest.New()
	pool := NewPool(conn, 0, nil)

	_, err := pool.Acquire(10, 10, 40)
	require.NoError(t, err)
	_, err = pool.Acquire(10, 10, 40)
	require.NoError(t, err)
}
