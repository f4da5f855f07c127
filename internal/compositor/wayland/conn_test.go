package wayland

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/notchd/internal/compositor"
)

// Emitters may be parked in emit's select when the main goroutine tears the
// connection down; the event channel must never be closed under them.
func TestClose_ConcurrentEmitDoesNotPanic(t *testing.T) {
	c := &Conn{
		logger: slog.Default(),
		events: make(chan compositor.Event, 1),
		done:   make(chan struct{}),
	}
	// Fill the buffer so every emitter has to block on the select.
	c.events <- compositor.PointerLeave{}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.emit(compositor.PointerMove{X: float64(j)})
			}
		}()
	}

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	wg.Wait()

	// Queued events stay readable after Close.
	select {
	case _, ok := <-c.events:
		assert.True(t, ok, "event channel must remain open")
	default:
		t.Fatal("expected a buffered event to survive Close")
	}
}

func TestEmit_ReturnsAfterClose(t *testing.T) {
	c := &Conn{
		logger: slog.Default(),
		events: make(chan compositor.Event), // unbuffered, no reader
		done:   make(chan struct{}),
	}

	assert.NoError(t, c.Close())

	done := make(chan struct{})
	go func() {
		c.emit(compositor.Closed{})
		close(done)
	}()
	<-done
}
