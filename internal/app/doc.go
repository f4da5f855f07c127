// Package app runs the notch control loop: a single goroutine that owns
// the surface state machine, the buffer pool and the module set, consuming
// compositor events and producing frames.
package app
