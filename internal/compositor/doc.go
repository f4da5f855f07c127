// Package compositor defines the boundary between the shell core and the
// compositor protocol backend. The core consumes these interfaces; the
// production implementation lives in the wayland subpackage and the test
// fake in comptest.
package compositor
