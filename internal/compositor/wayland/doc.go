// Package wayland is the production compositor backend. It speaks the
// Wayland wire protocol through go-wayland and the in-tree layer-shell
// binding, and translates protocol traffic into the events the control
// loop consumes.
package wayland
