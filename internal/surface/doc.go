// Package surface drives the layer-surface lifecycle against the
// compositor connection: configure acknowledgement, expansion resizing and
// frame presentation.
package surface
