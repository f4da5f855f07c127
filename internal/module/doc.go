// Package module defines the widget capability contract and the registry
// that multiplexes independent modules onto the shared notch surface.
package module
