// Package battery provides the built-in battery module. It reads the
// org.freedesktop.UPower display device over the system bus and renders
// the charge percentage with an estimated time remaining.
package battery
