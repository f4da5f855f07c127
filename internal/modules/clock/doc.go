// Package clock provides the built-in clock module.
package clock
