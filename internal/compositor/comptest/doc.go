// Package comptest provides an in-memory compositor connection for tests.
// The fake records every surface request and lets tests script configure,
// pointer and lifecycle events through the same channel the production
// backend uses.
package comptest
