// Package buffer manages the pool of shared-memory frame buffers offered to
// the compositor. Ownership is a single busy flag per slot: a buffer is
// written only while free, and becomes free again only when the compositor
// signals release. All mutation happens on the control loop, so no locking
// is needed.
package buffer
