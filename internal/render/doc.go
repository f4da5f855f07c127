// Package render implements software rendering into raw ARGB8888 pixel
// buffers. All operations clip to the buffer bounds; nothing here may write
// outside the slice it was handed.
package render
