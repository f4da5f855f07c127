package render

// Color is an 8-bit straight-alpha (non-premultiplied) RGBA color.
type Color struct {
	R, G, B, A uint8
}

// Transparent is fully transparent black.
var Transparent = Color{}

// White is fully opaque white.
var White = Color{R: 255, G: 255, B: 255, A: 255}

// Rect is an axis-aligned rectangle in pixel coordinates.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.W && y < r.Y+r.H
}

// Canvas wraps a pixel buffer in ARGB8888 little-endian layout: each pixel
// is 4 bytes, ordered B, G, R, A in memory.
type Canvas struct {
	data   []byte
	width  int
	height int
	stride int
}

// NewCanvas wraps an existing pixel buffer. The buffer must hold at least
// stride*height bytes.
func NewCanvas(data []byte, width, height, stride int) *Canvas {
	return &Canvas{data: data, width: width, height: height, stride: stride}
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.width }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.height }

// Bounds returns the full canvas rectangle.
func (c *Canvas) Bounds() Rect { return Rect{W: c.width, H: c.height} }

// Clear fills the entire buffer with the given color, replacing alpha.
func (c *Canvas) Clear(col Color) {
	for y := 0; y < c.height; y++ {
		row := c.data[y*c.stride : y*c.stride+c.width*4]
		for x := 0; x < c.width; x++ {
			i := x * 4
			row[i+0] = col.B
			row[i+1] = col.G
			row[i+2] = col.R
			row[i+3] = col.A
		}
	}
}

// clip intersects r with the canvas bounds.
func (c *Canvas) clip(r Rect) (x0, y0, x1, y1 int) {
	x0 = max(r.X, 0)
	y0 = max(r.Y, 0)
	x1 = min(r.X+r.W, c.width)
	y1 = min(r.Y+r.H, c.height)
	return
}

// setPixel writes a pixel without blending. Caller guarantees bounds.
func (c *Canvas) setPixel(x, y int, col Color) {
	i := y*c.stride + x*4
	c.data[i+0] = col.B
	c.data[i+1] = col.G
	c.data[i+2] = col.R
	c.data[i+3] = col.A
}

// blendPixel over-blends col onto the pixel at (x, y) using straight alpha:
// out = src*srcA + dst*(1-srcA). Caller guarantees bounds.
func (c *Canvas) blendPixel(x, y int, col Color) {
	if col.A == 0 {
		return
	}
	if col.A == 255 {
		c.setPixel(x, y, col)
		return
	}
	i := y*c.stride + x*4
	a := uint32(col.A)
	inv := 255 - a
	c.data[i+0] = uint8((uint32(col.B)*a + uint32(c.data[i+0])*inv) / 255)
	c.data[i+1] = uint8((uint32(col.G)*a + uint32(c.data[i+1])*inv) / 255)
	c.data[i+2] = uint8((uint32(col.R)*a + uint32(c.data[i+2])*inv) / 255)
	c.data[i+3] = uint8(a + uint32(c.data[i+3])*inv/255)
}

// FillRect fills a rectangle with col, blending if the color is translucent.
// Rectangles extending past the canvas are clipped.
func (c *Canvas) FillRect(r Rect, col Color) {
	x0, y0, x1, y1 := c.clip(r)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			c.blendPixel(x, y, col)
		}
	}
}

// FillRoundedRect fills a rectangle with rounded corners. Each corner pixel
// is kept or dropped by a distance test against the corner arc, so a radius
// of at least half the smaller dimension degrades to a capsule or ellipse
// instead of failing. A radius of zero is identical to FillRect.
func (c *Canvas) FillRoundedRect(r Rect, radius int, col Color) {
	if radius <= 0 {
		c.FillRect(r, col)
		return
	}
	if m := min(r.W, r.H) / 2; radius > m {
		radius = m
	}

	x0, y0, x1, y1 := c.clip(r)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if insideRounded(x-r.X, y-r.Y, r.W, r.H, radius) {
				c.blendPixel(x, y, col)
			}
		}
	}
}

// insideRounded reports whether the rect-local point (x, y) lies inside a
// w×h rounded rectangle with the given corner radius.
func insideRounded(x, y, w, h, radius int) bool {
	var dx, dy int
	switch {
	case x < radius && y < radius:
		dx, dy = radius-1-x, radius-1-y
	case x >= w-radius && y < radius:
		dx, dy = x-(w-radius), radius-1-y
	case x < radius && y >= h-radius:
		dx, dy = radius-1-x, y-(h-radius)
	case x >= w-radius && y >= h-radius:
		dx, dy = x-(w-radius), y-(h-radius)
	default:
		return true
	}
	return dx*dx+dy*dy < radius*radius
}

// Blit copies src onto the canvas with its top-left corner at (r.X, r.Y),
// blending per pixel. The source is scaled by nothing; r.W/r.H bound how
// much of it is used.
func (c *Canvas) Blit(r Rect, src *Canvas) {
	w := min(r.W, src.width)
	h := min(r.H, src.height)
	x0, y0, x1, y1 := c.clip(Rect{X: r.X, Y: r.Y, W: w, H: h})
	for y := y0; y < y1; y++ {
		sy := y - r.Y
		srow := src.data[sy*src.stride:]
		for x := x0; x < x1; x++ {
			si := (x - r.X) * 4
			c.blendPixel(x, y, Color{
				B: srow[si+0],
				G: srow[si+1],
				R: srow[si+2],
				A: srow[si+3],
			})
		}
	}
}

// Equal reports whether two canvases hold byte-identical pixels.
func (c *Canvas) Equal(other *Canvas) bool {
	if c.width != other.width || c.height != other.height {
		return false
	}
	for y := 0; y < c.height; y++ {
		a := c.data[y*c.stride : y*c.stride+c.width*4]
		b := other.data[y*other.stride : y*other.stride+other.width*4]
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}
