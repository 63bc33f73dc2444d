// Package fbuf rasterises the cell grid into an 8/16/32-bpp framebuffer
// (C2): fill_rect, bitblt and put_glyph, colour palette, underline and
// inverse video.
package fbuf

import (
	"rfbterm/pkg/cellbuf"
)

// Framebuffer is a packed-pixel raster at a fixed depth and byte-per-pixel
// size. Depth is one of 8, 15, 16, or 32.
type Framebuffer struct {
	Width, Height int
	Depth         int
	BytesPerPixel int
	Pixels        []byte
	Palette       *Palette
	Fonts         [2]*Font // G0, G1
}

func bytesPerPixel(depth int) int {
	switch depth {
	case 8:
		return 1
	case 15, 16:
		return 2
	case 32:
		return 4
	default:
		return 1
	}
}

// New allocates a framebuffer of the given pixel size and depth, with both
// font slots set to the built-in placeholder font.
func New(width, height, depth int) *Framebuffer {
	bpp := bytesPerPixel(depth)
	fb := &Framebuffer{
		Width:         width,
		Height:        height,
		Depth:         depth,
		BytesPerPixel: bpp,
		Pixels:        make([]byte, width*height*bpp),
		Palette:       NewPalette(depth),
	}
	fb.Fonts[0] = DefaultFont()
	fb.Fonts[1] = DefaultFont()
	return fb
}

func (fb *Framebuffer) offset(x, y int) int {
	return (y*fb.Width + x) * fb.BytesPerPixel
}

func (fb *Framebuffer) writePixel(x, y int, v uint32) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	off := fb.offset(x, y)
	switch fb.BytesPerPixel {
	case 1:
		fb.Pixels[off] = byte(v)
	case 2:
		fb.Pixels[off] = byte(v)
		fb.Pixels[off+1] = byte(v >> 8)
	case 4:
		fb.Pixels[off] = byte(v)
		fb.Pixels[off+1] = byte(v >> 8)
		fb.Pixels[off+2] = byte(v >> 16)
		fb.Pixels[off+3] = byte(v >> 24)
	}
}

// FillRect paints w x h pixels starting at (x,y) with a palette colour
// index.
func (fb *Framebuffer) FillRect(x, y, w, h int, colourIndex uint8) {
	v := fb.Palette.Packed(colourIndex)
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			fb.writePixel(col, row, v)
		}
	}
}

// BitBlt copies a w x h region from (xs,ys) to (xd,yd), choosing forward or
// reverse row (and, within a row, column) order so overlapping src/dst
// regions copy correctly.
func (fb *Framebuffer) BitBlt(xs, ys, xd, yd, w, h int) {
	rowOrder := rangeOrder(ys, yd, h)
	for _, row := range rowOrder {
		colOrder := rangeOrder(xs, xd, w)
		// Read full row first to avoid partial self-overwrite when the
		// column order alone wouldn't be safe (e.g. vertical-only shift).
		srcRow := make([]byte, w*fb.BytesPerPixel)
		for i, col := range colOrder {
			off := fb.offset(xs+col, ys+row)
			copy(srcRow[i*fb.BytesPerPixel:(i+1)*fb.BytesPerPixel], fb.Pixels[off:off+fb.BytesPerPixel])
		}
		for i, col := range colOrder {
			off := fb.offset(xd+col, yd+row)
			if xd+col < 0 || xd+col >= fb.Width || yd+row < 0 || yd+row >= fb.Height {
				continue
			}
			copy(fb.Pixels[off:off+fb.BytesPerPixel], srcRow[i*fb.BytesPerPixel:(i+1)*fb.BytesPerPixel])
		}
	}
}

// rangeOrder returns 0..n-1 forward if src < dst won't clobber unread src
// rows/cols, reversed otherwise (standard overlap-safe memmove strategy).
func rangeOrder(src, dst, n int) []int {
	order := make([]int, n)
	if dst <= src {
		for i := range order {
			order[i] = i
		}
	} else {
		for i := range order {
			order[i] = n - 1 - i
		}
	}
	return order
}

// PutGlyph rasterises one cell's glyph at pixel origin (x,y) (top-left of
// the FontWidth x FontHeight cell), honouring the font slot, inverse video
// (computed by the caller as inverse XOR highlit XOR cursor-here), and
// underline (forcing the two near-bottom rows to all-set).
func (fb *Framebuffer) PutGlyph(x, y int, glyph byte, text cellbuf.TextAttr, inverse bool, underline bool, fontSlot int) {
	font := fb.Fonts[fontSlot&1]
	fg, bg := text.Fg, text.Bg
	if inverse {
		fg, bg = bg, fg
	}
	fgPixel := fb.Palette.Packed(fg)
	bgPixel := fb.Palette.Packed(bg)

	rows := font.Rows[glyph]
	for row := 0; row < FontHeight; row++ {
		bits := rows[row]
		if underline && (row == FontHeight-2 || row == FontHeight-3) {
			bits = 0xFF
		}
		for col := 0; col < FontWidth; col++ {
			set := bits&(0x80>>uint(col)) != 0
			if set {
				fb.writePixel(x+col, y+row, fgPixel)
			} else {
				fb.writePixel(x+col, y+row, bgPixel)
			}
		}
	}
}

// readPixelValue returns the raw packed-pixel value at (x,y), the inverse
// of writePixel.
func (fb *Framebuffer) readPixelValue(x, y int) uint32 {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return 0
	}
	off := fb.offset(x, y)
	switch fb.BytesPerPixel {
	case 1:
		return uint32(fb.Pixels[off])
	case 2:
		return uint32(fb.Pixels[off]) | uint32(fb.Pixels[off+1])<<8
	case 4:
		return uint32(fb.Pixels[off]) | uint32(fb.Pixels[off+1])<<8 |
			uint32(fb.Pixels[off+2])<<16 | uint32(fb.Pixels[off+3])<<24
	default:
		return 0
	}
}

// PixelRGB returns the 8-bit-per-channel colour at (x,y), used by the Raw
// encoder's generic conversion path when a client's negotiated pixel
// format doesn't match the server's internal depth.
func (fb *Framebuffer) PixelRGB(x, y int) (r, g, b uint8) {
	c := fb.Palette.Unpack(fb.readPixelValue(x, y))
	return c.R, c.G, c.B
}

// Resize reallocates the pixel buffer for a new width/height, blanking the
// whole raster to palette index 0 and then copying back the overlapping
// top-left region from the old raster, computed before Width/Height are
// reassigned.
func (fb *Framebuffer) Resize(width, height int) {
	oldWidth, oldHeight, oldPixels := fb.Width, fb.Height, fb.Pixels

	fb.Pixels = make([]byte, width*height*fb.BytesPerPixel)
	fb.Width, fb.Height = width, height
	fb.FillRect(0, 0, width, height, 0)

	copyW, copyH := oldWidth, oldHeight
	if copyW > width {
		copyW = width
	}
	if copyH > height {
		copyH = height
	}
	for row := 0; row < copyH; row++ {
		srcOff := row * oldWidth * fb.BytesPerPixel
		dstOff := fb.offset(0, row)
		copy(fb.Pixels[dstOff:dstOff+copyW*fb.BytesPerPixel], oldPixels[srcOff:srcOff+copyW*fb.BytesPerPixel])
	}
}

// RawRect returns the raw packed-pixel bytes of the w x h rectangle at
// (x,y), used by the RFB Raw encoder's zero-copy fast path.
func (fb *Framebuffer) RawRect(x, y, w, h int) []byte {
	out := make([]byte, w*h*fb.BytesPerPixel)
	for row := 0; row < h; row++ {
		srcOff := fb.offset(x, y+row)
		dstOff := row * w * fb.BytesPerPixel
		copy(out[dstOff:dstOff+w*fb.BytesPerPixel], fb.Pixels[srcOff:srcOff+w*fb.BytesPerPixel])
	}
	return out
}
