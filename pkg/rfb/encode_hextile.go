package rfb

import "rfbterm/pkg/fbuf"

const (
	hextileRaw              = 1 << 0
	hextileBackgroundSpec   = 1 << 1
	hextileForegroundSpec   = 1 << 2
	hextileAnySubrects      = 1 << 3
	hextileSubrectsColoured = 1 << 4
)

const hextileTile = 16

// encodeHextile appends the Hextile-encoded payload for a rectangle,
// subdividing it into 16x16 tiles. Each tile that is a single flat colour
// is sent as BackgroundSpecified, the cheap common case for blank terminal
// background; if its colour matches the background already sent by the
// previous tile in this same rectangle, the colour is omitted entirely (a
// bare zero flags byte, reusing the remembered background). Every other
// tile falls back to a Raw subencoding, which the protocol allows
// tile-by-tile.
func encodeHextile(buf []byte, fb *fbuf.Framebuffer, pf PixelFormat, zeroCopy bool, x, y, w, h int) []byte {
	var bg hextileBG
	for ty := y; ty < y+h; ty += hextileTile {
		th := hextileTile
		if ty+th > y+h {
			th = y + h - ty
		}
		for tx := x; tx < x+w; tx += hextileTile {
			tw := hextileTile
			if tx+tw > x+w {
				tw = x + w - tx
			}
			buf = encodeHextileTile(buf, fb, pf, zeroCopy, tx, ty, tw, th, &bg)
		}
	}
	return buf
}

// hextileBG is the "last background colour sent" state for one rectangle's
// worth of tiles. The first tile encoded in a rectangle always specifies
// its background explicitly; only later tiles in that same rectangle may
// reuse it.
type hextileBG struct {
	set     bool
	r, g, b uint8
}

func encodeHextileTile(buf []byte, fb *fbuf.Framebuffer, pf PixelFormat, zeroCopy bool, x, y, w, h int, bg *hextileBG) []byte {
	flat, r0, g0, b0 := tileIsFlat(fb, x, y, w, h)
	if flat {
		if bg.set && r0 == bg.r && g0 == bg.g && b0 == bg.b {
			return append(buf, 0)
		}
		bg.set, bg.r, bg.g, bg.b = true, r0, g0, b0
		buf = append(buf, hextileBackgroundSpec)
		return append(buf, convertPixelBytes(pf, r0, g0, b0)...)
	}
	buf = append(buf, hextileRaw)
	return encodeRaw(buf, fb, pf, zeroCopy, x, y, w, h)
}

func tileIsFlat(fb *fbuf.Framebuffer, x, y, w, h int) (bool, uint8, uint8, uint8) {
	r0, g0, b0 := fb.PixelRGB(x, y)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			r, g, b := fb.PixelRGB(x+col, y+row)
			if r != r0 || g != g0 || b != b0 {
				return false, 0, 0, 0
			}
		}
	}
	return true, r0, g0, b0
}

func convertPixelBytes(pf PixelFormat, r, g, b uint8) []byte {
	return appendConvertedPixel(nil, pf, r, g, b)
}
