package rfb

import (
	"rfbterm/pkg/dirty"
	"rfbterm/pkg/fbuf"
)

// encodeRect appends one rectangle (header + encoded payload) to buf,
// choosing among the encodings the client negotiated.
func (s *Server) encodeRect(c *Client, buf []byte, r dirty.Rect) []byte {
	if r.IsResize {
		return appendRectHeader(buf, 0, 0, r.W, r.H, encodingDesktopResize)
	}
	if r.IsCopy {
		buf = appendRectHeader(buf, r.X, r.Y, r.W, r.H, encodingCopyRect)
		return putU16(putU16(buf, uint16(r.SrcX)), uint16(r.SrcY))
	}

	x, y, w, h := r.X, r.Y, r.W, r.H
	if w == 0 || h == 0 {
		w, h = s.FB.Width, s.FB.Height
		x, y = 0, 0
	}
	clipRect(&x, &y, &w, &h, s.FB.Width, s.FB.Height)
	if w == 0 || h == 0 {
		return buf
	}

	if c.feat.hasHextile && w*h > 256 {
		buf = appendRectHeader(buf, x, y, w, h, encodingHextile)
		return encodeHextile(buf, s.FB, c.pf, c.zeroCopy, x, y, w, h)
	}

	buf = appendRectHeader(buf, x, y, w, h, encodingRaw)
	return encodeRaw(buf, s.FB, c.pf, c.zeroCopy, x, y, w, h)
}

func clipRect(x, y, w, h *int, fbW, fbH int) {
	if *x < 0 {
		*w += *x
		*x = 0
	}
	if *y < 0 {
		*h += *y
		*y = 0
	}
	if *x+*w > fbW {
		*w = fbW - *x
	}
	if *y+*h > fbH {
		*h = fbH - *y
	}
	if *w < 0 {
		*w = 0
	}
	if *h < 0 {
		*h = 0
	}
}

// encodeRaw appends the Raw-encoded pixel payload for one rectangle. When
// the client's negotiated pixel format exactly matches the server's
// internal framebuffer depth, this is a zero-copy slice append; otherwise
// each pixel is repacked to the client's bpp/shift/endianness.
func encodeRaw(buf []byte, fb *fbuf.Framebuffer, pf PixelFormat, zeroCopy bool, x, y, w, h int) []byte {
	if zeroCopy {
		return append(buf, fb.RawRect(x, y, w, h)...)
	}
	bpp := int(pf.BPP) / 8
	out := make([]byte, 0, w*h*bpp)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			r, g, b := fb.PixelRGB(x+col, y+row)
			out = appendConvertedPixel(out, pf, r, g, b)
		}
	}
	return append(buf, out...)
}

func appendConvertedPixel(out []byte, pf PixelFormat, r, g, b uint8) []byte {
	v := (uint32(r)*uint32(pf.MaxR)/255)<<pf.ShiftR |
		(uint32(g)*uint32(pf.MaxG)/255)<<pf.ShiftG |
		(uint32(b)*uint32(pf.MaxB)/255)<<pf.ShiftB

	bpp := int(pf.BPP) / 8
	tmp := make([]byte, bpp)
	if pf.BigEndian {
		for i := bpp - 1; i >= 0; i-- {
			tmp[i] = byte(v)
			v >>= 8
		}
	} else {
		for i := 0; i < bpp; i++ {
			tmp[i] = byte(v)
			v >>= 8
		}
	}
	return append(out, tmp...)
}
