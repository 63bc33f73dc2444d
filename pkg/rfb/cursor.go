package rfb

import "rfbterm/pkg/fbuf"

// encodeCursorShape appends the Cursor pseudo-encoding rectangle: a solid
// one-cell-sized block used as the client-rendered cursor, fully opaque.
// The rect header's x,y is the cursor's hotspot (top-left of the cell);
// w,h is the cursor bitmap size. Payload is w*h pixels in the client's
// negotiated format followed by a 1-bpp bitmask, row-padded to a byte.
func encodeCursorShape(buf []byte, pf PixelFormat) []byte {
	w, h := fbuf.FontWidth, fbuf.FontHeight
	buf = appendRectHeader(buf, 0, 0, w, h, encodingCursor)
	for i := 0; i < w*h; i++ {
		buf = appendConvertedPixel(buf, pf, 0xFF, 0xFF, 0xFF)
	}
	maskBytesPerRow := (w + 7) / 8
	for row := 0; row < h; row++ {
		for i := 0; i < maskBytesPerRow; i++ {
			buf = append(buf, 0xFF)
		}
	}
	return buf
}
