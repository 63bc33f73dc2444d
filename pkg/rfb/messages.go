package rfb

import (
	"context"
	"io"

	"rfbterm/internal/logging"
	"rfbterm/pkg/dirty"
	"rfbterm/pkg/keymap"
)

const (
	msgSetPixelFormat           = 0
	msgSetEncodings             = 2
	msgFramebufferUpdateRequest = 3
	msgKeyEvent                 = 4
	msgPointerEvent             = 5
	msgClientCutText            = 6
	msgScanCodeEvent            = 254
)

const (
	encodingRaw          = 0
	encodingCopyRect      = 1
	encodingHextile       = 5
	encodingDesktopResize = -223
	encodingCursor        = -239
	encodingXCursor       = -240
	encodingVNCViewerTag  = -255
	encodingPointerType   = -257
)

func (s *Server) writerLoop(c *Client) {
	defer func() {
		if c.conn != nil {
			c.conn.Close()
		}
	}()
	for {
		select {
		case buf, ok := <-c.out:
			if !ok {
				return
			}
			conn := c.conn
			if conn == nil {
				return
			}
			if _, err := conn.Write(buf); err != nil {
				logging.Warnf("rfb: write error for client %s: %v", c.id, err)
				s.post(func() { s.disconnectClient(c) })
				return
			}
		case <-c.closeCh:
			return
		}
	}
}

// readerLoop blocks on conn reads on this connection's own goroutine and
// posts decoded message events to the core goroutine.
func (s *Server) readerLoop(ctx context.Context, c *Client) {
	conn := c.conn
	defer func() {
		s.withCore(func() { s.disconnectClient(c) })
	}()

	for {
		idByte, err := readFull(conn, 1)
		if err != nil {
			if err != io.EOF {
				logging.Warnf("rfb: read error for client %s: %v", c.id, err)
			}
			return
		}

		switch idByte[0] {
		case msgSetPixelFormat:
			body, err := readFull(conn, 19) // 3 padding + 16-byte pixel format
			if err != nil {
				return
			}
			pf := decodePixelFormat(body[3:])
			s.post(func() { s.onSetPixelFormat(c, pf) })

		case msgSetEncodings:
			hdr, err := readFull(conn, 3)
			if err != nil {
				return
			}
			n := int(getU16(hdr[1:3]))
			body, err := readFull(conn, n*4)
			if err != nil {
				return
			}
			encodings := make([]int32, n)
			for i := 0; i < n; i++ {
				encodings[i] = getS32(body[i*4 : i*4+4])
			}
			s.post(func() { s.onSetEncodings(c, encodings) })

		case msgFramebufferUpdateRequest:
			body, err := readFull(conn, 9)
			if err != nil {
				return
			}
			incremental := body[0] != 0
			x, y := int(getU16(body[1:3])), int(getU16(body[3:5]))
			w, h := int(getU16(body[5:7])), int(getU16(body[7:9]))
			s.post(func() { s.onFramebufferUpdateRequest(c, incremental, x, y, w, h) })

		case msgKeyEvent:
			body, err := readFull(conn, 7)
			if err != nil {
				return
			}
			down := body[0] != 0
			keysym := getU32(body[3:7])
			s.post(func() { s.onKeyEvent(c, down, keysym) })

		case msgPointerEvent:
			body, err := readFull(conn, 5)
			if err != nil {
				return
			}
			mask := body[0]
			x, y := int(getU16(body[1:3])), int(getU16(body[3:5]))
			s.post(func() { s.onPointerEvent(c, mask, x, y) })

		case msgClientCutText:
			hdr, err := readFull(conn, 7)
			if err != nil {
				return
			}
			n := int(getU32(hdr[3:7]))
			body, err := readFull(conn, n)
			if err != nil {
				return
			}
			text := string(body)
			s.post(func() { s.onClientCutText(c, text) })

		case msgScanCodeEvent:
			body, err := readFull(conn, 7)
			if err != nil {
				return
			}
			_ = body // raw scancode extension: the body is read and discarded; no scancodes are emitted.

		default:
			logging.Warnf("rfb: unknown client message id %d from %s", idByte[0], c.id)
			return
		}
	}
}

// onSetPixelFormat handles a client's SetPixelFormat message.
func (s *Server) onSetPixelFormat(c *Client, pf PixelFormat) {
	if !pf.TrueColour || (pf.BPP != 8 && pf.BPP != 16 && pf.BPP != 32) {
		s.post(func() { s.disconnectClient(c) })
		return
	}
	c.pf = pf
	server := serverPixelFormat(s.FB.Depth)
	c.zeroCopy = pf.BPP == server.BPP && pf.BigEndian == server.BigEndian &&
		pf.ShiftR == server.ShiftR &&
		pf.ShiftG == server.ShiftG && pf.ShiftB == server.ShiftB &&
		pf.MaxR == server.MaxR && pf.MaxG == server.MaxG && pf.MaxB == server.MaxB
	c.dirty.Mark(0, 0, s.FB.Width, s.FB.Height)
	if c.feat.hasCursorEncoding {
		c.cursorUpdate = true
	}
}

func (s *Server) onSetEncodings(c *Client, encodings []int32) {
	c.feat = features{}
	for _, e := range encodings {
		switch e {
		case encodingHextile:
			c.feat.hasHextile = true
		case encodingDesktopResize:
			c.feat.hasResize = true
		case encodingCursor:
			c.feat.hasCursorEncoding = true
		case encodingPointerType:
			c.feat.hasPointerTypeChange = true
		case encodingVNCViewerTag:
			c.feat.isVNCViewer = true
		}
	}
	if c.feat.hasPointerTypeChange {
		// Propagate pointer-type change: this server only ever advertises
		// relative pointer mode, so nothing further is asserted here.
		c.absolutePointer = false
	}
}

func (s *Server) onFramebufferUpdateRequest(c *Client, incremental bool, x, y, w, h int) {
	if !incremental {
		c.dirty.Mark(x, y, w, h)
	}
	s.visibleX, s.visibleY, s.visibleW, s.visibleH = x, y, w, h
	s.resetRefreshTimer()
}

func (s *Server) onKeyEvent(c *Client, down bool, keysym uint32) {
	if keymap.IsModifier(keysym) {
		switch keysym {
		case keymap.KeyControlL, keymap.KeyControlR:
			c.ctrlDown = down
		case keymap.KeyAltL, keymap.KeyAltR:
			c.altDown = down
		}
		return
	}
	if !down {
		return
	}
	if keysym == keymap.KeyNumLock {
		c.clientNumLock = !c.clientNumLock
		s.syncNumLock(c)
		return
	}
	if keysym == keymap.KeyInsert || keysym == keymap.KeyKPInsert {
		c.insertPresses++
	}
	bytes := keymap.Translate(keysym, s.termCursorkeyMode(), c.ctrlDown, c.altDown, c.insertPresses)
	if bytes != nil && s.Term.Cap.HostWrite != nil {
		s.Term.Cap.HostWrite(bytes)
	}
	s.resetRefreshTimer()
}

// syncNumLock auto-presses the virtual NumLock key when the client's
// reported state disagrees with the host's, per the client's own toggle.
// Neither side here is a real keyboard LED; this only converges the two
// tracked booleans so later keysym translation is consistent.
func (s *Server) syncNumLock(c *Client) {
	if c.clientNumLock != s.hostNumLock {
		c.clientNumLock = s.hostNumLock
	}
}

func (s *Server) termCursorkeyMode() bool {
	// Exposed narrowly rather than exporting full Terminal internals.
	return s.Term.CursorkeyMode()
}

func (s *Server) onPointerEvent(c *Client, mask byte, x, y int) {
	left := mask&0x01 != 0
	middle := mask&0x02 != 0
	wheelUp := mask&0x08 != 0
	wheelDown := mask&0x10 != 0

	if middle && c.clientCutText != "" {
		if s.Term.Cap.HostWrite != nil {
			s.Term.Cap.HostWrite([]byte(c.clientCutText))
		}
	}

	dz := 0
	if wheelUp {
		dz = 1
	} else if wheelDown {
		dz = -1
	}

	cellX := x / 8
	cellY := y / 16
	s.Term.MouseEvent(cellX, cellY, dz, left)
	c.lastX, c.lastY = x, y
	s.resetRefreshTimer()
}

func (s *Server) onClientCutText(c *Client, text string) {
	c.clientCutText = text
}

// sendFramebufferUpdate builds and enqueues one FramebufferUpdate message
// atomically in a single call.
func (s *Server) sendFramebufferUpdate(c *Client, rects []dirty.Rect) {
	nRects := len(rects)
	if c.nullUpdate && len(rects) == 0 {
		nRects = 1
	}
	if c.cursorUpdate {
		nRects++
	}
	if c.pendingCutText != "" {
		s.sendServerCutText(c, c.pendingCutText)
		c.pendingCutText = ""
	}
	if c.bellCount > 0 {
		for i := 0; i < c.bellCount; i++ {
			s.sendBell(c)
		}
		c.bellCount = 0
	}

	buf := make([]byte, 0, 1024)
	buf = append(buf, 0, 0)
	buf = putU16(buf, uint16(nRects))

	if c.cursorUpdate {
		buf = encodeCursorShape(buf, c.pf)
		c.cursorUpdate = false
	}

	if c.nullUpdate && len(rects) == 0 {
		buf = appendRectHeader(buf, 0, 0, 1, 1, encodingRaw)
		buf = append(buf, make([]byte, c.pf.bytesPerPixel())...)
		c.nullUpdate = false
	}

	for _, r := range rects {
		buf = s.encodeRect(c, buf, r)
	}

	select {
	case c.out <- buf:
	default:
		logging.Warnf("rfb: output queue full for client %s, dropping update", c.id)
	}
}

func appendRectHeader(buf []byte, x, y, w, h int, encoding int32) []byte {
	buf = putU16(buf, uint16(x))
	buf = putU16(buf, uint16(y))
	buf = putU16(buf, uint16(w))
	buf = putU16(buf, uint16(h))
	buf = putS32(buf, encoding)
	return buf
}

func (p PixelFormat) bytesPerPixel() int { return int(p.BPP) / 8 }

func (s *Server) sendBell(c *Client) {
	select {
	case c.out <- []byte{2}:
	default:
	}
}

func (s *Server) sendServerCutText(c *Client, text string) {
	buf := []byte{3, 0, 0, 0}
	buf = putU32(buf, uint32(len(text)))
	buf = append(buf, []byte(text)...)
	select {
	case c.out <- buf:
	default:
	}
}
