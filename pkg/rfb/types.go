// Package rfb implements the multi-client RFB 3.3 server core (C5): the
// listener, per-client handshake/message state machine, pixel-format and
// encoding negotiation, Raw/Hextile/generic encoders, and the dirty-driven
// refresh loop that dispatches into the terminal emulator and the host
// collaborator.
package rfb

import (
	"net"
	"time"

	"github.com/google/uuid"

	"rfbterm/pkg/dirty"
	"rfbterm/pkg/fbuf"
)

const maxClients = 8

// PixelFormat mirrors the 16-byte RFB PIXEL_FORMAT wire block.
type PixelFormat struct {
	BPP        uint8
	Depth      uint8
	BigEndian  bool
	TrueColour bool
	MaxR       uint16
	MaxG       uint16
	MaxB       uint16
	ShiftR     uint8
	ShiftG     uint8
	ShiftB     uint8
}

func (p PixelFormat) encode() []byte {
	buf := make([]byte, 0, 16)
	buf = append(buf, p.BPP, p.Depth, boolByte(p.BigEndian), boolByte(p.TrueColour))
	buf = putU16(buf, p.MaxR)
	buf = putU16(buf, p.MaxG)
	buf = putU16(buf, p.MaxB)
	buf = append(buf, p.ShiftR, p.ShiftG, p.ShiftB, 0, 0, 0)
	return buf
}

func decodePixelFormat(b []byte) PixelFormat {
	return PixelFormat{
		BPP:        b[0],
		Depth:      b[1],
		BigEndian:  b[2] != 0,
		TrueColour: b[3] != 0,
		MaxR:       getU16(b[4:6]),
		MaxG:       getU16(b[6:8]),
		MaxB:       getU16(b[8:10]),
		ShiftR:     b[10],
		ShiftG:     b[11],
		ShiftB:     b[12],
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// serverPixelFormat derives the wire PIXEL_FORMAT block for the server's
// internal framebuffer depth.
func serverPixelFormat(depth int) PixelFormat {
	switch depth {
	case 8:
		return PixelFormat{BPP: 8, Depth: 8, TrueColour: true, MaxR: 7, MaxG: 7, MaxB: 3, ShiftR: 5, ShiftG: 2, ShiftB: 0}
	case 15:
		return PixelFormat{BPP: 16, Depth: 15, TrueColour: true, MaxR: 31, MaxG: 31, MaxB: 31, ShiftR: 10, ShiftG: 5, ShiftB: 0}
	case 16:
		return PixelFormat{BPP: 16, Depth: 16, TrueColour: true, MaxR: 31, MaxG: 63, MaxB: 31, ShiftR: 11, ShiftG: 5, ShiftB: 0}
	case 32:
		return PixelFormat{BPP: 32, Depth: 32, TrueColour: true, MaxR: 255, MaxG: 255, MaxB: 255, ShiftR: 16, ShiftG: 8, ShiftB: 0}
	default:
		return PixelFormat{BPP: 32, Depth: 32, TrueColour: true, MaxR: 255, MaxG: 255, MaxB: 255, ShiftR: 16, ShiftG: 8, ShiftB: 0}
	}
}

// Feature flags negotiated via SetEncodings.
type features struct {
	hasHextile           bool
	hasResize            bool
	hasPointerTypeChange bool
	hasCursorEncoding    bool
	isVNCViewer          bool
}

// Client is one RFB connection's per-client state. A nil slot in
// Server.clients is empty; a non-nil slot with conn == nil is reclaimable.
type Client struct {
	id   string
	conn net.Conn

	pf       PixelFormat
	zeroCopy bool // bpp, byte order, channel maxes and shifts match the internal framebuffer exactly

	feat features

	absolutePointer bool
	lastX, lastY    int

	dirty *dirty.Tracker

	pendingResize   bool
	bellCount       int
	pendingCutText  string
	cursorUpdate    bool
	nullUpdate      bool

	clientCutText string
	insertPresses int

	ctrlDown      bool
	altDown       bool
	clientNumLock bool

	out     chan []byte
	closeCh chan struct{}
}

func newClient(conn net.Conn, fbW, fbH int) *Client {
	return &Client{
		id:      uuid.NewString(),
		conn:    conn,
		dirty:   dirty.New(fbW, fbH),
		out:     make(chan []byte, 256),
		closeCh: make(chan struct{}),
	}
}

// reclaimable reports whether the slot is free to be reused by a new
// connection.
func (c *Client) reclaimable() bool { return c.conn == nil }

// refreshState tracks the shared adaptive-pacing timer.
type refreshState struct {
	interval time.Duration
	lastTick time.Time
	idleFor  time.Duration
}

const (
	refreshBase    = 30 * time.Millisecond
	refreshInc     = 50 * time.Millisecond
	refreshMax     = 2000 * time.Millisecond
	refreshMaxIdle = 5000 * time.Millisecond
)
