// Package term implements the DEC VT-family terminal emulator (C3): the
// byte-oriented state machine that mutates a cellbuf.Buffer and drives a
// fbuf.Framebuffer, and owns cursor, scroll region, saved state,
// character-set tables, the UTF-8 decoder and selection.
package term

import (
	"rfbterm/pkg/cellbuf"
	"rfbterm/pkg/fbuf"
)

// State is one of the emulator's top-level parser states.
type State int

const (
	StateNorm State = iota
	StateEsc
	StatePercent
	StateG0
	StateG1
	StateCSI
	StateNonstd
	StatePalette
)

// MaxEscParams is the CSI parameter cap.
const MaxEscParams = 16

// Capabilities is the set of display/host callbacks the core invokes.
type Capabilities struct {
	Bell             func()
	CutTextSink      func(text string)
	Update           func(x, y, w, h int)
	Resize           func(width, height int)
	CopyRect         func(xs, ys, xd, yd, w, h int)
	ClientsConnected func() bool
	// HostWrite sends a terminal reply (DA/DSR/etc.) back to the host
	// byte sink.
	HostWrite func([]byte)
}

func (t *Terminal) reply(s string) {
	if t.Cap.HostWrite != nil {
		t.Cap.HostWrite([]byte(s))
	}
}

// Selection is one selection record in virtual coordinates.
type Selection struct {
	StartX, StartY int
	EndX, EndY     int
}

// Terminal is the DEC VT-family state machine. One instance owns exactly
// one CellBuffer/Framebuffer pair.
type Terminal struct {
	Buf *cellbuf.Buffer
	FB  *fbuf.Framebuffer
	Cap Capabilities

	Width, Height int

	x, y                 int
	savedX, savedY        int
	savedAttrib           cellbuf.TextAttr
	attrib                cellbuf.TextAttr
	defaultAttrib         cellbuf.TextAttr

	srTop, srBottom int

	autowrap       bool
	wrapped        bool
	originMode     bool
	insertMode     bool
	cursorkeyMode  bool
	displayCtrl    bool
	toggleMeta     bool
	cursorVisible  bool

	utfEnabled bool
	font       int // 0 = G0, 1 = G1
	codec      [2]Codec

	state State

	escParams    [MaxEscParams]int
	nbEscParams  int
	hasEscParam  bool
	hasQmark     bool

	// UTF-8 decoder state.
	unicodeIndex  int
	unicodeData   [7]byte
	unicodeLength int

	// OSC/NONSTD and PALETTE parsing scratch.
	oscBuf     []byte
	paletteBuf []byte

	// Selection.
	selections  [2]Selection
	selecting   bool
	mouseX      int
	mouseY      int
}

// New constructs a Terminal bound to the given CellBuffer/Framebuffer with
// the given capability record, reset to its initial state.
func New(buf *cellbuf.Buffer, fb *fbuf.Framebuffer, cap Capabilities) *Terminal {
	t := &Terminal{
		Buf: buf,
		FB:  fb,
		Cap: cap,
	}
	t.Width = buf.Width()
	t.Height = buf.Height()
	t.FullReset()
	return t
}

// FullReset implements ESC c: restores cursor, attributes, scroll region,
// modes and character sets to their power-on defaults.
func (t *Terminal) FullReset() {
	t.x, t.y = 0, 0
	t.savedX, t.savedY = 0, 0
	t.defaultAttrib = cellbuf.TextAttr{Fg: 7, Bg: 0}
	t.attrib = t.defaultAttrib
	t.savedAttrib = t.defaultAttrib
	t.srTop, t.srBottom = 0, t.Height-1
	t.autowrap = true
	t.wrapped = false
	t.originMode = false
	t.insertMode = false
	t.cursorkeyMode = false
	t.displayCtrl = false
	t.toggleMeta = false
	t.cursorVisible = true
	t.utfEnabled = true
	t.font = 0
	t.codec[0] = CodecLAT1
	t.codec[1] = CodecGRAF
	t.state = StateNorm
	t.nbEscParams = 0
	t.hasEscParam = false
	t.hasQmark = false
	t.unicodeIndex = 0
	t.unicodeLength = 0
	t.selections[0] = Selection{}
	t.selections[1] = Selection{}
	t.selecting = false
	if t.Buf != nil {
		t.Buf.SetDefaultAttr(t.defaultAttrib)
	}
}

// clip applies the lower-bound-first clamp order mandated by DESIGN.md's
// Open Question (b) decision.
func clip(v, lo, hi int) int {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}

func (t *Terminal) clampCursor() {
	t.x = clip(t.x, 0, t.Width-1)
	t.y = clip(t.y, 0, t.Height-1)
}

func (t *Terminal) markDirty(x, y, w, h int) {
	if t.Cap.Update != nil {
		t.Cap.Update(x, y, w, h)
	}
}

// Cursor returns the current screen-coordinate cursor position.
func (t *Terminal) Cursor() (x, y int) { return t.x, t.y }

// ScrollRegion returns the current inclusive scroll region.
func (t *Terminal) ScrollRegion() (top, bottom int) { return t.srTop, t.srBottom }

// CursorkeyMode reports whether DECCKM application cursor-key mode is set.
func (t *Terminal) CursorkeyMode() bool { return t.cursorkeyMode }

// Resize reallocates the cell buffer/framebuffer for a new geometry,
// clipping cursor and scroll region into the new bounds.
func (t *Terminal) Resize(width, height int) {
	t.Buf.Resize(width, height)
	t.FB.Resize(width*fbuf.FontWidth, height*fbuf.FontHeight)
	t.Width, t.Height = width, height
	t.x = clip(t.x, 0, width-1)
	t.y = clip(t.y, 0, height-1)
	t.srTop = clip(t.srTop, 0, height-1)
	t.srBottom = clip(t.srBottom, t.srTop, height-1)
	if t.Cap.Resize != nil {
		t.Cap.Resize(width, height)
	}
}
