package term

import "rfbterm/pkg/fbuf"

// Write feeds a host byte stream into the emulator, one byte at a time, in
// strict stream order.
func (t *Terminal) Write(data []byte) {
	for _, b := range data {
		t.Input(b)
	}
}

// Input processes a single host byte against the current parser state.
func (t *Terminal) Input(b byte) {
	switch t.state {
	case StateNorm:
		t.inputNorm(b)
	case StateEsc:
		t.inputEsc(b)
	case StatePercent:
		t.inputPercent(b)
	case StateG0:
		t.inputFontDesignate(b, 0)
	case StateG1:
		t.inputFontDesignate(b, 1)
	case StateCSI:
		t.inputCSI(b)
	case StateNonstd:
		t.inputNonstd(b)
	case StatePalette:
		t.inputPalette(b)
	}
}

func (t *Terminal) enterEsc() {
	t.state = StateEsc
}

func (t *Terminal) enterCSI() {
	t.state = StateCSI
	t.nbEscParams = 0
	t.hasEscParam = false
	t.hasQmark = false
	for i := range t.escParams {
		t.escParams[i] = 0
	}
}

func (t *Terminal) toNorm() {
	t.state = StateNorm
}

func (t *Terminal) inputNorm(b byte) {
	switch b {
	case 0x07: // BEL
		if t.Cap.Bell != nil {
			t.Cap.Bell()
		}
	case 0x08: // BS
		if t.x > 0 {
			t.x--
		}
	case 0x09: // HT
		next := ((t.x / 8) + 1) * 8
		if next >= t.Width {
			t.carriageReturn()
			t.lineFeed()
		} else {
			t.x = next
		}
	case 0x0A, 0x0B, 0x0C: // LF/VT/FF
		t.lineFeed()
	case 0x0D: // CR
		t.carriageReturn()
	case 0x0E: // SO -> select G1
		t.font = 1
		t.displayCtrl = true
	case 0x0F: // SI -> select G0
		t.font = 0
		t.displayCtrl = false
	case 0x18, 0x1A: // CAN/SUB: abort sequence
		t.toNorm()
	case 0x1B:
		t.enterEsc()
	case 0x7F: // DEL ignored
	case 0x9B:
		t.enterCSI()
	default:
		t.charInput(b)
	}
}

func (t *Terminal) carriageReturn() { t.x = 0 }

// charInput is the character-input path. With UTF-8 enabled (and display of
// control codes off) bytes are decoded and mapped through the active codec;
// otherwise each byte is emitted as the glyph directly (OR 0x80 when
// toggle-meta is set).
func (t *Terminal) charInput(b byte) {
	if t.utfEnabled && !t.displayCtrl {
		t.utf8Input(b)
		return
	}
	glyph := b
	if t.toggleMeta {
		glyph |= 0x80
	}
	t.emitGlyph(glyph, 1)
}

func (t *Terminal) utf8Input(b byte) {
	if t.unicodeLength > 0 {
		if b&0xC0 == 0x80 {
			t.unicodeData[t.unicodeIndex] = b
			t.unicodeIndex++
			if t.unicodeIndex < t.unicodeLength {
				return
			}
			cp := decodeUTF8(t.unicodeData[:t.unicodeLength])
			t.unicodeLength = 0
			t.unicodeIndex = 0
			t.emitCodepoint(cp)
			return
		}
		// Invalid continuation: discard partial state, emit '?'.
		t.unicodeLength = 0
		t.unicodeIndex = 0
		t.emitGlyph('?', 1)
		// Re-process b as a fresh byte (it may start a new sequence or be ASCII).
		t.utf8Input(b)
		return
	}

	switch {
	case b&0x80 == 0: // ASCII
		t.emitCodepoint(rune(b))
	case b&0xE0 == 0xC0:
		t.startMultibyte(b, 2, b&0x1F)
	case b&0xF0 == 0xE0:
		t.startMultibyte(b, 3, b&0x0F)
	case b&0xF8 == 0xF0:
		t.startMultibyte(b, 4, b&0x07)
	case b&0xFC == 0xF8:
		t.startMultibyte(b, 5, b&0x03)
	case b&0xFE == 0xFC:
		t.startMultibyte(b, 6, b&0x01)
	default:
		t.emitGlyph('?', 1)
	}
}

func (t *Terminal) startMultibyte(first byte, length int, _ byte) {
	t.unicodeData[0] = first
	t.unicodeIndex = 1
	t.unicodeLength = length
}

func decodeUTF8(buf []byte) rune {
	first := buf[0]
	var cp rune
	var n int
	switch {
	case first&0xE0 == 0xC0:
		cp = rune(first & 0x1F)
		n = 2
	case first&0xF0 == 0xE0:
		cp = rune(first & 0x0F)
		n = 3
	case first&0xF8 == 0xF0:
		cp = rune(first & 0x07)
		n = 4
	case first&0xFC == 0xF8:
		cp = rune(first & 0x03)
		n = 5
	case first&0xFE == 0xFC:
		cp = rune(first & 0x01)
		n = 6
	default:
		return '?'
	}
	for i := 1; i < n && i < len(buf); i++ {
		cp = (cp << 6) | rune(buf[i]&0x3F)
	}
	return cp
}

// emitCodepoint maps a decoded codepoint through the active codec and
// emits the resulting glyph, computing its display width.
func (t *Terminal) emitCodepoint(cp rune) {
	glyph := Translate(t.codec[t.font], cp)
	width := runeWidth(cp)
	t.emitGlyph(glyph, width)
}

// runeWidth is a minimal wcwidth-like classifier: East Asian wide ranges
// occupy two cells, everything else occupies one.
func runeWidth(cp rune) int {
	switch {
	case cp >= 0x1100 && cp <= 0x115F,
		cp >= 0x2E80 && cp <= 0xA4CF,
		cp >= 0xAC00 && cp <= 0xD7A3,
		cp >= 0xF900 && cp <= 0xFAFF,
		cp >= 0xFF00 && cp <= 0xFF60,
		cp >= 0x20000 && cp <= 0x3FFFD:
		return 2
	default:
		return 1
	}
}

// emitGlyph writes glyph at the cursor honouring deferred wrap and wide
// spans, then advances the cursor.
func (t *Terminal) emitGlyph(glyph byte, width int) {
	if t.wrapped {
		t.performDeferredWrap()
	}
	if t.x+width > t.Width {
		t.performDeferredWrap()
	}

	t.writeCell(t.x, t.y, glyph, uint8(width))
	if width == 2 && t.x+1 < t.Width {
		c := t.Buf.CellAtScreen(t.x+1, t.y)
		c.Cellat.Spanned = true
		t.paintCell(t.x+1, t.y)
	}

	if t.x+width >= t.Width {
		if t.autowrap {
			t.wrapped = true
			cur := t.Buf.CellAtScreen(t.Width-1, t.y)
			// Mark a pending wrap; the rightmost cell's wrapped attribute is
			// set when the wrap is actually performed (on next char).
			_ = cur
		}
		t.x = t.Width - 1
	} else {
		t.x += width
	}
}

func (t *Terminal) performDeferredWrap() {
	cur := t.Buf.CellAtScreen(t.Width-1, t.y)
	cur.Cellat.Wrapped = true
	t.wrapped = false
	t.x = 0
	t.lineFeed()
}

func (t *Terminal) inputEsc(b byte) {
	switch b {
	case 'c':
		t.FullReset()
	case 'D':
		t.lineFeed()
		t.toNorm()
	case 'E':
		t.carriageReturn()
		t.lineFeed()
		t.toNorm()
	case 'H':
		// HTS: tab stop registration, unimplemented.
		t.toNorm()
	case 'M':
		t.reverseLineFeed()
		t.toNorm()
	case 'Z':
		t.replyDA()
		t.toNorm()
	case '7':
		t.savedX, t.savedY = t.x, t.y
		t.savedAttrib = t.attrib
		t.toNorm()
	case '8':
		t.x, t.y = t.savedX, t.savedY
		t.attrib = t.savedAttrib
		t.clampCursor()
		t.toNorm()
	case '(':
		t.state = StateG0
	case ')':
		t.state = StateG1
	case '%':
		t.state = StatePercent
	case '[':
		t.enterCSI()
	case ']':
		t.state = StateNonstd
		t.oscBuf = t.oscBuf[:0]
	default:
		t.toNorm()
	}
}

func (t *Terminal) inputFontDesignate(b byte, slot int) {
	switch b {
	case '0':
		t.codec[slot] = CodecGRAF
	case 'B':
		t.codec[slot] = CodecLAT1
	case 'U':
		t.codec[slot] = CodecIBMPC
	case 'K':
		t.codec[slot] = CodecUSER
	}
	t.toNorm()
}

func (t *Terminal) inputPercent(b byte) {
	switch b {
	case '@':
		t.utfEnabled = false
	case 'G', '8':
		t.utfEnabled = true
	}
	t.toNorm()
}

func (t *Terminal) inputNonstd(b byte) {
	switch {
	case b == 'P':
		t.state = StatePalette
		t.paletteBuf = t.paletteBuf[:0]
	case b == 'R':
		t.FB.Palette.ResetDefaults()
		t.toNorm()
	case b == 0x07 || b == 0x1B:
		t.toNorm()
	default:
		t.oscBuf = append(t.oscBuf, b)
	}
}

// inputPalette accumulates the 7 hex nibbles of an OSC "]P" palette
// reprogram (index + rgb).
func (t *Terminal) inputPalette(b byte) {
	if isHexDigit(b) {
		t.paletteBuf = append(t.paletteBuf, b)
		if len(t.paletteBuf) == 7 {
			t.applyPaletteEntry()
			t.toNorm()
		}
		return
	}
	t.toNorm()
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return 0
}

func (t *Terminal) applyPaletteEntry() {
	idx := hexVal(t.paletteBuf[0])
	r := hexVal(t.paletteBuf[1])*16 + hexVal(t.paletteBuf[2])
	g := hexVal(t.paletteBuf[3])*16 + hexVal(t.paletteBuf[4])
	bl := hexVal(t.paletteBuf[5])*16 + hexVal(t.paletteBuf[6])
	t.FB.Palette.SetEntry(idx, fbuf.RGB{R: uint8(r), G: uint8(g), B: uint8(bl)})
}
