package term

// inputCSI accumulates decimal parameters separated by ';', a leading '?'
// private-mode flag, and dispatches on the final byte.
func (t *Terminal) inputCSI(b byte) {
	switch {
	case b == '?' && t.nbEscParams == 0 && !t.hasEscParam:
		t.hasQmark = true
	case b >= '0' && b <= '9':
		if t.nbEscParams >= MaxEscParams {
			// Malformed: excessive parameters, clamp.
			return
		}
		t.escParams[t.nbEscParams] = t.escParams[t.nbEscParams]*10 + int(b-'0')
		t.hasEscParam = true
	case b == ';':
		if t.nbEscParams < MaxEscParams-1 {
			t.nbEscParams++
		}
		t.hasEscParam = false
	default:
		if t.hasEscParam || t.nbEscParams > 0 {
			t.nbEscParams++
		}
		t.dispatchCSI(b)
		t.toNorm()
	}
}

// param returns the i-th CSI parameter (0-indexed), or def if absent/zero
// (an explicit 0 is treated the same as an absent parameter, so most
// finals that default to 1 also read 0 as 1).
func (t *Terminal) param(i, def int) int {
	if i >= t.nbEscParams || t.escParams[i] == 0 {
		return def
	}
	return t.escParams[i]
}

func (t *Terminal) dispatchCSI(final byte) {
	n := t.param(0, 1)

	switch final {
	case '@': // ICH
		t.insertBlanks(n)
	case 'A': // CUU
		t.y = clip(t.y-n, t.srTop, t.srBottom)
	case 'B': // CUD
		t.y = clip(t.y+n, t.srTop, t.srBottom)
	case 'C': // CUF
		t.x = clip(t.x+n, 0, t.Width-1)
	case 'D': // CUB
		t.x = clip(t.x-n, 0, t.Width-1)
	case 'E': // CNL
		t.y = clip(t.y+n, t.srTop, t.srBottom)
		t.x = 0
	case 'F': // CPL
		t.y = clip(t.y-n, t.srTop, t.srBottom)
		t.x = 0
	case 'G', '`': // CHA
		t.x = clip(n-1, 0, t.Width-1)
	case 'H', 'f': // CUP
		row := t.param(0, 1) - 1
		col := t.param(1, 1) - 1
		if t.originMode {
			row += t.srTop
		}
		t.y = clip(row, 0, t.Height-1)
		t.x = clip(col, 0, t.Width-1)
	case 'J': // ED
		t.eraseDisplay(t.param(0, 0))
	case 'K': // EL
		t.eraseLine(t.param(0, 0))
	case 'L': // IL
		t.insertLines(n)
	case 'M': // DL
		t.deleteLines(n)
	case 'P': // DCH
		t.deleteChars(n)
	case 'X': // ECH
		t.eraseChars(n)
	case 'c': // DA
		t.replyDA()
	case 'd': // VPA
		t.y = clip(n-1, 0, t.Height-1)
	case 'h':
		t.setMode(true)
	case 'l':
		t.setMode(false)
	case 'm': // SGR
		t.applySGR()
	case 'n': // DSR
		t.replyDSR(t.param(0, 0))
	case 'r': // DECSTBM
		top := t.param(0, 1) - 1
		bottom := t.param(1, t.Height) - 1
		t.srTop = clip(top, 0, t.Height-1)
		t.srBottom = clip(bottom, t.srTop, t.Height-1)
	case 's': // SCOSC
		t.savedX, t.savedY = t.x, t.y
	case 'u': // SCORC
		t.x, t.y = t.savedX, t.savedY
		t.clampCursor()
	case 'x': // DECREQTPARM
		t.reply("\x1b[2;1;1;112;112;1;0x")
	}
}

func (t *Terminal) replyDA() {
	t.reply("\x1b[?6c")
}

func (t *Terminal) replyDSR(mode int) {
	switch mode {
	case 5:
		t.reply("\x1b[0n")
	case 6:
		t.reply(csiCPR(t.y+1, t.x+1))
	}
}

func csiCPR(row, col int) string {
	return "\x1b[" + itoa(row) + ";" + itoa(col) + "R"
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// setMode handles SM/RM (final 'h'/'l'): with a leading '?', private
// DEC modes; without, ANSI modes 3 (display-ctrl) and 4 (insert).
func (t *Terminal) setMode(set bool) {
	for i := 0; i < t.nbEscParams; i++ {
		mode := t.escParams[i]
		if t.hasQmark {
			switch mode {
			case 1:
				t.cursorkeyMode = set
			case 2:
				t.utfEnabled = !set
			case 6:
				t.originMode = set
				if set {
					t.y = t.srTop
				} else {
					t.y = 0
				}
				t.x = 0
			case 7:
				t.autowrap = set
			case 25:
				t.cursorVisible = set
			}
		} else {
			switch mode {
			case 3:
				t.displayCtrl = set
			case 4:
				t.insertMode = set
			}
		}
	}
}

// insertBlanks implements ICH: insert n blanks at cursor, shifting right.
func (t *Terminal) insertBlanks(n int) {
	row := t.y
	for x := t.Width - 1; x >= t.x+n; x-- {
		src := t.Buf.CellAtScreen(x-n, row)
		*t.Buf.CellAtScreen(x, row) = *src
	}
	t.clearCellAttrRange(row, t.x, t.x+n)
	t.repaintRow(row)
}

// deleteChars implements DCH per DESIGN.md's Open Question (a) decision:
// shift left by n, then blank the rightmost n cells (not width-n).
func (t *Terminal) deleteChars(n int) {
	row := t.y
	for x := t.x; x < t.Width-n; x++ {
		src := t.Buf.CellAtScreen(x+n, row)
		*t.Buf.CellAtScreen(x, row) = *src
	}
	t.clearCellAttrRange(row, t.Width-n, t.Width)
	t.repaintRow(row)
}

func (t *Terminal) eraseChars(n int) {
	t.clearCellAttrRange(t.y, t.x, t.x+n)
	t.repaintRow(t.y)
}

func (t *Terminal) eraseLine(mode int) {
	switch mode {
	case 0:
		t.clearCellAttrRange(t.y, t.x, t.Width)
	case 1:
		t.clearCellAttrRange(t.y, 0, t.x+1)
	case 2:
		t.clearCellAttrRange(t.y, 0, t.Width)
	}
	t.repaintRow(t.y)
}

func (t *Terminal) eraseDisplay(mode int) {
	switch mode {
	case 0:
		t.eraseLine(0)
		for y := t.y + 1; y < t.Height; y++ {
			t.clearCellAttrRange(y, 0, t.Width)
			t.repaintRow(y)
		}
	case 1:
		t.eraseLine(1)
		for y := 0; y < t.y; y++ {
			t.clearCellAttrRange(y, 0, t.Width)
			t.repaintRow(y)
		}
	case 2:
		for y := 0; y < t.Height; y++ {
			t.clearCellAttrRange(y, 0, t.Width)
			t.repaintRow(y)
		}
	}
}

func (t *Terminal) insertLines(n int) {
	if t.y < t.srTop || t.y > t.srBottom {
		return
	}
	saveTop := t.srTop
	t.srTop = t.y
	t.scrollRegionDown(n)
	t.srTop = saveTop
}

func (t *Terminal) deleteLines(n int) {
	if t.y < t.srTop || t.y > t.srBottom {
		return
	}
	saveTop := t.srTop
	t.srTop = t.y
	t.scrollRegionUp(n)
	t.srTop = saveTop
}
