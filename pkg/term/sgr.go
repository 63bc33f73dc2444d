package term

import "rfbterm/pkg/cellbuf"

// applySGR applies the SGR (CSI ... m) recognised parameter values.
func (t *Terminal) applySGR() {
	if t.nbEscParams == 0 {
		t.attrib = cellbuf.TextAttr{Fg: t.defaultAttrib.Fg, Bg: t.defaultAttrib.Bg}
		return
	}
	for i := 0; i < t.nbEscParams; i++ {
		p := t.escParams[i]
		switch {
		case p == 0:
			t.attrib = cellbuf.TextAttr{Fg: t.defaultAttrib.Fg, Bg: t.defaultAttrib.Bg}
		case p == 1:
			t.attrib.Bold = true
		case p == 4:
			t.attrib.Underline = true
		case p == 5:
			t.attrib.Blink = true
		case p == 7:
			t.attrib.Inverse = true
		case p == 8:
			t.attrib.Invisible = true
		case p == 10:
			t.font = 0
			t.displayCtrl = false
			t.toggleMeta = false
		case p == 11:
			t.font = 1
			t.displayCtrl = true
		case p == 12:
			t.font = 1
			t.displayCtrl = true
			t.toggleMeta = true
		case p == 22:
			t.attrib.Bold = false
		case p == 24:
			t.attrib.Underline = false
		case p == 25:
			t.attrib.Blink = false
		case p == 27:
			t.attrib.Inverse = false
		case p == 28:
			t.attrib.Invisible = false
		case p >= 30 && p <= 37:
			t.attrib.Fg = uint8(p - 30)
		case p == 38:
			t.attrib.Fg = t.defaultAttrib.Fg
			t.attrib.Underline = true
		case p == 39:
			t.attrib.Fg = t.defaultAttrib.Fg
			t.attrib.Underline = false
		case p >= 40 && p <= 47:
			t.attrib.Bg = uint8(p - 40)
		case p == 49:
			t.attrib.Bg = t.defaultAttrib.Bg
		}
	}
}
