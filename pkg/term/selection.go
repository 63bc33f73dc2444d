package term

// MouseEvent handles a pointer event for selection and scroll-wheel
// purposes. dx,dy are already projected cell coordinates; dz is wheel
// delta (view scroll by +-1 per notch); buttonLeft is the current
// left-button-down state.
func (t *Terminal) MouseEvent(dx, dy, dz int, buttonLeft bool) {
	if dz != 0 {
		if dz > 0 {
			t.Buf.SetScroll(t.Buf.YScroll() + 1)
		} else {
			t.Buf.SetScroll(t.Buf.YScroll() - 1)
		}
		return
	}

	t.mouseX, t.mouseY = dx, dy
	vy := t.Buf.ScreenToVirtual(dy)

	switch {
	case buttonLeft && !t.selecting:
		t.clearHighlight(t.selections[1])
		t.selections[0] = Selection{StartX: dx, StartY: vy, EndX: dx, EndY: vy}
		t.selecting = true
	case buttonLeft && t.selecting:
		old := t.selections[0]
		t.selections[0].EndX, t.selections[0].EndY = dx, vy
		t.clearHighlight(old)
		t.applyHighlight(t.selections[0])
	case !buttonLeft && t.selecting:
		t.selecting = false
		t.selections[1] = t.selections[0]
		if t.Cap.CutTextSink != nil {
			t.Cap.CutTextSink(t.extractSelectionText(t.selections[1]))
		}
	}
}

func (t *Terminal) selectionRange(s Selection) (x0, y0, x1, y1 int) {
	x0, y0, x1, y1 = s.StartX, s.StartY, s.EndX, s.EndY
	if y0 > y1 || (y0 == y1 && x0 > x1) {
		x0, y0, x1, y1 = x1, y1, x0, y0
	}
	return
}

func (t *Terminal) forEachSelectedCell(s Selection, fn func(x, vy int)) {
	x0, y0, x1, y1 := t.selectionRange(s)
	if y0 == y1 {
		for x := x0; x <= x1; x++ {
			fn(x, y0)
		}
		return
	}
	for x := x0; x < t.Width; x++ {
		fn(x, y0)
	}
	for y := y0 + 1; y < y1; y++ {
		for x := 0; x < t.Width; x++ {
			fn(x, y)
		}
	}
	for x := 0; x <= x1; x++ {
		fn(x, y1)
	}
}

func (t *Terminal) setHighlight(s Selection, on bool) {
	t.forEachSelectedCell(s, func(x, vy int) {
		c := t.Buf.CellAt(x, vy)
		c.Cellat.Highlit = on
		sy := t.Buf.VirtualToScreen(vy)
		if sy >= 0 && sy < t.Height {
			t.paintCell(x, sy)
		}
	})
}

func (t *Terminal) applyHighlight(s Selection) { t.setHighlight(s, true) }
func (t *Terminal) clearHighlight(s Selection)  { t.setHighlight(s, false) }

// extractSelectionText joins the selected cells into a string, treating
// wrapped-from-previous-line runs without inserting a newline.
func (t *Terminal) extractSelectionText(s Selection) string {
	x0, y0, x1, y1 := t.selectionRange(s)
	var out []byte
	for y := y0; y <= y1; y++ {
		startX, endX := 0, t.Width-1
		if y == y0 {
			startX = x0
		}
		if y == y1 {
			endX = x1
		}
		lineWrapped := false
		for x := startX; x <= endX; x++ {
			c := t.Buf.CellAt(x, y)
			out = append(out, c.Glyph)
			if x == t.Width-1 {
				lineWrapped = c.Cellat.Wrapped
			}
		}
		if y != y1 && !lineWrapped {
			out = append(out, '\n')
		}
	}
	return string(out)
}
