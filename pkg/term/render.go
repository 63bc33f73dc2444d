package term

import (
	"rfbterm/pkg/cellbuf"
	"rfbterm/pkg/fbuf"
)

// paintCell rasterises the cell at screen (x,y) into the framebuffer and
// marks the corresponding pixel rectangle dirty. inverse XOR highlit XOR
// (cursor-visible AND cursor-here AND not-scrolled) decides fg/bg swap.
func (t *Terminal) paintCell(x, y int) {
	c := t.Buf.CellAtScreen(x, y)
	cursorHere := t.cursorVisible && x == t.x && y == t.y && t.Buf.YScroll() == 0
	inverse := c.Text.Inverse != cursorHere
	if c.Cellat.Highlit {
		inverse = !inverse
	}
	fontSlot := 0
	if t.font == 1 {
		fontSlot = 1
	}
	px, py := x*fbuf.FontWidth, y*fbuf.FontHeight
	t.FB.PutGlyph(px, py, c.Glyph, c.Text, inverse, c.Text.Underline, fontSlot)
	t.markDirty(px, py, fbuf.FontWidth, fbuf.FontHeight)
}

// writeCell sets the cell at (x,y) to glyph/attr and repaints it.
func (t *Terminal) writeCell(x, y int, glyph byte, span uint8) {
	c := t.Buf.CellAtScreen(x, y)
	c.Glyph = glyph
	c.Text = t.attrib
	c.Text.Used = true
	c.Cellat.Span = span
	c.Cellat.Spanned = false
	c.Cellat.Wrapped = false
	t.paintCell(x, y)
}

func (t *Terminal) clearCellAttrRange(row, fromX, toX int) {
	t.Buf.ClearLine(row, fromX, toX)
	px, py := fromX*fbuf.FontWidth, row*fbuf.FontHeight
	w := (toX - fromX) * fbuf.FontWidth
	t.markDirty(px, py, w, fbuf.FontHeight)
}

// lineFeed performs LF/VT/FF: advances y, scrolling within the scroll
// region (or the whole screen if region is the default full height) when
// past sr_bottom.
func (t *Terminal) lineFeed() {
	if t.y == t.srBottom {
		t.scrollRegionUp(1)
	} else if t.y < t.Height-1 {
		t.y++
	}
}

// reverseLineFeed performs ESC M: moves y up, scrolling down at sr_top.
func (t *Terminal) reverseLineFeed() {
	if t.y == t.srTop {
		t.scrollRegionDown(1)
	} else if t.y > 0 {
		t.y--
	}
}

func (t *Terminal) isFullScreenRegion() bool {
	return t.srTop == 0 && t.srBottom == t.Height-1
}

func (t *Terminal) scrollRegionUp(n int) {
	if t.isFullScreenRegion() {
		t.Buf.ScrollUp(n)
		if t.Cap.CopyRect != nil {
			t.Cap.CopyRect(0, n*fbuf.FontHeight, 0, 0, t.Width*fbuf.FontWidth, (t.Height-n)*fbuf.FontHeight)
		}
		t.markDirty(0, 0, t.Width*fbuf.FontWidth, t.Height*fbuf.FontHeight)
		return
	}
	t.Buf.ScrollCells(t.srTop, t.srBottom, n)
	t.markDirty(0, t.srTop*fbuf.FontHeight, t.Width*fbuf.FontWidth, (t.srBottom-t.srTop+1)*fbuf.FontHeight)
}

func (t *Terminal) scrollRegionDown(n int) {
	if t.isFullScreenRegion() {
		t.Buf.ScrollDown(n)
		t.markDirty(0, 0, t.Width*fbuf.FontWidth, t.Height*fbuf.FontHeight)
		return
	}
	t.Buf.ScrollCells(t.srTop, t.srBottom, -n)
	t.markDirty(0, t.srTop*fbuf.FontHeight, t.Width*fbuf.FontWidth, (t.srBottom-t.srTop+1)*fbuf.FontHeight)
}

// repaintRow repaints every cell of screen row y (used after bulk cellbuf
// mutations like insert/delete-line/char where per-cell paintCell calls
// would be redundant).
func (t *Terminal) repaintRow(y int) {
	for x := 0; x < t.Width; x++ {
		t.paintCell(x, y)
	}
}

func blankCellAttr(def cellbuf.TextAttr) cellbuf.Cell {
	return cellbuf.Blank(def)
}
