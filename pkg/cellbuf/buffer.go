package cellbuf

// Buffer is a rectangular ring of width x totalHeight cells. yBase is the
// absolute line index of the top of the visible screen; yScroll is how far
// the view is currently scrolled back; backscroll is how many history rows
// above yBase are populated.
//
// Invariant: 0 <= yScroll <= backscroll <= totalHeight - height.
type Buffer struct {
	width       int
	height      int
	totalHeight int
	yBase       int
	yScroll     int
	backscroll  int
	defaultAttr TextAttr

	cells []Cell // totalHeight rows of width cells, row-major
}

// New allocates a CellBuffer of the given visible size backed by a ring of
// totalHeight rows (totalHeight must be >= height).
func New(width, height, totalHeight int, def TextAttr) *Buffer {
	if totalHeight < height {
		totalHeight = height
	}
	b := &Buffer{
		width:       width,
		height:      height,
		totalHeight: totalHeight,
		defaultAttr: def,
		cells:       make([]Cell, width*totalHeight),
	}
	b.clearAll()
	return b
}

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }
func (b *Buffer) Backscroll() int { return b.backscroll }
func (b *Buffer) YScroll() int    { return b.yScroll }

func (b *Buffer) clearAll() {
	blank := Blank(b.defaultAttr)
	for i := range b.cells {
		b.cells[i] = blank
	}
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

// screenRow returns the absolute ring row for virtual line y (0 = top of
// the currently scrolled view).
func (b *Buffer) screenRow(y int) int {
	return mod(b.yBase-b.yScroll+y, b.totalHeight)
}

// ScreenToVirtual and VirtualToScreen satisfy the ring-indexing invariant:
// VirtualToScreen(ScreenToVirtual(y)) == y (mod totalHeight).
func (b *Buffer) ScreenToVirtual(y int) int {
	return mod(b.yBase-b.yScroll+y, b.totalHeight)
}

func (b *Buffer) VirtualToScreen(v int) int {
	return mod(v-(b.yBase-b.yScroll), b.totalHeight)
}

// CellAt returns a pointer to the cell at screen column x, virtual line y.
func (b *Buffer) CellAt(x, virtualY int) *Cell {
	row := mod(virtualY, b.totalHeight)
	return &b.cells[row*b.width+clampInt(x, 0, b.width-1)]
}

// CellAtScreen is a convenience wrapper taking screen (not virtual) coords.
func (b *Buffer) CellAtScreen(x, y int) *Cell {
	return b.CellAt(x, b.screenRow(y))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClearLine blanks columns [fromX, toX) of screen row `row`.
func (b *Buffer) ClearLine(row, fromX, toX int) {
	v := b.screenRow(row)
	blank := Blank(b.defaultAttr)
	for x := fromX; x < toX && x < b.width; x++ {
		if x < 0 {
			continue
		}
		*b.CellAt(x, v) = blank
	}
}

// Clear blanks a rectangular region starting at (fromX, startY) spanning
// (toX - fromX) columns and height rows, in screen coordinates.
func (b *Buffer) Clear(fromX, startY, toX, height int) {
	for y := startY; y < startY+height; y++ {
		b.ClearLine(y, fromX, toX)
	}
}

// ScrollCells moves |by| rows of the in-place region [from, to] (inclusive,
// screen coordinates) by |by| rows, one row at a time, direction sign(by); it does not
// touch yBase. Used for scroll-region scrolling on a strict sub-rectangle.
func (b *Buffer) ScrollCells(from, to, by int) {
	if by == 0 {
		return
	}
	n := by
	if n < 0 {
		n = -n
	}
	for step := 0; step < n; step++ {
		if by > 0 {
			// scroll up: row from+1..to move to from..to-1, blank `to`.
			for y := from; y < to; y++ {
				src := b.screenRow(y + 1)
				dst := b.screenRow(y)
				copy(b.cells[dst*b.width:dst*b.width+b.width], b.cells[src*b.width:src*b.width+b.width])
			}
			b.ClearLine(to, 0, b.width)
		} else {
			// scroll down: rows from..to-1 move to from+1..to, blank `from`.
			for y := to; y > from; y-- {
				src := b.screenRow(y - 1)
				dst := b.screenRow(y)
				copy(b.cells[dst*b.width:dst*b.width+b.width], b.cells[src*b.width:src*b.width+b.width])
			}
			b.ClearLine(from, 0, b.width)
		}
	}
}

// ScrollUp performs a full-screen (ring) scroll-up by n rows: advances
// yBase, extends backscroll (capped), and clears the newly exposed bottom
// rows. Caller is responsible for issuing the corresponding framebuffer
// copy-blit.
func (b *Buffer) ScrollUp(n int) {
	maxBackscroll := b.totalHeight - b.height
	for i := 0; i < n; i++ {
		b.yBase = mod(b.yBase+1, b.totalHeight)
		if b.backscroll < maxBackscroll {
			b.backscroll++
		}
		b.ClearLine(b.height-1, 0, b.width)
	}
}

// ScrollDown performs a reverse full-screen scroll (reverse line feed at
// the top): rewinds yBase and shrinks backscroll.
func (b *Buffer) ScrollDown(n int) {
	for i := 0; i < n; i++ {
		if b.backscroll <= 0 {
			break
		}
		b.yBase = mod(b.yBase-1, b.totalHeight)
		b.backscroll--
		b.ClearLine(0, 0, b.width)
	}
}

// SetScroll sets the view's scrollback offset, clamped to [0, backscroll].
func (b *Buffer) SetScroll(n int) {
	b.yScroll = clampInt(n, 0, b.backscroll)
}

// Resize reallocates the buffer preserving content by line index: widening
// fills new columns with the default blank; shrinking truncates excess
// columns. Height changes adjust the visible window only.
func (b *Buffer) Resize(width, height int) {
	totalHeight := b.totalHeight
	if totalHeight < height {
		totalHeight = height
	}
	newCells := make([]Cell, width*totalHeight)
	blank := Blank(b.defaultAttr)
	for i := range newCells {
		newCells[i] = blank
	}

	copyRows := b.totalHeight
	if copyRows > totalHeight {
		copyRows = totalHeight
	}
	copyCols := b.width
	if copyCols > width {
		copyCols = width
	}
	for row := 0; row < copyRows; row++ {
		srcOff := row * b.width
		dstOff := row * width
		copy(newCells[dstOff:dstOff+copyCols], b.cells[srcOff:srcOff+copyCols])
	}

	b.cells = newCells
	b.width = width
	b.height = height
	b.totalHeight = totalHeight
	maxBackscroll := totalHeight - height
	if maxBackscroll < 0 {
		maxBackscroll = 0
	}
	b.backscroll = clampInt(b.backscroll, 0, maxBackscroll)
	b.yScroll = clampInt(b.yScroll, 0, b.backscroll)
	b.yBase = mod(b.yBase, b.totalHeight)
}

// RowCells returns the width cells of screen row `row` for rendering.
func (b *Buffer) RowCells(row int) []Cell {
	v := b.screenRow(row)
	return b.cells[v*b.width : v*b.width+b.width]
}

// DefaultAttr returns the buffer's default text attribute.
func (b *Buffer) DefaultAttr() TextAttr { return b.defaultAttr }

// SetDefaultAttr updates the default used for future clears.
func (b *Buffer) SetDefaultAttr(a TextAttr) { b.defaultAttr = a }

// TotalHeight exposes the ring capacity (used by snapshot dump/load).
func (b *Buffer) TotalHeight() int { return b.totalHeight }

// AllCellsRowMajor exposes the raw ring storage for snapshotting, in ring
// row-major order (row 0 = absolute ring index 0, not the current yBase).
func (b *Buffer) AllCellsRowMajor() []Cell { return b.cells }

// SetAllCellsRowMajor overwrites the ring storage directly; used when
// loading a snapshot after a matching Resize.
func (b *Buffer) SetAllCellsRowMajor(cells []Cell) {
	n := len(b.cells)
	if len(cells) < n {
		n = len(cells)
	}
	copy(b.cells, cells[:n])
}

func (b *Buffer) YBase() int       { return b.yBase }
func (b *Buffer) SetYBase(v int)   { b.yBase = mod(v, b.totalHeight) }
func (b *Buffer) SetBackscroll(v int) {
	max := b.totalHeight - b.height
	if max < 0 {
		max = 0
	}
	b.backscroll = clampInt(v, 0, max)
}
func (b *Buffer) SetYScroll(v int) { b.yScroll = clampInt(v, 0, b.backscroll) }
