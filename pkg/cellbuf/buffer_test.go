package cellbuf

import "testing"

func defAttr() TextAttr { return TextAttr{Fg: 7, Bg: 0} }

func TestRingIndexingRoundTrip(t *testing.T) {
	b := New(80, 24, 200, defAttr())
	b.yBase = 57
	for y := 0; y < b.height; y++ {
		v := b.ScreenToVirtual(y)
		got := b.VirtualToScreen(v)
		if got != y {
			t.Errorf("VirtualToScreen(ScreenToVirtual(%d)) = %d, want %d", y, got, y)
		}
	}
}

func TestScrollUpAdvancesBaseAndBackscroll(t *testing.T) {
	b := New(10, 5, 20, defAttr())
	b.CellAtScreen(0, 0).Glyph = 'A'
	b.ScrollUp(1)
	if b.backscroll != 1 {
		t.Fatalf("backscroll = %d, want 1", b.backscroll)
	}
	// The scrolled-away row is still present one virtual line back.
	if b.CellAt(0, b.ScreenToVirtual(-1)).Glyph != 'A' {
		t.Fatalf("expected scrolled row to retain content in history")
	}
	// New bottom row is blank.
	if b.CellAtScreen(0, b.height-1).Glyph != ' ' {
		t.Fatalf("expected new bottom row to be blank after scroll")
	}
}

func TestScrollUpCapsBackscrollAtCapacity(t *testing.T) {
	b := New(10, 5, 8, defAttr()) // only 3 rows of history capacity
	for i := 0; i < 10; i++ {
		b.ScrollUp(1)
	}
	if b.backscroll != 3 {
		t.Fatalf("backscroll = %d, want capped at 3", b.backscroll)
	}
}

func TestResizeWidenPreservesContentAndFillsBlank(t *testing.T) {
	b := New(4, 2, 4, defAttr())
	b.CellAtScreen(0, 0).Glyph = 'X'
	b.Resize(8, 2)
	if b.CellAtScreen(0, 0).Glyph != 'X' {
		t.Fatalf("expected preserved content after widen")
	}
	if b.CellAtScreen(7, 0).Glyph != ' ' {
		t.Fatalf("expected new column to be blank")
	}
}

func TestResizeShrinkTruncatesExcessColumns(t *testing.T) {
	b := New(8, 2, 8, defAttr())
	b.CellAtScreen(7, 0).Glyph = 'Z'
	b.Resize(4, 2)
	if b.Width() != 4 {
		t.Fatalf("width = %d, want 4", b.Width())
	}
}

func TestScrollCellsInPlaceDoesNotTouchYBase(t *testing.T) {
	b := New(5, 10, 10, defAttr())
	before := b.YBase()
	b.CellAtScreen(0, 2).Glyph = 'R'
	b.ScrollCells(1, 4, 1)
	if b.YBase() != before {
		t.Fatalf("ScrollCells must not move yBase")
	}
	if b.CellAtScreen(0, 1).Glyph != 'R' {
		t.Fatalf("expected row content shifted up within region")
	}
}

func TestClearLineBlanksRange(t *testing.T) {
	b := New(5, 1, 1, defAttr())
	for x := 0; x < 5; x++ {
		b.CellAtScreen(x, 0).Glyph = 'A'
	}
	b.ClearLine(0, 1, 3)
	if b.CellAtScreen(0, 0).Glyph != 'A' || b.CellAtScreen(4, 0).Glyph != 'A' {
		t.Fatalf("expected cells outside range to survive")
	}
	if b.CellAtScreen(1, 0).Glyph != ' ' || b.CellAtScreen(2, 0).Glyph != ' ' {
		t.Fatalf("expected cells in range to be blanked")
	}
}
