package term

import (
	"testing"

	"rfbterm/pkg/cellbuf"
	"rfbterm/pkg/fbuf"
)

func newTestTerminal(width, height int) *Terminal {
	buf := cellbuf.New(width, height, height*4, cellbuf.TextAttr{Fg: 7, Bg: 0})
	fb := fbuf.New(width*fbuf.FontWidth, height*fbuf.FontHeight, 32)
	return New(buf, fb, Capabilities{})
}

func rowString(t *Terminal, y int) string {
	cells := t.Buf.RowCells(y)
	out := make([]byte, len(cells))
	for i, c := range cells {
		out[i] = c.Glyph
	}
	return string(out)
}

func TestPlainTextScenario(t *testing.T) {
	term := newTestTerminal(80, 24)
	term.Write([]byte("Hello"))
	x, y := term.Cursor()
	if x != 5 || y != 0 {
		t.Fatalf("cursor = (%d,%d), want (5,0)", x, y)
	}
	got := rowString(term, 0)[:5]
	if got != "Hello" {
		t.Fatalf("row 0 = %q, want Hello...", got)
	}
}

func TestAutowrapOn80ColumnTerminal(t *testing.T) {
	term := newTestTerminal(80, 24)
	for i := 0; i < 81; i++ {
		term.Input('A')
	}
	row0 := rowString(term, 0)
	for i := 0; i < 80; i++ {
		if row0[i] != 'A' {
			t.Fatalf("row 0 col %d = %q, want 'A'", i, row0[i])
		}
	}
	if !term.Buf.CellAtScreen(79, 0).Cellat.Wrapped {
		t.Fatalf("expected cell (79,0) marked wrapped")
	}
	row1 := rowString(term, 1)
	if row1[0] != 'A' {
		t.Fatalf("row 1 col 0 = %q, want 'A'", row1[0])
	}
	x, y := term.Cursor()
	if x != 1 || y != 1 {
		t.Fatalf("cursor = (%d,%d), want (1,1)", x, y)
	}
}

func TestCSIScrollRegionScenario(t *testing.T) {
	term := newTestTerminal(80, 24)
	term.Write([]byte("\x1b[2;5r\x1b[H"))
	top, bottom := term.ScrollRegion()
	if top != 1 || bottom != 4 {
		t.Fatalf("scroll region = [%d,%d], want [1,4]", top, bottom)
	}
	x, y := term.Cursor()
	if x != 0 || y != 0 {
		t.Fatalf("cursor after H = (%d,%d), want (0,0)", x, y)
	}
	term.Write([]byte("ABCDE\n"))
	if term.Buf.CellAtScreen(0, 0).Glyph != 'A' {
		t.Fatalf("expected 'A' at (0,0)")
	}
	x, y = term.Cursor()
	if x != 0 || y != 1 {
		t.Fatalf("cursor after newline = (%d,%d), want (0,1)", x, y)
	}
}

func TestUTF8GlyphDecoding(t *testing.T) {
	term := newTestTerminal(80, 24)
	term.codec[0] = CodecLAT1
	term.Write([]byte{0xC3, 0xA9}) // U+00E9 'é'
	glyph := term.Buf.CellAtScreen(0, 0).Glyph
	if glyph != 0xE9 {
		t.Fatalf("glyph = %#02x, want 0xE9", glyph)
	}
}

func TestSnapshotDumpLoadRoundTrip(t *testing.T) {
	term := newTestTerminal(20, 5)
	term.Write([]byte("abc\x1b[1;31m"))
	dump := term.Dump()

	term2 := newTestTerminal(20, 5)
	if err := term2.Load(dump); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	x1, y1 := term.Cursor()
	x2, y2 := term2.Cursor()
	if x1 != x2 || y1 != y2 {
		t.Fatalf("cursor mismatch after round trip: (%d,%d) vs (%d,%d)", x1, y1, x2, y2)
	}
	if term2.Buf.CellAtScreen(0, 0).Glyph != 'a' {
		t.Fatalf("expected cell content preserved after round trip")
	}
}

func TestDeleteCharsShiftsLeftAndBlanksRight(t *testing.T) {
	term := newTestTerminal(10, 1)
	term.Write([]byte("ABCDEFGHIJ"))
	term.x, term.y = 2, 0
	term.deleteChars(3)
	got := rowString(term, 0)
	if got[2] != 'F' {
		t.Fatalf("row = %q, expected shifted content at col 2", got)
	}
	for i := 7; i < 10; i++ {
		if got[i] != ' ' {
			t.Fatalf("expected blank at col %d after DCH, got %q", i, got[i])
		}
	}
}

func TestResizeKeepsFramebufferInSyncWithCellGrid(t *testing.T) {
	term := newTestTerminal(10, 5)
	term.Resize(20, 8)
	if term.Width != 20 || term.Height != 8 {
		t.Fatalf("Width/Height = %d,%d, want 20,8", term.Width, term.Height)
	}
	wantFBW, wantFBH := 20*fbuf.FontWidth, 8*fbuf.FontHeight
	if term.FB.Width != wantFBW || term.FB.Height != wantFBH {
		t.Fatalf("FB dims = %dx%d, want %dx%d desynced from cell grid", term.FB.Width, term.FB.Height, wantFBW, wantFBH)
	}
}

func TestResizeInvokesCapResize(t *testing.T) {
	var gotW, gotH int
	buf := cellbuf.New(10, 5, 20, cellbuf.TextAttr{})
	fb := fbuf.New(10*fbuf.FontWidth, 5*fbuf.FontHeight, 32)
	term := New(buf, fb, Capabilities{Resize: func(w, h int) { gotW, gotH = w, h }})
	term.Resize(15, 6)
	if gotW != 15 || gotH != 6 {
		t.Fatalf("Cap.Resize got (%d,%d), want (15,6)", gotW, gotH)
	}
}

func TestCursorClampInvariant(t *testing.T) {
	term := newTestTerminal(10, 5)
	term.x, term.y = 100, -5
	term.clampCursor()
	x, y := term.Cursor()
	if x < 0 || x >= term.Width || y < 0 || y >= term.Height {
		t.Fatalf("cursor out of bounds after clamp: (%d,%d)", x, y)
	}
}
