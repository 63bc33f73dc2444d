// Package cellbuf implements the ring-buffered grid of character cells
// (C1): coordinate math between virtual (ring) and screen lines, scrollback,
// and resize. It owns no rendering or parsing logic.
package cellbuf

// Span values for a cell's column width.
const (
	SpanNarrow = 1
	SpanWide   = 2
)

// TextAttr packs the 4-bit foreground/background colour indices and the
// boolean attribute flags of a cell's rendered text.
type TextAttr struct {
	Fg        uint8 // 0-15
	Bg        uint8 // 0-15
	Bold      bool
	Underline bool
	Blink     bool
	Inverse   bool
	Invisible bool
	Used      bool
}

// CellAttr holds selection/layout metadata independent of colour.
type CellAttr struct {
	Highlit bool // part of the committed selection
	Wrapped bool // logical line continues on the next row
	Span    uint8
	Spanned bool // this cell is a continuation of a wide glyph to its left
}

// Cell is one character position: a glyph byte in the active codepage plus
// its text and cell attributes.
type Cell struct {
	Glyph  byte
	Text   TextAttr
	Cellat CellAttr
}

// Blank returns the default empty cell for the given default text attribute.
func Blank(def TextAttr) Cell {
	return Cell{Glyph: ' ', Text: def}
}
