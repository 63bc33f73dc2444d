package term

import (
	"encoding/binary"
	"fmt"

	"rfbterm/pkg/cellbuf"
)

// snapshotMagic and snapshotVersion add a magic + version header so the
// binary dump format can evolve without breaking old snapshot files.
var snapshotMagic = [4]byte{'R', 'F', 'B', 'T'}

const snapshotVersion = 1

func packTextAttr(a cellbuf.TextAttr) uint16 {
	var v uint16
	v |= uint16(a.Fg & 0x0F)
	v |= uint16(a.Bg&0x0F) << 4
	setBit := func(bit int, on bool) {
		if on {
			v |= 1 << uint(bit)
		}
	}
	setBit(8, a.Bold)
	setBit(9, a.Underline)
	setBit(10, a.Blink)
	setBit(11, a.Inverse)
	setBit(12, a.Invisible)
	setBit(13, a.Used)
	return v
}

func unpackTextAttr(v uint16) cellbuf.TextAttr {
	return cellbuf.TextAttr{
		Fg:        uint8(v & 0x0F),
		Bg:        uint8((v >> 4) & 0x0F),
		Bold:      v&(1<<8) != 0,
		Underline: v&(1<<9) != 0,
		Blink:     v&(1<<10) != 0,
		Inverse:   v&(1<<11) != 0,
		Invisible: v&(1<<12) != 0,
		Used:      v&(1<<13) != 0,
	}
}

func packCellAttr(a cellbuf.CellAttr) uint16 {
	var v uint16
	if a.Highlit {
		v |= 1 << 0
	}
	if a.Wrapped {
		v |= 1 << 1
	}
	v |= uint16(a.Span&0x03) << 2
	if a.Spanned {
		v |= 1 << 4
	}
	return v
}

func unpackCellAttr(v uint16) cellbuf.CellAttr {
	return cellbuf.CellAttr{
		Highlit: v&(1<<0) != 0,
		Wrapped: v&(1<<1) != 0,
		Span:    uint8((v >> 2) & 0x03),
		Spanned: v&(1<<4) != 0,
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Dump serialises the full terminal state in a fixed field order,
// prefixed by a magic+version header.
func (t *Terminal) Dump() []byte {
	buf := make([]byte, 0, 4+2+t.Width*t.Buf.TotalHeight()*5+256)
	buf = append(buf, snapshotMagic[:]...)
	buf = le16(buf, snapshotVersion)

	buf = le32(buf, int32(t.Width))
	buf = le32(buf, int32(t.Height))
	buf = le32(buf, int32(t.Buf.TotalHeight()))

	buf = le32(buf, int32(t.srBottom))
	buf = le32(buf, int32(t.srTop))
	buf = le32(buf, int32(t.Buf.YBase()))
	buf = le32(buf, int32(t.Buf.YScroll()))

	buf = append(buf, boolByte(t.wrapped))

	buf = le32(buf, int32(t.x))
	buf = le32(buf, int32(t.y))
	buf = le32(buf, int32(t.savedX))
	buf = le32(buf, int32(t.savedY))
	buf = le32(buf, int32(t.Buf.Backscroll()))
	buf = le32(buf, int32(t.Buf.TotalHeight()))

	buf = append(buf, boolByte(t.cursorVisible), boolByte(t.autowrap), boolByte(t.wrapped),
		boolByte(t.insertMode), boolByte(t.cursorkeyMode), boolByte(t.displayCtrl), boolByte(t.toggleMeta))

	buf = le16(buf, packTextAttr(t.defaultAttrib))
	buf = le16(buf, packTextAttr(t.attrib))
	buf = le16(buf, packTextAttr(t.savedAttrib))

	for _, c := range t.Buf.AllCellsRowMajor() {
		buf = append(buf, c.Glyph)
		buf = le16(buf, packTextAttr(c.Text))
		buf = le16(buf, packCellAttr(c.Cellat))
	}

	buf = le32(buf, int32(t.state))
	for i := 0; i < MaxEscParams; i++ {
		buf = le32(buf, int32(t.escParams[i]))
	}
	buf = le32(buf, int32(t.nbEscParams))
	buf = le32(buf, int32(boolByte(t.hasEscParam)))
	buf = le32(buf, int32(boolByte(t.hasQmark)))

	for _, s := range t.selections {
		buf = le32(buf, int32(s.StartX))
		buf = le32(buf, int32(s.StartY))
		buf = le32(buf, int32(s.EndX))
		buf = le32(buf, int32(s.EndY))
	}
	buf = le32(buf, int32(boolByte(t.selecting)))
	buf = le32(buf, int32(t.mouseX))
	buf = le32(buf, int32(t.mouseY))

	buf = le32(buf, int32(t.unicodeIndex))
	buf = append(buf, t.unicodeData[:]...)
	buf = le32(buf, int32(t.unicodeLength))

	return buf
}

func le32(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

func le16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) i32() int32 {
	if r.pos+4 > len(r.data) {
		r.pos = len(r.data)
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v
}

func (r *reader) u16() uint16 {
	if r.pos+2 > len(r.data) {
		r.pos = len(r.data)
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u8() byte {
	if r.pos+1 > len(r.data) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) bytes(n int) []byte {
	if r.pos+n > len(r.data) {
		n = len(r.data) - r.pos
		if n < 0 {
			n = 0
		}
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v
}

// Load restores terminal state from a Dump()-produced byte stream. Every
// numeric field is clipped to its valid domain before use. A snapshot
// whose width/height disagree with current geometry triggers a resize
// before cell data is loaded.
func (t *Terminal) Load(data []byte) error {
	if len(data) < 6 || data[0] != 'R' || data[1] != 'F' || data[2] != 'B' || data[3] != 'T' {
		return newTermError("snapshot missing magic header", ErrSnapshotCorrupt, nil)
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version != snapshotVersion {
		return newTermError(fmt.Sprintf("unsupported snapshot version %d", version), ErrSnapshotCorrupt, nil)
	}

	r := &reader{data: data, pos: 6}

	width := clip(int(r.i32()), 1, 4096)
	height := clip(int(r.i32()), 1, 4096)
	totalHeight := clip(int(r.i32()), height, 65536)

	if width != t.Width || height != t.Height || totalHeight != t.Buf.TotalHeight() {
		// Grow the ring to hold totalHeight rows, then apply the visible
		// geometry to the cell buffer and framebuffer together.
		t.Buf.Resize(width, totalHeight)
		t.Resize(width, height)
	}

	t.srBottom = clip(int(r.i32()), 0, height-1)
	t.srTop = clip(int(r.i32()), 0, t.srBottom)
	t.Buf.SetYBase(int(r.i32()))
	t.Buf.SetYScroll(int(r.i32()))

	t.wrapped = r.u8() != 0

	t.x = clip(int(r.i32()), 0, width-1)
	t.y = clip(int(r.i32()), 0, height-1)
	t.savedX = clip(int(r.i32()), 0, width-1)
	t.savedY = clip(int(r.i32()), 0, height-1)
	t.Buf.SetBackscroll(int(r.i32()))
	_ = r.i32() // duplicate total_height field, kept for layout compatibility

	t.cursorVisible = r.u8() != 0
	t.autowrap = r.u8() != 0
	t.wrapped = r.u8() != 0
	t.insertMode = r.u8() != 0
	t.cursorkeyMode = r.u8() != 0
	t.displayCtrl = r.u8() != 0
	t.toggleMeta = r.u8() != 0

	t.defaultAttrib = unpackTextAttr(r.u16())
	t.attrib = unpackTextAttr(r.u16())
	t.savedAttrib = unpackTextAttr(r.u16())

	cells := make([]cellbuf.Cell, width*totalHeight)
	for i := range cells {
		glyph := r.u8()
		text := unpackTextAttr(r.u16())
		cattr := unpackCellAttr(r.u16())
		cells[i] = cellbuf.Cell{Glyph: glyph, Text: text, Cellat: cattr}
	}
	t.Buf.SetAllCellsRowMajor(cells)

	t.state = State(clip(int(r.i32()), int(StateNorm), int(StatePalette)))
	for i := 0; i < MaxEscParams; i++ {
		t.escParams[i] = max(int(r.i32()), 0)
	}
	t.nbEscParams = clip(int(r.i32()), 0, MaxEscParams-1)
	t.hasEscParam = r.i32() != 0
	t.hasQmark = r.i32() != 0

	for i := range t.selections {
		t.selections[i].StartX = clip(int(r.i32()), 0, width-1)
		t.selections[i].StartY = clip(int(r.i32()), 0, t.Buf.TotalHeight()-1)
		t.selections[i].EndX = clip(int(r.i32()), 0, width-1)
		t.selections[i].EndY = clip(int(r.i32()), 0, t.Buf.TotalHeight()-1)
	}
	t.selecting = r.i32() != 0
	t.mouseX = clip(int(r.i32()), 0, width-1)
	t.mouseY = clip(int(r.i32()), 0, height-1)

	t.unicodeIndex = clip(int(r.i32()), 0, 6)
	copy(t.unicodeData[:], r.bytes(7))
	t.unicodeLength = clip(int(r.i32()), 0, 6)

	return nil
}
