package term

// Codec identifies one of the four character-set translation tables a
// font slot (G0/G1) may be bound to.
type Codec int

const (
	CodecLAT1 Codec = iota
	CodecGRAF
	CodecIBMPC
	CodecUSER
)

// codeEntry is one row of a sorted-by-codepoint translation table.
type codeEntry struct {
	CP    rune
	Glyph byte
}

// Font/codepage bitmap art and the Unicode-to-codepage translation tables
// are static data loaded at init time. These tables are minimal working
// subsets sufficient to exercise the binary search and fallback-to-'?'
// path, not an exhaustive codepage.
var grafTable = buildGrafTable()
var ibmpcTable = []codeEntry{
	{0x00E7, 0x87}, {0x00FC, 0x81}, {0x00E9, 0x82}, {0x00E2, 0x83},
	{0x00E4, 0x84}, {0x00E0, 0x85}, {0x00E5, 0x86}, {0x00EA, 0x88},
	{0x00EB, 0x89}, {0x00E8, 0x8A}, {0x00EF, 0x8B}, {0x00EE, 0x8C},
	{0x00EC, 0x8D}, {0x00C4, 0x8E}, {0x00C5, 0x8F}, {0x00C9, 0x90},
}

// buildGrafTable maps the VT100 "special graphics" designations (the
// ASCII range 0x5F-0x7E conventionally used by DEC terminals for line
// drawing) onto themselves; the glyph *art* for those code points lives in
// the embedded font bitmap, out of this package's scope.
func buildGrafTable() []codeEntry {
	var t []codeEntry
	for b := rune(0x5F); b <= 0x7E; b++ {
		t = append(t, codeEntry{CP: b, Glyph: byte(b)})
	}
	return t
}

func binarySearchGlyph(table []codeEntry, cp rune) (byte, bool) {
	lo, hi := 0, len(table)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if table[mid].CP == cp {
			return table[mid].Glyph, true
		}
		if table[mid].CP < cp {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return 0, false
}

// Translate maps a decoded Unicode codepoint to a single glyph byte in the
// given codec's codepage, falling back to '?' (0x3F) on miss. LAT1 passes
// codepoints <= 0x7F through verbatim.
func Translate(c Codec, cp rune) byte {
	if c == CodecLAT1 && cp <= 0x7F {
		return byte(cp)
	}

	var table []codeEntry
	switch c {
	case CodecGRAF:
		table = grafTable
	case CodecIBMPC:
		table = ibmpcTable
	case CodecUSER:
		table = nil
	default:
		table = nil
	}

	if table == nil {
		if cp <= 0xFF {
			return byte(cp)
		}
		return '?'
	}

	if g, ok := binarySearchGlyph(table, cp); ok {
		return g
	}
	return '?'
}
