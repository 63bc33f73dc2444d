package fbuf

import "testing"

func TestFillRectThenRawRectRoundTrips(t *testing.T) {
	fb := New(16, 16, 32)
	fb.FillRect(2, 2, 4, 4, 1)
	raw := fb.RawRect(2, 2, 4, 4)
	want := fb.Palette.Packed(1)
	for i := 0; i < 4*4; i++ {
		off := i * 4
		got := uint32(raw[off]) | uint32(raw[off+1])<<8 | uint32(raw[off+2])<<16 | uint32(raw[off+3])<<24
		if got != want {
			t.Fatalf("pixel %d = %08X, want %08X", i, got, want)
		}
	}
}

func TestBitBltOverlapForward(t *testing.T) {
	fb := New(8, 8, 8)
	fb.FillRect(0, 0, 2, 2, 5)
	fb.BitBlt(0, 0, 1, 1, 2, 2)
	raw := fb.RawRect(1, 1, 2, 2)
	want := fb.Palette.Packed(5)
	if raw[0] != byte(want) {
		t.Fatalf("expected overlap-safe blit to preserve colour")
	}
}

func TestPackRGBDepthsDiffer(t *testing.T) {
	c := RGB{255, 0, 0}
	if packRGB(8, c) == packRGB(32, c) {
		t.Fatalf("expected different depths to pack differently")
	}
}

func TestResizeGrowPreservesOverlapAndBlanksNewArea(t *testing.T) {
	fb := New(8, 8, 32)
	fb.FillRect(0, 0, 8, 8, 1)
	fb.Resize(12, 10)
	if fb.Width != 12 || fb.Height != 10 {
		t.Fatalf("Resize did not update dimensions: got %dx%d", fb.Width, fb.Height)
	}
	want := fb.Palette.Packed(1)
	raw := fb.RawRect(0, 0, 8, 8)
	for i := 0; i < 8*8; i++ {
		off := i * 4
		got := uint32(raw[off]) | uint32(raw[off+1])<<8 | uint32(raw[off+2])<<16 | uint32(raw[off+3])<<24
		if got != want {
			t.Fatalf("overlapping pixel %d = %08X, want preserved %08X", i, got, want)
		}
	}
	blank := fb.Palette.Packed(0)
	rawNew := fb.RawRect(8, 0, 4, 10)
	for i := 0; i < 4*10; i++ {
		off := i * 4
		got := uint32(rawNew[off]) | uint32(rawNew[off+1])<<8 | uint32(rawNew[off+2])<<16 | uint32(rawNew[off+3])<<24
		if got != blank {
			t.Fatalf("newly exposed pixel %d = %08X, want blank %08X", i, got, blank)
		}
	}
}

func TestResizeShrinkTruncatesWithoutPanicking(t *testing.T) {
	fb := New(10, 10, 32)
	fb.FillRect(0, 0, 10, 10, 2)
	fb.Resize(4, 4)
	if len(fb.Pixels) != 4*4*fb.BytesPerPixel {
		t.Fatalf("Pixels length = %d, want %d", len(fb.Pixels), 4*4*fb.BytesPerPixel)
	}
}

func TestPaletteSetEntryAndReset(t *testing.T) {
	p := NewPalette(32)
	orig := p.Packed(1)
	p.SetEntry(1, RGB{1, 2, 3})
	if p.Packed(1) == orig {
		t.Fatalf("expected SetEntry to change packed value")
	}
	p.ResetDefaults()
	if p.Packed(1) != orig {
		t.Fatalf("expected ResetDefaults to restore original packed value")
	}
}
