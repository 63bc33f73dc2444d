package rfb

import (
	"testing"

	"rfbterm/pkg/dirty"
	"rfbterm/pkg/fbuf"
)

func TestClipRectClampsToFramebuffer(t *testing.T) {
	x, y, w, h := -2, -3, 10, 10
	clipRect(&x, &y, &w, &h, 6, 6)
	if x != 0 || y != 0 || w != 6 || h != 6 {
		t.Fatalf("clipRect = (%d,%d,%d,%d), want (0,0,6,6)", x, y, w, h)
	}
}

func TestClipRectNegativeResultClampsToZero(t *testing.T) {
	x, y, w, h := 20, 20, 4, 4
	clipRect(&x, &y, &w, &h, 8, 8)
	if w != 0 || h != 0 {
		t.Fatalf("clipRect out-of-bounds rect = w=%d h=%d, want both 0", w, h)
	}
}

func TestEncodeRawZeroCopyMatchesRawRect(t *testing.T) {
	fb := fbuf.New(8, 8, 32)
	fb.FillRect(0, 0, 8, 8, 1)
	pf := serverPixelFormat(32)
	got := encodeRaw(nil, fb, pf, true, 0, 0, 8, 8)
	want := fb.RawRect(0, 0, 8, 8)
	if len(got) != len(want) {
		t.Fatalf("zero-copy encodeRaw length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %02X, want %02X", i, got[i], want[i])
		}
	}
}

func TestEncodeRawRepackProducesRequestedBPP(t *testing.T) {
	fb := fbuf.New(4, 4, 32)
	fb.FillRect(0, 0, 4, 4, 2)
	pf := serverPixelFormat(16)
	got := encodeRaw(nil, fb, pf, false, 0, 0, 4, 4)
	wantLen := 4 * 4 * int(pf.BPP) / 8
	if len(got) != wantLen {
		t.Fatalf("repacked encodeRaw length = %d, want %d", len(got), wantLen)
	}
}

func TestTileIsFlatDetectsUniformTile(t *testing.T) {
	fb := fbuf.New(16, 16, 32)
	fb.FillRect(0, 0, 16, 16, 3)
	flat, _, _, _ := tileIsFlat(fb, 0, 0, 16, 16)
	if !flat {
		t.Fatalf("expected uniformly-filled tile to be flat")
	}
}

func TestTileIsFlatDetectsMixedTile(t *testing.T) {
	fb := fbuf.New(16, 16, 32)
	fb.FillRect(0, 0, 16, 16, 3)
	fb.FillRect(0, 0, 1, 1, 7)
	flat, _, _, _ := tileIsFlat(fb, 0, 0, 16, 16)
	if flat {
		t.Fatalf("expected tile with a differing pixel to be non-flat")
	}
}

func TestEncodeHextileFlatTileEmitsBackgroundSpecOnly(t *testing.T) {
	fb := fbuf.New(16, 16, 32)
	fb.FillRect(0, 0, 16, 16, 4)
	pf := serverPixelFormat(32)
	buf := encodeHextile(nil, fb, pf, true, 0, 0, 16, 16)
	bpp := int(pf.BPP) / 8
	if len(buf) != 1+bpp {
		t.Fatalf("flat single-tile hextile payload length = %d, want %d", len(buf), 1+bpp)
	}
	if buf[0] != hextileBackgroundSpec {
		t.Fatalf("flags byte = %02X, want hextileBackgroundSpec", buf[0])
	}
}

func TestEncodeHextileMixedTileFallsBackToRaw(t *testing.T) {
	fb := fbuf.New(16, 16, 32)
	fb.FillRect(0, 0, 16, 16, 4)
	fb.FillRect(0, 0, 1, 1, 9)
	pf := serverPixelFormat(32)
	buf := encodeHextile(nil, fb, pf, true, 0, 0, 16, 16)
	if buf[0] != hextileRaw {
		t.Fatalf("flags byte = %02X, want hextileRaw", buf[0])
	}
	bpp := int(pf.BPP) / 8
	wantLen := 1 + 16*16*bpp
	if len(buf) != wantLen {
		t.Fatalf("raw-fallback hextile payload length = %d, want %d", len(buf), wantLen)
	}
}

func TestEncodeHextileMultiTileSubdivision(t *testing.T) {
	fb := fbuf.New(32, 16, 32)
	fb.FillRect(0, 0, 32, 16, 2)
	pf := serverPixelFormat(32)
	buf := encodeHextile(nil, fb, pf, true, 0, 0, 32, 16)
	bpp := int(pf.BPP) / 8
	// Two 16x16 tiles, both flat and the same colour: the first specifies
	// its background explicitly, the second reuses it with a bare flags
	// byte.
	wantLen := (1 + bpp) + 1
	if len(buf) != wantLen {
		t.Fatalf("two-tile hextile payload length = %d, want %d", len(buf), wantLen)
	}
	if buf[0] != hextileBackgroundSpec {
		t.Fatalf("first tile flags byte = %02X, want hextileBackgroundSpec", buf[0])
	}
	if buf[1+bpp] != 0 {
		t.Fatalf("second tile flags byte = %02X, want 0 (background reused)", buf[1+bpp])
	}
}

func TestEncodeHextileBackgroundReuseAcrossMatchingTiles(t *testing.T) {
	fb := fbuf.New(32, 16, 32)
	fb.FillRect(0, 0, 32, 16, 5)
	pf := serverPixelFormat(32)
	bpp := int(pf.BPP) / 8
	buf := encodeHextile(nil, fb, pf, true, 0, 0, 32, 16)
	wantLen := (1 + bpp) + 1
	if len(buf) != wantLen {
		t.Fatalf("same-colour two-tile payload length = %d, want %d", len(buf), wantLen)
	}
}

func TestEncodeRectDesktopResizeEmitsZeroPayloadPseudoRect(t *testing.T) {
	fb := fbuf.New(640, 480, 32)
	s := &Server{FB: fb}
	c := &Client{pf: serverPixelFormat(32), zeroCopy: true}
	buf := s.encodeRect(c, nil, dirty.Rect{W: 640, H: 480, IsResize: true})
	if len(buf) != 12 {
		t.Fatalf("DesktopSize rect length = %d, want 12 (header only)", len(buf))
	}
	encoding := getS32(buf[8:12])
	if encoding != encodingDesktopResize {
		t.Fatalf("encoding = %d, want %d", encoding, encodingDesktopResize)
	}
	w, h := getU16(buf[4:6]), getU16(buf[6:8])
	if w != 640 || h != 480 {
		t.Fatalf("DesktopSize w,h = %d,%d, want 640,480", w, h)
	}
}

func TestEncodeRectCopyRectEmitsSourceCoordinates(t *testing.T) {
	fb := fbuf.New(640, 480, 32)
	s := &Server{FB: fb}
	c := &Client{pf: serverPixelFormat(32), zeroCopy: true}
	buf := s.encodeRect(c, nil, dirty.Rect{X: 10, Y: 20, W: 5, H: 6, SrcX: 1, SrcY: 2, IsCopy: true})
	if len(buf) != 16 {
		t.Fatalf("CopyRect length = %d, want 16 (header + src coords)", len(buf))
	}
	encoding := getS32(buf[8:12])
	if encoding != encodingCopyRect {
		t.Fatalf("encoding = %d, want %d", encoding, encodingCopyRect)
	}
	srcX, srcY := getU16(buf[12:14]), getU16(buf[14:16])
	if srcX != 1 || srcY != 2 {
		t.Fatalf("CopyRect src = %d,%d, want 1,2", srcX, srcY)
	}
}

func TestEncodeHextileBackgroundChangeEmitsFullSpecEachTime(t *testing.T) {
	fb := fbuf.New(32, 16, 32)
	fb.FillRect(0, 0, 16, 16, 5)
	fb.FillRect(16, 0, 16, 16, 6)
	pf := serverPixelFormat(32)
	bpp := int(pf.BPP) / 8
	buf := encodeHextile(nil, fb, pf, true, 0, 0, 32, 16)
	wantLen := 2 * (1 + bpp)
	if len(buf) != wantLen {
		t.Fatalf("differing-colour two-tile payload length = %d, want %d", len(buf), wantLen)
	}
	if buf[0] != hextileBackgroundSpec || buf[1+bpp] != hextileBackgroundSpec {
		t.Fatalf("both tiles should specify background explicitly when colour changes")
	}
}
