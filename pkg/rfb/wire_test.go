package rfb

import "testing"

func TestPutGetU16RoundTrip(t *testing.T) {
	buf := putU16(nil, 0xBEEF)
	if got := getU16(buf); got != 0xBEEF {
		t.Fatalf("got %04X, want BEEF", got)
	}
}

func TestPutGetU32RoundTrip(t *testing.T) {
	buf := putU32(nil, 0xDEADBEEF)
	if got := getU32(buf); got != 0xDEADBEEF {
		t.Fatalf("got %08X, want DEADBEEF", got)
	}
}

func TestPutGetS32RoundTrip(t *testing.T) {
	buf := putS32(nil, -12345)
	if got := getS32(buf); got != -12345 {
		t.Fatalf("got %d, want -12345", got)
	}
}

func TestPixelFormatEncodeDecodeRoundTrip(t *testing.T) {
	pf := serverPixelFormat(32)
	buf := pf.encode()
	if len(buf) != 16 {
		t.Fatalf("encoded pixel format length = %d, want 16", len(buf))
	}
	got := decodePixelFormat(buf)
	if got != pf {
		t.Fatalf("decodePixelFormat(encode(pf)) = %+v, want %+v", got, pf)
	}
}

func TestServerPixelFormatKnownDepths(t *testing.T) {
	cases := []struct {
		depth   int
		wantBPP uint8
	}{
		{8, 8},
		{15, 16},
		{16, 16},
		{32, 32},
	}
	for _, c := range cases {
		pf := serverPixelFormat(c.depth)
		if pf.BPP != c.wantBPP {
			t.Errorf("serverPixelFormat(%d).BPP = %d, want %d", c.depth, pf.BPP, c.wantBPP)
		}
		if !pf.TrueColour {
			t.Errorf("serverPixelFormat(%d): expected TrueColour", c.depth)
		}
	}
}

func TestServerPixelFormatUnknownDepthFallsBackTo32(t *testing.T) {
	pf := serverPixelFormat(99)
	if pf.BPP != 32 || pf.Depth != 32 {
		t.Fatalf("unknown depth fallback = %+v, want 32bpp/32depth", pf)
	}
}
