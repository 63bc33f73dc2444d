package keymap

import (
	"bytes"
	"testing"
)

func TestArrowBytesCursorVsApplicationMode(t *testing.T) {
	cases := []struct {
		name          string
		keysym        uint32
		cursorkeyMode bool
		want          []byte
	}{
		{"up cursor mode", KeyUp, false, []byte{0x1B, '[', 'A'}},
		{"up application mode", KeyUp, true, []byte{0x1B, 'O', 'A'}},
		{"left cursor mode", KeyLeft, false, []byte{0x1B, '[', 'D'}},
		{"not an arrow", KeyF1, false, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ArrowBytes(c.keysym, c.cursorkeyMode)
			if !bytes.Equal(got, c.want) {
				t.Errorf("ArrowBytes(%#x, %v) = %q, want %q", c.keysym, c.cursorkeyMode, got, c.want)
			}
		})
	}
}

func TestFunctionKeyBytesKnownAndUnknown(t *testing.T) {
	if got := FunctionKeyBytes(KeyF1); !bytes.Equal(got, []byte("\x1b[[A")) {
		t.Errorf("FunctionKeyBytes(KeyF1) = %q", got)
	}
	if got := FunctionKeyBytes(KeyF10); !bytes.Equal(got, []byte("\x1b[21~")) {
		t.Errorf("FunctionKeyBytes(KeyF10) = %q", got)
	}
	if got := FunctionKeyBytes(KeyUp); got != nil {
		t.Errorf("FunctionKeyBytes(KeyUp) = %q, want nil", got)
	}
}

func TestInsertToggleBytesAlternates(t *testing.T) {
	if got := InsertToggleBytes(1); !bytes.Equal(got, []byte("\x1b[4h")) {
		t.Errorf("InsertToggleBytes(1) = %q, want ESC[4h", got)
	}
	if got := InsertToggleBytes(2); !bytes.Equal(got, []byte("\x1b[4l")) {
		t.Errorf("InsertToggleBytes(2) = %q, want ESC[4l", got)
	}
	if got := InsertToggleBytes(3); !bytes.Equal(got, []byte("\x1b[4h")) {
		t.Errorf("InsertToggleBytes(3) = %q, want ESC[4h", got)
	}
}

func TestSpecialKeyBytes(t *testing.T) {
	cases := []struct {
		keysym uint32
		want   []byte
	}{
		{KeyDelete, []byte("\x1b[3~")},
		{KeyKPDelete, []byte("\x1b[3~")},
		{KeyHome, []byte("\x1b[1~")},
		{KeyBackSpace, []byte{0x7F}},
		{KeyUp, nil},
	}
	for _, c := range cases {
		if got := SpecialKeyBytes(c.keysym); !bytes.Equal(got, c.want) {
			t.Errorf("SpecialKeyBytes(%#x) = %q, want %q", c.keysym, got, c.want)
		}
	}
}

func TestTranslateCtrlMasksASCII(t *testing.T) {
	got := Translate('C', false, true, false, 0)
	if !bytes.Equal(got, []byte{'C' & 0x1F}) {
		t.Fatalf("Translate ctrl-C = %q, want %q", got, []byte{'C' & 0x1F})
	}
}

func TestTranslateAltPrependsEscape(t *testing.T) {
	got := Translate('x', false, false, true, 0)
	if !bytes.Equal(got, []byte{0x1B, 'x'}) {
		t.Fatalf("Translate alt-x = %q, want ESC x", got)
	}
}

func TestTranslateInsertTogglesOnPressCount(t *testing.T) {
	got := Translate(KeyInsert, false, false, false, 1)
	if !bytes.Equal(got, []byte("\x1b[4h")) {
		t.Fatalf("Translate(KeyInsert, press 1) = %q", got)
	}
	got = Translate(KeyKPInsert, false, false, false, 2)
	if !bytes.Equal(got, []byte("\x1b[4l")) {
		t.Fatalf("Translate(KeyKPInsert, press 2) = %q", got)
	}
}

func TestTranslateUnsupportedHighKeysymReturnsNil(t *testing.T) {
	if got := Translate(0xFFFFEE, false, false, false, 0); got != nil {
		t.Fatalf("Translate(unsupported) = %q, want nil", got)
	}
}
