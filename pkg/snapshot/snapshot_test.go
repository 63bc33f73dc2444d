package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"rfbterm/pkg/cellbuf"
	"rfbterm/pkg/fbuf"
	"rfbterm/pkg/term"
)

func newTestTerminal(width, height int) *term.Terminal {
	buf := cellbuf.New(width, height, height*4, cellbuf.TextAttr{Fg: 7, Bg: 0})
	fb := fbuf.New(width*fbuf.FontWidth, height*fbuf.FontHeight, 32)
	return term.New(buf, fb, term.Capabilities{})
}

func TestWriteNowThenLoadRoundTrip(t *testing.T) {
	src := newTestTerminal(80, 24)
	src.Write([]byte("hello snapshot"))

	dir := t.TempDir()
	path := filepath.Join(dir, "term.snap")

	w := NewWriter(src, path)
	if err := w.WriteNow(); err != nil {
		t.Fatalf("WriteNow: %v", err)
	}

	dst := newTestTerminal(80, 24)
	if err := Load(dst, path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	x1, y1 := src.Cursor()
	x2, y2 := dst.Cursor()
	if x1 != x2 || y1 != y2 {
		t.Errorf("cursor after reload = (%d,%d), want (%d,%d)", x2, y2, x1, y1)
	}
}

func TestScheduleWriteDebouncesThenCloseFlushes(t *testing.T) {
	src := newTestTerminal(40, 10)
	dir := t.TempDir()
	path := filepath.Join(dir, "term.snap")

	w := NewWriter(src, path)
	w.ScheduleWrite()
	w.ScheduleWrite()
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected snapshot file to exist after Close, got: %v", err)
	}
}

func TestWriteNowLeavesNoTempFiles(t *testing.T) {
	src := newTestTerminal(20, 5)
	dir := t.TempDir()
	path := filepath.Join(dir, "term.snap")

	w := NewWriter(src, path)
	if err := w.WriteNow(); err != nil {
		t.Fatalf("WriteNow: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one file in snapshot dir, got %d", len(entries))
	}
}
