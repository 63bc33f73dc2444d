package rfb

import (
	"testing"

	"rfbterm/pkg/cellbuf"
	"rfbterm/pkg/fbuf"
	"rfbterm/pkg/keymap"
	"rfbterm/pkg/term"
)

func newTestServer() (*Server, *Client) {
	buf := cellbuf.New(10, 4, 4, cellbuf.TextAttr{})
	fb := fbuf.New(10*fbuf.FontWidth, 4*fbuf.FontHeight, 32)
	t := term.New(buf, fb, term.Capabilities{})
	s := NewServer("test", t, fb, "")
	c := newClient(nil, fb.Width, fb.Height)
	return s, c
}

func TestOnKeyEventTracksCtrlDownUp(t *testing.T) {
	s, c := newTestServer()
	s.onKeyEvent(c, true, keymap.KeyControlL)
	if !c.ctrlDown {
		t.Fatalf("expected ctrlDown = true after Control_L press")
	}
	s.onKeyEvent(c, false, keymap.KeyControlL)
	if c.ctrlDown {
		t.Fatalf("expected ctrlDown = false after Control_L release")
	}
}

func TestOnKeyEventAppliesCtrlMaskToASCII(t *testing.T) {
	s, c := newTestServer()
	var got []byte
	s.Term.Cap.HostWrite = func(b []byte) { got = b }

	s.onKeyEvent(c, true, keymap.KeyControlL)
	s.onKeyEvent(c, true, uint32('C'))

	if len(got) != 1 || got[0] != ('C' & 0x1F) {
		t.Fatalf("Ctrl-C translation = %v, want [%d]", got, 'C'&0x1F)
	}
}

func TestOnKeyEventNumLockTogglesAndSyncs(t *testing.T) {
	s, c := newTestServer()
	s.hostNumLock = true
	s.onKeyEvent(c, true, keymap.KeyNumLock)
	if !c.clientNumLock {
		t.Fatalf("expected clientNumLock synced to host after toggle")
	}
}
