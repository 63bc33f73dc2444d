package dirty

import "testing"

func TestMarkThenDrainClearsRows(t *testing.T) {
	tr := New(800, 10)
	tr.Mark(0, 0, 80, 1)
	rects := tr.Drain()
	if len(rects) == 0 {
		t.Fatalf("expected at least one dirty rect")
	}
	if !tr.AllClean() {
		t.Fatalf("expected AllClean after drain with no new dirties")
	}
}

func TestDrainMergesVerticalRuns(t *testing.T) {
	tr := New(64, 5)
	tr.Mark(0, 0, 1, 3) // rows 0,1,2 set in block 0
	rects := tr.Drain()
	found := false
	for _, r := range rects {
		if r.Y == 0 && r.H == 3 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a single merged 3-row rect, got %+v", rects)
	}
}

func TestQueueDrainedAfterBitmap(t *testing.T) {
	tr := New(64, 2)
	tr.Mark(0, 0, 1, 1)
	tr.MarkQueue(Rect{X: 1, Y: 1, W: 2, H: 2})
	rects := tr.Drain()
	if len(rects) != 2 {
		t.Fatalf("expected 2 rects, got %d", len(rects))
	}
	if rects[len(rects)-1].X != 1 {
		t.Fatalf("expected queue rect last, got %+v", rects[len(rects)-1])
	}
}

func TestMarkCopyQueuesCopyRect(t *testing.T) {
	tr := New(64, 8)
	tr.MarkCopy(2, 3, 10, 12, 5, 6)
	rects := tr.Drain()
	if len(rects) != 1 {
		t.Fatalf("expected 1 rect, got %d", len(rects))
	}
	r := rects[0]
	if !r.IsCopy {
		t.Fatalf("expected IsCopy = true, got %+v", r)
	}
	if r.SrcX != 2 || r.SrcY != 3 || r.X != 10 || r.Y != 12 || r.W != 5 || r.H != 6 {
		t.Fatalf("unexpected copy rect fields: %+v", r)
	}
}

func TestShiftForNarrowScreen(t *testing.T) {
	if shiftFor(64) != 0 {
		t.Fatalf("shiftFor(64) = %d, want 0", shiftFor(64))
	}
	if shiftFor(128) != 1 {
		t.Fatalf("shiftFor(128) = %d, want 1", shiftFor(128))
	}
}
