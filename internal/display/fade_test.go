package display

import (
	"testing"
	"time"
)

func TestFadeBlankReachesOpaque(t *testing.T) {
	f := NewFade(400 * time.Millisecond)

	f.Advance(true, 200*time.Millisecond)
	if f.FullyBlanked() {
		t.Fatal("fully blanked halfway through the transition")
	}
	if a := f.Alpha(); a < 120 || a > 135 {
		t.Errorf("alpha at midpoint = %d, want about 127", a)
	}

	blanked, _ := f.Advance(true, 200*time.Millisecond)
	if !f.FullyBlanked() {
		t.Fatal("not fully blanked after full duration")
	}
	if !blanked {
		t.Error("blanked edge not reported")
	}
}

func TestFadeEdgesAreOneShot(t *testing.T) {
	f := NewFade(400 * time.Millisecond)

	f.Advance(true, time.Second)
	for i := 0; i < 5; i++ {
		if blanked, _ := f.Advance(true, time.Second); blanked {
			t.Fatalf("blanked edge reported again on iteration %d", i)
		}
	}

	_, cleared := f.Advance(false, time.Second)
	if !cleared {
		t.Fatal("cleared edge not reported")
	}
	for i := 0; i < 5; i++ {
		if _, cleared := f.Advance(false, time.Second); cleared {
			t.Fatalf("cleared edge reported again on iteration %d", i)
		}
	}
}

func TestFadeReversalRearmsEdges(t *testing.T) {
	f := NewFade(400 * time.Millisecond)

	f.Advance(true, time.Second) // fully blanked
	f.Advance(false, 100*time.Millisecond)
	if f.FullyBlanked() {
		t.Fatal("still fully blanked after reversing")
	}

	blanked, _ := f.Advance(true, time.Second)
	if !blanked {
		t.Error("blanked edge not re-armed after reversal")
	}
}

func TestFadeSnapsNearExtremes(t *testing.T) {
	f := NewFade(400 * time.Millisecond)

	// 399ms of 400ms leaves alpha at 254.36, which must snap to 255.
	f.Advance(true, 399*time.Millisecond)
	if f.Alpha() != 255 {
		t.Errorf("alpha = %d, want snap to 255", f.Alpha())
	}

	f.Advance(false, 399*time.Millisecond)
	if f.Alpha() != 0 {
		t.Errorf("alpha = %d, want snap to 0", f.Alpha())
	}
}

func TestFadeStartsClear(t *testing.T) {
	f := NewFade(0)
	if f.Alpha() != 0 {
		t.Errorf("initial alpha = %d", f.Alpha())
	}
	if _, cleared := f.Advance(false, time.Second); cleared {
		t.Error("cleared edge reported without a preceding blank")
	}
}
