package astartedevice

import "testing"

func TestBackoff_CapDoublesAndSaturates(t *testing.T) {
	b := NewBackoff(10, 100)
	if b.Cap() != 10 {
		t.Fatalf("initial cap = %d, want 10", b.Cap())
	}

	wantCaps := []int64{20, 40, 80, 100, 100}
	for i, want := range wantCaps {
		b.Next()
		if got := b.Cap(); got != want {
			t.Fatalf("after Next() #%d: cap = %d, want %d", i+1, got, want)
		}
	}
}

func TestBackoff_NextNeverExceedsCap(t *testing.T) {
	b := NewBackoff(5, 5)
	for i := 0; i < 50; i++ {
		d := b.Next()
		if d < 0 || d.Milliseconds() > 5 {
			t.Fatalf("delay %v exceeds cap", d)
		}
	}
}

func TestBackoff_ResetReturnsToInitial(t *testing.T) {
	b := NewBackoff(10, 1000)
	b.Next()
	b.Next()
	if b.Cap() == 10 {
		t.Fatal("expected cap to have grown")
	}
	b.Reset()
	if b.Cap() != 10 {
		t.Fatalf("Cap after Reset = %d, want 10", b.Cap())
	}
}

func TestBackoff_ClampsDegenerateBounds(t *testing.T) {
	b := NewBackoff(0, 0)
	if b.Cap() != 1 {
		t.Fatalf("initial cap = %d, want 1 after clamping", b.Cap())
	}
}
