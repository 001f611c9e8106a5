package beep

import "testing"

func TestTickDecays(t *testing.T) {
	s := Tick(8000, 1000, 0.1, 0.5, 60)
	if len(s) != 800 {
		t.Fatalf("len = %d, want 800", len(s))
	}
	peak := func(from, to int) int16 {
		var p int16
		for _, v := range s[from:to] {
			if v < 0 {
				v = -v
			}
			p = max(p, v)
		}
		return p
	}
	head, tail := peak(0, 80), peak(720, 800)
	if head <= tail || head > 32767/2+1 {
		t.Errorf("head peak %d, tail peak %d", head, tail)
	}
}

func TestDoubleTickLayout(t *testing.T) {
	s := DoubleTick(8000, 350, 0.08, 0.05, 0.6, 30)
	if len(s) != 640+400+640 {
		t.Fatalf("len = %d", len(s))
	}
	for i, v := range s[640:1040] {
		if v != 0 {
			t.Fatalf("gap sample %d = %d, want silence", i, v)
		}
	}
}

func TestDisabledByDefault(t *testing.T) {
	if Enabled() {
		t.Fatal("cues enabled before Enable")
	}
	Play(Start) // must be a no-op
	Enable(true)
	if !Enabled() {
		t.Error("Enable(true) did not stick")
	}
	Enable(false)
}
