package rates

import "testing"

func TestAllow(t *testing.T) {
	var w Window
	for i := 0; i < 3; i++ {
		if ok, _ := w.Take(10, 5, 3); !ok {
			t.Fatalf("event %d rejected", i)
		}
	}
	ok, cd := w.Take(12, 5, 3)
	if ok || cd != 3 {
		t.Fatalf("4th event ok=%v cooldown=%d, want false 3", ok, cd)
	}
	if ok, _ := w.Take(15, 5, 3); !ok {
		t.Fatal("event after window rejected")
	}
	if w.Start != 15 || w.Count != 1 {
		t.Fatalf("window = %+v", w)
	}
}

func TestAllowDisabled(t *testing.T) {
	for _, tc := range []struct {
		window uint64
		max    int
	}{{0, 3}, {5, 0}} {
		_, n, ok, _ := Allow(1, 0, 100, tc.window, tc.max)
		if !ok || n != 100 {
			t.Fatalf("window=%d max=%d: ok=%v n=%d", tc.window, tc.max, ok, n)
		}
	}
}

func TestAllowTickRewind(t *testing.T) {
	// A world restored from an older snapshot restarts at a lower tick.
	start, n, ok, _ := Allow(3, 50, 9, 10, 2)
	if !ok || start != 3 || n != 1 {
		t.Fatalf("got start=%d n=%d ok=%v", start, n, ok)
	}
}
