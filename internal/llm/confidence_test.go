package llm

import "testing"

func TestConfidenceMonotonicInPassageCount(t *testing.T) {
	prev := -1.0
	for n := 0; n <= 10; n++ {
		c := Confidence(n, 1.0, false)
		if c < prev {
			t.Fatalf("confidence dropped from %v to %v at %d passages", prev, c, n)
		}
		prev = c
	}
}

func TestConfidenceMonotonicInScore(t *testing.T) {
	prev := -1.0
	for s := -3.0; s <= 4.0; s += 0.25 {
		c := Confidence(3, s, false)
		if c < prev {
			t.Fatalf("confidence dropped from %v to %v at avg score %v", prev, c, s)
		}
		prev = c
	}
}

func TestConfidenceBounds(t *testing.T) {
	cases := []struct {
		n        int
		avgScore float64
		fellBack bool
	}{
		{0, 0, false},
		{0, 0, true},
		{-1, -100, true},
		{100, 100, false},
		{5, 3.5, false},
	}
	for _, tc := range cases {
		c := Confidence(tc.n, tc.avgScore, tc.fellBack)
		if c < 0 || c > 1 {
			t.Errorf("Confidence(%d, %v, %v) = %v out of [0,1]", tc.n, tc.avgScore, tc.fellBack, c)
		}
	}
}

func TestConfidenceZeroPassageFloor(t *testing.T) {
	// Ungrounded answers carry a fixed low confidence regardless of score.
	if got := Confidence(0, 3.5, false); got != 0.15 {
		t.Fatalf("zero-passage confidence = %v, want 0.15", got)
	}
	grounded := Confidence(3, 1.0, false)
	if grounded <= 0.15 {
		t.Fatalf("grounded confidence %v not above ungrounded floor", grounded)
	}
}

func TestConfidenceFallbackPenalty(t *testing.T) {
	direct := Confidence(4, 1.5, false)
	fell := Confidence(4, 1.5, true)
	if fell >= direct {
		t.Fatalf("fallback confidence %v not below direct %v", fell, direct)
	}
}
