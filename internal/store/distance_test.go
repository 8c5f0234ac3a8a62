package store

import (
	"math"
	"testing"
)

func TestCosineDistanceIdentical(t *testing.T) {
	v := []float32{0.3, 0.4, 0.5}
	if d := CosineDistance(v, v); math.Abs(d) > 1e-6 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
}

func TestCosineDistanceOrthogonalAndOpposite(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if d := CosineDistance(a, b); math.Abs(d-1) > 1e-6 {
		t.Fatalf("orthogonal distance = %v, want 1", d)
	}

	c := []float32{-1, 0}
	if d := CosineDistance(a, c); math.Abs(d-2) > 1e-6 {
		t.Fatalf("opposite distance = %v, want 2", d)
	}
}

func TestCosineDistanceScaleInvariant(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{10, 20, 30}
	if d := CosineDistance(a, b); math.Abs(d) > 1e-5 {
		t.Fatalf("scaled vector distance = %v, want ~0", d)
	}
}

func TestCosineDistanceInvalidInputs(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
	}{
		{"length mismatch", []float32{1, 0}, []float32{1}},
		{"zero vector", []float32{0, 0}, []float32{1, 0}},
		{"both empty", nil, nil},
	}
	for _, tc := range cases {
		if d := CosineDistance(tc.a, tc.b); d != 2.0 {
			t.Errorf("%s: distance = %v, want sentinel 2.0", tc.name, d)
		}
	}
}
