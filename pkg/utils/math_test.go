package utils

import "testing"

func TestCosineDistance(t *testing.T) {
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0}); d > 1e-9 {
		t.Errorf("identical vectors should have distance 0, got %v", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{0, 1}); d != 1 {
		t.Errorf("orthogonal vectors should have distance 1, got %v", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0, 0}); d != 1 {
		t.Errorf("mismatched lengths should yield max distance, got %v", d)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if v[0] != 0.6 || v[1] != 0.8 {
		t.Errorf("got %v", v)
	}
	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector should be unchanged")
	}
}
