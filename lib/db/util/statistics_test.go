package util

import (
	"math"
	"testing"
)

func TestNewStats(t *testing.T) {
	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Mean != 5 || s.Min != 2 || s.Max != 9 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if math.Abs(s.StdDeviation-2) > 1e-9 {
		t.Fatalf("std deviation = %f, want 2", s.StdDeviation)
	}
	if (NewStats(nil) != Stats{}) {
		t.Fatal("stats of no values must be zero")
	}
}

func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()
	if h.MedianEstimate() != 0 {
		t.Fatal("empty histogram must estimate 0")
	}

	for _, size := range []int{10, 12, 14, 40, 100000} {
		h.AddSample(size)
	}

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"average", h.AverageSize(), (10 + 12 + 14 + 40 + 100000) / 5},
		{"median in (8,16]", h.MedianEstimate(), 12},
		{"p80 in (32,64]", h.GetPercentileEstimate(80), 48},
		{"p100 beyond last bucket", h.GetPercentileEstimate(100), 65536 * 2},
		{"invalid percentile", h.GetPercentileEstimate(101), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("got %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestHashStringStable(t *testing.T) {
	if HashString("node-1", 0) != HashString("node-1", 0) {
		t.Fatal("hash must be deterministic")
	}
	if HashString("node-1", 0) == HashString("node-2", 0) {
		t.Fatal("different names should not collide")
	}
	if HashString("node-1", 0) == HashString("node-1", 1) {
		t.Fatal("seed must change the hash")
	}
}
