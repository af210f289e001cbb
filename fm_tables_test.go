// fm_tables_test.go - Tests for the shared lookup tables

package main

import (
	"math"
	"testing"
)

// TestSineTableAccuracy checks the table against math.Sin at every entry.
func TestSineTableAccuracy(t *testing.T) {
	for i := 0; i < SINE_TABLE_SIZE; i += 7 {
		want := math.Sin(2 * math.Pi * float64(i) / float64(SINE_TABLE_SIZE))
		got := float64(sineTable[i])
		if math.Abs(got-want) > 1e-6 {
			t.Fatalf("sineTable[%d]: expected %f, got %f", i, want, got)
		}
	}
}

// TestTableSineInterpolates checks that a fractional index lands between the
// two neighbouring entries.
func TestTableSineInterpolates(t *testing.T) {
	idx := 1000
	mid := tableSine(float32(idx) + 0.5)
	lo := sineTable[idx]
	hi := sineTable[idx+1]
	want := (lo + hi) / 2
	if math.Abs(float64(mid-want)) > 1e-6 {
		t.Errorf("lerp at %d.5: expected %f, got %f", idx, want, mid)
	}
}

// TestTableSineWraps checks lookup outside [0, SINE_TABLE_SIZE).
func TestTableSineWraps(t *testing.T) {
	cases := []float32{
		-1.0,
		float32(SINE_TABLE_SIZE),
		float32(SINE_TABLE_SIZE) * 3.25,
		float32(SINE_TABLE_SIZE) * -2.5,
	}
	for _, idx := range cases {
		got := tableSine(idx)
		if got < -1.0 || got > 1.0 {
			t.Errorf("tableSine(%f) = %f outside [-1, 1]", idx, got)
		}
	}
	// One exact identity: a full table length back is the same sample.
	a := tableSine(123.25)
	b := tableSine(123.25 + SINE_TABLE_SIZE)
	if math.Abs(float64(a-b)) > 1e-5 {
		t.Errorf("wrap identity broken: %f vs %f", a, b)
	}
}

// TestFastTanh checks the lookup against math.Tanh across the LUT range and
// the saturation clamps outside it.
func TestFastTanh(t *testing.T) {
	for x := float32(-4.0); x <= 4.0; x += 0.097 {
		want := math.Tanh(float64(x))
		got := float64(fastTanh(x))
		if math.Abs(got-want) > 1e-3 {
			t.Fatalf("fastTanh(%f): expected %f, got %f", x, want, got)
		}
	}
	if fastTanh(10) != 1.0 {
		t.Errorf("fastTanh(10): expected 1.0, got %f", fastTanh(10))
	}
	if fastTanh(-10) != -1.0 {
		t.Errorf("fastTanh(-10): expected -1.0, got %f", fastTanh(-10))
	}
}

// TestPolyBLEPQuietInMidPhase checks that correction only applies near the
// phase wrap edges.
func TestPolyBLEPQuietInMidPhase(t *testing.T) {
	dt := float32(0.3)
	for _, pos := range []float32{0.35, 0.5, 0.65} {
		if c := polyBLEP32(pos, dt); c != 0 {
			t.Errorf("polyBLEP32(%f, %f): expected 0 away from edges, got %f", pos, dt, c)
		}
	}
	if c := polyBLEP32(0.01, 0.3); c == 0 {
		t.Error("polyBLEP32 leading edge: expected nonzero correction")
	}
	if c := polyBLEP32(0.99, 0.3); c == 0 {
		t.Error("polyBLEP32 trailing edge: expected nonzero correction")
	}
}

// TestRaisedSineFade checks the crossfade curve endpoints and monotonicity.
func TestRaisedSineFade(t *testing.T) {
	if v := raisedSineFade(0); v != 0 {
		t.Errorf("fade(0): expected 0, got %f", v)
	}
	if v := raisedSineFade(1); v != 1 {
		t.Errorf("fade(1): expected 1, got %f", v)
	}
	if v := raisedSineFade(-0.5); v != 0 {
		t.Errorf("fade(-0.5): expected clamp to 0, got %f", v)
	}
	if v := raisedSineFade(1.5); v != 1 {
		t.Errorf("fade(1.5): expected clamp to 1, got %f", v)
	}
	mid := raisedSineFade(0.5)
	if math.Abs(float64(mid)-0.5) > 1e-3 {
		t.Errorf("fade(0.5): expected 0.5, got %f", mid)
	}

	prev := float32(0)
	for i := 1; i <= 100; i++ {
		v := raisedSineFade(float32(i) / 100)
		if v < prev-1e-6 {
			t.Fatalf("fade not monotone at t=%f: %f after %f", float32(i)/100, v, prev)
		}
		prev = v
	}
}

// TestRaisedSineFadeFlatEnds checks the zero-slope property at both ends,
// which is what makes the crossfade click-free.
func TestRaisedSineFadeFlatEnds(t *testing.T) {
	eps := float32(0.01)
	startSlope := raisedSineFade(eps) - raisedSineFade(0)
	midSlope := raisedSineFade(0.5+eps/2) - raisedSineFade(0.5-eps/2)
	endSlope := raisedSineFade(1) - raisedSineFade(1-eps)
	if startSlope > midSlope/4 {
		t.Errorf("start slope %f not flat relative to mid slope %f", startSlope, midSlope)
	}
	if endSlope > midSlope/4 {
		t.Errorf("end slope %f not flat relative to mid slope %f", endSlope, midSlope)
	}
}
