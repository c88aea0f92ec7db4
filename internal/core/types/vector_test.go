package types

import (
	"math"
	"testing"
)

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestWorldVectorFloor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   WorldVector
		want VectorInt
	}{
		{Vec(0.5, 0.5), VectorInt{0, 0}},
		{Vec(-0.5, 1.99), VectorInt{-1, 1}},
		{Vec(-2, 3), VectorInt{-2, 3}},
	}
	for _, tt := range tests {
		if got := tt.in.Floor(); got != tt.want {
			t.Errorf("%v.Floor() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWorldVectorNormalize(t *testing.T) {
	t.Parallel()

	n := Vec(3, 4).Normalize()
	if !almostEqual(n.X, 0.6) || !almostEqual(n.Y, 0.8) {
		t.Errorf("Normalize = %v", n)
	}
	if z := (WorldVector{}).Normalize(); !z.IsZero() {
		t.Errorf("zero vector normalized to %v", z)
	}
}

func TestLerpClamps(t *testing.T) {
	t.Parallel()

	a, b := Vec(0, 0), Vec(10, -10)
	if got := Lerp(a, b, 0.25); !almostEqual(got.X, 2.5) || !almostEqual(got.Y, -2.5) {
		t.Errorf("Lerp 0.25 = %v", got)
	}
	if got := Lerp(a, b, 3); got != b {
		t.Errorf("Lerp past end = %v, want %v", got, b)
	}
	if got := Lerp(a, b, -1); got != a {
		t.Errorf("Lerp before start = %v, want %v", got, a)
	}
}

func TestChebyshev(t *testing.T) {
	t.Parallel()

	if d := (VectorInt{0, 0}).Chebyshev(VectorInt{3, -5}); d != 5 {
		t.Errorf("Chebyshev = %d, want 5", d)
	}
}

func TestGameTimer(t *testing.T) {
	t.Parallel()

	timer := NewGameTimer(0.3)
	if timer.IsTimeElapsed() {
		t.Fatal("fresh timer should not be elapsed")
	}
	for i := 0; i < 10; i++ {
		timer.UpdateAsCooldown(FixedDelta)
	}
	if !timer.IsTimeElapsed() {
		t.Errorf("timer not elapsed after %.3fs", timer.Elapsed())
	}
	timer.Reset()
	if timer.IsTimeElapsed() {
		t.Error("timer elapsed right after reset")
	}
	timer.Expire()
	if !timer.IsTimeElapsed() {
		t.Error("Expire should elapse the timer")
	}
}

func TestHeadingRoundTrip(t *testing.T) {
	t.Parallel()

	for _, dir := range []WorldVector{Vec(0, 1), Vec(1, 0), Vec(-1, 0), Vec(0.6, -0.8)} {
		got := Heading(RotationOf(dir))
		if got.Distance(dir) > 1e-5 {
			t.Errorf("Heading(RotationOf(%v)) = %v", dir, got)
		}
	}
	if h := Heading(0); h.Distance(Vec(0, 1)) > 1e-6 {
		t.Errorf("Heading(0) = %v, want +y", h)
	}
}
