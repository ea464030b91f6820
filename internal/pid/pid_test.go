package pid

import (
	"math"
	"testing"
	"time"
)

// TestControlFirstCallIgnoresDerivative pins the cold-start convention: the
// very first call to Control has no elapsed time, so integral/derivative
// contribute nothing and the output is pure proportional gain.
func TestControlFirstCallIgnoresDerivative(t *testing.T) {
	c := New(2.0, 0.0, 0.0, -10, 10)
	out := c.Control(0, 5)
	if out != 10 {
		t.Fatalf("expected clamped proportional output 10, got %f", out)
	}
}

// TestAntiWindupBoundsIntegral pins the anti-windup law from spec.md §8: once
// saturated, the integral accumulated at saturation does not keep growing.
func TestAntiWindupBoundsIntegral(t *testing.T) {
	c := New(0.1, 1.0, 0.0, -1, 1)
	c.Control(0, 100) // first call, delta=0, warms up lastTS

	time.Sleep(5 * time.Millisecond)
	out1 := c.Control(0, 100)
	integralAfterFirst := c.integral

	time.Sleep(5 * time.Millisecond)
	out2 := c.Control(0, 100)
	integralAfterSecond := c.integral

	if out1 != 1 || out2 != 1 {
		t.Fatalf("expected saturated output of 1, got %f then %f", out1, out2)
	}
	if math.Abs(integralAfterSecond-integralAfterFirst) > 0.5 {
		t.Fatalf("integral grew unbounded under sustained saturation: %f -> %f",
			integralAfterFirst, integralAfterSecond)
	}
}

func TestAngularErrorWrapsAt180(t *testing.T) {
	a := NewAngular(1.0, 0, 0, -100, 100)
	// measured=350, setpoint=10 -> raw error -340, should wrap to 20.
	out := a.Control(350, 10)
	if math.Abs(out-20) > 1e-9 {
		t.Fatalf("expected wrapped error 20, got %f", out)
	}
}

func TestColdStartResetsIntegralAfterGap(t *testing.T) {
	c := New(0, 1.0, 0, -100, 100)
	c.Control(0, 10)
	time.Sleep(2 * time.Millisecond)
	c.Control(0, 10)
	if c.integral == 0 {
		t.Fatal("expected some integral accumulation before the gap")
	}

	// Simulate a >15s gap by rewinding lastTS.
	c.lastTS = time.Now().Add(-20 * time.Second)
	c.Control(0, 10)
	if c.integral != 0 {
		t.Fatalf("expected integral reset after cold-start timeout, got %f", c.integral)
	}
}
