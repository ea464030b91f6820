package marinemath

import (
	"math"
	"testing"
)

func TestHaversineDistanceSymmetric(t *testing.T) {
	a := Coordinates{Latitude: 51.5, Longitude: -0.12}
	b := Coordinates{Latitude: 48.85, Longitude: 2.35}

	ab := HaversineDistance(a, b)
	ba := HaversineDistance(b, a)

	if math.Abs(ab-ba) > 1e-6 {
		t.Fatalf("distance not symmetric: %f vs %f", ab, ba)
	}
	if ab < 300000 || ab > 400000 {
		t.Fatalf("unexpected London-Paris distance: %f", ab)
	}
}

func TestHaversineDistanceZero(t *testing.T) {
	a := Coordinates{Latitude: 10, Longitude: 20}
	if d := HaversineDistance(a, a); d != 0 {
		t.Fatalf("expected 0 distance for identical points, got %f", d)
	}
}

func TestHaversineTriangleInequality(t *testing.T) {
	a := Coordinates{Latitude: 0, Longitude: 0}
	b := Coordinates{Latitude: 1, Longitude: 1}
	c := Coordinates{Latitude: 2, Longitude: -1}

	ac := HaversineDistance(a, c)
	ab := HaversineDistance(a, b)
	bc := HaversineDistance(b, c)

	if ac > ab+bc+1e-6 {
		t.Fatalf("triangle inequality violated: ac=%f > ab+bc=%f", ac, ab+bc)
	}
}

func TestRelativeBearingSamePoint(t *testing.T) {
	own := Coordinates{Latitude: 10, Longitude: 10}
	heading := 45.0

	got := RelativeBearing(heading, own, own)
	want := math.Mod(360.0-heading, 360.0)

	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("relative_bearing(h, A, A) = %f, want %f", got, want)
	}
}

func TestPolarToCartesianRoundTrip(t *testing.T) {
	x, y := PolarToCartesian(0, 100)
	if math.Abs(x-100) > 1e-6 || math.Abs(y) > 1e-6 {
		t.Fatalf("expected (100, 0), got (%f, %f)", x, y)
	}

	x, y = PolarToCartesian(90, 100)
	if math.Abs(x) > 1e-6 || math.Abs(y-100) > 1e-6 {
		t.Fatalf("expected (0, 100), got (%f, %f)", x, y)
	}
}

func TestShiftLatitudeLongitudeRoundTrip(t *testing.T) {
	origin := Coordinates{Latitude: 40.0, Longitude: -10.0}
	shifted := Shift(origin, 1000, 1000)

	back := HaversineDistance(origin, shifted)
	if back < 1300 || back > 1500 {
		t.Fatalf("expected ~1414m diagonal shift, got %f", back)
	}
}

func TestWrapSigned180(t *testing.T) {
	cases := map[float64]float64{
		0:     0,
		180:   180,
		181:   -179,
		-181:  179,
		360:   0,
		-360:  0,
		270:   -90,
		-270:  90,
	}
	for in, want := range cases {
		got := WrapSigned180(in)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("WrapSigned180(%f) = %f, want %f", in, got, want)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 10) != 5 {
		t.Fatal("clamp should not affect in-range value")
	}
	if Clamp(-5, 0, 10) != 0 {
		t.Fatal("clamp should floor at min")
	}
	if Clamp(15, 0, 10) != 10 {
		t.Fatal("clamp should ceil at max")
	}
}
