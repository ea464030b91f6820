package colreg

import (
	"testing"
	"time"

	"github.com/asgard/vessel-autopilot/internal/ais"
	"github.com/asgard/vessel-autopilot/internal/config"
	"github.com/asgard/vessel-autopilot/internal/marinemath"
)

func TestEvaluateIgnoresTargetsOutsideCheckRadius(t *testing.T) {
	e := NewEngine(config.Default())
	now := time.Now()

	ownPos := marinemath.Coordinates{Latitude: 0, Longitude: 0}
	wpt := marinemath.Shift(ownPos, 5000, 0)
	speed := 5.0

	far := ais.Fix{MMSI: 1, FixTS: now, Latitude: 1.0, Longitude: 1.0, CourseOverGround: 180, SpeedOverGround: 4}

	overridden := e.Evaluate(now, ownPos, 0, speed, []ais.Fix{far}, &wpt, &speed)
	if overridden {
		t.Fatalf("expected no override for a target far outside the check radius")
	}
}

func TestEvaluateOvertakingSlowsToMatchTarget(t *testing.T) {
	e := NewEngine(config.Default())
	now := time.Now()

	ownPos := marinemath.Coordinates{Latitude: 0, Longitude: 0}
	// target ahead, same heading, slower: own ship is overtaking.
	target := marinemath.Shift(ownPos, 120, 0)
	wpt := marinemath.Shift(ownPos, 5000, 0)
	speed := 6.0

	fix := ais.Fix{
		MMSI: 7, FixTS: now,
		Latitude: target.Latitude, Longitude: target.Longitude,
		CourseOverGround: 0, SpeedOverGround: 2,
	}

	overridden := e.Evaluate(now, ownPos, 0, speed, []ais.Fix{fix}, &wpt, &speed)
	if !overridden {
		t.Fatalf("expected an overtaking override to apply")
	}
	if speed > 2*0.8+1e-9 {
		t.Fatalf("expected overtaking to cap own speed near target speed, got %f", speed)
	}
	if !e.ReportAvailable() {
		t.Fatalf("expected a status report to be due on first evaluation")
	}
	status := e.Report()
	if status.Type != SituationOvertaking {
		t.Fatalf("expected SituationOvertaking, got %v", status.Type)
	}
}

func TestEvaluateHeadToHeadDivertsWaypoint(t *testing.T) {
	e := NewEngine(config.Default())
	now := time.Now()

	ownPos := marinemath.Coordinates{Latitude: 0, Longitude: 0}
	target := marinemath.Shift(ownPos, 150, 0)
	wpt := marinemath.Shift(ownPos, 5000, 0)
	originalWpt := wpt
	speed := 5.0

	fix := ais.Fix{
		MMSI: 9, FixTS: now,
		Latitude: target.Latitude, Longitude: target.Longitude,
		CourseOverGround: 180, SpeedOverGround: 5,
	}

	overridden := e.Evaluate(now, ownPos, 0, speed, []ais.Fix{fix}, &wpt, &speed)
	if !overridden {
		t.Fatalf("expected a head-to-head override to apply")
	}
	if wpt == originalWpt {
		t.Fatalf("expected the waypoint override to diverge from the original route waypoint")
	}
}
