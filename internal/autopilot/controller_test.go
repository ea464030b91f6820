package autopilot

import (
	"testing"
	"time"

	"github.com/asgard/vessel-autopilot/internal/ais"
	"github.com/asgard/vessel-autopilot/internal/colreg"
	"github.com/asgard/vessel-autopilot/internal/config"
	"github.com/asgard/vessel-autopilot/internal/marinemath"
	"github.com/asgard/vessel-autopilot/internal/position"
)

func newTestController() *Controller {
	cfg := config.Default()
	return New(cfg, position.New(), colreg.NewEngine(cfg))
}

func baseSensor(now time.Time, lat, lon, cog, sog float64) SensorReport {
	fix := position.GNSSFix{Latitude: lat, Longitude: lon}
	return SensorReport{
		Heading: cog, COG: cog, SOG: sog, AxialSpeed: sog,
		DepthUnderKeel: 50, ShipDepth: 0, Buoyancy: 1.0,
		GNSS1: fix, GNSS2: fix, GNSS3: fix,
		Now: now,
	}
}

func TestRouteCompletesAndDisables(t *testing.T) {
	c := newTestController()
	start := time.Now()

	wptA := marinemath.Coordinates{Latitude: 0, Longitude: 0}
	wptB := marinemath.Shift(wptA, 0, 200)

	if err := c.StoreRoute(Route{ID: 1, Name: "two-point", PlannedSpeed: 3, Waypoints: []Waypoint{
		{Name: "A", Coords: wptA}, {Name: "B", Coords: wptB},
	}}); err != nil {
		t.Fatalf("unexpected error storing route: %v", err)
	}
	if !c.ActivateRoute(1) {
		t.Fatalf("expected route 1 to activate")
	}
	c.UpdateState(CmdRouteStart)
	if c.State() != RouteEnabled {
		t.Fatalf("expected RouteEnabled, got %v", c.State())
	}

	now := start
	c.Execute(now, baseSensor(now, wptA.Latitude, wptA.Longitude, 0, 0), nil) // prime: first tick only latches the sensor

	pos := wptA
	completed := false
	for i := 0; i < 500; i++ {
		now = now.Add(250 * time.Millisecond)

		target := wptA
		if c.activeRoute != nil {
			target = c.activeRoute.Waypoints[c.routeIndex].Coords
		}
		bearing := marinemath.RelativeBearing(0, pos, target)
		dist := marinemath.HaversineDistance(pos, target)
		step := 3.0 // meters/tick, well above the 35 m arrival radius over ~100s
		if step > dist {
			step = dist
		}
		latShift, lonShift := marinemath.PolarToCartesian(bearing, step)
		pos = marinemath.Shift(pos, latShift, lonShift)

		sensor := baseSensor(now, pos.Latitude, pos.Longitude, bearing, 1.5)
		_, ok := c.Execute(now, sensor, nil)
		if !ok {
			t.Fatalf("expected Execute to produce output")
		}
		if c.ConsumeActionCompleted() {
			completed = true
			break
		}
	}

	if !completed {
		t.Fatalf("expected route to report action_completed within the time budget")
	}
	if c.State() != Disabled {
		t.Fatalf("expected Disabled after last waypoint, got %v", c.State())
	}
}

func TestActivateRoutePrecomputesLegLengths(t *testing.T) {
	c := newTestController()

	wptA := marinemath.Coordinates{Latitude: 0, Longitude: 0}
	wptB := marinemath.Shift(wptA, 0, 200)
	wptC := marinemath.Shift(wptB, 0, 300)

	if err := c.StoreRoute(Route{ID: 9, Waypoints: []Waypoint{
		{Name: "A", Coords: wptA}, {Name: "B", Coords: wptB}, {Name: "C", Coords: wptC},
	}}); err != nil {
		t.Fatalf("unexpected error storing route: %v", err)
	}
	c.ActivateRoute(9)

	legs := c.LegLengths()
	if len(legs) != 2 {
		t.Fatalf("expected 2 leg lengths for a 3-waypoint route, got %d", len(legs))
	}
	if legs[0] < 190 || legs[0] > 210 {
		t.Fatalf("expected first leg near 200m, got %v", legs[0])
	}
	if legs[1] < 290 || legs[1] > 310 {
		t.Fatalf("expected second leg near 300m, got %v", legs[1])
	}
}

func TestEmergencyStopForcesSurfaceTarget(t *testing.T) {
	c := newTestController()
	now := time.Now()

	c.StoreDiveProcedure(DiveProcedure{ID: 1, Name: "deep", Depth: 20})
	c.ActivateDiveProcedure(1)
	c.UpdateState(CmdDiveStart)
	if c.State() != Diving {
		t.Fatalf("expected Diving, got %v", c.State())
	}

	c.UpdateState(CmdEmergencyStop)
	if c.State() != EmergencyStop {
		t.Fatalf("expected EmergencyStop, got %v", c.State())
	}

	sensor := baseSensor(now, 0, 0, 0, 0)
	sensor.ShipDepth = 15
	sensor.Buoyancy = 0.995

	c.Execute(now, sensor, nil) // prime: first tick only latches the sensor
	cmd, _ := c.Execute(now, sensor, nil)
	if cmd.RudderAngle != 0 || cmd.ThrusterBow != 0 || cmd.ThrusterStern != 0 {
		t.Fatalf("expected zero steering/thrusters in EmergencyStop, got %+v", cmd)
	}
	if c.lastTgtAdjustedDepth != 0 {
		t.Fatalf("expected surface target depth of 0 while EmergencyStop, got %f", c.lastTgtAdjustedDepth)
	}
}

func TestLoiterEntersOnStationOnce(t *testing.T) {
	c := newTestController()
	now := time.Now()

	target := marinemath.Coordinates{Latitude: 0, Longitude: 0}
	c.StoreLoiterPosition(LoiterPosition{ID: 1, Position: Waypoint{Name: "P", Coords: target}, Bearing: 90})
	c.ActivateLoiterPosition(1)
	c.UpdateState(CmdLoiterStart)
	if c.State() != Loitering {
		t.Fatalf("expected Loitering, got %v", c.State())
	}

	near := marinemath.Shift(target, 0, 20) // 20 m east, inside arrival radius
	sensor := baseSensor(now, near.Latitude, near.Longitude, 90, 0.3)

	completions := 0
	for i := 0; i < 10; i++ {
		now = now.Add(250 * time.Millisecond)
		sensor.Now = now
		c.Execute(now, sensor, nil)
		if c.ConsumeActionCompleted() {
			completions++
		}
	}
	if completions != 1 {
		t.Fatalf("expected exactly one action_completed on OnStation entry, got %d", completions)
	}
	if !c.onStation {
		t.Fatalf("expected onStation to be true")
	}
}

func TestRouteStartDroppedWithoutActiveRoute(t *testing.T) {
	c := newTestController()
	c.UpdateState(CmdRouteStart)
	if c.State() != Disabled {
		t.Fatalf("expected RouteStart with no active route to be silently dropped, got %v", c.State())
	}
}

func TestLoiterStopReturnsToRouteSuspended(t *testing.T) {
	c := newTestController()

	wptA := marinemath.Coordinates{Latitude: 0, Longitude: 0}
	c.StoreRoute(Route{ID: 1, PlannedSpeed: 3, Waypoints: []Waypoint{{Name: "A", Coords: wptA}}})
	c.ActivateRoute(1)
	c.UpdateState(CmdRouteStart)
	c.UpdateState(CmdRouteSuspend)
	if c.State() != RouteSuspended {
		t.Fatalf("expected RouteSuspended, got %v", c.State())
	}

	c.StoreLoiterPosition(LoiterPosition{ID: 1, Position: Waypoint{Coords: wptA}, Bearing: 0})
	c.ActivateLoiterPosition(1)
	c.UpdateState(CmdLoiterStart)
	if c.State() != Loitering {
		t.Fatalf("expected Loitering, got %v", c.State())
	}

	c.UpdateState(CmdLoiterStop)
	if c.State() != RouteSuspended {
		t.Fatalf("expected return to RouteSuspended, got %v", c.State())
	}
}

func TestAISFixesIgnoredParameterShape(t *testing.T) {
	// documents that Execute accepts a nil AIS snapshot without panicking.
	c := newTestController()
	now := time.Now()
	sensor := baseSensor(now, 0, 0, 0, 0)
	var fixes []ais.Fix
	c.Execute(now, sensor, fixes) // prime: first tick only latches the sensor
	if _, ok := c.Execute(now, sensor, fixes); !ok {
		t.Fatalf("expected Execute to succeed with no AIS targets")
	}
}
