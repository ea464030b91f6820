package mission

import (
	"testing"
	"time"

	"github.com/asgard/vessel-autopilot/internal/autopilot"
	"github.com/asgard/vessel-autopilot/internal/colreg"
	"github.com/asgard/vessel-autopilot/internal/config"
	"github.com/asgard/vessel-autopilot/internal/marinemath"
	"github.com/asgard/vessel-autopilot/internal/position"
)

func newTestRig() (*Controller, *autopilot.Controller) {
	cfg := config.Default()
	ap := autopilot.New(cfg, position.New(), colreg.NewEngine(cfg))
	return New(cfg, ap), ap
}

func TestMixedMissionAdvancesThroughRouteThenEmergencyStop(t *testing.T) {
	m, ap := newTestRig()
	now := time.Now()

	wptA := marinemath.Coordinates{Latitude: 0, Longitude: 0}
	ap.StoreRoute(autopilot.Route{ID: 1, PlannedSpeed: 3, Waypoints: []autopilot.Waypoint{{Name: "A", Coords: wptA}}})

	m.SetMission(Mission{
		ID:   1,
		Name: "mixed",
		Items: []Item{
			{UntilCompletion: true, Timeout: -1, Action: ItemAction{Kind: ActionActivateRoute, RouteID: 1}},
			{UntilCompletion: false, Timeout: 5 * time.Second, Action: ItemAction{Kind: ActionApCommand, AutopilotCmd: autopilot.CmdEmergencyStop}},
		},
	})
	m.UpdateState(now, CmdStart)

	if m.Status() != Enabled {
		t.Fatalf("expected Enabled, got %v", m.Status())
	}
	if ap.State() != autopilot.RouteEnabled {
		t.Fatalf("expected route item to start the autopilot's RouteEnabled state, got %v", ap.State())
	}

	// Ship already sits on top of the single waypoint: the very first
	// Execute() call should report action_completed and disable the route.
	sensor := autopilot.SensorReport{
		Heading: 0, COG: 0, SOG: 0, AxialSpeed: 0,
		DepthUnderKeel: 50, ShipDepth: 0, Buoyancy: 1.0,
		GNSS1: position.GNSSFix{Latitude: 0, Longitude: 0},
		GNSS2: position.GNSSFix{Latitude: 0, Longitude: 0},
		GNSS3: position.GNSSFix{Latitude: 0, Longitude: 0},
	}

	ap.Execute(now, sensor, nil) // prime: first tick only latches the sensor

	now = now.Add(250 * time.Millisecond)
	ap.Execute(now, sensor, nil)
	m.Run(now)

	if ap.State() != autopilot.EmergencyStop {
		t.Fatalf("expected item2 to drive the autopilot into EmergencyStop, got %v", ap.State())
	}
	if m.Status() != Enabled {
		t.Fatalf("expected mission still Enabled while item2's timeout has not elapsed, got %v", m.Status())
	}

	now = now.Add(6 * time.Second)
	ap.Execute(now, sensor, nil)
	m.Run(now)

	if m.Status() != Disabled {
		t.Fatalf("expected mission to stop after item2's 5s timeout elapses, got %v", m.Status())
	}
}

func TestSuspendResumeShiftsItemTimeoutByPauseDuration(t *testing.T) {
	m, ap := newTestRig()
	_ = ap
	now := time.Now()

	m.SetMission(Mission{
		ID:   2,
		Name: "timeout-only",
		Items: []Item{
			{UntilCompletion: false, Timeout: 10 * time.Second, Action: ItemAction{Kind: ActionApCommand, AutopilotCmd: autopilot.CmdEmergencyStop}},
		},
	})
	m.UpdateState(now, CmdStart)

	now = now.Add(4 * time.Second)
	m.UpdateState(now, CmdSuspend)
	if m.Status() != Suspended {
		t.Fatalf("expected Suspended, got %v", m.Status())
	}

	pauseStart := now
	now = now.Add(20 * time.Second) // paused for 20s
	m.UpdateState(now, CmdResume)
	if m.Status() != Enabled {
		t.Fatalf("expected Enabled after resume, got %v", m.Status())
	}

	pauseDuration := now.Sub(pauseStart)

	// 4s elapsed pre-pause + 5s post-resume = 9s real elapsed, still under
	// the 10s timeout once the pause is excluded.
	now = now.Add(5 * time.Second)
	m.Run(now)
	if m.Status() != Enabled {
		t.Fatalf("expected mission still running before the (pause-shifted) timeout, got %v", m.Status())
	}

	// Push past the shifted timeout: 10s of real work plus the pause.
	now = now.Add(2 * time.Second)
	m.Run(now)
	if m.Status() != Disabled {
		t.Fatalf("expected mission to time out once pause-shifted elapsed reaches 10s, got %v", m.Status())
	}
	_ = pauseDuration
}

func TestSkipStepAdvancesIndex(t *testing.T) {
	m, _ := newTestRig()
	now := time.Now()

	m.SetMission(Mission{
		ID:   3,
		Name: "skip",
		Items: []Item{
			{Timeout: 100 * time.Second, Action: ItemAction{Kind: ActionApCommand, AutopilotCmd: autopilot.CmdEmergencyStop}},
			{Timeout: 100 * time.Second, Action: ItemAction{Kind: ActionApCommand, AutopilotCmd: autopilot.CmdEmergencyStop}},
		},
	})
	m.UpdateState(now, CmdStart)
	m.UpdateState(now, CmdSkipStep)

	rep := m.Report()
	if rep.Progress != 2 {
		t.Fatalf("expected progress 2 after one skip, got %d", rep.Progress)
	}

	m.UpdateState(now, CmdSkipStep)
	if m.Status() != Disabled {
		t.Fatalf("expected mission to stop after skipping past the last item, got %v", m.Status())
	}
}
