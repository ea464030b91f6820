// Package autopilot implements the second-tier vessel control state machine:
// route following, loiter stationkeeping, diving, depth maintenance and
// emergency stop, driven by PID controllers and overridable by the COLREG
// engine.
package autopilot

import (
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/asgard/vessel-autopilot/internal/ais"
	"github.com/asgard/vessel-autopilot/internal/colreg"
	"github.com/asgard/vessel-autopilot/internal/config"
	"github.com/asgard/vessel-autopilot/internal/marinemath"
	"github.com/asgard/vessel-autopilot/internal/obs"
	"github.com/asgard/vessel-autopilot/internal/pid"
	"github.com/asgard/vessel-autopilot/internal/position"
)

// allStates lists every autopilot state, for resetting the AutopilotState
// gauge's unused labels to 0 on each transition.
var allStates = []string{
	Disabled.String(), RouteEnabled.String(), RouteSuspended.String(),
	Loitering.String(), Diving.String(), EmergencyStop.String(),
}

// ErrEmptyRoute is returned when a route with no waypoints is stored.
var ErrEmptyRoute = errors.New("autopilot: route must have at least one waypoint")

// Gains, hand-tuned against the PID package's delta-multiplied derivative
// convention; do not "fix" the convention without re-tuning these.
const (
	engineKp, engineKi, engineKd = 0.45, 0.08, 0.02
	ballastKp, ballastKi, ballastKd = 0.35, 0.015, 0.05
	thrusterKp, thrusterKi, thrusterKd = 0.02, 0.0008, 0.004
)

// Controller owns the autopilot's state, its stored procedures, and the
// PID loops that drive actuators.
type Controller struct {
	cfg config.Config
	log *logrus.Logger

	colreg    *colreg.Engine
	estimator *position.Estimator

	state     State
	prevState State // state we were in before entering Loitering/Diving

	resetActuators  bool
	actionCompleted bool

	routes          map[int64]Route
	loiterPositions map[int64]LoiterPosition
	diveProcedures  map[int64]DiveProcedure

	activeRoute  *Route
	routeIndex   int
	legLengths   []float64 // great-circle length of each leg, precomputed on activation
	activeLoiter *LoiterPosition
	onStation    bool
	activeDive   *DiveProcedure

	diveWithinToleranceSince time.Time
	diveHasToleranceSince    bool
	lastTgtAdjustedDepth     float64

	enginePID      *pid.Controller
	ballastPID     *pid.Controller
	thrusterAngPID *pid.Angular

	lastSensor  SensorReport
	haveSensor  bool
	lastGNSSEst marinemath.Coordinates

	reportAvailable bool
	lastReportTS    time.Time
}

// New builds a Controller in the Disabled state.
func New(cfg config.Config, estimator *position.Estimator, colregEngine *colreg.Engine) *Controller {
	return &Controller{
		cfg:       cfg,
		log:       logrus.StandardLogger(),
		colreg:    colregEngine,
		estimator: estimator,

		routes:          make(map[int64]Route),
		loiterPositions: make(map[int64]LoiterPosition),
		diveProcedures:  make(map[int64]DiveProcedure),

		enginePID:      pid.New(engineKp, engineKi, engineKd, -1.0, 1.0),
		ballastPID:     pid.New(ballastKp, ballastKi, ballastKd, -1.0, 1.0),
		thrusterAngPID: pid.NewAngular(thrusterKp, thrusterKi, thrusterKd, -1.0, 1.0),
	}
}

// SetLogger overrides the logger used for state-change and execution diagnostics.
func (c *Controller) SetLogger(l *logrus.Logger) {
	c.log = l
	c.enginePID.SetLogger(l)
	c.ballastPID.SetLogger(l)
	c.thrusterAngPID.SetLogger(l)
}

// State returns the current autopilot state.
func (c *Controller) State() State { return c.state }

// LegLengths returns the great-circle length in meters of each leg of the
// currently active route, precomputed on activation.
func (c *Controller) LegLengths() []float64 { return c.legLengths }

// StoreRoute upserts a route by id. A zero-waypoint route is rejected.
func (c *Controller) StoreRoute(r Route) error {
	if len(r.Waypoints) == 0 {
		return ErrEmptyRoute
	}
	c.routes[r.ID] = r
	return nil
}

// StoreLoiterPosition upserts a loiter position by id.
func (c *Controller) StoreLoiterPosition(lp LoiterPosition) { c.loiterPositions[lp.ID] = lp }

// StoreDiveProcedure upserts a dive procedure by id.
func (c *Controller) StoreDiveProcedure(dp DiveProcedure) { c.diveProcedures[dp.ID] = dp }

// ActivateRoute makes the stored route the active one, preserving the
// waypoint index (clamped) if it is already active.
func (c *Controller) ActivateRoute(id int64) bool {
	r, ok := c.routes[id]
	if !ok {
		return false
	}
	if c.activeRoute == nil || c.activeRoute.ID != id {
		c.routeIndex = 0
	} else if c.routeIndex >= len(r.Waypoints) {
		c.routeIndex = len(r.Waypoints) - 1
	}
	c.activeRoute = &r
	c.legLengths = legLengths(r.Waypoints)
	return true
}

// legLengths precomputes the great-circle length of each leg of a route
// (leg i runs from waypoint i to waypoint i+1). Unused for now by any
// steering logic; kept available for a caller that wants to shape throttle
// on short legs.
func legLengths(wpts []Waypoint) []float64 {
	if len(wpts) < 2 {
		return nil
	}
	out := make([]float64, len(wpts)-1)
	for i := range out {
		out[i] = marinemath.HaversineDistance(wpts[i].Coords, wpts[i+1].Coords)
	}
	return out
}

// ActivateLoiterPosition makes the stored loiter position active.
func (c *Controller) ActivateLoiterPosition(id int64) bool {
	lp, ok := c.loiterPositions[id]
	if !ok {
		return false
	}
	c.activeLoiter = &lp
	c.onStation = false
	return true
}

// ActivateDiveProcedure makes the stored dive procedure active.
func (c *Controller) ActivateDiveProcedure(id int64) bool {
	dp, ok := c.diveProcedures[id]
	if !ok {
		return false
	}
	c.activeDive = &dp
	c.diveHasToleranceSince = false
	return true
}

// UpdateState applies one command against the transition table. Commands
// that require a procedure to be active but have none set are silently
// dropped.
func (c *Controller) UpdateState(cmd Command) {
	from := c.state
	to := from

	switch from {
	case Disabled:
		switch cmd {
		case CmdRouteStart:
			if c.activeRoute != nil {
				to = RouteEnabled
			}
		case CmdLoiterStart:
			if c.activeLoiter != nil {
				c.prevState = from
				to = Loitering
			}
		case CmdDiveStart:
			if c.activeDive != nil {
				c.prevState = from
				to = Diving
			}
		case CmdEmergencyStop:
			to = EmergencyStop
		}

	case RouteEnabled:
		switch cmd {
		case CmdRouteStop:
			to = Disabled
		case CmdRouteSuspend:
			to = RouteSuspended
		case CmdLoiterStart:
			if c.activeLoiter != nil {
				c.prevState = from
				to = Loitering
			}
		case CmdDiveStart:
			if c.activeDive != nil {
				c.prevState = from
				to = Diving
			}
		case CmdEmergencyStop:
			to = EmergencyStop
		}

	case RouteSuspended:
		switch cmd {
		case CmdRouteStop:
			to = Disabled
		case CmdRouteResume:
			to = RouteEnabled
		case CmdLoiterStart:
			if c.activeLoiter != nil {
				c.prevState = from
				to = Loitering
			}
		case CmdDiveStart:
			if c.activeDive != nil {
				c.prevState = from
				to = Diving
			}
		case CmdEmergencyStop:
			to = EmergencyStop
		}

	case Loitering:
		switch cmd {
		case CmdLoiterStop:
			to = c.returnFromSubState()
		case CmdEmergencyStop:
			to = EmergencyStop
		}

	case Diving:
		switch cmd {
		case CmdDiveStop:
			to = c.returnFromSubState()
		case CmdEmergencyStop:
			to = EmergencyStop
		}

	case EmergencyStop:
		if cmd == CmdRouteStop {
			to = Disabled
		}
	}

	if to == from {
		return
	}

	c.log.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).Info("autopilot state transition")
	c.state = to
	c.resetActuators = true
	c.reportAvailable = true
	obs.SetActiveState(obs.GetMetrics().AutopilotState, allStates, to.String())
}

// returnFromSubState implements the LoiterStop/DiveStop "prev-state" rule.
func (c *Controller) returnFromSubState() State {
	if c.prevState == RouteSuspended {
		return RouteSuspended
	}
	return Disabled
}

// ConsumeActionCompleted reports whether an executor naturally completed
// its procedure since the last call, clearing the flag.
func (c *Controller) ConsumeActionCompleted() bool {
	v := c.actionCompleted
	c.actionCompleted = false
	return v
}

// ReportAvailable reports whether an APReport is due.
func (c *Controller) ReportAvailable() bool { return c.reportAvailable }

// Report builds the current APReport and clears the available flag.
func (c *Controller) Report() APReport {
	c.reportAvailable = false

	rep := APReport{State: c.state, GNSSAp: c.lastGNSSEst}
	if c.activeRoute != nil {
		rep.ActiveRouteID = c.activeRoute.ID
		rep.RouteName = c.activeRoute.Name
		rep.RouteLen = len(c.activeRoute.Waypoints)
		rep.RouteProgress = c.routeIndex + 1
		if c.routeIndex < len(c.activeRoute.Waypoints) {
			rep.ActiveWaypoint = c.activeRoute.Waypoints[c.routeIndex].Name
		}
		rep.TgtSpeed = c.activeRoute.PlannedSpeed * marinemath.KnotsToMS
	}
	if c.activeLoiter != nil {
		rep.ActiveLoiterID = c.activeLoiter.ID
		rep.LoiterName = c.activeLoiter.Position.Name
		rep.LoiterDist = marinemath.HaversineDistance(c.lastGNSSEst, c.activeLoiter.Position.Coords)
	}
	if c.activeDive != nil {
		rep.DiveName = c.activeDive.Name
		rep.TgtDepth = c.activeDive.Depth
	}
	return rep
}

// Execute runs one control-loop tick. It is a no-op (returns ok=false)
// until at least one sensor report has been ingested.
func (c *Controller) Execute(now time.Time, sensor SensorReport, aisFixes []ais.Fix) (ActuatorCommand, bool) {
	c.lastSensor = sensor
	if !c.haveSensor {
		c.haveSensor = true
		return ActuatorCommand{}, false
	}

	c.lastGNSSEst = c.estimator.Estimate(position.Input{
		GNSS1: sensor.GNSS1, GNSS2: sensor.GNSS2, GNSS3: sensor.GNSS3,
		CourseOverGround: sensor.COG, SpeedOverGround: sensor.SOG,
		Now: now,
	})

	cmd := ActuatorCommand{}
	justReset := c.resetActuators
	c.resetActuators = false

	// Depth is maintained before the state dispatch so the dive executor's
	// completion check sees this tick's seafloor-clamped target, not last
	// tick's.
	pump := c.maintainDepth()

	switch c.state {
	case RouteEnabled:
		c.executeRoute(now, &cmd, aisFixes)
	case Loitering:
		c.executeLoiter(now, &cmd, aisFixes)
	case Diving:
		c.executeDive(now)
	case EmergencyStop:
		c.executeStop(&cmd)
	case Disabled, RouteSuspended:
		// propulsion stays at the zero value ActuatorCommand starts with.
	}

	// The tick immediately following a state transition forces propulsion
	// to zero, regardless of what the new state's executor just computed;
	// ballast is excluded since maintain_depth is always re-evaluated.
	if justReset {
		cmd.RudderAngle = 0
		cmd.EnginePort = 0
		cmd.EngineStbd = 0
		cmd.ThrusterBow = 0
		cmd.ThrusterStern = 0
	}

	cmd.BallastPump = pump

	cmd.RudderAngle = marinemath.Clamp(cmd.RudderAngle, -30, 30)
	cmd.EnginePort = marinemath.Clamp(cmd.EnginePort, -1, 1)
	cmd.EngineStbd = marinemath.Clamp(cmd.EngineStbd, -1, 1)
	cmd.ThrusterBow = marinemath.Clamp(cmd.ThrusterBow, -1, 1)
	cmd.ThrusterStern = marinemath.Clamp(cmd.ThrusterStern, -1, 1)
	cmd.BallastPump = marinemath.Clamp(cmd.BallastPump, -1, 1)

	if now.Sub(c.lastReportTS) > c.cfg.ReportIntervalAP {
		c.lastReportTS = now
		c.reportAvailable = true
	}

	return cmd, true
}

// rudderTowards computes a rudder angle steering from pos toward wpt,
// countersteering against the current rate of turn and dampening near-zero
// bearing error.
func rudderTowards(ownCOG float64, rotRadPerSec float64, pos, wpt marinemath.Coordinates, dampeningROT float64) float64 {
	bearing := marinemath.RelativeBearing(ownCOG, pos, wpt)
	bearing = marinemath.WrapSigned180(bearing)
	original := bearing

	rotDeg := rotRadPerSec * (180.0 / math.Pi)
	bearing -= dampeningROT * rotDeg

	bearing = marinemath.Clamp(bearing, -60, 60)
	rudder := bearing * (30.0 / 60.0)

	denom := math.Max(math.Abs(original), 1.0)
	rudder *= 1 - 1/denom

	return rudder
}
