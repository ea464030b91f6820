package autopilot

import (
	"time"

	"github.com/asgard/vessel-autopilot/internal/marinemath"
	"github.com/asgard/vessel-autopilot/internal/position"
)

// State is a node in the autopilot's transition table.
type State int

const (
	Disabled State = iota
	RouteEnabled
	RouteSuspended
	Loitering
	Diving
	EmergencyStop
)

func (s State) String() string {
	switch s {
	case RouteEnabled:
		return "RouteEnabled"
	case RouteSuspended:
		return "RouteSuspended"
	case Loitering:
		return "Loitering"
	case Diving:
		return "Diving"
	case EmergencyStop:
		return "EmergencyStop"
	default:
		return "Disabled"
	}
}

// Command is an operator/mission-issued request to change autopilot state.
type Command int

const (
	CmdRouteStart Command = iota
	CmdRouteStop
	CmdRouteSuspend
	CmdRouteResume
	CmdLoiterStart
	CmdLoiterStop
	CmdDiveStart
	CmdDiveStop
	CmdEmergencyStop
)

// Waypoint names a point on a route or loiter target.
type Waypoint struct {
	Name   string
	Coords marinemath.Coordinates
}

// Route is a stored, named sequence of waypoints with a planned transit speed.
type Route struct {
	ID           int64
	Name         string
	PlannedSpeed float64 // knots
	Waypoints    []Waypoint
}

// LoiterPosition is a stored stationkeeping target.
type LoiterPosition struct {
	ID       int64
	Position Waypoint
	Bearing  float64 // degrees true, 0..360
}

// DiveProcedure is a stored target depth.
type DiveProcedure struct {
	ID    int64
	Name  string
	Depth float64 // meters, >= 0
}

// SensorReport is one tick of telemetry from the simulator.
type SensorReport struct {
	Heading          float64 // degrees true
	COG              float64 // degrees true
	SOG              float64 // m/s
	AxialSpeed       float64 // m/s, signed
	RateOfTurn       float64 // rad/s
	RudderAngle      float64 // degrees
	PortRPM, StbdRPM float64
	PortThrottle     float64
	StbdThrottle     float64
	DepthUnderKeel   float64 // meters
	ShipDepth        float64 // meters, submergence
	Buoyancy         float64 // ratio, ~1.0 neutral

	GNSS1, GNSS2, GNSS3 position.GNSSFix

	Now time.Time
}

// ActuatorCommand is the per-tick setpoint vector sent to the simulator.
type ActuatorCommand struct {
	RudderAngle   float64 // degrees, clamped to [-30, 30]
	EnginePort    float64 // [-1, 1]
	EngineStbd    float64 // [-1, 1]
	ThrusterBow   float64 // [-1, 1]
	ThrusterStern float64 // [-1, 1]
	BallastPump   float64 // [-1, 1]; negative empties the tank
}

// APReport is the autopilot's published status snapshot.
type APReport struct {
	State State

	ActiveRouteID int64
	RouteProgress int // 1-based
	RouteLen      int
	RouteName     string
	ActiveWaypoint string
	TgtSpeed      float64

	ActiveLoiterID int64
	LoiterDist     float64
	LoiterName     string

	DiveName string
	TgtDepth float64

	GNSSAp marinemath.Coordinates
}
