// Package wire defines the JSON-safe message shapes exchanged with the
// simulator and the remote command-and-control station, and converts them
// to/from the core's internal domain types. The wire format itself belongs
// to the transport, not the control loop; this package is the only place
// that layer and the core types meet.
package wire

import (
	"time"

	"github.com/asgard/vessel-autopilot/internal/ais"
	"github.com/asgard/vessel-autopilot/internal/autopilot"
	"github.com/asgard/vessel-autopilot/internal/colreg"
	"github.com/asgard/vessel-autopilot/internal/marinemath"
	"github.com/asgard/vessel-autopilot/internal/mission"
	"github.com/asgard/vessel-autopilot/internal/position"
)

// WaypointMsg is the wire form of autopilot.Waypoint.
type WaypointMsg struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func (w WaypointMsg) toDomain() autopilot.Waypoint {
	return autopilot.Waypoint{Name: w.Name, Coords: marinemath.Coordinates{Latitude: w.Lat, Longitude: w.Lon}}
}

// RouteMsg is the wire form of autopilot.Route.
type RouteMsg struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	PlannedSpeed float64       `json:"planned_speed_kn"`
	Waypoints    []WaypointMsg `json:"waypoints"`
}

// ToDomain converts a RouteMsg into an autopilot.Route.
func (r RouteMsg) ToDomain() autopilot.Route {
	wpts := make([]autopilot.Waypoint, len(r.Waypoints))
	for i, w := range r.Waypoints {
		wpts[i] = w.toDomain()
	}
	return autopilot.Route{ID: r.ID, Name: r.Name, PlannedSpeed: r.PlannedSpeed, Waypoints: wpts}
}

// LoiterPositionMsg is the wire form of autopilot.LoiterPosition.
type LoiterPositionMsg struct {
	ID       int64       `json:"id"`
	Position WaypointMsg `json:"position"`
	Bearing  float64     `json:"bearing_deg"`
}

// ToDomain converts a LoiterPositionMsg into an autopilot.LoiterPosition.
func (l LoiterPositionMsg) ToDomain() autopilot.LoiterPosition {
	return autopilot.LoiterPosition{ID: l.ID, Position: l.Position.toDomain(), Bearing: l.Bearing}
}

// DiveProcedureMsg is the wire form of autopilot.DiveProcedure.
type DiveProcedureMsg struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Depth float64 `json:"depth_m"`
}

// ToDomain converts a DiveProcedureMsg into an autopilot.DiveProcedure.
func (d DiveProcedureMsg) ToDomain() autopilot.DiveProcedure {
	return autopilot.DiveProcedure{ID: d.ID, Name: d.Name, Depth: d.Depth}
}

// ProcedureKind tags which store a ProcedureActivationMsg targets.
type ProcedureKind string

const (
	ProcedureRoute  ProcedureKind = "route"
	ProcedureLoiter ProcedureKind = "loiter_position"
	ProcedureDive   ProcedureKind = "dive_procedure"
)

// ProcedureActivationMsg sets a stored procedure active without starting it.
type ProcedureActivationMsg struct {
	Kind ProcedureKind `json:"kind"`
	ID   int64         `json:"id"`
}

// AutopilotCommandMsg is the wire form of an autopilot.Command.
type AutopilotCommandMsg struct {
	Command string `json:"command"`
}

var apCommandsByName = map[string]autopilot.Command{
	"route_start":    autopilot.CmdRouteStart,
	"route_stop":     autopilot.CmdRouteStop,
	"route_suspend":  autopilot.CmdRouteSuspend,
	"route_resume":   autopilot.CmdRouteResume,
	"loiter_start":   autopilot.CmdLoiterStart,
	"loiter_stop":    autopilot.CmdLoiterStop,
	"dive_start":     autopilot.CmdDiveStart,
	"dive_stop":      autopilot.CmdDiveStop,
	"emergency_stop": autopilot.CmdEmergencyStop,
}

// ToDomain decodes the command name, returning ok=false for an unrecognized one.
func (m AutopilotCommandMsg) ToDomain() (autopilot.Command, bool) {
	cmd, ok := apCommandsByName[m.Command]
	return cmd, ok
}

// MissionCommandMsg is the wire form of a mission.Command.
type MissionCommandMsg struct {
	Command string `json:"command"`
}

var missionCommandsByName = map[string]mission.Command{
	"start":     mission.CmdStart,
	"stop":      mission.CmdStop,
	"suspend":   mission.CmdSuspend,
	"resume":    mission.CmdResume,
	"skip_step": mission.CmdSkipStep,
}

// ToDomain decodes the command name, returning ok=false for an unrecognized one.
func (m MissionCommandMsg) ToDomain() (mission.Command, bool) {
	cmd, ok := missionCommandsByName[m.Command]
	return cmd, ok
}

// MissionItemMsg is the wire form of mission.Item.
type MissionItemMsg struct {
	UntilCompletion   bool   `json:"until_completion"`
	TimeoutSeconds    int64  `json:"timeout_s"` // < 0 means infinite
	RouteID           *int64 `json:"route_id,omitempty"`
	LoiterPositionID  *int64 `json:"loiter_position_id,omitempty"`
	DiveProcedureID   *int64 `json:"dive_procedure_id,omitempty"`
	AutopilotCommand  *AutopilotCommandMsg `json:"autopilot_command,omitempty"`
}

// ToDomain converts a MissionItemMsg into a mission.Item. Exactly one of
// the action fields is expected to be set; the first one present wins.
func (m MissionItemMsg) ToDomain() mission.Item {
	timeout := -1 * time.Second
	if m.TimeoutSeconds >= 0 {
		timeout = time.Duration(m.TimeoutSeconds) * time.Second
	}
	item := mission.Item{UntilCompletion: m.UntilCompletion, Timeout: timeout}

	switch {
	case m.RouteID != nil:
		item.Action = mission.ItemAction{Kind: mission.ActionActivateRoute, RouteID: *m.RouteID}
	case m.LoiterPositionID != nil:
		item.Action = mission.ItemAction{Kind: mission.ActionActivateLoiter, LoiterPosID: *m.LoiterPositionID}
	case m.DiveProcedureID != nil:
		item.Action = mission.ItemAction{Kind: mission.ActionActivateDive, DiveProcID: *m.DiveProcedureID}
	case m.AutopilotCommand != nil:
		if cmd, ok := m.AutopilotCommand.ToDomain(); ok {
			item.Action = mission.ItemAction{Kind: mission.ActionApCommand, AutopilotCmd: cmd}
		}
	}
	return item
}

// MissionMsg is the wire form of mission.Mission.
type MissionMsg struct {
	ID    int64            `json:"id"`
	Name  string           `json:"name"`
	Items []MissionItemMsg `json:"items"`
}

// ToDomain converts a MissionMsg into a mission.Mission.
func (m MissionMsg) ToDomain() mission.Mission {
	items := make([]mission.Item, len(m.Items))
	for i, it := range m.Items {
		items[i] = it.ToDomain()
	}
	return mission.Mission{ID: m.ID, Name: m.Name, Items: items}
}

// SensorReportMsg is the wire form of autopilot.SensorReport.
type SensorReportMsg struct {
	Heading          float64 `json:"heading_deg"`
	COG              float64 `json:"cog_deg"`
	SOG              float64 `json:"sog_ms"`
	AxialSpeed       float64 `json:"axial_speed_ms"`
	RateOfTurn       float64 `json:"rate_of_turn_rad_s"`
	RudderAngle      float64 `json:"rudder_angle_deg"`
	PortRPM          float64 `json:"port_rpm"`
	StbdRPM          float64 `json:"stbd_rpm"`
	PortThrottle     float64 `json:"port_throttle"`
	StbdThrottle     float64 `json:"stbd_throttle"`
	DepthUnderKeel   float64 `json:"depth_under_keel_m"`
	ShipDepth        float64 `json:"ship_depth_m"`
	Buoyancy         float64 `json:"buoyancy"`
	GNSS1Lat         float64 `json:"gnss1_lat"`
	GNSS1Lon         float64 `json:"gnss1_lon"`
	GNSS2Lat         float64 `json:"gnss2_lat"`
	GNSS2Lon         float64 `json:"gnss2_lon"`
	GNSS3Lat         float64 `json:"gnss3_lat"`
	GNSS3Lon         float64 `json:"gnss3_lon"`
	TimestampUnixMs  int64   `json:"ts_unix_ms"`
}

// ToDomain converts a SensorReportMsg into an autopilot.SensorReport.
func (s SensorReportMsg) ToDomain() autopilot.SensorReport {
	return autopilot.SensorReport{
		Heading: s.Heading, COG: s.COG, SOG: s.SOG, AxialSpeed: s.AxialSpeed,
		RateOfTurn: s.RateOfTurn, RudderAngle: s.RudderAngle,
		PortRPM: s.PortRPM, StbdRPM: s.StbdRPM,
		PortThrottle: s.PortThrottle, StbdThrottle: s.StbdThrottle,
		DepthUnderKeel: s.DepthUnderKeel, ShipDepth: s.ShipDepth, Buoyancy: s.Buoyancy,
		GNSS1: position.GNSSFix{Latitude: s.GNSS1Lat, Longitude: s.GNSS1Lon},
		GNSS2: position.GNSSFix{Latitude: s.GNSS2Lat, Longitude: s.GNSS2Lon},
		GNSS3: position.GNSSFix{Latitude: s.GNSS3Lat, Longitude: s.GNSS3Lon},
		Now:   time.UnixMilli(s.TimestampUnixMs),
	}
}

// AISTargetMsg is one target report in an AIVDM-derived batch.
type AISTargetMsg struct {
	MMSI            int64   `json:"mmsi"`
	NavStatus       int     `json:"nav_status"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	RateOfTurn      float64 `json:"rot_rad_s"`
	COG             float64 `json:"cog_deg"`
	SOG             float64 `json:"sog_ms"`
}

// ToDomain converts an AISTargetMsg into an ais.Fix (FixTS is stamped by
// the tracker on ingest).
func (a AISTargetMsg) ToDomain() ais.Fix {
	return ais.Fix{
		MMSI: a.MMSI, NavStatus: ais.NavStatus(a.NavStatus),
		Latitude: a.Lat, Longitude: a.Lon,
		RateOfTurn: a.RateOfTurn, CourseOverGround: a.COG, SpeedOverGround: a.SOG,
	}
}

// AISBatchMsg is a batch of AIS target reports received in one message.
type AISBatchMsg struct {
	Targets []AISTargetMsg `json:"targets"`
}

// ActuatorCommandMsg is the wire form of autopilot.ActuatorCommand.
type ActuatorCommandMsg struct {
	RudderAngle   float64 `json:"rudder_angle_deg"`
	EnginePort    float64 `json:"engine_throttle_port"`
	EngineStbd    float64 `json:"engine_throttle_stbd"`
	ThrusterBow   float64 `json:"thruster_throttle_bow"`
	ThrusterStern float64 `json:"thruster_throttle_stern"`
	BallastPump   float64 `json:"ballast_tank_pump"`
}

// ActuatorCommandFromDomain converts an autopilot.ActuatorCommand into its wire form.
func ActuatorCommandFromDomain(c autopilot.ActuatorCommand) ActuatorCommandMsg {
	return ActuatorCommandMsg{
		RudderAngle: c.RudderAngle, EnginePort: c.EnginePort, EngineStbd: c.EngineStbd,
		ThrusterBow: c.ThrusterBow, ThrusterStern: c.ThrusterStern, BallastPump: c.BallastPump,
	}
}

// APReportMsg is the wire form of autopilot.APReport.
type APReportMsg struct {
	State          string  `json:"state"`
	ActiveRouteID  int64   `json:"active_route_id"`
	RouteProgress  int     `json:"route_progress"`
	RouteLen       int     `json:"route_len"`
	RouteName      string  `json:"route_name"`
	ActiveWaypoint string  `json:"active_waypoint"`
	TgtSpeed       float64 `json:"tgt_speed"`
	ActiveLoiterID int64   `json:"active_lp_id"`
	LoiterDist     float64 `json:"lp_dist"`
	LoiterName     string  `json:"lp_name"`
	DiveName       string  `json:"dp_name"`
	TgtDepth       float64 `json:"tgt_depth"`
	GNSSLat        float64 `json:"gnss_lat"`
	GNSSLon        float64 `json:"gnss_lon"`
}

// APReportFromDomain converts an autopilot.APReport into its wire form.
func APReportFromDomain(r autopilot.APReport) APReportMsg {
	return APReportMsg{
		State: r.State.String(), ActiveRouteID: r.ActiveRouteID,
		RouteProgress: r.RouteProgress, RouteLen: r.RouteLen, RouteName: r.RouteName,
		ActiveWaypoint: r.ActiveWaypoint, TgtSpeed: r.TgtSpeed,
		ActiveLoiterID: r.ActiveLoiterID, LoiterDist: r.LoiterDist, LoiterName: r.LoiterName,
		DiveName: r.DiveName, TgtDepth: r.TgtDepth,
		GNSSLat: r.GNSSAp.Latitude, GNSSLon: r.GNSSAp.Longitude,
	}
}

// MissionReportMsg is the wire form of mission.Report.
type MissionReportMsg struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Length   int    `json:"length"`
}

// MissionReportFromDomain converts a mission.Report into its wire form.
func MissionReportFromDomain(r mission.Report) MissionReportMsg {
	return MissionReportMsg{Name: r.Name, Status: r.Status.String(), Progress: r.Progress, Length: r.Length}
}

// ColregStatusMsg is the wire form of colreg.Status.
type ColregStatusMsg struct {
	Type      string  `json:"type"`
	TargetMMSI int64  `json:"tgt_mmsi"`
	TargetLat float64 `json:"tgt_lat"`
	TargetLon float64 `json:"tgt_lon"`
}

// ColregStatusFromDomain converts a colreg.Status into its wire form.
func ColregStatusFromDomain(s colreg.Status) ColregStatusMsg {
	return ColregStatusMsg{
		Type: s.Type.String(), TargetMMSI: s.TargetMMSI,
		TargetLat: s.TargetPos.Latitude, TargetLon: s.TargetPos.Longitude,
	}
}
