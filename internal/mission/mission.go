// Package mission sequences a list of mission items — activating routes,
// loiter positions and dive procedures, or issuing raw autopilot commands —
// against the autopilot controller, honoring per-item timeouts and
// completion signals.
package mission

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/asgard/vessel-autopilot/internal/autopilot"
	"github.com/asgard/vessel-autopilot/internal/config"
	"github.com/asgard/vessel-autopilot/internal/obs"
)

// allStatuses lists every mission status, for resetting the MissionStatus
// gauge's unused labels to 0 on each transition.
var allStatuses = []string{Disabled.String(), Enabled.String(), Suspended.String()}

// Status is the mission controller's top-level state.
type Status int

const (
	Disabled Status = iota
	Enabled
	Suspended
)

func (s Status) String() string {
	switch s {
	case Enabled:
		return "Enabled"
	case Suspended:
		return "Suspended"
	default:
		return "Disabled"
	}
}

// Command is an operator-issued mission control request.
type Command int

const (
	CmdStart Command = iota
	CmdStop
	CmdSuspend
	CmdResume
	CmdSkipStep
)

// ActionKind tags which variant of MissionItem.Action is set.
type ActionKind int

const (
	ActionActivateRoute ActionKind = iota
	ActionActivateLoiter
	ActionActivateDive
	ActionApCommand
)

// ItemAction is a tagged union: exactly the field matching Kind is read.
type ItemAction struct {
	Kind           ActionKind
	RouteID        int64
	LoiterPosID    int64
	DiveProcID     int64
	AutopilotCmd   autopilot.Command
}

// Item is one step of a mission.
type Item struct {
	UntilCompletion bool
	Timeout         time.Duration // also applies with UntilCompletion (whichever fires first); <0 means infinite
	Action          ItemAction
}

// Mission is a named, ordered list of items.
type Mission struct {
	ID    int64
	Name  string
	Items []Item
}

// Report is the mission controller's published status snapshot.
type Report struct {
	Name     string
	Status   Status
	Progress int // 1-based
	Length   int
}

// Controller drives a Mission against an autopilot.Controller.
type Controller struct {
	cfg config.Config
	log *logrus.Logger
	ap  *autopilot.Controller

	mission Mission
	haveMission bool

	status Status
	index  int

	itemStartTS time.Time
	suspendTS   time.Time

	reportAvailable bool
	lastReportTS    time.Time
}

// New builds a Controller bound to the given autopilot controller.
func New(cfg config.Config, ap *autopilot.Controller) *Controller {
	return &Controller{cfg: cfg, log: logrus.StandardLogger(), ap: ap}
}

// SetLogger overrides the logger used for state-change diagnostics.
func (c *Controller) SetLogger(l *logrus.Logger) { c.log = l }

// Status returns the current mission status.
func (c *Controller) Status() Status { return c.status }

// SetMission replaces any prior mission and implicitly stops it.
func (c *Controller) SetMission(m Mission) {
	c.mission = m
	c.haveMission = len(m.Items) > 0
	c.status = Disabled
	c.index = 0
	c.reportAvailable = true
}

// UpdateState applies one mission command.
func (c *Controller) UpdateState(now time.Time, cmd Command) {
	switch c.status {
	case Disabled:
		if cmd == CmdStart && c.haveMission {
			c.status = Enabled
			c.startItem(now, c.index)
		}

	case Enabled:
		switch cmd {
		case CmdStop:
			c.status = Disabled
			c.index = 0
		case CmdSuspend:
			c.status = Suspended
			c.suspendTS = now
		case CmdSkipStep:
			c.index++
			if c.index >= len(c.mission.Items) {
				c.status = Disabled
				c.index = 0
			} else {
				c.startItem(now, c.index)
			}
		}

	case Suspended:
		switch cmd {
		case CmdResume:
			c.status = Enabled
			c.itemStartTS = c.itemStartTS.Add(now.Sub(c.suspendTS))
		case CmdStop:
			c.status = Disabled
			c.index = 0
		}
	}

	c.reportAvailable = true
	obs.SetActiveState(obs.GetMetrics().MissionStatus, allStatuses, c.status.String())
}

// startItem dispatches item i's action against the autopilot and records
// its start timestamp.
func (c *Controller) startItem(now time.Time, i int) {
	c.itemStartTS = now
	item := c.mission.Items[i]
	obs.GetMetrics().MissionItemAdvances.Inc()

	switch item.Action.Kind {
	case ActionActivateRoute:
		c.ap.ActivateRoute(item.Action.RouteID)
		c.ap.UpdateState(autopilot.CmdRouteStart)
	case ActionActivateLoiter:
		c.ap.ActivateLoiterPosition(item.Action.LoiterPosID)
		c.ap.UpdateState(autopilot.CmdLoiterStart)
	case ActionActivateDive:
		c.ap.ActivateDiveProcedure(item.Action.DiveProcID)
		c.ap.UpdateState(autopilot.CmdDiveStart)
	case ActionApCommand:
		c.ap.UpdateState(item.Action.AutopilotCmd)
	}

	c.log.WithFields(logrus.Fields{"mission": c.mission.Name, "item": i}).Info("mission item started")
}

// Run advances the mission by one tick: check the current item's completion
// condition and, if met, move to the next item (or stop past the end).
func (c *Controller) Run(now time.Time) {
	if c.status != Enabled {
		return
	}

	if now.Sub(c.lastReportTS) >= c.cfg.ReportIntervalMission {
		c.lastReportTS = now
		c.reportAvailable = true
	}

	item := c.mission.Items[c.index]
	elapsed := now.Sub(c.itemStartTS)

	// Drain the autopilot's completion flag exactly once per tick so it
	// never leaks into the following item.
	actionDone := c.ap.ConsumeActionCompleted()
	completed := (item.UntilCompletion && actionDone) || (item.Timeout >= 0 && elapsed >= item.Timeout)

	if !completed {
		return
	}

	c.index++
	if c.index >= len(c.mission.Items) {
		c.status = Disabled
		c.index = 0
		obs.SetActiveState(obs.GetMetrics().MissionStatus, allStatuses, c.status.String())
	} else {
		c.startItem(now, c.index)
	}
	c.reportAvailable = true
}

// ReportAvailable reports whether a Report is due.
func (c *Controller) ReportAvailable() bool { return c.reportAvailable }

// Report builds the current Report and clears the available flag.
func (c *Controller) Report() Report {
	c.reportAvailable = false
	return Report{
		Name:     c.mission.Name,
		Status:   c.status,
		Progress: c.index + 1,
		Length:   len(c.mission.Items),
	}
}
