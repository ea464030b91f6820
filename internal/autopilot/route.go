package autopilot

import (
	"time"

	"github.com/asgard/vessel-autopilot/internal/ais"
	"github.com/asgard/vessel-autopilot/internal/marinemath"
	"github.com/asgard/vessel-autopilot/internal/obs"
)

// executeRoute advances the active route's waypoint index on arrival and
// drives steering/throttle toward the (possibly COLREG-overridden) active
// waypoint.
func (c *Controller) executeRoute(now time.Time, cmd *ActuatorCommand, aisFixes []ais.Fix) {
	if c.activeRoute == nil {
		return
	}
	route := c.activeRoute
	wpts := route.Waypoints

	for {
		dist := marinemath.HaversineDistance(c.lastGNSSEst, wpts[c.routeIndex].Coords)
		if dist >= c.cfg.WaypointArrivalRadius {
			break
		}
		if c.routeIndex == len(wpts)-1 {
			c.routeIndex = 0
			c.state = Disabled
			obs.SetActiveState(obs.GetMetrics().AutopilotState, allStates, c.state.String())
			c.actionCompleted = true
			c.reportAvailable = true
			c.resetActuators = true
			return
		}
		c.routeIndex++
		obs.GetMetrics().RouteWaypointAdvances.Inc()
	}

	wpt := wpts[c.routeIndex].Coords
	speed := route.PlannedSpeed * marinemath.KnotsToMS

	if c.colreg != nil {
		c.colreg.Evaluate(now, c.lastGNSSEst, c.lastSensor.COG, c.lastSensor.SOG, aisFixes, &wpt, &speed)
	}

	throttle := c.enginePID.Control(c.lastSensor.AxialSpeed, speed)
	cmd.EnginePort = throttle
	cmd.EngineStbd = throttle
	cmd.RudderAngle = rudderTowards(c.lastSensor.COG, c.lastSensor.RateOfTurn, c.lastGNSSEst, wpt, c.cfg.DampeningROT)
}
