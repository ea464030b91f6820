package autopilot

import (
	"math"
	"time"

	"github.com/asgard/vessel-autopilot/internal/ais"
	"github.com/asgard/vessel-autopilot/internal/marinemath"
)

// executeLoiter runs the Approaching/OnStation hysteresis and drives
// propulsion/thrusters accordingly.
func (c *Controller) executeLoiter(now time.Time, cmd *ActuatorCommand, aisFixes []ais.Fix) {
	if c.activeLoiter == nil {
		return
	}
	lp := c.activeLoiter
	dist := marinemath.HaversineDistance(c.lastGNSSEst, lp.Position.Coords)

	if c.onStation {
		if dist > c.cfg.LoiterStayRadius {
			c.onStation = false
		}
	} else if dist < c.cfg.LoiterArrivalRadius {
		c.onStation = true
		c.actionCompleted = true
		c.reportAvailable = true
	}

	if !c.onStation {
		c.executeApproaching(now, cmd, aisFixes, lp, dist)
		return
	}
	c.executeOnStation(cmd, lp)
}

func (c *Controller) executeApproaching(now time.Time, cmd *ActuatorCommand, aisFixes []ais.Fix, lp *LoiterPosition, dist float64) {
	targetSOG := math.Max(0.2, math.Min(c.cfg.MaxApproachSOG, (dist-c.cfg.LoiterArrivalRadius)/25))

	wpt := lp.Position.Coords
	speed := targetSOG
	if c.colreg != nil {
		c.colreg.Evaluate(now, c.lastGNSSEst, c.lastSensor.COG, c.lastSensor.SOG, aisFixes, &wpt, &speed)
	}

	throttle := c.enginePID.Control(c.lastSensor.AxialSpeed, speed)
	rudder := rudderTowards(c.lastSensor.COG, c.lastSensor.RateOfTurn, c.lastGNSSEst, wpt, c.cfg.DampeningROT)

	portThrottle, stbdThrottle := throttle, throttle

	switch {
	case throttle > 0.2 && throttle < 0.6 && math.Abs(rudder) > 1:
		diff := 1 + math.Min(60, math.Abs(rudder))/60
		if rudder > 0 {
			portThrottle *= diff
			stbdThrottle /= diff
		} else {
			portThrottle /= diff
			stbdThrottle *= diff
		}
	case throttle <= 0.2:
		sign := 1.0
		if rudder < 0 {
			sign = -1.0
		}
		cmd.ThrusterBow = sign * math.Min(math.Abs(rudder)/60, 0.8)
		rudder = 0
	}

	cmd.EnginePort = portThrottle
	cmd.EngineStbd = stbdThrottle
	cmd.RudderAngle = rudder
}

func (c *Controller) executeOnStation(cmd *ActuatorCommand, lp *LoiterPosition) {
	throttle := c.enginePID.Control(c.lastSensor.AxialSpeed, 0)
	cmd.EnginePort = throttle
	cmd.EngineStbd = throttle
	cmd.RudderAngle = 0

	out := c.thrusterAngPID.Control(c.lastSensor.Heading, lp.Bearing)
	cmd.ThrusterBow = out
	cmd.ThrusterStern = -out
}
