package autopilot

import "math"

// maintainDepth runs the ballast-tank PID loop, always, regardless of
// autopilot state. It clamps the target against the seafloor and applies
// buoyancy hard caps to avoid fighting an already-floating or
// already-sinking vessel.
func (c *Controller) maintainDepth() float64 {
	tgtDepth := 0.0
	if c.state != EmergencyStop && c.activeDive != nil {
		tgtDepth = c.activeDive.Depth
	}

	tgtAdjusted := math.Min(tgtDepth, c.cfg.MinDepthOffset+c.lastSensor.DepthUnderKeel+c.lastSensor.ShipDepth)
	c.lastTgtAdjustedDepth = tgtAdjusted

	errVal := tgtAdjusted - c.lastSensor.ShipDepth

	if errVal >= 0 && c.lastSensor.Buoyancy > 1.002 {
		return 1.0
	}

	pump := c.ballastPID.Control(c.lastSensor.ShipDepth, tgtAdjusted)

	if c.lastSensor.Buoyancy > 1.0004 && pump < 0 && c.state != EmergencyStop {
		pump = 0
	}
	if c.lastSensor.Buoyancy < 0.9996 && pump > 0 {
		pump = 0
	}
	return pump
}
