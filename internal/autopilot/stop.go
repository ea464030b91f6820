package autopilot

// executeStop forces the vessel to neutral steering and zero way-on;
// maintainDepth (called unconditionally in Execute) targets the surface
// whenever the state is EmergencyStop. Once way-on has bled off and the
// vessel has surfaced, it leaves EmergencyStop on its own rather than
// waiting for an operator-issued RouteStop.
func (c *Controller) executeStop(cmd *ActuatorCommand) {
	cmd.RudderAngle = 0
	cmd.ThrusterBow = 0
	cmd.ThrusterStern = 0

	if c.lastSensor.SOG < 0.05 && c.lastSensor.ShipDepth == 0.0 {
		cmd.EnginePort = 0
		cmd.EngineStbd = 0
		c.UpdateState(CmdRouteStop)
		return
	}

	throttle := c.enginePID.Control(c.lastSensor.AxialSpeed, 0)
	cmd.EnginePort = throttle
	cmd.EngineStbd = throttle
}
