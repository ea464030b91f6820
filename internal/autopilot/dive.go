package autopilot

import (
	"math"
	"time"

	"github.com/asgard/vessel-autopilot/internal/obs"
)

// executeDive tracks how long the ship has held within tolerance of the
// seafloor-clamped target depth; depth itself is driven by maintainDepth,
// called unconditionally in Execute before state dispatch.
func (c *Controller) executeDive(now time.Time) {
	if c.activeDive == nil {
		return
	}

	withinTolerance := math.Abs(c.lastTgtAdjustedDepth-c.lastSensor.ShipDepth) <= c.cfg.DepthTolerance
	if !withinTolerance {
		c.diveHasToleranceSince = false
		return
	}

	if !c.diveHasToleranceSince {
		c.diveWithinToleranceSince = now
		c.diveHasToleranceSince = true
		return
	}

	if now.Sub(c.diveWithinToleranceSince) >= c.cfg.DepthToleranceTimeout {
		c.actionCompleted = true
		c.reportAvailable = true
		c.resetActuators = true
		c.state = c.returnFromSubState()
		obs.SetActiveState(obs.GetMetrics().AutopilotState, allStates, c.state.String())
		c.diveHasToleranceSince = false
	}
}
