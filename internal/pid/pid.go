// Package pid implements the clamped P+I+D controller used by every
// actuator loop in the autopilot core, plus an angular variant that wraps
// its error term to [-180, 180] for heading control.
package pid

import (
	"time"

	"github.com/sirupsen/logrus"
)

// coldStartTimeout is how long we tolerate a gap between control() calls
// before treating it as a cold start: the integral is reset and the
// derivative term is suppressed for that tick.
const coldStartTimeout = 15 * time.Second

// Controller is a scalar PID controller with anti-windup and integral decay.
type Controller struct {
	Kp, Ki, Kd     float64
	Min, Max       float64
	IntegralDecay  float64

	integral     float64
	previousErr  float64
	lastTS       time.Time
	hasLastTS    bool

	log *logrus.Logger
}

// New builds a Controller with IntegralDecay defaulted to 1.0 (no decay).
func New(kp, ki, kd, min, max float64) *Controller {
	return NewWithDecay(kp, ki, kd, min, max, 1.0)
}

// NewWithDecay builds a Controller with an explicit integral decay factor.
func NewWithDecay(kp, ki, kd, min, max, integralDecay float64) *Controller {
	return &Controller{
		Kp: kp, Ki: ki, Kd: kd,
		Min: min, Max: max,
		IntegralDecay: integralDecay,
		log:           logrus.StandardLogger(),
	}
}

// SetLogger overrides the logger used for per-tick debug output.
func (c *Controller) SetLogger(l *logrus.Logger) { c.log = l }

// computeError returns setpoint - measured for the scalar controller.
func (c *Controller) computeError(measured, setpoint float64) float64 {
	return setpoint - measured
}

// Control runs one control-loop iteration and returns the clamped output.
//
// The derivative term intentionally multiplies by delta rather than
// dividing by it, reproducing the upstream source's (unusual) convention.
// The autopilot's gains (internal/autopilot) are tuned against that
// convention; changing it would require re-tuning every PID instance there.
func (c *Controller) Control(measured, setpoint float64) float64 {
	return c.control(measured, setpoint, c.computeError)
}

func (c *Controller) control(measured, setpoint float64, errFn func(measured, setpoint float64) float64) float64 {
	error := errFn(measured, setpoint)

	now := time.Now()
	var delta float64
	if c.hasLastTS {
		delta = now.Sub(c.lastTS).Seconds()
	}
	c.hasLastTS = true

	if delta > coldStartTimeout.Seconds() {
		delta = 0
		c.integral = 0
	}
	c.lastTS = now

	derivative := (error - c.previousErr) * delta
	c.previousErr = error

	c.integral = c.integral*c.IntegralDecay + error*delta

	output := c.Kp*error + c.Ki*c.integral + c.Kd*derivative

	saturated := false
	if output > c.Max {
		output = c.Max
		saturated = true
	} else if output < c.Min {
		output = c.Min
		saturated = true
	}

	if saturated {
		c.integral -= error * delta
	}

	c.log.WithFields(logrus.Fields{
		"setpoint":   setpoint,
		"measured":   measured,
		"delta":      delta,
		"error":      error,
		"integral":   c.integral,
		"derivative": derivative,
		"output":     output,
	}).Debug("pid control")

	return output
}

// Angular is a PID controller whose error term wraps to [-180, 180] degrees,
// for heading/bearing control.
type Angular struct {
	Controller
}

// NewAngular builds an Angular controller with IntegralDecay defaulted to 1.0.
func NewAngular(kp, ki, kd, min, max float64) *Angular {
	return &Angular{Controller: *New(kp, ki, kd, min, max)}
}

func (a *Angular) computeError(measured, setpoint float64) float64 {
	error := setpoint - measured
	if error < -180.0 {
		error += 360.0
	}
	if error > 180.0 {
		error -= 360.0
	}
	return error
}

// Control runs one control-loop iteration using the wrapped angular error.
func (a *Angular) Control(measured, setpoint float64) float64 {
	return a.control(measured, setpoint, a.computeError)
}
