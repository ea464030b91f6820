// Package colreg predicts closest point of approach for tracked AIS
// targets, classifies the encounter per the maritime collision-avoidance
// rules, and overrides the autopilot's waypoint/speed setpoints when a
// target becomes pressing.
package colreg

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/asgard/vessel-autopilot/internal/ais"
	"github.com/asgard/vessel-autopilot/internal/config"
	"github.com/asgard/vessel-autopilot/internal/marinemath"
	"github.com/asgard/vessel-autopilot/internal/obs"
)

// futureSamples is how many one-second steps of own-ship motion are
// projected forward when searching for a closest point of approach.
const futureSamples = 65

// SituationType classifies the kind of encounter COLREG has identified.
type SituationType int

const (
	SituationInactive SituationType = iota
	SituationOvertaking
	SituationOvertaken
	SituationCrossing
	SituationHeadToHead
)

// String renders the situation for reports and logs.
func (s SituationType) String() string {
	switch s {
	case SituationOvertaking:
		return "Overtaking"
	case SituationOvertaken:
		return "Overtaken"
	case SituationCrossing:
		return "Crossing"
	case SituationHeadToHead:
		return "HeadToHead"
	default:
		return "Inactive"
	}
}

// Status is the most recently classified COLREG situation, published as the
// ColregStatus report.
type Status struct {
	Type      SituationType
	TargetMMSI int64
	TargetPos marinemath.Coordinates
}

// Engine runs the per-tick CPA analysis and waypoint/speed override.
type Engine struct {
	cfg config.Config
	log *logrus.Logger

	lastReportTS time.Time

	lastOverrideTS      time.Time
	lastOverrideBearing float64

	status          Status
	statusAvailable bool
}

// NewEngine builds a COLREG Engine using the given configuration.
func NewEngine(cfg config.Config) *Engine {
	return &Engine{cfg: cfg, log: logrus.StandardLogger()}
}

// SetLogger overrides the logger used for per-tick diagnostics.
func (e *Engine) SetLogger(l *logrus.Logger) { e.log = l }

// ReportAvailable returns whether a ColregStatus report is due, per the
// engine's own COLREG_REPORT_INTERVAL debounce.
func (e *Engine) ReportAvailable() bool { return e.statusAvailable }

// Report returns the latest ColregStatus and clears the available flag.
func (e *Engine) Report() Status {
	e.statusAvailable = false
	return e.status
}

// Evaluate runs one tick of CPA analysis. wptOverride and speedOverride are
// read as the route/loiter executor's requested waypoint and speed, and are
// mutated in place if a target becomes pressing (or the U-turn safeguard
// applies). It returns true if a pressing target produced an override this
// tick; a U-turn safeguard override returns false.
func (e *Engine) Evaluate(
	now time.Time,
	ownPos marinemath.Coordinates,
	ownCOG, ownSOG float64,
	targets []ais.Fix,
	wptOverride *marinemath.Coordinates,
	speedOverride *float64,
) bool {
	if now.Sub(e.lastReportTS) > e.cfg.ColregReportInterval {
		e.lastReportTS = now
		e.statusAvailable = true
	}

	ownLatShift, ownLonShift := marinemath.PolarToCartesian(ownCOG, ownSOG)
	futureOwn := make([][2]float64, futureSamples)
	for i := range futureOwn {
		futureOwn[i] = [2]float64{ownLatShift * float64(i), ownLonShift * float64(i)}
	}

	var (
		haveTarget     bool
		cpaTMin        float64 = math.MaxFloat64
		pressing       ais.Fix
		pressingBearing float64
		pressingPos    marinemath.Coordinates
	)

	for _, target := range targets {
		fixDelta := now.Sub(target.FixTS).Seconds()
		latShift, lonShift := marinemath.PolarToCartesian(target.CourseOverGround, target.SpeedOverGround)

		estimatedLat := marinemath.ShiftLatitude(target.Latitude, target.Longitude, latShift*fixDelta)
		estimatedLon := marinemath.ShiftLongitude(target.Latitude, target.Longitude, lonShift*fixDelta)

		currentDistance := marinemath.HaversineDistance(ownPos, marinemath.Coordinates{Latitude: estimatedLat, Longitude: estimatedLon})
		if currentDistance > e.cfg.ColregCheckRadius {
			continue
		}

		currentBearing := marinemath.RelativeBearing(0.0, ownPos, marinemath.Coordinates{Latitude: estimatedLat, Longitude: estimatedLon})
		relLat, relLon := marinemath.PolarToCartesian(currentBearing, currentDistance)

		localCPAD := math.MaxFloat64
		var localCPAT float64
		for i := 0; i < futureSamples; i++ {
			d := math.Sqrt(math.Pow(futureOwn[i][0]-relLat, 2) + math.Pow(futureOwn[i][1]-relLon, 2))
			if d < localCPAD {
				localCPAD = d
			} else {
				// the first local minimum is assumed global: headings/speeds
				// are held constant over the projection horizon.
				break
			}
			localCPAT = float64(i)
			relLat += latShift
			relLon += lonShift
		}

		if localCPAD < e.cfg.ColregCPAD && localCPAT-1.0 < cpaTMin {
			cpaTMin = localCPAT
			haveTarget = true
			pressing = target
			pressingBearing = math.Mod(360.0+currentBearing-ownCOG, 360.0)
			pressingPos = marinemath.Coordinates{Latitude: estimatedLat, Longitude: estimatedLon}
		}
	}

	originalWpt := *wptOverride
	wptBearing := marinemath.RelativeBearing(ownCOG, ownPos, originalWpt)
	if wptBearing > 180.0 {
		wptBearing -= 360.0
	}

	if haveTarget {
		situation, newWpt, newSpeed := e.classify(ownCOG, ownPos, wptBearing, originalWpt, *speedOverride, pressing, pressingBearing, pressingPos, cpaTMin)

		e.status = Status{Type: situation, TargetMMSI: pressing.MMSI, TargetPos: marinemath.Coordinates{Latitude: pressing.Latitude, Longitude: pressing.Longitude}}
		obs.GetMetrics().ColregSituations.WithLabelValues(situation.String()).Inc()

		*wptOverride = newWpt
		*speedOverride = newSpeed

		e.lastOverrideBearing = marinemath.RelativeBearing(0.0, ownPos, *wptOverride)
		e.lastOverrideTS = now

		e.log.WithFields(logrus.Fields{
			"mmsi":      pressing.MMSI,
			"situation": situation.String(),
			"cpa_t":     cpaTMin,
		}).Debug("colreg override applied")

		return true
	}

	if math.Abs(wptBearing) > 90.0 && now.Sub(e.lastOverrideTS) < e.cfg.ColregUTurnSafeguard {
		e.log.Debug("colreg u-turn safeguard: holding last override heading")
		latShift, lonShift := marinemath.PolarToCartesian(e.lastOverrideBearing, (1+*speedOverride)*30)
		*wptOverride = marinemath.Shift(ownPos, latShift, lonShift)
	}

	e.status = Status{Type: SituationInactive}
	return false
}

// classify determines the encounter type from relative heading/bearing and
// returns the new waypoint override and the new (scaled) speed. originalWpt is the
// waypoint the route/loiter executor requested this tick; branches that
// don't need to steer around the target return it unchanged.
func (e *Engine) classify(
	ownCOG float64,
	ownPos marinemath.Coordinates,
	wptBearing float64,
	originalWpt marinemath.Coordinates,
	speed float64,
	target ais.Fix,
	targetBearing float64,
	targetPos marinemath.Coordinates,
	cpaTMin float64,
) (SituationType, marinemath.Coordinates, float64) {
	relHeading := marinemath.RelativeHeading(ownCOG, target.CourseOverGround)
	if relHeading > 180.0 {
		relHeading -= 360.0
	}
	if targetBearing > 180.0 {
		targetBearing -= 360.0
	}

	switch {
	case math.Abs(relHeading) <= 22.5 && target.SpeedOverGround > 0.1:
		if math.Abs(targetBearing) < 45 {
			return SituationOvertaking, originalWpt, math.Min(speed, target.SpeedOverGround*0.8)
		}
		return SituationOvertaken, originalWpt, math.Max(speed, target.SpeedOverGround*1.2)

	case math.Abs(relHeading) <= 157.5:
		dodgeLat, dodgeLon := marinemath.PolarToCartesian(math.Mod(target.CourseOverGround+180.0, 360.0), e.cfg.ColregCPAD*1.6)
		dodge := marinemath.Shift(targetPos, dodgeLat, dodgeLon)
		dodgeBearing := marinemath.RelativeBearing(ownCOG, ownPos, dodge)
		if dodgeBearing > 180.0 {
			dodgeBearing -= 360.0
		}

		if wptBearing*dodgeBearing >= 0 && math.Abs(wptBearing) > math.Abs(dodgeBearing) {
			return SituationCrossing, originalWpt, 0.85 * speed
		}

		newSpeed := 0.65 * speed
		if cpaTMin < 10.0 {
			newSpeed *= 0.3
		}
		return SituationCrossing, dodge, newSpeed

	default:
		invBearing := marinemath.RelativeBearing(target.CourseOverGround, targetPos, ownPos)
		direction := 1.0
		if invBearing > 180.0 {
			direction = -1.0
		}

		dodgeLat, dodgeLon := marinemath.PolarToCartesian(math.Mod(360.0+target.CourseOverGround+direction*156.5, 360.0), 2.2*e.cfg.ColregCPAD)
		dodge := marinemath.Shift(targetPos, dodgeLat, dodgeLon)
		dodgeBearing := marinemath.RelativeBearing(ownCOG, ownPos, dodge)
		if dodgeBearing > 180.0 {
			dodgeBearing -= 360.0
		}

		dangerousUTurn := math.Abs(targetBearing) > 90.0 && math.Abs(wptBearing) > 90.0

		if wptBearing*dodgeBearing >= 0 && math.Abs(wptBearing) > math.Abs(dodgeBearing) && !dangerousUTurn {
			return SituationHeadToHead, originalWpt, 0.95 * speed
		}
		return SituationHeadToHead, dodge, 0.84 * speed
	}
}
