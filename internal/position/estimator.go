// Package position fuses the three noisy GNSS fixes carried on every
// SensorReport with a dead-reckoning guess and a constant-motion
// extrapolation into a single outlier-rejected position estimate.
package position

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/asgard/vessel-autopilot/internal/marinemath"
)

// outlierThreshold is the maximum great-circle offset, in meters, a
// candidate sample may have from the median sample before it is discarded.
const outlierThreshold = 10.0

// GNSSFix is one of the three independently-noisy GNSS readings carried on
// a sensor report.
type GNSSFix struct {
	Latitude, Longitude float64
}

// Input bundles everything the estimator needs for a single fix.
type Input struct {
	GNSS1, GNSS2, GNSS3 GNSSFix
	CourseOverGround    float64 // degrees true
	SpeedOverGround     float64 // m/s
	Now                 time.Time
}

// Estimator fuses GNSS fixes across ticks, keeping the previous two
// estimates so it can dead-reckon and extrapolate constant motion.
type Estimator struct {
	have      bool
	current   marinemath.Coordinates
	previous  marinemath.Coordinates
	lastInput Input
	lastTS    time.Time
}

// New returns an empty Estimator; the first call to Estimate seeds it
// directly from the three GNSS fixes (no dead-reckoning/constant-motion
// samples are available yet).
func New() *Estimator {
	return &Estimator{}
}

// Estimate folds in a new sensor fix and returns the fused position.
//
// Five candidate samples are built per axis: the three raw GNSS fixes, a
// dead-reckoned sample from the previous estimate using averaged
// prior/current course and speed, and a constant-motion extrapolation of
// the last two estimates. Each axis is sorted independently and, using the
// median (index 2) as reference, any sample whose great-circle offset from
// the reference exceeds outlierThreshold is discarded; the surviving
// samples are averaged.
func (e *Estimator) Estimate(in Input) marinemath.Coordinates {
	latSamples := []float64{in.GNSS1.Latitude, in.GNSS2.Latitude, in.GNSS3.Latitude, in.GNSS2.Latitude, in.GNSS1.Latitude}
	lonSamples := []float64{in.GNSS1.Longitude, in.GNSS2.Longitude, in.GNSS3.Longitude, in.GNSS2.Longitude, in.GNSS1.Longitude}

	if e.have {
		delta := in.Now.Sub(e.lastTS).Seconds()
		sog := (e.lastInput.SpeedOverGround + in.SpeedOverGround) / 2
		cog := (e.lastInput.CourseOverGround + in.CourseOverGround) / 2

		latShift, lonShift := marinemath.PolarToCartesian(cog, sog*delta)
		latSamples[3] = marinemath.ShiftLatitude(e.current.Latitude, e.current.Longitude, latShift)
		lonSamples[3] = marinemath.ShiftLongitude(e.current.Latitude, e.current.Longitude, lonShift)

		if e.previous.Latitude != 0 || e.previous.Longitude != 0 {
			latSamples[4] = e.current.Latitude + (e.current.Latitude - e.previous.Latitude)
			lonSamples[4] = e.current.Longitude + (e.current.Longitude - e.previous.Longitude)
		}
	}

	fusedLat := voteAndAverage(latSamples, lonSamples[2])
	fusedLon := voteAndAverageLon(lonSamples, latSamples[2])

	e.previous = e.current
	e.current = marinemath.Coordinates{Latitude: fusedLat, Longitude: fusedLon}
	e.lastInput = in
	e.lastTS = in.Now
	e.have = true

	return e.current
}

// voteAndAverage sorts the latitude samples, discards those whose
// great-circle offset from the median exceeds outlierThreshold (holding
// longitude fixed at refLon), and returns the mean of survivors.
func voteAndAverage(latSamples []float64, refLon float64) float64 {
	sorted := sortedCopy(latSamples)
	median := sorted[2]

	vec := mat.NewVecDense(len(sorted), sorted)
	var sum float64
	var count int
	for i := 0; i < vec.Len(); i++ {
		v := vec.AtVec(i)
		offset := marinemath.HaversineDistance(
			marinemath.Coordinates{Latitude: v, Longitude: refLon},
			marinemath.Coordinates{Latitude: median, Longitude: refLon},
		)
		if offset < outlierThreshold {
			sum += v
			count++
		}
	}
	if count == 0 {
		return median
	}
	return sum / float64(count)
}

// voteAndAverageLon mirrors voteAndAverage for the longitude axis, holding
// latitude fixed at refLat.
func voteAndAverageLon(lonSamples []float64, refLat float64) float64 {
	sorted := sortedCopy(lonSamples)
	median := sorted[2]

	vec := mat.NewVecDense(len(sorted), sorted)
	var sum float64
	var count int
	for i := 0; i < vec.Len(); i++ {
		v := vec.AtVec(i)
		offset := marinemath.HaversineDistance(
			marinemath.Coordinates{Latitude: refLat, Longitude: v},
			marinemath.Coordinates{Latitude: refLat, Longitude: median},
		)
		if offset < outlierThreshold {
			sum += v
			count++
		}
	}
	if count == 0 {
		return median
	}
	return sum / float64(count)
}

func sortedCopy(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	sort.Float64s(out)
	return out
}
