package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instrumentation for the control loop and its
// controllers.
type Metrics struct {
	TickDuration     prometheus.Histogram
	TicksTotal       prometheus.Counter
	ActuatorPublishes prometheus.Counter

	AutopilotState *prometheus.GaugeVec
	MissionStatus  *prometheus.GaugeVec

	ColregSituations *prometheus.CounterVec
	AisTargetsTracked prometheus.Gauge

	MissionItemAdvances prometheus.Counter
	RouteWaypointAdvances prometheus.Counter
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the process-wide Metrics instance, creating it on
// first use.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

func newMetrics() *Metrics {
	m := &Metrics{}

	m.TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vessel",
		Subsystem: "control_loop",
		Name:      "tick_duration_seconds",
		Help:      "Wall-clock duration of a single control loop tick.",
		Buckets:   prometheus.DefBuckets,
	})

	m.TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vessel",
		Subsystem: "control_loop",
		Name:      "ticks_total",
		Help:      "Total number of control loop ticks executed.",
	})

	m.ActuatorPublishes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vessel",
		Subsystem: "control_loop",
		Name:      "actuator_publishes_total",
		Help:      "Total number of actuator commands published.",
	})

	m.AutopilotState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vessel",
		Subsystem: "autopilot",
		Name:      "state",
		Help:      "1 for the currently active autopilot state, 0 otherwise.",
	}, []string{"state"})

	m.MissionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vessel",
		Subsystem: "mission",
		Name:      "status",
		Help:      "1 for the currently active mission status, 0 otherwise.",
	}, []string{"status"})

	m.ColregSituations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vessel",
		Subsystem: "colreg",
		Name:      "situations_total",
		Help:      "Count of COLREG situations classified, by type.",
	}, []string{"type"})

	m.AisTargetsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vessel",
		Subsystem: "ais",
		Name:      "targets_tracked",
		Help:      "Number of AIS targets currently tracked.",
	})

	m.MissionItemAdvances = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vessel",
		Subsystem: "mission",
		Name:      "item_advances_total",
		Help:      "Total number of mission item advances.",
	})

	m.RouteWaypointAdvances = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vessel",
		Subsystem: "route",
		Name:      "waypoint_advances_total",
		Help:      "Total number of route waypoint advances.",
	})

	return m
}

// SetActiveState flips all-but-one GaugeVec label to 0 and sets `active` to 1.
func SetActiveState(gv *prometheus.GaugeVec, allLabels []string, active string) {
	for _, l := range allLabels {
		if l == active {
			gv.WithLabelValues(l).Set(1)
		} else {
			gv.WithLabelValues(l).Set(0)
		}
	}
}
