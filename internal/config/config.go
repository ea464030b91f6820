// Package config holds the tunable constants of the autopilot core,
// defaulted per spec.md §6. cmd/autopilotd uses Default() as-is; it has no
// flags that override these fields.
package config

import "time"

// Config bundles every tunable constant used by the mission, autopilot and
// COLREG controllers.
type Config struct {
	WaypointArrivalRadius float64 // meters
	LoiterArrivalRadius   float64 // meters
	LoiterStayRadius      float64 // meters
	DampeningROT          float64
	MaxApproachSOG        float64 // m/s, loiter approach speed cap

	DepthTolerance        float64 // meters
	DepthToleranceTimeout time.Duration
	MinDepthOffset        float64 // meters

	ColregCheckRadius    float64 // meters
	ColregCPAD           float64 // meters
	ColregReportInterval time.Duration
	ColregUTurnSafeguard time.Duration

	ReportIntervalAP      time.Duration
	ReportIntervalMission time.Duration
	Tick                  time.Duration

	// StartupGrace is the default wait for an operator/C2 subscriber on
	// the autopilot-command channel (spec.md §4.12). cmd/autopilotd does
	// not read it: its wait comes from the -startup-grace-s flag.
	StartupGrace time.Duration
}

// Default returns the constants spec.md §6 lists with their defaults.
func Default() Config {
	return Config{
		WaypointArrivalRadius: 35.0,
		LoiterArrivalRadius:   35.0,
		LoiterStayRadius:      45.0,
		DampeningROT:          6.0,
		MaxApproachSOG:        3.0,

		DepthTolerance:        3.0,
		DepthToleranceTimeout: 20 * time.Second,
		MinDepthOffset:        2.5,

		ColregCheckRadius:    750.0,
		ColregCPAD:           57.0,
		ColregReportInterval: 1450 * time.Millisecond,
		ColregUTurnSafeguard: 5 * time.Second,

		ReportIntervalAP:      750 * time.Millisecond,
		ReportIntervalMission: 15 * time.Second,
		Tick:                  250 * time.Millisecond,

		StartupGrace: 60 * time.Second,
	}
}
