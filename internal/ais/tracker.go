// Package ais keeps the last-known fix for every tracked AIS target,
// keyed by MMSI.
package ais

import (
	"time"

	"github.com/sirupsen/logrus"
)

// NavStatus mirrors the AIS navigational status enumeration carried on an
// AIVDM-derived report.
type NavStatus int

const (
	NavStatusUnderwayUsingEngine NavStatus = iota
	NavStatusAtAnchor
	NavStatusNotUnderCommand
	NavStatusRestrictedManoeuvrability
	NavStatusConstrainedByDraught
	NavStatusMoored
	NavStatusAground
	NavStatusEngagedInFishing
	NavStatusUnderwaySailing
	NavStatusUnknown
)

// Fix is one target's last-known AIS report.
type Fix struct {
	FixTS            time.Time
	MMSI             int64
	NavStatus        NavStatus
	Latitude         float64
	Longitude        float64
	RateOfTurn       float64 // rad/s
	CourseOverGround float64 // degrees true
	SpeedOverGround  float64 // m/s
}

// Tracker is an unordered, MMSI-keyed store of the most recent fix per
// vessel. There is no removal by default; set StaleAfter to enable the
// optional TTL eviction spec.md §9 calls out as a configurable extension.
type Tracker struct {
	fixes      map[int64]Fix
	StaleAfter time.Duration

	log *logrus.Logger
}

// NewTracker returns an empty Tracker. StaleAfter defaults to zero
// (disabled), matching the spec's default of indefinite retention.
func NewTracker() *Tracker {
	return &Tracker{
		fixes: make(map[int64]Fix),
		log:   logrus.StandardLogger(),
	}
}

// SetLogger overrides the logger used for ingest diagnostics.
func (t *Tracker) SetLogger(l *logrus.Logger) { t.log = l }

// Update upserts a batch of AIS fixes, stamping each with `now`.
func (t *Tracker) Update(now time.Time, fixes []Fix) {
	for _, f := range fixes {
		f.FixTS = now
		t.fixes[f.MMSI] = f
		t.log.WithFields(logrus.Fields{
			"mmsi":   f.MMSI,
			"status": f.NavStatus,
			"lat":    f.Latitude,
			"lon":    f.Longitude,
			"cog":    f.CourseOverGround,
			"sog":    f.SpeedOverGround,
		}).Debug("ais fix updated")
	}
}

// Snapshot returns all currently tracked fixes, evicting stale ones first
// if StaleAfter is non-zero.
func (t *Tracker) Snapshot(now time.Time) []Fix {
	if t.StaleAfter > 0 {
		for mmsi, f := range t.fixes {
			if now.Sub(f.FixTS) > t.StaleAfter {
				delete(t.fixes, mmsi)
			}
		}
	}
	out := make([]Fix, 0, len(t.fixes))
	for _, f := range t.fixes {
		out = append(out, f)
	}
	return out
}

// Len returns the number of currently tracked targets.
func (t *Tracker) Len() int { return len(t.fixes) }
