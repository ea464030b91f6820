package ais

import (
	"testing"
	"time"
)

func TestUpdateUpsertsByMMSI(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr.Update(now, []Fix{{MMSI: 1, Latitude: 10, Longitude: 20, SpeedOverGround: 3}})
	tr.Update(now.Add(time.Second), []Fix{{MMSI: 1, Latitude: 11, Longitude: 21, SpeedOverGround: 4}})

	snap := tr.Snapshot(now.Add(time.Second))
	if len(snap) != 1 {
		t.Fatalf("expected exactly one tracked target, got %d", len(snap))
	}
	if snap[0].Latitude != 11 || snap[0].SpeedOverGround != 4 {
		t.Fatalf("expected upsert to overwrite stale fix, got %+v", snap[0])
	}
}

func TestSnapshotEvictsStaleWhenConfigured(t *testing.T) {
	tr := NewTracker()
	tr.StaleAfter = time.Minute
	now := time.Now()

	tr.Update(now, []Fix{{MMSI: 42, Latitude: 1, Longitude: 1}})

	fresh := tr.Snapshot(now.Add(30 * time.Second))
	if len(fresh) != 1 {
		t.Fatalf("expected target still tracked within TTL, got %d", len(fresh))
	}

	stale := tr.Snapshot(now.Add(2 * time.Minute))
	if len(stale) != 0 {
		t.Fatalf("expected target evicted past TTL, got %d", len(stale))
	}
}

func TestSnapshotNoEvictionByDefault(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	tr.Update(now, []Fix{{MMSI: 7, Latitude: 1, Longitude: 1}})

	snap := tr.Snapshot(now.Add(24 * time.Hour))
	if len(snap) != 1 {
		t.Fatalf("expected indefinite retention by default, got %d tracked", len(snap))
	}
}
