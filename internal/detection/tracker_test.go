package detection

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"parkwatch-service/internal/config"
	"parkwatch-service/internal/domain/parking"
)

func testDetectionConfig() config.Detection {
	return config.Detection{
		AlertThresholdSeconds: 5,
		WarningRatio:          0.8,
		CoolDownSeconds:       5,
		SamplingIntervalMs:    200,
		SilenceTicks:          2,
	}
}

func obs(id string) parking.VehicleObservation {
	return parking.VehicleObservation{
		IdentityHint:   id,
		BoundingRegion: [4]float64{10, 10, 100, 100},
		ObjectClass:    "car",
		Confidence:     0.95,
	}
}

func record(zone parking.Zone, at time.Time, vehicles ...parking.VehicleObservation) parking.DetectionRecord {
	return parking.DetectionRecord{Zone: zone, Vehicles: vehicles, CapturedAt: at}
}

func TestPermittedZoneNeverViolates(t *testing.T) {
	tracker := NewDwellTracker(testDetectionConfig(), zerolog.Nop())
	now := time.Now()

	for i := 0; i < 100; i++ {
		now = now.Add(200 * time.Millisecond)
		snapshots := tracker.Update(record(parking.ZonePermitted, now, obs("v1")), now)
		for _, s := range snapshots {
			if s.Status == parking.StatusViolation {
				t.Fatalf("vehicle reached VIOLATION in permitted zone at tick %d", i)
			}
			if s.DwellSeconds != 0 {
				t.Fatalf("dwell accumulated in permitted zone: %v", s.DwellSeconds)
			}
		}
	}
}

func TestDwellMonotonicWhileRestricted(t *testing.T) {
	tracker := NewDwellTracker(testDetectionConfig(), zerolog.Nop())
	now := time.Now()

	prev := -1.0
	for i := 0; i < 50; i++ {
		now = now.Add(200 * time.Millisecond)
		snapshots := tracker.Update(record(parking.ZoneRestricted, now, obs("v1")), now)
		if len(snapshots) != 1 {
			t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
		}
		if snapshots[0].DwellSeconds < prev {
			t.Fatalf("dwell decreased from %v to %v", prev, snapshots[0].DwellSeconds)
		}
		prev = snapshots[0].DwellSeconds
	}

	// 49 deltas of 0.2s after the initial observation.
	if prev < 9.7 || prev > 9.9 {
		t.Fatalf("expected dwell near 9.8s, got %v", prev)
	}
}

func TestZoneFlipResetsDwell(t *testing.T) {
	tracker := NewDwellTracker(testDetectionConfig(), zerolog.Nop())
	now := time.Now()

	for i := 0; i < 30; i++ {
		now = now.Add(200 * time.Millisecond)
		tracker.Update(record(parking.ZoneRestricted, now, obs("v1")), now)
	}

	now = now.Add(200 * time.Millisecond)
	snapshots := tracker.Update(record(parking.ZonePermitted, now, obs("v1")), now)
	if snapshots[0].DwellSeconds != 0 {
		t.Fatalf("expected dwell reset on zone flip, got %v", snapshots[0].DwellSeconds)
	}
	if snapshots[0].Status != parking.StatusNormal {
		t.Fatalf("expected NORMAL after reset, got %s", snapshots[0].Status)
	}
}

func TestEvictionAndRestart(t *testing.T) {
	tracker := NewDwellTracker(testDetectionConfig(), zerolog.Nop())
	now := time.Now()

	for i := 0; i < 30; i++ {
		now = now.Add(200 * time.Millisecond)
		tracker.Update(record(parking.ZoneRestricted, now, obs("v1")), now)
	}
	if tracker.Len() != 1 {
		t.Fatalf("expected 1 tracked vehicle, got %d", tracker.Len())
	}

	// Silent for longer than the 2-tick silence window.
	now = now.Add(1 * time.Second)
	tracker.Update(record(parking.ZoneRestricted, now), now)
	if tracker.Len() != 0 {
		t.Fatalf("expected eviction, still tracking %d", tracker.Len())
	}

	now = now.Add(200 * time.Millisecond)
	snapshots := tracker.Update(record(parking.ZoneRestricted, now, obs("v1")), now)
	if snapshots[0].DwellSeconds != 0 {
		t.Fatalf("expected dwell to restart at 0, got %v", snapshots[0].DwellSeconds)
	}
}

func TestMissedTicksResetDwell(t *testing.T) {
	cfg := testDetectionConfig()
	cfg.SilenceTicks = 10 // keep the vehicle tracked across the gap
	tracker := NewDwellTracker(cfg, zerolog.Nop())
	now := time.Now()

	for i := 0; i < 30; i++ {
		now = now.Add(200 * time.Millisecond)
		tracker.Update(record(parking.ZoneRestricted, now, obs("v1")), now)
	}

	// Gap of more than one sampling tick breaks continuity.
	now = now.Add(1 * time.Second)
	snapshots := tracker.Update(record(parking.ZoneRestricted, now, obs("v1")), now)
	if snapshots[0].DwellSeconds != 0 {
		t.Fatalf("expected dwell reset after missed ticks, got %v", snapshots[0].DwellSeconds)
	}
}

func TestMalformedObservationDropped(t *testing.T) {
	tracker := NewDwellTracker(testDetectionConfig(), zerolog.Nop())
	now := time.Now()

	bad := obs("")
	worse := obs("v2")
	worse.Confidence = 1.5

	snapshots := tracker.Update(record(parking.ZoneRestricted, now, bad, obs("v1"), worse), now)
	if len(snapshots) != 1 {
		t.Fatalf("expected only the valid observation, got %d snapshots", len(snapshots))
	}
	if snapshots[0].IdentityHint != "v1" {
		t.Fatalf("unexpected snapshot %q", snapshots[0].IdentityHint)
	}
}

func TestStatusBands(t *testing.T) {
	cases := []struct {
		dwell float64
		want  parking.VehicleStatus
	}{
		{0, parking.StatusNormal},
		{3.9, parking.StatusNormal},
		{4.0, parking.StatusWarning},
		{4.9, parking.StatusWarning},
		{5.0, parking.StatusViolation},
		{20, parking.StatusViolation},
	}
	for _, c := range cases {
		if got := StatusFor(c.dwell, 5, 0.8); got != c.want {
			t.Fatalf("StatusFor(%v) = %s, want %s", c.dwell, got, c.want)
		}
	}
}
