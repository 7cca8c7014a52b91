package detection

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"parkwatch-service/internal/config"
	"parkwatch-service/internal/domain/parking"
)

// DwellTracker turns per-tick detection records into authoritative per-vehicle
// dwell state. Dwell is computed from tick deltas only; the source's own
// duration estimate is never trusted for alert timing.
type DwellTracker struct {
	cfg      config.Detection
	vehicles map[string]*parking.TrackedVehicle
	log      zerolog.Logger
}

func NewDwellTracker(cfg config.Detection, log zerolog.Logger) *DwellTracker {
	return &DwellTracker{
		cfg:      cfg,
		vehicles: make(map[string]*parking.TrackedVehicle),
		log:      log,
	}
}

// Update consumes one detection record and returns snapshots of every vehicle
// present in it, in observation order. Vehicles silent for longer than the
// silence window are evicted.
func (t *DwellTracker) Update(det parking.DetectionRecord, now time.Time) []parking.TrackedVehicle {
	snapshots := make([]parking.TrackedVehicle, 0, len(det.Vehicles))
	restricted := det.Zone == parking.ZoneRestricted

	for _, obs := range det.Vehicles {
		if !validObservation(obs) {
			t.log.Debug().
				Str("identity_hint", obs.IdentityHint).
				Float64("confidence", obs.Confidence).
				Msg("dropping malformed observation")
			continue
		}

		v, ok := t.vehicles[obs.IdentityHint]
		if !ok {
			v = &parking.TrackedVehicle{
				IdentityHint: obs.IdentityHint,
				FirstSeenAt:  now,
				LastSeenAt:   now,
			}
			t.vehicles[obs.IdentityHint] = v
		} else {
			gap := now.Sub(v.LastSeenAt)
			switch {
			case !restricted:
				v.DwellSeconds = 0
			case gap > 2*t.cfg.SamplingInterval():
				// Missed more than one tick: continuity is broken.
				v.DwellSeconds = 0
			default:
				v.DwellSeconds += gap.Seconds()
			}
			v.LastSeenAt = now
		}

		v.BoundingRegion = obs.BoundingRegion
		v.ObjectClass = obs.ObjectClass
		v.Status = StatusFor(v.DwellSeconds, t.cfg.AlertThresholdSeconds, t.cfg.WarningRatio)
		snapshots = append(snapshots, *v)
	}

	t.evict(now)
	return snapshots
}

// Len reports the number of live tracked vehicles.
func (t *DwellTracker) Len() int {
	return len(t.vehicles)
}

// Snapshot returns all live vehicles ordered by identity hint.
func (t *DwellTracker) Snapshot() []parking.TrackedVehicle {
	out := make([]parking.TrackedVehicle, 0, len(t.vehicles))
	for _, v := range t.vehicles {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentityHint < out[j].IdentityHint })
	return out
}

func (t *DwellTracker) evict(now time.Time) {
	window := t.cfg.SilenceWindow()
	for hint, v := range t.vehicles {
		if now.Sub(v.LastSeenAt) > window {
			t.log.Debug().
				Str("identity_hint", hint).
				Float64("dwell_seconds", v.DwellSeconds).
				Msg("evicting silent vehicle")
			delete(t.vehicles, hint)
		}
	}
}

// StatusFor derives a vehicle status from dwell time, the alert threshold and
// the warning ratio. The warning band gives hysteresis at the boundary.
func StatusFor(dwellSeconds, threshold, warningRatio float64) parking.VehicleStatus {
	switch {
	case dwellSeconds >= threshold:
		return parking.StatusViolation
	case dwellSeconds >= warningRatio*threshold:
		return parking.StatusWarning
	default:
		return parking.StatusNormal
	}
}

func validObservation(obs parking.VehicleObservation) bool {
	if obs.IdentityHint == "" {
		return false
	}
	if obs.Confidence < 0 || obs.Confidence > 1 {
		return false
	}
	return true
}
