package emitter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"parkwatch-service/internal/config"
	"parkwatch-service/internal/domain/parking"
	"parkwatch-service/internal/store"
)

var (
	// ErrSuppressed means the decision fell inside the cool-down window or an
	// emission for the same vehicle/location is still in flight. Not a failure.
	ErrSuppressed = errors.New("alert suppressed")
)

type key struct {
	vehicleID string
	location  string
}

// AlertEmitter converts violation decisions into store appends, at most one
// per (vehicle, location) pair per cool-down window. The suppression map is
// only advanced on confirmed store acceptance so a failed append is retried
// on the next qualifying decision instead of being permanently suppressed.
type AlertEmitter struct {
	cfg   config.Detection
	store store.AlertStore
	log   zerolog.Logger

	mu          sync.Mutex
	lastAlerted map[key]time.Time
	inFlight    map[key]struct{}
}

func NewAlertEmitter(cfg config.Detection, st store.AlertStore, log zerolog.Logger) *AlertEmitter {
	return &AlertEmitter{
		cfg:         cfg,
		store:       st,
		log:         log,
		lastAlerted: make(map[key]time.Time),
		inFlight:    make(map[key]struct{}),
	}
}

// Emit forwards the decision to the store unless it is suppressed. The
// decision's own timestamp drives the cool-down check so behavior is
// deterministic under test.
func (e *AlertEmitter) Emit(ctx context.Context, decision parking.ViolationDecision) (*parking.AlertRecord, error) {
	k := key{vehicleID: decision.VehicleID, location: decision.Location}

	e.mu.Lock()
	if _, busy := e.inFlight[k]; busy {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: emission in flight", ErrSuppressed)
	}
	if last, ok := e.lastAlerted[k]; ok && decision.DetectedAt.Sub(last) < e.cfg.CoolDown() {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: within cool-down", ErrSuppressed)
	}
	e.inFlight[k] = struct{}{}
	e.mu.Unlock()

	candidate := parking.AlertCandidate{
		VehicleID:       decision.VehicleID,
		Location:        decision.Location,
		DurationSeconds: decision.DurationSeconds,
		ViolationType:   parking.ViolationNoParkingZone,
		EmittedAt:       decision.DetectedAt,
		Details:         decision.Details,
	}

	record, err := e.store.Append(ctx, candidate)

	e.mu.Lock()
	delete(e.inFlight, k)
	if err == nil {
		e.lastAlerted[k] = decision.DetectedAt
	}
	e.mu.Unlock()

	if err != nil {
		e.log.Warn().
			Err(err).
			Str("vehicle_id", decision.VehicleID).
			Str("location", decision.Location).
			Msg("alert append failed, will retry on next decision")
		return nil, fmt.Errorf("append alert: %w", err)
	}

	e.log.Info().
		Int64("alert_id", record.AlertID).
		Str("vehicle_id", record.VehicleID).
		Str("location", record.Location).
		Float64("duration_seconds", record.DurationSeconds).
		Msg("violation alert emitted")
	return record, nil
}
