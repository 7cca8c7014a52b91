package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"parkwatch-service/internal/config"
	"parkwatch-service/internal/detection"
	"parkwatch-service/internal/domain/parking"
	"parkwatch-service/internal/emitter"
	"parkwatch-service/internal/metrics"
)

// Monitor runs the detection pipeline for one feed: on every sampling tick it
// pulls a detection record from the source, updates the dwell tracker,
// classifies each snapshot and hands violation decisions to the emitter.
type Monitor struct {
	feed       string
	cfg        config.Detection
	source     detection.Source
	tracker    *detection.DwellTracker
	classifier *detection.Classifier
	emitter    *emitter.AlertEmitter
	metrics    *metrics.Metrics
	log        zerolog.Logger

	busy atomic.Bool
}

func NewMonitor(
	feed string,
	cfg config.Detection,
	source detection.Source,
	em *emitter.AlertEmitter,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Monitor {
	return &Monitor{
		feed:       feed,
		cfg:        cfg,
		source:     source,
		tracker:    detection.NewDwellTracker(cfg, log),
		classifier: detection.NewClassifier(),
		emitter:    em,
		metrics:    m,
		log:        log.With().Str("feed", feed).Logger(),
	}
}

// Run ticks at the sampling interval until the context is cancelled.
// Cancellation stops the timer; nothing persists afterwards beyond appends
// the store already confirmed.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SamplingInterval())
	defer ticker.Stop()

	m.log.Info().
		Dur("sampling_interval", m.cfg.SamplingInterval()).
		Float64("alert_threshold_seconds", m.cfg.AlertThresholdSeconds).
		Msg("feed monitor started")

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("feed monitor stopped")
			return
		case now := <-ticker.C:
			if !m.busy.CompareAndSwap(false, true) {
				m.metrics.DroppedTicks.Add(1)
				continue
			}
			m.ProcessTick(ctx, now)
			m.busy.Store(false)
		}
	}
}

// ProcessTick runs one synchronous source → tracker → classifier pass.
// Store appends run asynchronously so a slow store never stalls tracking;
// the emitter's in-flight markers keep same-vehicle emissions serialized.
func (m *Monitor) ProcessTick(ctx context.Context, now time.Time) {
	det := m.source.Sample(now)
	snapshots := m.tracker.Update(det, now)

	m.metrics.TicksProcessed.Add(1)
	m.metrics.VehiclesTracked.Store(uint64(m.tracker.Len()))

	for _, snapshot := range snapshots {
		decision := m.classifier.Classify(snapshot, det.Zone, m.feed, now)
		if decision == nil {
			continue
		}
		go m.emit(ctx, *decision)
	}
}

func (m *Monitor) emit(ctx context.Context, decision parking.ViolationDecision) {
	_, err := m.emitter.Emit(ctx, decision)
	switch {
	case err == nil:
		m.metrics.AlertsEmitted.Add(1)
	case errors.Is(err, emitter.ErrSuppressed):
		m.metrics.AlertsSuppressed.Add(1)
	case errors.Is(err, context.Canceled):
		// Monitoring stopped mid-append; the decision is discarded.
	default:
		m.metrics.StoreErrors.Add(1)
		m.log.Error().
			Err(err).
			Str("vehicle_id", decision.VehicleID).
			Msg("alert emission failed")
	}
}
