package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"parkwatch-service/internal/config"
	"parkwatch-service/internal/detection"
	"parkwatch-service/internal/domain/parking"
	"parkwatch-service/internal/emitter"
	"parkwatch-service/internal/metrics"
)

type scriptedSource struct {
	mu      sync.Mutex
	records []parking.DetectionRecord
}

func (s *scriptedSource) push(record parking.DetectionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *scriptedSource) Sample(now time.Time) parking.DetectionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return parking.DetectionRecord{Zone: parking.ZonePermitted, CapturedAt: now}
	}
	record := s.records[0]
	s.records = s.records[1:]
	record.CapturedAt = now
	return record
}

type countingStore struct {
	mu      sync.Mutex
	nextID  int64
	records []parking.AlertRecord
}

func (c *countingStore) Append(ctx context.Context, candidate parking.AlertCandidate) (*parking.AlertRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	record := parking.AlertRecord{
		AlertID:         c.nextID,
		VehicleID:       candidate.VehicleID,
		Location:        candidate.Location,
		DurationSeconds: candidate.DurationSeconds,
		ViolationType:   candidate.ViolationType,
		EmittedAt:       candidate.EmittedAt,
	}
	c.records = append(c.records, record)
	return &record, nil
}

func (c *countingStore) List(ctx context.Context, query parking.AlertQuery) ([]parking.AlertRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]parking.AlertRecord, len(c.records))
	copy(out, c.records)
	return out, nil
}

func (c *countingStore) ResetAll(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := int64(len(c.records))
	c.records = nil
	return n, nil
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func pipelineConfig() config.Detection {
	return config.Detection{
		AlertThresholdSeconds: 5,
		WarningRatio:          0.8,
		CoolDownSeconds:       5,
		SamplingIntervalMs:    200,
		SilenceTicks:          2,
	}
}

func restrictedTick() parking.DetectionRecord {
	return parking.DetectionRecord{
		Zone: parking.ZoneRestricted,
		Vehicles: []parking.VehicleObservation{{
			IdentityHint:   "v1",
			BoundingRegion: [4]float64{10, 10, 100, 100},
			ObjectClass:    "car",
			Confidence:     0.95,
		}},
	}
}

func waitForCount(t *testing.T, st *countingStore, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if st.count() == want {
			// Give stray emissions a moment to land.
			time.Sleep(20 * time.Millisecond)
			if got := st.count(); got != want {
				t.Fatalf("store count moved past %d to %d", want, got)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("store count stuck at %d, want %d", st.count(), want)
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestPipelineEmitsOneAlertPerEpisode(t *testing.T) {
	cfg := pipelineConfig()
	st := &countingStore{}
	src := &scriptedSource{}
	em := emitter.NewAlertEmitter(cfg, st, zerolog.Nop())
	m := metrics.New()
	monitor := NewMonitor("AB-1 Parking", cfg, src, em, m, zerolog.Nop())

	ctx := context.Background()
	now := time.Now()

	// 40 ticks at 200ms: dwell crosses the 5s threshold at tick 26 and stays
	// in violation through 7.8s, inside a single cool-down window.
	for i := 0; i < 40; i++ {
		src.push(restrictedTick())
		now = now.Add(200 * time.Millisecond)
		monitor.ProcessTick(ctx, now)
	}

	waitForCount(t, st, 1)

	records, _ := st.List(ctx, parking.AlertQuery{})
	if records[0].VehicleID != "v1" || records[0].Location != "AB-1 Parking" {
		t.Fatalf("unexpected alert %+v", records[0])
	}
	if records[0].DurationSeconds < 5.0 {
		t.Fatalf("alert emitted before threshold: %v", records[0].DurationSeconds)
	}
	if m.AlertsEmitted.Load() != 1 {
		t.Fatalf("expected 1 emitted in metrics, got %d", m.AlertsEmitted.Load())
	}
}

func TestPipelineSecondAlertAfterCoolDown(t *testing.T) {
	cfg := pipelineConfig()
	st := &countingStore{}
	src := &scriptedSource{}
	em := emitter.NewAlertEmitter(cfg, st, zerolog.Nop())
	monitor := NewMonitor("AB-1 Parking", cfg, src, em, metrics.New(), zerolog.Nop())

	ctx := context.Background()
	now := time.Now()

	// Dwell reaches 5s at tick 26, first alert fires; the cool-down elapses
	// at dwell 10s (tick 51) and a second alert fires. The short sleep lets
	// each tick's async emission land before the next tick.
	for i := 0; i < 55; i++ {
		src.push(restrictedTick())
		now = now.Add(200 * time.Millisecond)
		monitor.ProcessTick(ctx, now)
		time.Sleep(2 * time.Millisecond)
	}

	waitForCount(t, st, 2)
}

func TestPipelinePermittedZoneEmitsNothing(t *testing.T) {
	cfg := pipelineConfig()
	st := &countingStore{}
	src := &scriptedSource{}
	em := emitter.NewAlertEmitter(cfg, st, zerolog.Nop())
	monitor := NewMonitor("AB-1 Parking", cfg, src, em, metrics.New(), zerolog.Nop())

	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 60; i++ {
		src.push(parking.DetectionRecord{
			Zone: parking.ZonePermitted,
			Vehicles: []parking.VehicleObservation{{
				IdentityHint: "v1",
				ObjectClass:  "car",
				Confidence:   0.9,
			}},
		})
		now = now.Add(200 * time.Millisecond)
		monitor.ProcessTick(ctx, now)
	}

	time.Sleep(50 * time.Millisecond)
	if st.count() != 0 {
		t.Fatalf("expected no alerts in permitted zone, got %d", st.count())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := pipelineConfig()
	cfg.SamplingIntervalMs = 10
	st := &countingStore{}
	em := emitter.NewAlertEmitter(cfg, st, zerolog.Nop())
	monitor := NewMonitor("AB-1 Parking", cfg, detection.NewMockSource(1), em, metrics.New(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on cancellation")
	}
}
