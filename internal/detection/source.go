package detection

import (
	"fmt"
	"math/rand"
	"time"

	"parkwatch-service/internal/domain/parking"
)

// Source produces one detection record per sampling tick. The real
// implementation is an external vision model; the pipeline only depends on
// this contract.
type Source interface {
	Sample(now time.Time) parking.DetectionRecord
}

// MockSource stands in for the vision model with randomized detections in the
// shape the model would produce: a zone classification plus a handful of
// vehicle boxes.
type MockSource struct {
	rng         *rand.Rand
	frameWidth  float64
	frameHeight float64
}

func NewMockSource(seed int64) *MockSource {
	return &MockSource{
		rng:         rand.New(rand.NewSource(seed)),
		frameWidth:  640,
		frameHeight: 480,
	}
}

func (s *MockSource) Sample(now time.Time) parking.DetectionRecord {
	zone := parking.ZonePermitted
	if s.rng.Float64() > 0.5 {
		zone = parking.ZoneRestricted
	}

	n := 1 + s.rng.Intn(3)
	vehicles := make([]parking.VehicleObservation, 0, n)
	for i := 0; i < n; i++ {
		x1 := s.rng.Float64() * s.frameWidth * 0.5
		y1 := s.rng.Float64() * s.frameHeight * 0.5
		vehicles = append(vehicles, parking.VehicleObservation{
			IdentityHint:         fmt.Sprintf("%d", s.rng.Intn(100)),
			BoundingRegion:       [4]float64{x1, y1, x1 + s.frameWidth*0.3, y1 + s.frameHeight*0.3},
			ObjectClass:          "car",
			Confidence:           0.9 + s.rng.Float64()*0.1,
			ObservedDwellSeconds: s.rng.Float64() * 10,
			StatusHint:           parking.StatusNormal,
		})
	}

	return parking.DetectionRecord{
		Zone:       zone,
		Vehicles:   vehicles,
		CapturedAt: now,
	}
}
