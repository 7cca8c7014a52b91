package detection

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"parkwatch-service/internal/domain/parking"
)

// Classifier derives violation decisions from tracker snapshots. It is
// stateless and re-entrant: the same vehicle keeps producing decisions while
// it stays in violation, and the emitter owns suppression.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns a decision only when the vehicle is in violation inside a
// restricted zone, nil otherwise.
func (c *Classifier) Classify(snapshot parking.TrackedVehicle, zone parking.Zone, location string, now time.Time) *parking.ViolationDecision {
	if snapshot.Status != parking.StatusViolation || zone != parking.ZoneRestricted {
		return nil
	}

	details, _ := json.Marshal(map[string]interface{}{
		"bbox":  snapshot.BoundingRegion,
		"class": snapshot.ObjectClass,
	})

	return &parking.ViolationDecision{
		VehicleID:       snapshot.IdentityHint,
		Location:        location,
		DurationSeconds: snapshot.DwellSeconds,
		DetectedAt:      now,
		Details:         datatypes.JSON(details),
	}
}
