package parking

import (
	"time"

	"gorm.io/datatypes"
)

// Zone is the classification of the monitored area for a single frame.
type Zone string

const (
	ZoneRestricted Zone = "RESTRICTED"
	ZonePermitted  Zone = "PERMITTED"
)

// VehicleStatus is the dwell-derived state of a tracked vehicle.
type VehicleStatus string

const (
	StatusNormal    VehicleStatus = "NORMAL"
	StatusWarning   VehicleStatus = "WARNING"
	StatusViolation VehicleStatus = "VIOLATION"
)

// ViolationType currently covers parking in a restricted zone only.
type ViolationType string

const ViolationNoParkingZone ViolationType = "no_parking_zone"

// VehicleObservation is a single vehicle seen in one frame. IdentityHint is
// stable only within a client session; ObservedDwellSeconds is the source's
// own estimate and is advisory only.
type VehicleObservation struct {
	IdentityHint         string        `json:"id"`
	BoundingRegion       [4]float64    `json:"bbox"`
	ObjectClass          string        `json:"class"`
	Confidence           float64       `json:"confidence"`
	ObservedDwellSeconds float64       `json:"duration"`
	StatusHint           VehicleStatus `json:"status"`
}

// DetectionRecord is the per-tick output of the frame detection source. It is
// consumed synchronously by the tracker and never persisted.
type DetectionRecord struct {
	Zone       Zone                 `json:"prediction"`
	Vehicles   []VehicleObservation `json:"vehicles"`
	CapturedAt time.Time            `json:"captured_at"`
}

// TrackedVehicle is the tracker's per-vehicle state. DwellSeconds is derived
// purely from tick deltas, never copied from ObservedDwellSeconds.
type TrackedVehicle struct {
	IdentityHint   string
	BoundingRegion [4]float64
	ObjectClass    string
	FirstSeenAt    time.Time
	LastSeenAt     time.Time
	DwellSeconds   float64
	Status         VehicleStatus
}

// ViolationDecision is the classifier's output for a vehicle in violation.
type ViolationDecision struct {
	VehicleID       string
	Location        string
	DurationSeconds float64
	DetectedAt      time.Time
	Details         datatypes.JSON
}

// AlertCandidate is what the emitter sends to the store; the store assigns
// the canonical id.
type AlertCandidate struct {
	VehicleID       string         `json:"vehicle_id"`
	Location        string         `json:"location"`
	DurationSeconds float64        `json:"duration"`
	ViolationType   ViolationType  `json:"violation_type"`
	EmittedAt       time.Time      `json:"timestamp"`
	Details         datatypes.JSON `json:"details,omitempty"`
}

// AlertRecord is a durable violation alert. AlertID is store-assigned and
// monotonically increasing.
type AlertRecord struct {
	AlertID         int64          `json:"id"`
	VehicleID       string         `json:"vehicle_id"`
	Location        string         `json:"location"`
	DurationSeconds float64        `json:"duration"`
	ViolationType   ViolationType  `json:"violation_type"`
	EmittedAt       time.Time      `json:"timestamp"`
	Details         datatypes.JSON `json:"details,omitempty"`
}

// TimeFilter restricts a listing to a time window.
type TimeFilter string

const (
	FilterAll    TimeFilter = "all"
	FilterToday  TimeFilter = "today"
	FilterLast24 TimeFilter = "last_24h"
)

// SortOrder controls listing order. Ties are always broken by AlertID
// ascending so repeated listings are stable.
type SortOrder string

const (
	SortNewest       SortOrder = "newest"
	SortOldest       SortOrder = "oldest"
	SortDurationDesc SortOrder = "duration"
)

// AlertQuery is the listing request accepted by the store.
type AlertQuery struct {
	Filter TimeFilter
	Sort   SortOrder
	Limit  int
}

// Normalize fills in defaults for zero-valued query fields.
func (q AlertQuery) Normalize() AlertQuery {
	if q.Filter == "" {
		q.Filter = FilterAll
	}
	if q.Sort == "" {
		q.Sort = SortNewest
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 100
	}
	return q
}

// WindowStart returns the lower time bound for the filter, or the zero time
// for FilterAll.
func (q AlertQuery) WindowStart(now time.Time) time.Time {
	switch q.Filter {
	case FilterToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case FilterLast24:
		return now.Add(-24 * time.Hour)
	default:
		return time.Time{}
	}
}
