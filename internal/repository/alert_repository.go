package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"parkwatch-service/internal/domain/parking"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

type Alert struct {
	ID            int64     `gorm:"primaryKey"`
	VehicleID     string    `gorm:"not null"`
	Location      string    `gorm:"not null"`
	Duration      float64   `gorm:"not null"`
	ViolationType string    `gorm:"not null"`
	EmittedAt     time.Time `gorm:"not null"`
	Details       datatypes.JSON
	CreatedAt     time.Time
}

func (Alert) TableName() string {
	return "alerts"
}

func (r *AlertRepository) CreateAlert(ctx context.Context, candidate parking.AlertCandidate) (*parking.AlertRecord, error) {
	dbAlert := Alert{
		VehicleID:     candidate.VehicleID,
		Location:      candidate.Location,
		Duration:      candidate.DurationSeconds,
		ViolationType: string(candidate.ViolationType),
		EmittedAt:     candidate.EmittedAt,
		CreatedAt:     time.Now(),
	}
	if len(candidate.Details) > 0 {
		dbAlert.Details = candidate.Details
	}

	if err := r.db.WithContext(ctx).Create(&dbAlert).Error; err != nil {
		return nil, err
	}

	record := toRecord(dbAlert)
	return &record, nil
}

func (r *AlertRepository) ListAlerts(ctx context.Context, query parking.AlertQuery) ([]parking.AlertRecord, error) {
	query = query.Normalize()

	q := r.db.WithContext(ctx).Model(&Alert{})

	if start := query.WindowStart(time.Now()); !start.IsZero() {
		q = q.Where("emitted_at >= ?", start)
	}

	switch query.Sort {
	case parking.SortOldest:
		q = q.Order("emitted_at ASC").Order("id ASC")
	case parking.SortDurationDesc:
		q = q.Order("duration DESC").Order("id ASC")
	default:
		q = q.Order("emitted_at DESC").Order("id ASC")
	}

	q = q.Limit(query.Limit)

	var alerts []Alert
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}

	records := make([]parking.AlertRecord, 0, len(alerts))
	for _, a := range alerts {
		records = append(records, toRecord(a))
	}
	return records, nil
}

func (r *AlertRepository) DeleteAllAlerts(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&Alert{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func toRecord(a Alert) parking.AlertRecord {
	return parking.AlertRecord{
		AlertID:         a.ID,
		VehicleID:       a.VehicleID,
		Location:        a.Location,
		DurationSeconds: a.Duration,
		ViolationType:   parking.ViolationType(a.ViolationType),
		EmittedAt:       a.EmittedAt,
		Details:         a.Details,
	}
}
