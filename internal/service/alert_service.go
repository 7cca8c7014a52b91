package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parkwatch-service/internal/domain/parking"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// AlertRepository is the persistence surface the service needs. The gorm
// implementation lives in internal/repository; tests substitute a memory one.
type AlertRepository interface {
	CreateAlert(ctx context.Context, candidate parking.AlertCandidate) (*parking.AlertRecord, error)
	ListAlerts(ctx context.Context, query parking.AlertQuery) ([]parking.AlertRecord, error)
	DeleteAllAlerts(ctx context.Context) (int64, error)
}

// AlertService validates candidates and owns the server side of the
// AlertStore contract.
type AlertService struct {
	repo AlertRepository
	log  zerolog.Logger
}

func NewAlertService(repo AlertRepository, log zerolog.Logger) *AlertService {
	return &AlertService{
		repo: repo,
		log:  log,
	}
}

func (s *AlertService) Append(ctx context.Context, candidate parking.AlertCandidate) (*parking.AlertRecord, error) {
	if candidate.VehicleID == "" {
		return nil, fmt.Errorf("%w: vehicle_id is required", ErrInvalidInput)
	}
	if candidate.Location == "" {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	if candidate.DurationSeconds < 0 {
		return nil, fmt.Errorf("%w: duration must be non-negative", ErrInvalidInput)
	}

	if candidate.ViolationType == "" {
		candidate.ViolationType = parking.ViolationNoParkingZone
	}
	if candidate.EmittedAt.IsZero() {
		candidate.EmittedAt = time.Now()
	}

	record, err := s.repo.CreateAlert(ctx, candidate)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("vehicle_id", candidate.VehicleID).
			Str("location", candidate.Location).
			Msg("failed to create alert")
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	s.log.Info().
		Int64("alert_id", record.AlertID).
		Str("vehicle_id", record.VehicleID).
		Str("location", record.Location).
		Float64("duration_seconds", record.DurationSeconds).
		Time("emitted_at", record.EmittedAt).
		Msg("saved violation alert")

	return record, nil
}

func (s *AlertService) List(ctx context.Context, query parking.AlertQuery) ([]parking.AlertRecord, error) {
	switch query.Filter {
	case "", parking.FilterAll, parking.FilterToday, parking.FilterLast24:
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidInput, query.Filter)
	}
	switch query.Sort {
	case "", parking.SortNewest, parking.SortOldest, parking.SortDurationDesc:
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", ErrInvalidInput, query.Sort)
	}

	records, err := s.repo.ListAlerts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return records, nil
}

func (s *AlertService) ResetAll(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteAllAlerts(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to reset alerts")
		return 0, fmt.Errorf("failed to reset alerts: %w", err)
	}
	s.log.Info().Int64("removed", removed).Msg("alerts reset")
	return removed, nil
}
