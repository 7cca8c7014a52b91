package store

import (
	"context"
	"errors"

	"parkwatch-service/internal/domain/parking"
)

var (
	// ErrUnavailable covers transport failures and timeouts; callers retry
	// on the next qualifying decision.
	ErrUnavailable = errors.New("alert store unavailable")
	// ErrInvalid marks a candidate the store rejected.
	ErrInvalid = errors.New("invalid alert candidate")
)

// AlertStore is the durable append-only log of alert records. The store owns
// the canonical alert id space; clients never assume read-after-write
// consistency across processes.
type AlertStore interface {
	Append(ctx context.Context, candidate parking.AlertCandidate) (*parking.AlertRecord, error)
	List(ctx context.Context, query parking.AlertQuery) ([]parking.AlertRecord, error)
	ResetAll(ctx context.Context) (int64, error)
}
