package view

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"parkwatch-service/internal/domain/parking"
	"parkwatch-service/internal/store"
)

// AlertView is one client's projection of the alert store: a bounded rolling
// window with a local dismissed-set overlay. Dismissals are never written
// back to the store; only ResetAll touches server state.
type AlertView struct {
	store        store.AlertStore
	pollInterval time.Duration
	maxVisible   int
	log          zerolog.Logger

	mu        sync.Mutex
	filter    parking.TimeFilter
	sortOrder parking.SortOrder
	records   []parking.AlertRecord
	dismissed map[int64]struct{}
	stale     bool
}

func NewAlertView(st store.AlertStore, pollInterval time.Duration, maxVisible int, log zerolog.Logger) *AlertView {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if maxVisible <= 0 {
		maxVisible = 100
	}
	return &AlertView{
		store:        st,
		pollInterval: pollInterval,
		maxVisible:   maxVisible,
		log:          log,
		filter:       parking.FilterAll,
		sortOrder:    parking.SortNewest,
		dismissed:    make(map[int64]struct{}),
	}
}

// Run polls the store until the context is cancelled.
func (v *AlertView) Run(ctx context.Context) {
	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()

	v.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.refresh(ctx)
		}
	}
}

// Refresh fetches the store on demand (manual refresh).
func (v *AlertView) Refresh(ctx context.Context) error {
	return v.refresh(ctx)
}

func (v *AlertView) refresh(ctx context.Context) error {
	v.mu.Lock()
	query := parking.AlertQuery{Filter: v.filter, Sort: v.sortOrder, Limit: v.maxVisible}
	v.mu.Unlock()

	records, err := v.store.List(ctx, query)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		// Stale data beats no data: keep the last-known list on display.
		v.stale = true
		v.log.Warn().Err(err).Msg("alert poll failed, showing stale data")
		return err
	}
	v.records = records
	v.stale = false
	return nil
}

// SetFilter changes the time window applied on the next refresh and snapshot.
func (v *AlertView) SetFilter(filter parking.TimeFilter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = filter
}

// SetSort changes the ordering applied on the next refresh and snapshot.
func (v *AlertView) SetSort(order parking.SortOrder) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sortOrder = order
}

// Dismiss hides one alert locally. It does not touch the store.
func (v *AlertView) Dismiss(alertID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dismissed[alertID] = struct{}{}
}

// Stale reports whether the last poll failed.
func (v *AlertView) Stale() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stale
}

// Snapshot returns the currently visible alerts: the cached server records
// with the local filter, sort and dismissed overlay applied.
func (v *AlertView) Snapshot(now time.Time) []parking.AlertRecord {
	v.mu.Lock()
	defer v.mu.Unlock()

	query := parking.AlertQuery{Filter: v.filter, Sort: v.sortOrder}
	start := query.WindowStart(now)

	visible := make([]parking.AlertRecord, 0, len(v.records))
	for _, r := range v.records {
		if _, gone := v.dismissed[r.AlertID]; gone {
			continue
		}
		if !start.IsZero() && r.EmittedAt.Before(start) {
			continue
		}
		visible = append(visible, r)
	}

	sortRecords(visible, v.sortOrder)
	if len(visible) > v.maxVisible {
		visible = visible[:v.maxVisible]
	}
	return visible
}

// ResetAll clears server state and all local view state.
func (v *AlertView) ResetAll(ctx context.Context) (int64, error) {
	removed, err := v.store.ResetAll(ctx)
	if err != nil {
		return 0, err
	}

	v.mu.Lock()
	v.records = nil
	v.dismissed = make(map[int64]struct{})
	v.stale = false
	v.mu.Unlock()
	return removed, nil
}

// sortRecords orders records with ties broken by alert id ascending.
func sortRecords(records []parking.AlertRecord, order parking.SortOrder) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		switch order {
		case parking.SortOldest:
			if !a.EmittedAt.Equal(b.EmittedAt) {
				return a.EmittedAt.Before(b.EmittedAt)
			}
		case parking.SortDurationDesc:
			if a.DurationSeconds != b.DurationSeconds {
				return a.DurationSeconds > b.DurationSeconds
			}
		default:
			if !a.EmittedAt.Equal(b.EmittedAt) {
				return a.EmittedAt.After(b.EmittedAt)
			}
		}
		return a.AlertID < b.AlertID
	})
}
