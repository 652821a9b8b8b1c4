// Package store persists recommendation snapshots so that browse sessions
// can be exported and compared across days.
package store

import (
	"context"
	"time"

	"stockadvisor/pkg/advisor"
)

// SnapshotStore persists and retrieves daily recommendation snapshots.
type SnapshotStore interface {
	// WriteSnapshot persists recs captured under capFilter at the given time.
	WriteSnapshot(ctx context.Context, capFilter advisor.CapFilter, at time.Time, recs []advisor.Recommendation) error

	// ReadSnapshot returns the recommendations stored for capFilter on day.
	ReadSnapshot(ctx context.Context, capFilter advisor.CapFilter, day time.Time) ([]advisor.Recommendation, error)

	// ListSnapshotDates returns the dates with a stored snapshot for capFilter.
	ListSnapshotDates(ctx context.Context, capFilter advisor.CapFilter) ([]string, error)
}
