package store

import (
	"context"
	"errors"
	"time"

	"regwatch.co/sentinel/internal/model"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// SnapshotStore persists the last successfully observed content per
// source. Rows are created on first observation and updated in place;
// they are never deleted. Each row is only ever written by the single
// task that owns its source for the duration of a run.
type SnapshotStore interface {
	Get(ctx context.Context, sourceID string) (*model.Snapshot, error)
	Upsert(ctx context.Context, snapshot *model.Snapshot) error
	// TouchScraped advances last_scraped_at without touching content,
	// fingerprint or last_changed_at. Used for unchanged sources.
	TouchScraped(ctx context.Context, sourceID string, at time.Time) error
}

// AlertFilter narrows an alert listing. SourceIDs is how jurisdiction
// filtering reaches the store: the caller resolves a jurisdiction label
// to its source IDs against the registry.
type AlertFilter struct {
	SourceIDs []string
	Notified  *bool
	Limit     int32
}

// AlertStore is the append-only audit trail of material changes.
// Notified is the only mutable column after creation.
type AlertStore interface {
	Create(ctx context.Context, alert *model.Alert) error
	GetByID(ctx context.Context, id int64) (*model.Alert, error)
	List(ctx context.Context, filter AlertFilter) ([]model.Alert, error)
	MarkNotified(ctx context.Context, id int64) error
}
