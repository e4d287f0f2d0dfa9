package store

import (
	"regwatch.co/sentinel/core/db"
)

// Stores bundles the persistence layer handed to the monitor and the
// HTTP handlers.
type Stores struct {
	snapshots SnapshotStore
	alerts    AlertStore
}

func NewStores(database *db.DB) *Stores {
	pool := database.Pool()
	return &Stores{
		snapshots: newSnapshotStore(pool),
		alerts:    newAlertStore(pool),
	}
}

func (s *Stores) Snapshots() SnapshotStore {
	return s.snapshots
}

func (s *Stores) Alerts() AlertStore {
	return s.alerts
}
