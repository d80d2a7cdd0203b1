package repository

import "time"

// CacheEntry represents a cache_entries row.
type CacheEntry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// ReconcileRun represents one duplicate-cleanup pass recorded on this device.
type ReconcileRun struct {
	ID          string
	AccountKey  string
	GroupsFound int
	Removed     int
	Failed      int
	CreatedAt   time.Time
}
