// Package cooldown remembers which registrations a scanning station has
// accepted recently. Entries are never evicted by size; EvictOlderThan is the
// only way they leave the cache.
package cooldown

import (
	"context"
	"time"
)

type Entry struct {
	ScannedAt time.Time
	FirstName string
	LastName  string
}

// Within reports whether the entry is younger than window at now.
func (e Entry) Within(now time.Time, window time.Duration) bool {
	return now.Sub(e.ScannedAt) < window
}

type Cache interface {
	// Get returns nil, nil when id has no entry.
	Get(ctx context.Context, id string) (*Entry, error)
	Set(ctx context.Context, id string, e Entry) error
	// EvictOlderThan drops entries scanned before cutoff and returns how many.
	EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
