package cache

import (
	"context"
	"fmt"
	"time"

	"chart-terminal/internal/model"
)

// Key identifies one cached series: symbol + resolution + span.
type Key struct {
	Symbol     string
	Resolution model.Resolution
	Span       time.Duration
}

// String renders the key for logging and for the redis keyspace.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%d", k.Symbol, k.Resolution, int64(k.Span/time.Second))
}

// Entry is a cached series with its fetch time. Staleness is judged at
// lookup time against the store's TTL; stale or corrupt entries read as
// a miss.
type Entry struct {
	Series    *model.ChartSeries `json:"series"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

// Store is a read-mostly series cache. Entries are replaced wholesale,
// never edited in place, so readers need no coordination beyond the
// store's own.
type Store interface {
	// Get returns the cached series for key, or ok=false on a miss
	// (absent, stale, or corrupt).
	Get(ctx context.Context, key Key) (*model.ChartSeries, bool)
	// Set stores a freshly fetched series under key.
	Set(ctx context.Context, key Key, series *model.ChartSeries)
	// Clear drops all entries.
	Clear(ctx context.Context)
}
