package planner

import (
	"context"
	"sync"

	"github.com/festival-planner/app/internal/log"
	"github.com/festival-planner/app/internal/models"
)

// Counter holds attendee counts per festival day, fetched in one batched
// request per day.
type Counter struct {
	store Store

	mu     sync.Mutex
	counts map[string]models.AttendeeCounts
	stale  map[string]bool
	// seq advances on every fetch start and every invalidation of a day.
	seq map[string]uint64
}

// NewCounter returns an empty Counter.
func NewCounter(store Store) *Counter {
	return &Counter{
		store:  store,
		counts: make(map[string]models.AttendeeCounts),
		stale:  make(map[string]bool),
		seq:    make(map[string]uint64),
	}
}

// Fetch always asks the store for the day's counts and stores the result.
// On failure the previous counts are kept. A response is dropped when a newer
// fetch or an invalidation of the day started after it was requested; the
// stored counts are returned instead.
func (c *Counter) Fetch(ctx context.Context, day string) (models.AttendeeCounts, error) {
	c.mu.Lock()
	c.seq[day]++
	seq := c.seq[day]
	c.mu.Unlock()

	counts, err := c.store.AttendeeCounts(ctx, day)
	if err != nil {
		return nil, loadError("attendee counts for "+day, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq[day] {
		log.Debug("discarding stale attendee counts", "day", day)
		if stored, ok := c.counts[day]; ok {
			return copyCounts(stored), nil
		}
		return copyCounts(counts), nil
	}
	c.counts[day] = counts
	delete(c.stale, day)
	return copyCounts(counts), nil
}

// Get returns the stored counts, fetching only when the day is missing or
// was invalidated.
func (c *Counter) Get(ctx context.Context, day string) (models.AttendeeCounts, error) {
	c.mu.Lock()
	counts, ok := c.counts[day]
	fresh := ok && !c.stale[day]
	c.mu.Unlock()
	if fresh {
		return copyCounts(counts), nil
	}
	return c.Fetch(ctx, day)
}

// Counts returns the last stored counts for day, or nil.
func (c *Counter) Counts(day string) models.AttendeeCounts {
	c.mu.Lock()
	defer c.mu.Unlock()
	if counts, ok := c.counts[day]; ok {
		return copyCounts(counts)
	}
	return nil
}

// Count is the stored count for one set, zero when unknown.
func (c *Counter) Count(day string, setID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[day][setID]
}

// Invalidate marks a day's counts stale.
func (c *Counter) Invalidate(day string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale[day] = true
	c.seq[day]++
}

// InvalidateAll marks every stored day stale.
func (c *Counter) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for day := range c.counts {
		c.stale[day] = true
	}
	for day := range c.seq {
		c.seq[day]++
	}
}

func copyCounts(in models.AttendeeCounts) models.AttendeeCounts {
	out := make(models.AttendeeCounts, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
