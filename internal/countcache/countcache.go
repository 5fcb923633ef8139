// Package countcache caches per-day attendee counts on the server so repeated
// day switches by many clients do not each run the aggregate query.
package countcache

import (
	"context"
	"sync"
	"time"

	"github.com/festival-planner/app/internal/models"
)

// AllDays is the cache key used for counts that are not scoped to a day.
const AllDays = "all"

// Cache stores attendee counts keyed by festival day. Implementations must be
// safe for concurrent use. A failing backend behaves like a miss.
//
// Every day carries a generation that Invalidate advances. Readers take the
// generation before querying the database and hand it to Set, which drops
// the write when an invalidation happened in between.
type Cache interface {
	Get(ctx context.Context, day string) (models.AttendeeCounts, bool)
	Generation(ctx context.Context, day string) uint64
	Set(ctx context.Context, day string, gen uint64, counts models.AttendeeCounts)
	// Invalidate drops the given days and the unscoped entry.
	Invalidate(ctx context.Context, days ...string)
}

func dayKey(day string) string {
	if day == "" {
		return AllDays
	}
	return day
}

type entry struct {
	counts  models.AttendeeCounts
	expires time.Time
}

var _ Cache = (*Memory)(nil)

// Memory is an in-process Cache used when no Redis address is configured.
type Memory struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]entry
	gens    map[string]uint64
}

// NewMemory returns a Memory cache whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
	}
}

func (m *Memory) Get(_ context.Context, day string) (models.AttendeeCounts, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := dayKey(day)
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return copyCounts(e.counts), true
}

func (m *Memory) Generation(_ context.Context, day string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[dayKey(day)]
}

func (m *Memory) Set(_ context.Context, day string, gen uint64, counts models.AttendeeCounts) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := dayKey(day)
	if m.gens[key] != gen {
		return
	}
	m.entries[key] = entry{counts: copyCounts(counts), expires: m.now().Add(m.ttl)}
}

func (m *Memory) Invalidate(_ context.Context, days ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gens[AllDays]++
	delete(m.entries, AllDays)
	for _, d := range days {
		key := dayKey(d)
		if key == AllDays {
			continue
		}
		m.gens[key]++
		delete(m.entries, key)
	}
}

func copyCounts(in models.AttendeeCounts) models.AttendeeCounts {
	out := make(models.AttendeeCounts, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
