package planner

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/festival-planner/app/internal/client"
	"github.com/festival-planner/app/internal/log"
	"github.com/festival-planner/app/internal/models"
)

// Tracker adds and removes the user's selections and keeps the day cache
// and the attendee counts in line with the store afterwards.
type Tracker struct {
	store   Store
	cache   *DayCache
	counter *Counter
	group   singleflight.Group
}

// NewTracker wires a tracker to the cache and counter it keeps in sync.
func NewTracker(store Store, cache *DayCache, counter *Counter) *Tracker {
	return &Tracker{store: store, cache: cache, counter: counter}
}

// IsSelected reports whether setID is in the day's in-memory selections.
func (t *Tracker) IsSelected(day string, setID int64) bool {
	return t.cache.IsSelected(day, setID)
}

// Add selects set for userID. A set the store already holds counts as
// success. Concurrent adds of the same set share one request.
func (t *Tracker) Add(ctx context.Context, userID int64, set models.Set) error {
	key := fmt.Sprintf("add:%d:%d", userID, set.ID)
	_, err, _ := t.group.Do(key, func() (any, error) {
		_, err := t.store.CreateSelection(ctx, userID, set.ID)
		if err != nil && !client.IsConflict(err) {
			return nil, &MutationError{Op: "add", SetID: set.ID, Err: err}
		}
		t.sync(ctx, userID, set.Day(), func(selected []models.Set) []models.Set {
			for _, s := range selected {
				if s.ID == set.ID {
					return selected
				}
			}
			return append(selected, set)
		})
		return nil, nil
	})
	return err
}

// Remove deselects set for userID. A selection the store no longer holds
// counts as success.
func (t *Tracker) Remove(ctx context.Context, userID int64, set models.Set) error {
	key := fmt.Sprintf("remove:%d:%d", userID, set.ID)
	_, err, _ := t.group.Do(key, func() (any, error) {
		err := t.store.DeleteSelection(ctx, userID, set.ID)
		if err != nil && !client.IsNotFound(err) {
			return nil, &MutationError{Op: "remove", SetID: set.ID, Err: err}
		}
		t.sync(ctx, userID, set.Day(), func(selected []models.Set) []models.Set {
			out := selected[:0]
			for _, s := range selected {
				if s.ID != set.ID {
					out = append(out, s)
				}
			}
			return out
		})
		return nil, nil
	})
	return err
}

// sync refetches the day's selections after a mutation, patching the cached
// list with fallback when the refetch fails, then refreshes the day's counts.
func (t *Tracker) sync(ctx context.Context, userID int64, day string, fallback func([]models.Set) []models.Set) {
	selected, err := t.store.UserSelections(ctx, userID, day)
	if err != nil {
		log.Error("selection refetch failed, patching locally", err, "day", day, "user", userID)
		t.cache.PatchSelections(day, fallback)
	} else {
		t.cache.ReplaceSelections(day, selected)
	}

	t.counter.Invalidate(day)
	if _, err := t.counter.Fetch(ctx, day); err != nil {
		log.Error("count refresh after mutation failed", err, "day", day)
	}
}
