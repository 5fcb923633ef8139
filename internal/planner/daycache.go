package planner

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/festival-planner/app/internal/log"
	"github.com/festival-planner/app/internal/models"
	"github.com/festival-planner/app/internal/schedule"
)

// LoadState is the lifecycle of one day in the cache.
type LoadState int

const (
	StateUninitialized LoadState = iota
	StateLoading
	StateReady
	StateError
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "uninitialized"
	}
}

// DayView is one festival day as the user sees it.
type DayView struct {
	Day string
	// Sets is the day's lineup ordered by stage, then start time.
	Sets []models.Set
	// Selected is the user's selections for the day, ordered by start time.
	Selected []models.Set
}

// Set looks up a set of the day by id.
func (v DayView) Set(setID int64) (models.Set, bool) {
	for _, s := range v.Sets {
		if s.ID == setID {
			return s, true
		}
	}
	return models.Set{}, false
}

func (v DayView) clone() DayView {
	return DayView{Day: v.Day, Sets: cloneSets(v.Sets), Selected: cloneSets(v.Selected)}
}

type dayEntry struct {
	state LoadState
	view  DayView
	err   error
}

// DayCache memoizes the lineup and the user's selections per day for the
// life of the process. Entries are never evicted.
type DayCache struct {
	store  Store
	userID int64

	mu      sync.Mutex
	entries map[string]*dayEntry
	group   singleflight.Group
}

// NewDayCache returns an empty cache for userID.
func NewDayCache(store Store, userID int64) *DayCache {
	return &DayCache{
		store:   store,
		userID:  userID,
		entries: make(map[string]*dayEntry),
	}
}

// GetOrFetch returns the cached day, loading it on first use. The lineup and
// the selections are fetched in parallel; concurrent callers for the same day
// share one load. A failed load leaves the day in StateError and the next
// call retries.
func (c *DayCache) GetOrFetch(ctx context.Context, day string) (DayView, error) {
	c.mu.Lock()
	if e, ok := c.entries[day]; ok && e.state == StateReady {
		view := e.view.clone()
		c.mu.Unlock()
		return view, nil
	}
	c.entry(day).state = StateLoading
	c.mu.Unlock()

	v, err, _ := c.group.Do(day, func() (any, error) {
		c.mu.Lock()
		if e := c.entries[day]; e.state == StateReady {
			view := e.view.clone()
			c.mu.Unlock()
			return view, nil
		}
		c.mu.Unlock()

		view, err := c.load(ctx, day)

		c.mu.Lock()
		defer c.mu.Unlock()
		e := c.entry(day)
		if err != nil {
			e.state, e.err = StateError, err
			return nil, err
		}
		e.state, e.err, e.view = StateReady, nil, view
		return view.clone(), nil
	})
	if err != nil {
		return DayView{}, err
	}
	return v.(DayView).clone(), nil
}

func (c *DayCache) load(ctx context.Context, day string) (DayView, error) {
	view := DayView{Day: day}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sets, err := c.store.Sets(gctx, day)
		if err != nil {
			return loadError("sets for "+day, err)
		}
		schedule.SortByStageAndTime(sets)
		view.Sets = sets
		return nil
	})
	g.Go(func() error {
		selected, err := c.store.UserSelections(gctx, c.userID, day)
		if err != nil {
			return loadError("selections for "+day, err)
		}
		view.Selected = selected
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("day load failed", err, "day", day, "user", c.userID)
		return DayView{}, err
	}

	log.Debug("day loaded", "day", day, "sets", len(view.Sets), "selected", len(view.Selected))
	return view, nil
}

// entry must be called with c.mu held.
func (c *DayCache) entry(day string) *dayEntry {
	e, ok := c.entries[day]
	if !ok {
		e = &dayEntry{}
		c.entries[day] = e
	}
	return e
}

// ReplaceSelections swaps in a fresh selection list for a loaded day.
// Days that are not loaded are left alone.
func (c *DayCache) ReplaceSelections(day string, selected []models.Set) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[day]; ok && e.state == StateReady {
		e.view.Selected = cloneSets(selected)
	}
}

// PatchSelections applies fn to a loaded day's selections.
func (c *DayCache) PatchSelections(day string, fn func([]models.Set) []models.Set) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[day]; ok && e.state == StateReady {
		e.view.Selected = fn(cloneSets(e.view.Selected))
	}
}

// View returns the cached day without fetching.
func (c *DayCache) View(day string) (DayView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[day]
	if !ok || e.state != StateReady {
		return DayView{}, false
	}
	return e.view.clone(), true
}

// State reports where day is in its lifecycle.
func (c *DayCache) State(day string) LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[day]; ok {
		return e.state
	}
	return StateUninitialized
}

// Err returns the last load error of a day in StateError.
func (c *DayCache) Err(day string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[day]; ok && e.state == StateError {
		return e.err
	}
	return nil
}

// IsSelected reports whether setID is in the day's cached selections.
func (c *DayCache) IsSelected(day string, setID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[day]
	if !ok || e.state != StateReady {
		return false
	}
	for _, s := range e.view.Selected {
		if s.ID == setID {
			return true
		}
	}
	return false
}
