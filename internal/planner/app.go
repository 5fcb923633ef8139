package planner

import (
	"context"
	"sync"
	"time"

	"github.com/festival-planner/app/internal/log"
	"github.com/festival-planner/app/internal/models"
	"github.com/festival-planner/app/internal/schedule"
)

// Tab is a top-level section of the planner.
type Tab string

const (
	TabSets         Tab = "sets"
	TabMySelections Tab = "my-selections"
	TabAttendees    Tab = "attendees"
)

// ViewMode selects how the sets tab groups a day.
type ViewMode string

const (
	ViewStage ViewMode = "stage"
	ViewTime  ViewMode = "time"
)

// Feedback messages raised by Toggle.
const (
	MsgAdded   = "Added to your schedule"
	MsgRemoved = "Removed from your schedule"
	MsgFailed  = "Failed to update selection"
)

// FeedbackTTL is how long a feedback message stays visible.
const FeedbackTTL = 3 * time.Second

// Feedback is a transient message shown after a toggle.
type Feedback struct {
	Message  string
	Error    bool
	RaisedAt time.Time
}

// Detail is the open artist view.
type Detail struct {
	Set       models.Set
	Attendees []models.User
	Count     int
}

// State is everything the shell renders from. App hands out copies.
type State struct {
	User     *models.User
	Tab      Tab
	Days     []models.FestivalDay
	Day      string
	ViewMode ViewMode
	Stage    string
	Query    string
	DarkMode bool
	Detail   *Detail
	Feedback *Feedback

	// DayState and LoadErr describe the active day's load.
	DayState LoadState
	LoadErr  error
}

// App owns the planner state and coordinates the cache, counter and
// tracker. It is safe for concurrent use; no lock is held across a request.
type App struct {
	store   Store
	counter *Counter
	now     func() time.Time

	mu      sync.Mutex
	state   State
	cache   *DayCache
	tracker *Tracker
	seq     uint64
}

// NewApp returns an App with no user signed in.
func NewApp(store Store) *App {
	counter := NewCounter(store)
	return &App{
		store:   store,
		counter: counter,
		now:     time.Now,
		state:   State{Tab: TabSets, ViewMode: ViewStage},
	}
}

// SetUser signs user in. Cached days belong to the previous user and are
// dropped.
func (a *App) SetUser(user models.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u := user
	a.state.User = &u
	a.cache = NewDayCache(a.store, user.ID)
	a.tracker = NewTracker(a.store, a.cache, a.counter)
	a.state.Detail = nil
	a.state.DayState = StateUninitialized
	a.state.LoadErr = nil
}

// State returns a snapshot of the current state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.state
	if s.Detail != nil {
		d := *s.Detail
		d.Attendees = append([]models.User(nil), d.Attendees...)
		s.Detail = &d
	}
	s.Days = append([]models.FestivalDay(nil), s.Days...)
	return s
}

func (a *App) session() (*models.User, *DayCache, *Tracker, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.User == nil {
		return nil, nil, nil, ErrNoUser
	}
	return a.state.User, a.cache, a.tracker, nil
}

// LoadDays fetches the festival days and makes the first one active when no
// day is selected yet.
func (a *App) LoadDays(ctx context.Context) ([]models.FestivalDay, error) {
	days, err := a.store.FestivalDays(ctx)
	if err != nil {
		return nil, loadError("festival days", err)
	}
	a.mu.Lock()
	a.state.Days = days
	pick := a.state.Day == "" && len(days) > 0
	a.mu.Unlock()

	if pick {
		if err := a.SelectDay(ctx, days[0].Date); err != nil {
			return days, err
		}
	}
	return days, nil
}

// SelectDay makes day active. The day's sets and selections come from the
// cache when present; the counts are always fetched again. If another day
// is selected while this one loads, this result is dropped.
func (a *App) SelectDay(ctx context.Context, day string) error {
	_, cache, _, err := a.session()
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.state.Day = day
	a.state.DayState = StateLoading
	a.state.LoadErr = nil
	a.state.Detail = nil
	a.mu.Unlock()

	view, err := cache.GetOrFetch(ctx, day)
	if err == nil {
		if _, cerr := a.counter.Fetch(ctx, day); cerr != nil {
			log.Error("attendee counts unavailable", cerr, "day", day)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if seq != a.seq {
		log.Debug("discarding stale day load", "day", day)
		return nil
	}
	if err != nil {
		a.state.DayState = StateError
		a.state.LoadErr = err
		return err
	}
	a.state.DayState = StateReady
	stages := schedule.Stages(view.Sets)
	if !contains(stages, a.state.Stage) && len(stages) > 0 {
		a.state.Stage = stages[0]
	}
	return nil
}

// Refresh re-fetches the active day's counts, e.g. when the shell regains
// focus.
func (a *App) Refresh(ctx context.Context) error {
	a.mu.Lock()
	day := a.state.Day
	a.mu.Unlock()
	if day == "" {
		return nil
	}
	a.counter.Invalidate(day)
	_, err := a.counter.Fetch(ctx, day)
	return err
}

// IsSelected reports whether setID is selected on the active day.
func (a *App) IsSelected(setID int64) bool {
	a.mu.Lock()
	day, tracker := a.state.Day, a.tracker
	a.mu.Unlock()
	if tracker == nil {
		return false
	}
	return tracker.IsSelected(day, setID)
}

// Toggle adds or removes a set of the active day and raises feedback. An
// open detail view of the set gets a fresh attendee list.
func (a *App) Toggle(ctx context.Context, setID int64) error {
	user, cache, tracker, err := a.session()
	if err != nil {
		return err
	}
	a.mu.Lock()
	day := a.state.Day
	a.mu.Unlock()

	view, ok := cache.View(day)
	if !ok {
		return ErrUnknownSet
	}
	set, ok := view.Set(setID)
	if !ok {
		return ErrUnknownSet
	}

	msg := MsgAdded
	if tracker.IsSelected(day, setID) {
		msg = MsgRemoved
		err = tracker.Remove(ctx, user.ID, set)
	} else {
		err = tracker.Add(ctx, user.ID, set)
	}

	if err != nil {
		a.raise(MsgFailed, true)
		return err
	}
	a.raise(msg, false)
	a.refreshDetail(ctx, setID)
	return nil
}

// Remove deselects a set from any day, as the my-selections tab does. An open
// detail view of the set gets a fresh attendee list.
func (a *App) Remove(ctx context.Context, set models.Set) error {
	user, _, tracker, err := a.session()
	if err != nil {
		return err
	}
	if err := tracker.Remove(ctx, user.ID, set); err != nil {
		a.raise(MsgFailed, true)
		return err
	}
	a.raise(MsgRemoved, false)
	a.refreshDetail(ctx, set.ID)
	return nil
}

func (a *App) refreshDetail(ctx context.Context, setID int64) {
	if !a.detailOpen(setID) {
		return
	}
	if err := a.OpenDetail(ctx, setID); err != nil {
		log.Error("attendee refresh failed", err, "set", setID)
	}
}

func (a *App) raise(msg string, isErr bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Feedback = &Feedback{Message: msg, Error: isErr, RaisedAt: a.now()}
}

// Feedback returns the current message, or nil once FeedbackTTL has passed.
func (a *App) Feedback(now time.Time) *Feedback {
	a.mu.Lock()
	defer a.mu.Unlock()
	f := a.state.Feedback
	if f == nil {
		return nil
	}
	if now.Sub(f.RaisedAt) >= FeedbackTTL {
		a.state.Feedback = nil
		return nil
	}
	out := *f
	return &out
}

func (a *App) detailOpen(setID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Detail != nil && a.state.Detail.Set.ID == setID
}

// OpenDetail shows a set of the active day with the users attending it.
func (a *App) OpenDetail(ctx context.Context, setID int64) error {
	_, cache, _, err := a.session()
	if err != nil {
		return err
	}
	a.mu.Lock()
	day := a.state.Day
	a.mu.Unlock()

	view, _ := cache.View(day)
	set, ok := view.Set(setID)
	if !ok {
		return ErrUnknownSet
	}

	attendees, err := a.store.SetAttendees(ctx, setID)
	if err != nil {
		return loadError("attendees", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Detail = &Detail{Set: set, Attendees: attendees, Count: len(attendees)}
	return nil
}

// CloseDetail dismisses the artist view.
func (a *App) CloseDetail() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Detail = nil
}

// SetTab switches the top-level section.
func (a *App) SetTab(tab Tab) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch tab {
	case TabSets, TabMySelections, TabAttendees:
		a.state.Tab = tab
	}
}

// SetViewMode switches between stage and time grouping.
func (a *App) SetViewMode(mode ViewMode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch mode {
	case ViewStage, ViewTime:
		a.state.ViewMode = mode
	}
}

// SetStage picks the stage shown in stage mode.
func (a *App) SetStage(stage string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Stage = stage
}

// SetQuery sets the search filter.
func (a *App) SetQuery(q string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Query = q
}

// SetDarkMode switches the theme.
func (a *App) SetDarkMode(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.DarkMode = on
}

// Users lists every attendee profile.
func (a *App) Users(ctx context.Context) ([]models.User, error) {
	users, err := a.store.Users(ctx)
	if err != nil {
		return nil, loadError("users", err)
	}
	return users, nil
}

// UserSchedule returns a user's selections across all days, grouped by day
// and time slot.
func (a *App) UserSchedule(ctx context.Context, userID int64) ([]schedule.DaySlots, error) {
	sets, err := a.store.UserSelections(ctx, userID, "")
	if err != nil {
		return nil, loadError("user schedule", err)
	}
	return schedule.ByDayAndTime(sets), nil
}

// MySchedule is UserSchedule for the signed-in user.
func (a *App) MySchedule(ctx context.Context) ([]schedule.DaySlots, error) {
	user, _, _, err := a.session()
	if err != nil {
		return nil, err
	}
	return a.UserSchedule(ctx, user.ID)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
