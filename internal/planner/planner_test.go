package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/festival-planner/app/internal/models"
)

const (
	dayOne = "2025-04-26"
	dayTwo = "2025-04-27"
)

func setupTestApp(t *testing.T) (*App, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	app := NewApp(store)
	app.SetUser(models.User{ID: 1, Name: "Alice"})
	return app, store
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSelectDayUsesCacheButRefetchesCounts(t *testing.T) {
	ctx := context.Background()
	app, store := setupTestApp(t)

	for _, day := range []string{dayOne, dayTwo, dayOne} {
		if err := app.SelectDay(ctx, day); err != nil {
			t.Fatalf("SelectDay(%s) error = %v", day, err)
		}
	}

	if n := store.count("sets:" + dayOne); n != 1 {
		t.Errorf("sets requests for day one = %d, want 1", n)
	}
	if n := store.count("selections:" + dayOne); n != 1 {
		t.Errorf("selection requests for day one = %d, want 1", n)
	}
	if n := store.count("counts:" + dayOne); n != 2 {
		t.Errorf("count requests for day one = %d, want 2", n)
	}
	if st := app.State(); st.Day != dayOne || st.DayState != StateReady {
		t.Errorf("state = %+v", st)
	}
}

func TestToggleAddThenRemove(t *testing.T) {
	ctx := context.Background()
	app, _ := setupTestApp(t)
	app.now = func() time.Time { return time.Date(2025, 4, 26, 9, 0, 0, 0, time.UTC) }
	if err := app.SelectDay(ctx, dayOne); err != nil {
		t.Fatal(err)
	}

	if app.IsSelected(1) || app.counter.Count(dayOne, 1) != 0 {
		t.Fatal("set 1 selected before any toggle")
	}

	if err := app.Toggle(ctx, 1); err != nil {
		t.Fatalf("Toggle() add error = %v", err)
	}
	if !app.IsSelected(1) {
		t.Error("set 1 not selected after add")
	}
	if got := app.counter.Count(dayOne, 1); got != 1 {
		t.Errorf("count after add = %d, want 1", got)
	}
	if fb := app.Feedback(app.now()); fb == nil || fb.Message != MsgAdded {
		t.Errorf("feedback after add = %+v", fb)
	}

	if err := app.Toggle(ctx, 1); err != nil {
		t.Fatalf("Toggle() remove error = %v", err)
	}
	if app.IsSelected(1) {
		t.Error("set 1 still selected after remove")
	}
	if got := app.counter.Count(dayOne, 1); got != 0 {
		t.Errorf("count after remove = %d, want 0", got)
	}
	if fb := app.Feedback(app.now()); fb == nil || fb.Message != MsgRemoved {
		t.Errorf("feedback after remove = %+v", fb)
	}
}

func TestRepeatedMutationsConverge(t *testing.T) {
	ctx := context.Background()
	app, store := setupTestApp(t)
	if err := app.SelectDay(ctx, dayOne); err != nil {
		t.Fatal(err)
	}
	set, _ := app.cache.View(dayOne)
	target, _ := set.Set(3)

	t.Run("remove twice", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if err := app.tracker.Remove(ctx, 1, target); err != nil {
				t.Fatalf("Remove() #%d error = %v", i+1, err)
			}
		}
		if app.IsSelected(3) {
			t.Error("set selected after removes")
		}
	})

	t.Run("add twice", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if err := app.tracker.Add(ctx, 1, target); err != nil {
				t.Fatalf("Add() #%d error = %v", i+1, err)
			}
		}
		if !app.IsSelected(3) {
			t.Error("set not selected after adds")
		}
		if got := app.counter.Count(dayOne, 3); got != 1 {
			t.Errorf("count = %d, want 1", got)
		}
	})

	t.Run("concurrent adds", func(t *testing.T) {
		other, _ := set.Set(2)
		var wg sync.WaitGroup
		errs := make(chan error, 4)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- app.tracker.Add(ctx, 1, other)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Errorf("concurrent Add() error = %v", err)
			}
		}
		if !store.selections[1][2] || !app.IsSelected(2) {
			t.Error("set 2 not selected")
		}
	})
}

func TestMutationFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	app, store := setupTestApp(t)
	if err := app.SelectDay(ctx, dayOne); err != nil {
		t.Fatal(err)
	}
	countsBefore := store.count("counts:" + dayOne)
	store.failCreate = errBoom

	err := app.Toggle(ctx, 1)
	var mutErr *MutationError
	if !errors.As(err, &mutErr) || mutErr.Op != "add" || mutErr.SetID != 1 {
		t.Fatalf("Toggle() error = %v, want *MutationError for add", err)
	}
	if !errors.Is(err, errBoom) {
		t.Error("MutationError does not unwrap to the store error")
	}
	if app.IsSelected(1) {
		t.Error("set selected after failed add")
	}
	if store.count("counts:"+dayOne) != countsBefore {
		t.Error("counts refetched after failed mutation")
	}
	fb := app.Feedback(time.Now())
	if fb == nil || fb.Message != MsgFailed || !fb.Error {
		t.Errorf("feedback = %+v", fb)
	}
}

func TestRefetchFailureFallsBackToLocalPatch(t *testing.T) {
	ctx := context.Background()
	app, store := setupTestApp(t)
	if err := app.SelectDay(ctx, dayOne); err != nil {
		t.Fatal(err)
	}
	store.failRefetch = true

	if err := app.Toggle(ctx, 2); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !app.IsSelected(2) {
		t.Error("local selection not patched after failed refetch")
	}
	if err := app.Toggle(ctx, 2); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if app.IsSelected(2) {
		t.Error("local selection not removed after failed refetch")
	}
}

func TestStaleDayResponseIsDiscarded(t *testing.T) {
	ctx := context.Background()
	app, store := setupTestApp(t)
	release := make(chan struct{})
	store.block[dayOne] = release

	done := make(chan error, 1)
	go func() { done <- app.SelectDay(ctx, dayOne) }()
	waitFor(t, func() bool { return store.count("sets:"+dayOne) == 1 })

	if err := app.SelectDay(ctx, dayTwo); err != nil {
		t.Fatalf("SelectDay(dayTwo) error = %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale SelectDay returned %v", err)
	}

	st := app.State()
	if st.Day != dayTwo || st.DayState != StateReady {
		t.Errorf("state after stale response = day %s state %v", st.Day, st.DayState)
	}
	v, err := app.ScheduleView()
	if err != nil {
		t.Fatal(err)
	}
	if v.Day != dayTwo || len(v.StageSets) != 1 || v.StageSets[0].Set.ID != 4 {
		t.Errorf("view shows %+v", v)
	}
}

func TestLoadFailureAndRetry(t *testing.T) {
	ctx := context.Background()
	app, store := setupTestApp(t)
	store.failSets = errBoom

	err := app.SelectDay(ctx, dayOne)
	if !errors.Is(err, ErrLoad) || !errors.Is(err, errBoom) {
		t.Fatalf("SelectDay() error = %v, want ErrLoad wrapping store error", err)
	}
	st := app.State()
	if st.DayState != StateError || st.LoadErr == nil {
		t.Errorf("state = %v, err %v", st.DayState, st.LoadErr)
	}
	if app.cache.State(dayOne) != StateError || app.cache.Err(dayOne) == nil {
		t.Error("cache entry not in error state")
	}
	if _, err := app.ScheduleView(); !errors.Is(err, ErrNotReady) {
		t.Errorf("ScheduleView() error = %v", err)
	}

	store.mu.Lock()
	store.failSets = nil
	store.mu.Unlock()
	if err := app.SelectDay(ctx, dayOne); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if app.cache.State(dayOne) != StateReady {
		t.Error("retry did not reach ready")
	}
}

func TestConcurrentFirstLoadsShareOneRequest(t *testing.T) {
	store := newFakeStore()
	release := make(chan struct{})
	store.block[dayOne] = release
	cache := NewDayCache(store, 1)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetOrFetch(context.Background(), dayOne); err != nil {
				t.Errorf("GetOrFetch() error = %v", err)
			}
		}()
	}
	waitFor(t, func() bool { return store.count("sets:"+dayOne) == 1 })
	if got := cache.State(dayOne); got != StateLoading {
		t.Errorf("state while loading = %v", got)
	}
	close(release)
	wg.Wait()

	if n := store.count("sets:" + dayOne); n != 1 {
		t.Errorf("sets requests = %d, want 1", n)
	}
	view, _ := cache.View(dayOne)
	if len(view.Sets) != 3 || view.Sets[0].Stage != "StageX" || view.Sets[2].Stage != "StageY" {
		t.Errorf("sets not ordered by stage then time: %+v", view.Sets)
	}
}

func TestCounterLaziness(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := NewCounter(store)

	for i := 0; i < 2; i++ {
		if _, err := c.Get(ctx, dayOne); err != nil {
			t.Fatal(err)
		}
	}
	if n := store.count("counts:" + dayOne); n != 1 {
		t.Errorf("Get twice made %d requests, want 1", n)
	}

	c.Invalidate(dayOne)
	c.Get(ctx, dayOne)
	c.InvalidateAll()
	c.Get(ctx, dayOne)
	if n := store.count("counts:" + dayOne); n != 3 {
		t.Errorf("requests after invalidation = %d, want 3", n)
	}

	store.failCounts = errBoom
	if _, err := c.Fetch(ctx, dayOne); !errors.Is(err, ErrLoad) {
		t.Errorf("Fetch() error = %v", err)
	}
	if c.Counts(dayOne) == nil {
		t.Error("failed fetch discarded the previous counts")
	}
	if c.Counts(dayTwo) != nil {
		t.Error("unknown day has counts")
	}
}

func TestFeedbackExpires(t *testing.T) {
	app, _ := setupTestApp(t)
	now := time.Date(2025, 4, 26, 12, 0, 0, 0, time.UTC)
	app.now = func() time.Time { return now }
	app.raise(MsgAdded, false)

	if fb := app.Feedback(now.Add(2 * time.Second)); fb == nil {
		t.Error("feedback gone before its lifetime")
	}
	if fb := app.Feedback(now.Add(FeedbackTTL)); fb != nil {
		t.Errorf("feedback still shown: %+v", fb)
	}
	if app.State().Feedback != nil {
		t.Error("expired feedback kept in state")
	}
}

func TestScheduleView(t *testing.T) {
	ctx := context.Background()
	app, store := setupTestApp(t)
	store.selections[2] = map[int64]bool{1: true}
	if err := app.SelectDay(ctx, dayOne); err != nil {
		t.Fatal(err)
	}
	if err := app.Toggle(ctx, 3); err != nil {
		t.Fatal(err)
	}

	v, err := app.ScheduleView()
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Stages) != 2 || v.Stage != "StageX" {
		t.Errorf("stages = %v, active %q", v.Stages, v.Stage)
	}
	if len(v.StageSets) != 2 || v.StageSets[0].Set.ID != 1 || v.StageSets[0].Count != 1 || !v.StageSets[1].Selected {
		t.Errorf("stage sets = %+v", v.StageSets)
	}
	if len(v.Selected) != 1 || v.Selected[0].Set.ID != 3 {
		t.Errorf("selected = %+v", v.Selected)
	}

	app.SetViewMode(ViewTime)
	v, _ = app.ScheduleView()
	if len(v.Slots) != 2 || v.Slots[0].Time != "10:00" || v.Slots[0].Label != "10:00 AM" || len(v.Slots[0].Sets) != 2 {
		t.Errorf("slots = %+v", v.Slots)
	}

	app.SetQuery("stagey")
	v, _ = app.ScheduleView()
	if len(v.Slots) != 1 || v.Slots[0].Sets[0].Set.Artist != "B" {
		t.Errorf("filtered slots = %+v", v.Slots)
	}

	app.SetViewMode("bogus")
	if app.State().ViewMode != ViewTime {
		t.Error("unknown view mode accepted")
	}
}

func TestDetailFollowsToggle(t *testing.T) {
	ctx := context.Background()
	app, _ := setupTestApp(t)
	if err := app.SelectDay(ctx, dayOne); err != nil {
		t.Fatal(err)
	}
	if err := app.OpenDetail(ctx, 1); err != nil {
		t.Fatalf("OpenDetail() error = %v", err)
	}
	if d := app.State().Detail; d == nil || d.Count != 0 {
		t.Fatalf("detail = %+v", d)
	}

	if err := app.Toggle(ctx, 1); err != nil {
		t.Fatal(err)
	}
	d := app.State().Detail
	if d == nil || d.Count != 1 || d.Attendees[0].Name != "Alice" {
		t.Errorf("detail after toggle = %+v", d)
	}

	app.CloseDetail()
	if app.State().Detail != nil {
		t.Error("detail still open")
	}
	if err := app.OpenDetail(ctx, 4); !errors.Is(err, ErrUnknownSet) {
		t.Errorf("OpenDetail(other day) error = %v", err)
	}
}

func TestLoadDaysAndSchedules(t *testing.T) {
	ctx := context.Background()
	app, store := setupTestApp(t)

	days, err := app.LoadDays(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 || app.State().Day != dayOne {
		t.Fatalf("days = %+v, active %q", days, app.State().Day)
	}

	store.selections[1] = map[int64]bool{4: true, 2: true}
	mine, err := app.MySchedule(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 || mine[0].Date != dayOne || mine[1].Slots[0].Sets[0].ID != 4 {
		t.Errorf("MySchedule() = %+v", mine)
	}

	target := store.sets[3]
	if err := app.Remove(ctx, target); err != nil {
		t.Fatal(err)
	}
	if store.selections[1][4] {
		t.Error("Remove() did not reach the store")
	}

	users, err := app.Users(ctx)
	if err != nil || len(users) != 2 {
		t.Errorf("Users() = %v, %v", users, err)
	}
}

func TestNoUser(t *testing.T) {
	app := NewApp(newFakeStore())
	if err := app.SelectDay(context.Background(), dayOne); !errors.Is(err, ErrNoUser) {
		t.Errorf("SelectDay() error = %v", err)
	}
	if err := app.Toggle(context.Background(), 1); !errors.Is(err, ErrNoUser) {
		t.Errorf("Toggle() error = %v", err)
	}
	if app.IsSelected(1) {
		t.Error("IsSelected true without user")
	}
}

func TestSlowRefreshDoesNotOverwriteNewerCounts(t *testing.T) {
	ctx := context.Background()
	app, store := setupTestApp(t)
	if err := app.SelectDay(ctx, dayOne); err != nil {
		t.Fatal(err)
	}

	gate := make(chan struct{})
	reached := make(chan struct{})
	store.mu.Lock()
	store.countsGate, store.countsReached = gate, reached
	store.mu.Unlock()

	refreshed := make(chan error, 1)
	go func() { refreshed <- app.Refresh(ctx) }()
	select {
	case <-reached:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never requested counts")
	}

	if err := app.Toggle(ctx, 1); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if got := app.counter.Count(dayOne, 1); got != 1 {
		t.Fatalf("count after toggle = %d, want 1", got)
	}

	close(gate)
	if err := <-refreshed; err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := app.counter.Count(dayOne, 1); got != 1 {
		t.Errorf("count after slow refresh = %d, want 1 (older response overwrote newer)", got)
	}
	if !app.IsSelected(1) {
		t.Error("set 1 no longer selected")
	}
}

func TestCounterInvalidateDropsInFlightResponse(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	counter := NewCounter(store)
	if _, err := counter.Fetch(ctx, dayOne); err != nil {
		t.Fatal(err)
	}

	gate := make(chan struct{})
	reached := make(chan struct{})
	store.mu.Lock()
	store.countsGate, store.countsReached = gate, reached
	store.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := counter.Fetch(ctx, dayOne)
		done <- err
	}()
	<-reached

	store.mu.Lock()
	store.selections[2] = map[int64]bool{1: true}
	store.mu.Unlock()
	counter.Invalidate(dayOne)

	close(gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := counter.Count(dayOne, 1); got != 0 {
		t.Fatalf("stored count = %d, want the previous 0", got)
	}
	counts, err := counter.Get(ctx, dayOne)
	if err != nil {
		t.Fatal(err)
	}
	if counts[1] != 1 {
		t.Errorf("Get() after invalidate = %v, want a fresh fetch with count 1", counts)
	}
}

func TestRemoveRefreshesOpenDetail(t *testing.T) {
	ctx := context.Background()
	app, _ := setupTestApp(t)
	if err := app.SelectDay(ctx, dayOne); err != nil {
		t.Fatal(err)
	}
	if err := app.Toggle(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := app.OpenDetail(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if d := app.State().Detail; d == nil || d.Count != 1 {
		t.Fatalf("detail before remove = %+v", d)
	}

	view, _ := app.cache.View(dayOne)
	set, _ := view.Set(1)
	if err := app.Remove(ctx, set); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	d := app.State().Detail
	if d == nil || d.Count != 0 || len(d.Attendees) != 0 {
		t.Errorf("detail after remove = %+v, want no attendees", d)
	}
	if app.IsSelected(1) {
		t.Error("set 1 still selected after Remove")
	}
}
