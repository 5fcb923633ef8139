package planner

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/festival-planner/app/internal/client"
	"github.com/festival-planner/app/internal/models"
	"github.com/festival-planner/app/internal/schedule"
)

var errBoom = errors.New("boom")

// fakeStore is an in-memory Store that counts calls per method and day.
type fakeStore struct {
	mu         sync.Mutex
	users      []models.User
	sets       []models.Set
	selections map[int64]map[int64]bool // user -> set -> selected
	calls      map[string]int

	failSets       error
	failSelections error
	failCounts     error
	failCreate     error
	failRefetch    bool
	// block holds Sets for a day until the channel is closed.
	block map[string]chan struct{}
	// countsGate, when set, holds the next AttendeeCounts call after it has
	// read the counts; countsReached is closed once it is waiting.
	countsGate    chan struct{}
	countsReached chan struct{}
}

func newFakeStore() *fakeStore {
	at := func(day, hour int) models.Timestamp {
		return models.Timestamp{Time: time.Date(2025, 4, day, hour, 0, 0, 0, time.UTC)}
	}
	set := func(id int64, artist, stage string, day, hour int) models.Set {
		start := at(day, hour)
		return models.Set{ID: id, Artist: artist, Stage: stage, StartTime: start, EndTime: models.Timestamp{Time: start.Add(time.Hour)}}
	}
	return &fakeStore{
		users: []models.User{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}},
		sets: []models.Set{
			set(1, "A", "StageX", 26, 10),
			set(2, "B", "StageY", 26, 10),
			set(3, "C", "StageX", 26, 11),
			set(4, "D", "StageX", 27, 12),
		},
		selections: map[int64]map[int64]bool{},
		calls:      map[string]int{},
		block:      map[string]chan struct{}{},
	}
}

func (f *fakeStore) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeStore) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeStore) FestivalDays(ctx context.Context) ([]models.FestivalDay, error) {
	f.record("days")
	return schedule.FestivalDays([]string{"2025-04-26", "2025-04-27"}), nil
}

func (f *fakeStore) Users(ctx context.Context) ([]models.User, error) {
	f.record("users")
	return append([]models.User(nil), f.users...), nil
}

func (f *fakeStore) Sets(ctx context.Context, day string) ([]models.Set, error) {
	f.record("sets:" + day)
	f.mu.Lock()
	wait := f.block[day]
	fail := f.failSets
	f.mu.Unlock()
	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Set
	for _, s := range f.sets {
		if day == "" || s.Day() == day {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) SetAttendees(ctx context.Context, setID int64) ([]models.User, error) {
	f.record("attendees")
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if f.selections[u.ID][setID] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) AttendeeCounts(ctx context.Context, day string) (models.AttendeeCounts, error) {
	f.record("counts:" + day)
	f.mu.Lock()
	if f.failCounts != nil {
		f.mu.Unlock()
		return nil, f.failCounts
	}
	counts := f.countsLocked(day)
	gate, reached := f.countsGate, f.countsReached
	f.countsGate = nil
	f.mu.Unlock()

	if gate != nil {
		close(reached)
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return counts, nil
}

func (f *fakeStore) countsLocked(day string) models.AttendeeCounts {
	counts := models.AttendeeCounts{}
	for _, s := range f.sets {
		if day != "" && s.Day() != day {
			continue
		}
		counts[s.ID] = 0
		for _, sel := range f.selections {
			if sel[s.ID] {
				counts[s.ID]++
			}
		}
	}
	return counts
}

func (f *fakeStore) UserSelections(ctx context.Context, userID int64, day string) ([]models.Set, error) {
	f.record("selections:" + day)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSelections != nil {
		return nil, f.failSelections
	}
	if f.failRefetch && f.calls["create"]+f.calls["delete"] > 0 {
		return nil, errBoom
	}
	var out []models.Set
	for _, s := range f.sets {
		if f.selections[userID][s.ID] && (day == "" || s.Day() == day) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime.Time) })
	return out, nil
}

func (f *fakeStore) CreateSelection(ctx context.Context, userID, setID int64) (models.Selection, error) {
	f.record("create")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return models.Selection{}, f.failCreate
	}
	if f.selections[userID][setID] {
		return models.Selection{}, &client.APIError{StatusCode: http.StatusConflict, Message: "set already selected"}
	}
	if f.selections[userID] == nil {
		f.selections[userID] = map[int64]bool{}
	}
	f.selections[userID][setID] = true
	return models.Selection{UserID: userID, SetID: setID}, nil
}

func (f *fakeStore) DeleteSelection(ctx context.Context, userID, setID int64) error {
	f.record("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.selections[userID][setID] {
		return &client.APIError{StatusCode: http.StatusNotFound, Message: "selection not found"}
	}
	delete(f.selections[userID], setID)
	return nil
}
