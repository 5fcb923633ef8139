package planner

import (
	"errors"

	"github.com/festival-planner/app/internal/models"
	"github.com/festival-planner/app/internal/schedule"
)

// ErrNotReady is returned by ScheduleView before the active day has loaded.
var ErrNotReady = errors.New("day not loaded")

// SetCard is one set as listed, with its count and whether the user picked it.
type SetCard struct {
	Set      models.Set
	Count    int
	Selected bool
}

// SlotView is one time slot of the time grouping.
type SlotView struct {
	Time  string
	Label string
	Sets  []SetCard
}

// View is the render-ready sets tab for the active day.
type View struct {
	Day    string
	Mode   ViewMode
	Query  string
	Stages []string
	Stage  string
	// StageSets holds the active stage's sets in stage mode.
	StageSets []SetCard
	// Slots holds the day's time slots in time mode.
	Slots []SlotView
	// Selected is the user's schedule for the day.
	Selected []SetCard
}

// ScheduleView assembles the sets tab from the cached day, the stored counts
// and the current filters.
func (a *App) ScheduleView() (View, error) {
	_, cache, _, err := a.session()
	if err != nil {
		return View{}, err
	}
	st := a.State()

	day, ok := cache.View(st.Day)
	if !ok {
		return View{}, ErrNotReady
	}
	counts := a.counter.Counts(st.Day)

	selected := make(map[int64]bool, len(day.Selected))
	for _, s := range day.Selected {
		selected[s.ID] = true
	}
	card := func(s models.Set) SetCard {
		return SetCard{Set: s, Count: counts[s.ID], Selected: selected[s.ID]}
	}
	cards := func(sets []models.Set) []SetCard {
		out := make([]SetCard, 0, len(sets))
		for _, s := range sets {
			out = append(out, card(s))
		}
		return out
	}

	v := View{
		Day:      st.Day,
		Mode:     st.ViewMode,
		Query:    st.Query,
		Stages:   schedule.Stages(day.Sets),
		Stage:    st.Stage,
		Selected: cards(day.Selected),
	}

	visible := schedule.Search(day.Sets, st.Query)
	switch st.ViewMode {
	case ViewTime:
		for _, d := range schedule.ByDayAndTime(visible) {
			for _, slot := range d.Slots {
				v.Slots = append(v.Slots, SlotView{
					Time:  slot.Time,
					Label: schedule.FormatSlot(slot.Time),
					Sets:  cards(slot.Sets),
				})
			}
		}
	default:
		v.StageSets = cards(schedule.ByStage(visible)[st.Stage])
	}
	return v, nil
}
