// Package schedule groups a festival lineup by stage, day and time slot.
// Everything here is pure: the same input always yields the same output and
// nothing is fetched or mutated.
package schedule

import (
	"sort"
	"strings"

	"github.com/festival-planner/app/internal/models"
)

// SlotLayout is the time-of-day key used for time slots.
const SlotLayout = "15:04"

// TimeSlot is every set starting at one time of day.
type TimeSlot struct {
	Time string // "15:04"
	Sets []models.Set
}

// DaySlots is one festival day broken into time slots.
type DaySlots struct {
	Date  string // YYYY-MM-DD
	Slots []TimeSlot
}

// DaySets is one festival day's sets in start order.
type DaySets struct {
	Date string
	Sets []models.Set
}

// Index bundles the groupings the schedule views render from.
type Index struct {
	Stages  []string
	ByStage map[string][]models.Set
	ByTime  map[string][]models.Set
	Days    []DaySlots
}

// Build computes every grouping for sets in one pass over the input.
func Build(sets []models.Set) Index {
	return Index{
		Stages:  Stages(sets),
		ByStage: ByStage(sets),
		ByTime:  ByTime(sets),
		Days:    ByDayAndTime(sets),
	}
}

// Stages returns the distinct stages in first-seen order.
func Stages(sets []models.Set) []string {
	seen := make(map[string]bool)
	stages := []string{}
	for _, s := range sets {
		if seen[s.Stage] {
			continue
		}
		seen[s.Stage] = true
		stages = append(stages, s.Stage)
	}
	return stages
}

// ByStage maps each stage to its sets sorted by start time. Equal start times
// keep their input order; sets without a valid start go last.
func ByStage(sets []models.Set) map[string][]models.Set {
	out := make(map[string][]models.Set)
	for _, s := range sets {
		out[s.Stage] = append(out[s.Stage], s)
	}
	for stage := range out {
		SortByStart(out[stage])
	}
	return out
}

// ByTime maps a time of day ("15:04", date ignored) to the sets starting
// then, in input order. Sets without a valid start have no slot and are left
// out.
func ByTime(sets []models.Set) map[string][]models.Set {
	out := make(map[string][]models.Set)
	for _, s := range sets {
		if !s.StartTime.Valid() {
			continue
		}
		key := s.StartTime.Format(SlotLayout)
		out[key] = append(out[key], s)
	}
	return out
}

// ByDay splits sets into festival days, ascending, each sorted by start.
// Sets without a valid start are left out.
func ByDay(sets []models.Set) []DaySets {
	byDate := make(map[string][]models.Set)
	for _, s := range sets {
		day := s.Day()
		if day == "" {
			continue
		}
		byDate[day] = append(byDate[day], s)
	}

	out := make([]DaySets, 0, len(byDate))
	for _, date := range sortedKeys(byDate) {
		daySets := byDate[date]
		SortByStart(daySets)
		out = append(out, DaySets{Date: date, Sets: daySets})
	}
	return out
}

// ByDayAndTime groups sets by festival day, then by time slot. Days and slots
// are ascending; sets within a slot keep their input order.
func ByDayAndTime(sets []models.Set) []DaySlots {
	byDate := make(map[string][]models.Set)
	for _, s := range sets {
		if day := s.Day(); day != "" {
			byDate[day] = append(byDate[day], s)
		}
	}

	out := make([]DaySlots, 0, len(byDate))
	for _, date := range sortedKeys(byDate) {
		slots := ByTime(byDate[date])
		day := DaySlots{Date: date, Slots: make([]TimeSlot, 0, len(slots))}
		for _, key := range sortedKeys(slots) {
			day.Slots = append(day.Slots, TimeSlot{Time: key, Sets: slots[key]})
		}
		out = append(out, day)
	}
	return out
}

// SortByStart stable-sorts sets by start time in place, invalid starts last.
func SortByStart(sets []models.Set) {
	sort.SliceStable(sets, func(i, j int) bool {
		return startsBefore(sets[i], sets[j])
	})
}

// SortByStageAndTime stable-sorts sets by stage name, then start time.
func SortByStageAndTime(sets []models.Set) {
	sort.SliceStable(sets, func(i, j int) bool {
		if sets[i].Stage != sets[j].Stage {
			return sets[i].Stage < sets[j].Stage
		}
		return startsBefore(sets[i], sets[j])
	})
}

// Search keeps the sets whose artist or stage contains query, ignoring case.
// An empty query keeps everything.
func Search(sets []models.Set, query string) []models.Set {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return sets
	}
	out := []models.Set{}
	for _, s := range sets {
		if strings.Contains(strings.ToLower(s.Artist), query) || strings.Contains(strings.ToLower(s.Stage), query) {
			out = append(out, s)
		}
	}
	return out
}

func startsBefore(a, b models.Set) bool {
	av, bv := a.StartTime.Valid(), b.StartTime.Valid()
	switch {
	case av && bv:
		return a.StartTime.Before(b.StartTime.Time)
	case av:
		return true
	default:
		return false
	}
}

func sortedKeys(m map[string][]models.Set) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
