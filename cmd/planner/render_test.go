package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/festival-planner/app/internal/models"
	"github.com/festival-planner/app/internal/planner"
	"github.com/festival-planner/app/internal/schedule"
)

func testSet(id int64, artist, stage string, hour int) models.Set {
	start, end := models.NewSetTimes(time.Date(2025, 4, 26, hour, 0, 0, 0, time.UTC), time.Hour)
	return models.Set{ID: id, Artist: artist, Stage: stage, StartTime: start, EndTime: end}
}

func TestRendererIsPlainForBuffers(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, true)
	if r.accent("x") != "x" || r.muted("y") != "y" {
		t.Errorf("Expected no color codes when writing to a buffer")
	}
}

func TestRenderStageSchedule(t *testing.T) {
	a := testSet(1, "Alpha", "Main", 12)
	b := testSet(2, "Beta", "Main", 14)
	st := planner.State{
		Days: []models.FestivalDay{{Date: "2025-04-26", Label: "April 26, 2025, Day 1", Number: 1}},
	}
	v := planner.View{
		Day:       "2025-04-26",
		Mode:      planner.ViewStage,
		Stages:    []string{"Main", "Tent"},
		Stage:     "Main",
		StageSets: []planner.SetCard{{Set: a, Count: 2, Selected: true}, {Set: b, Count: 1}},
		Selected:  []planner.SetCard{{Set: a, Count: 2, Selected: true}},
	}

	var buf bytes.Buffer
	newRenderer(&buf, false).schedule(st, v)
	out := buf.String()

	for _, want := range []string{
		"April 26, 2025, Day 1",
		"Stages: [Main]  Tent",
		"Alpha",
		"12:00 PM - 1:00 PM",
		"2 friends",
		"1 friend",
		"Your schedule for the day",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "*  1") {
		t.Errorf("Expected selected marker before set 1, got:\n%s", out)
	}
}

func TestRenderTimeScheduleEmpty(t *testing.T) {
	v := planner.View{Day: "2025-04-27", Mode: planner.ViewTime, Query: "zzz"}

	var buf bytes.Buffer
	newRenderer(&buf, false).schedule(planner.State{}, v)
	out := buf.String()

	if !strings.HasPrefix(out, "2025-04-27\n") {
		t.Errorf("Expected raw date as title when the day is unknown, got:\n%s", out)
	}
	for _, want := range []string{`Filter: "zzz"`, "No sets match.", "Nothing selected yet."} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderPersonalSchedule(t *testing.T) {
	sets := []models.Set{
		testSet(3, "Gamma", "Tent", 18),
		testSet(1, "Alpha", "Main", 12),
	}
	var buf bytes.Buffer
	r := newRenderer(&buf, false)
	r.personalSchedule("Sam", schedule.ByDayAndTime(sets))
	r.personalSchedule("Kim", nil)
	out := buf.String()

	if !strings.Contains(out, "Sam's Schedule") || !strings.Contains(out, "April 26, 2025, Day 1") {
		t.Errorf("Unexpected header, got:\n%s", out)
	}
	if strings.Index(out, "Alpha") > strings.Index(out, "Gamma") {
		t.Errorf("Expected sets in start order, got:\n%s", out)
	}
	if !strings.Contains(out, "Kim's Schedule\n  No sets selected.") {
		t.Errorf("Expected empty schedule note, got:\n%s", out)
	}
}

func TestRenderDetailAndFeedback(t *testing.T) {
	set := testSet(1, "Alpha", "Main", 12)
	set.Description = "Opening act"

	var buf bytes.Buffer
	r := newRenderer(&buf, false)
	r.detail(&planner.Detail{
		Set:       set,
		Attendees: []models.User{{ID: 1, Name: "Sam"}, {ID: 2, Name: "Kim"}},
		Count:     2,
	})
	r.detail(nil)
	r.feedback(&planner.Feedback{Message: planner.MsgAdded})
	r.feedback(nil)
	out := buf.String()

	for _, want := range []string{"Alpha", "Main, Sat, Apr 26, 12:00 PM", "Opening act", "2 friends going", "  Kim", planner.MsgAdded} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderCountsFlattensSlots(t *testing.T) {
	v := planner.View{
		Mode: planner.ViewTime,
		Slots: []planner.SlotView{
			{Time: "12:00", Sets: []planner.SetCard{{Set: testSet(1, "Alpha", "Main", 12), Count: 3}}},
			{Time: "14:00", Sets: []planner.SetCard{{Set: testSet(2, "Beta", "Tent", 14)}}},
		},
	}
	var buf bytes.Buffer
	newRenderer(&buf, false).counts("2025-04-26", v, time.Date(2025, 4, 26, 9, 30, 0, 0, time.UTC))
	out := buf.String()

	for _, want := range []string{"09:30:00  2025-04-26", "Alpha", "3 friends", "Beta", "0 friends"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID([]string{"42"}, "set ID"); err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
	for _, args := range [][]string{nil, {"0"}, {"abc"}, {"1", "2"}} {
		if _, err := parseID(args, "set ID"); err == nil {
			t.Errorf("Expected error for %v", args)
		}
	}
}
