package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/festival-planner/app/internal/models"
	"github.com/festival-planner/app/internal/planner"
	"github.com/festival-planner/app/internal/schedule"
)

var timeNow = time.Now

// theme holds the ANSI sequences for highlighted text. The zero theme prints
// plain text.
type theme struct {
	accent string
	muted  string
	reset  string
}

var (
	lightTheme = theme{accent: "\033[34m", muted: "\033[90m", reset: "\033[0m"}
	darkTheme  = theme{accent: "\033[96m", muted: "\033[37m", reset: "\033[0m"}
)

type renderer struct {
	w     io.Writer
	theme theme
}

// newRenderer colors output only when w is a terminal and NO_COLOR is unset.
func newRenderer(w io.Writer, dark bool) *renderer {
	r := &renderer{w: w}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) || os.Getenv("NO_COLOR") != "" {
		return r
	}
	r.theme = lightTheme
	if dark {
		r.theme = darkTheme
	}
	return r
}

func (r *renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

func (r *renderer) accent(s string) string {
	if r.theme.accent == "" {
		return s
	}
	return r.theme.accent + s + r.theme.reset
}

func (r *renderer) muted(s string) string {
	if r.theme.muted == "" {
		return s
	}
	return r.theme.muted + s + r.theme.reset
}

func (r *renderer) users(users []models.User, current int64) {
	if len(users) == 0 {
		r.printf("No profiles yet. Create one with `planner register NAME`.\n")
		return
	}
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\t")
	for _, u := range users {
		mark := ""
		if u.ID == current {
			mark = r.accent("(you)")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", u.ID, u.Name, mark)
	}
	tw.Flush()
}

func (r *renderer) days(days []models.FestivalDay) {
	if len(days) == 0 {
		r.printf("No festival days scheduled.\n")
		return
	}
	for _, d := range days {
		r.printf("%s  %s\n", d.Date, d.Label)
	}
}

func (r *renderer) card(tw io.Writer, c planner.SetCard) {
	mark := " "
	if c.Selected {
		mark = r.accent("*")
	}
	fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
		mark, c.Set.ID, c.Set.Artist, c.Set.Stage,
		schedule.FormatTimeRange(c.Set.StartTime, c.Set.EndTime),
		r.muted(schedule.FriendCount(c.Count)))
}

// schedule prints the sets tab for the active day.
func (r *renderer) schedule(st planner.State, v planner.View) {
	r.printf("%s\n", dayTitle(st.Days, v.Day))
	if v.Query != "" {
		r.printf("Filter: %q\n", v.Query)
	}

	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	switch v.Mode {
	case planner.ViewTime:
		if len(v.Slots) == 0 {
			fmt.Fprintln(tw, "No sets match.")
		}
		for _, slot := range v.Slots {
			fmt.Fprintf(tw, "\n%s\n", r.accent(slot.Label))
			for _, c := range slot.Sets {
				r.card(tw, c)
			}
		}
	default:
		r.printf("Stages: %s\n", r.stageList(v.Stages, v.Stage))
		fmt.Fprintf(tw, "\n%s\n", r.accent(v.Stage))
		if len(v.StageSets) == 0 {
			fmt.Fprintln(tw, "No sets match.")
		}
		for _, c := range v.StageSets {
			r.card(tw, c)
		}
	}
	tw.Flush()

	r.printf("\nYour schedule for the day\n")
	if len(v.Selected) == 0 {
		r.printf("%s\n", r.muted("Nothing selected yet. Add a set with `planner add SET`."))
		return
	}
	tw = tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	for _, c := range v.Selected {
		r.card(tw, c)
	}
	tw.Flush()
}

func (r *renderer) stageList(stages []string, active string) string {
	out := make([]string, len(stages))
	for i, s := range stages {
		if s == active {
			s = "[" + s + "]"
		}
		out[i] = s
	}
	return strings.Join(out, "  ")
}

func dayTitle(days []models.FestivalDay, date string) string {
	for _, d := range days {
		if d.Date == date {
			return d.Label
		}
	}
	return date
}

// personalSchedule prints one user's selections grouped by day and time.
func (r *renderer) personalSchedule(name string, days []schedule.DaySlots) {
	r.printf("%s\n", r.accent(name+"'s Schedule"))
	if len(days) == 0 {
		r.printf("  %s\n\n", r.muted("No sets selected."))
		return
	}
	first := days[0].Date
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	for _, d := range days {
		fmt.Fprintf(tw, "  %s\n", schedule.DayLabel(d.Date, first))
		for _, slot := range d.Slots {
			for _, s := range slot.Sets {
				fmt.Fprintf(tw, "    %s\t%d\t%s\t%s\n",
					schedule.FormatSlot(slot.Time), s.ID, s.Artist, s.Stage)
			}
		}
	}
	tw.Flush()
	r.printf("\n")
}

func (r *renderer) detail(d *planner.Detail) {
	if d == nil {
		return
	}
	r.printf("%s\n", r.accent(d.Set.Artist))
	r.printf("%s, %s\n", d.Set.Stage, schedule.FormatDateTime(d.Set.StartTime))
	if d.Set.Description != "" {
		r.printf("%s\n", d.Set.Description)
	}
	r.printf("\n%s going\n", schedule.FriendCount(d.Count))
	for _, u := range d.Attendees {
		r.printf("  %s\n", u.Name)
	}
}

func (r *renderer) feedback(f *planner.Feedback) {
	if f == nil {
		return
	}
	if f.Error {
		r.printf("%s\n", f.Message)
		return
	}
	r.printf("%s\n", r.accent(f.Message))
}

// counts prints one line per set of the active day with its attendee count.
func (r *renderer) counts(day string, v planner.View, now time.Time) {
	r.printf("%s  %s\n", r.muted(now.Format("15:04:05")), day)
	cards := v.StageSets
	if v.Mode == planner.ViewTime {
		cards = nil
		for _, slot := range v.Slots {
			cards = append(cards, slot.Sets...)
		}
	}
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	for _, c := range cards {
		r.card(tw, c)
	}
	tw.Flush()
}
