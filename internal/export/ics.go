// Package export renders a user's festival schedule as iCalendar.
package export

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/festival-planner/app/internal/models"
)

const (
	ProductID = "-//Festival Planner//Schedule//EN"

	// floating local time; festival times carry no zone
	icsLocalLayout = "20060102T150405"
	icsStampLayout = "20060102T150405Z"
)

// defaultLength is used when a set has no usable end time.
const defaultLength = time.Hour

// Calendar builds a VCALENDAR with one VEVENT per set. Sets without a start
// time are skipped.
func Calendar(name string, sets []models.Set, now time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	stamp := now.UTC().Format(icsStampLayout)
	for _, s := range sets {
		if !s.StartTime.Valid() {
			continue
		}
		end := s.EndTime.Time
		if !s.EndTime.Valid() || end.Before(s.StartTime.Time) {
			end = s.StartTime.Add(defaultLength)
		}

		event := cal.AddEvent(UID(s.ID))
		event.SetProperty(ics.ComponentPropertyDtstamp, stamp)
		event.SetProperty(ics.ComponentPropertyDtStart, s.StartTime.Format(icsLocalLayout))
		event.SetProperty(ics.ComponentPropertyDtEnd, end.Format(icsLocalLayout))
		event.SetSummary(s.Artist)
		event.SetLocation(s.Stage)
		if s.Description != "" {
			event.SetDescription(s.Description)
		}
		if s.ImageURL != "" {
			event.SetURL(s.ImageURL)
		}
	}
	return cal
}

// Write serializes the calendar for sets to w.
func Write(w io.Writer, name string, sets []models.Set, now time.Time) error {
	return Calendar(name, sets, now).SerializeTo(w)
}

// UID is the stable event identifier for a set.
func UID(setID int64) string {
	return fmt.Sprintf("set-%d@festival-planner", setID)
}

// Filename suggests a download name for a user's schedule.
func Filename(userName string) string {
	if userName == "" {
		return "festival-schedule.ics"
	}
	return fmt.Sprintf("festival-schedule-%s.ics", slug(userName))
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			dash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
			dash = false
		default:
			if !dash && len(out) > 0 {
				out = append(out, '-')
				dash = true
			}
		}
	}
	if dash {
		out = out[:len(out)-1]
	}
	return string(out)
}
