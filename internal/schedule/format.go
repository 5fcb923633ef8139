package schedule

import (
	"fmt"
	"time"

	"github.com/festival-planner/app/internal/models"
)

// FormatDateTime renders a set time like "Sat, Apr 26, 12:00 PM".
func FormatDateTime(t models.Timestamp) string {
	if !t.Valid() {
		return "N/A"
	}
	return t.Format("Mon, Jan 2, 3:04 PM")
}

// FormatTimeOnly renders the clock part of a set time, e.g. "3:30 PM".
func FormatTimeOnly(t models.Timestamp) string {
	if !t.Valid() {
		return "N/A"
	}
	return t.Format("3:04 PM")
}

// FormatTimeRange renders "12:00 PM - 1:00 PM".
func FormatTimeRange(start, end models.Timestamp) string {
	return FormatTimeOnly(start) + " - " + FormatTimeOnly(end)
}

// FormatSlot turns a "15:04" slot key into "3:04 PM".
func FormatSlot(slot string) string {
	t, err := time.Parse(SlotLayout, slot)
	if err != nil {
		return slot
	}
	return t.Format("3:04 PM")
}

// FriendCount renders an attendee count the way set cards show it.
func FriendCount(n int) string {
	if n == 1 {
		return "1 friend"
	}
	return fmt.Sprintf("%d friends", n)
}

// DayNumber is the 1-based position of date relative to the first festival
// day. Dates that do not parse yield 0.
func DayNumber(date, firstDate string) int {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return 0
	}
	first, err := time.Parse(models.DateLayout, firstDate)
	if err != nil {
		return 0
	}
	return int(d.Sub(first).Hours()/24) + 1
}

// DayLabel renders "April 26, 2025, Day 1".
func DayLabel(date, firstDate string) string {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s, Day %d", d.Format("January 2, 2006"), DayNumber(date, firstDate))
}

// FestivalDays labels ascending distinct dates, numbering from the first.
func FestivalDays(dates []string) []models.FestivalDay {
	days := make([]models.FestivalDay, 0, len(dates))
	if len(dates) == 0 {
		return days
	}
	first := dates[0]
	for _, date := range dates {
		days = append(days, models.FestivalDay{
			Date:   date,
			Label:  DayLabel(date, first),
			Number: DayNumber(date, first),
		})
	}
	return days
}
