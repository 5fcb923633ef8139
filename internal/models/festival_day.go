package models

// FestivalDay is one calendar day of the event.
type FestivalDay struct {
	Date   string `json:"date"`   // YYYY-MM-DD
	Label  string `json:"label"`  // e.g. "April 26, 2025, Day 1"
	Number int    `json:"number"` // 1-based
}
