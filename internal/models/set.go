package models

import (
	"strconv"
	"time"
)

// Set is a single scheduled performance on one stage.
type Set struct {
	ID          int64     `json:"id"`
	Artist      string    `json:"artist"`
	Stage       string    `json:"stage"`
	StartTime   Timestamp `json:"start_time"`
	EndTime     Timestamp `json:"end_time"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
}

// Day returns the festival day the set belongs to (YYYY-MM-DD), or "" when
// the set has no usable start time.
func (s Set) Day() string {
	if !s.StartTime.Valid() {
		return ""
	}
	return s.StartTime.Format(DateLayout)
}

// AttendeeCounts maps a set ID to the number of users who selected it.
type AttendeeCounts map[int64]int

// StringKeys converts the counts into the JSON object shape served by the API.
func (c AttendeeCounts) StringKeys() map[string]int {
	out := make(map[string]int, len(c))
	for id, n := range c {
		out[strconv.FormatInt(id, 10)] = n
	}
	return out
}

// ParseAttendeeCounts is the inverse of StringKeys. Keys that are not set IDs
// are skipped.
func ParseAttendeeCounts(raw map[string]int) AttendeeCounts {
	out := make(AttendeeCounts, len(raw))
	for k, n := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		if n < 0 {
			n = 0
		}
		out[id] = n
	}
	return out
}

// NewSetTimes is a small helper for building sets in seeds and tests.
func NewSetTimes(start time.Time, length time.Duration) (Timestamp, Timestamp) {
	return Timestamp{start}, Timestamp{start.Add(length)}
}
