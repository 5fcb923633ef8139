package models

import "time"

// User is a festival attendee profile. Profiles carry only a display name and
// are never edited after creation.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
