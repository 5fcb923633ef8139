package models

import "time"

// Selection records that a user plans to attend a set. A user holds at most
// one selection per set.
type Selection struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SetID     int64     `json:"set_id"`
	CreatedAt time.Time `json:"created_at"`
}
