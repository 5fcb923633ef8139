package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const (
	// TimestampLayout is the wire format for set times: a local wall-clock
	// time with no zone, as the lineup is published.
	TimestampLayout = "2006-01-02T15:04:05"
	// DateLayout identifies a festival day.
	DateLayout = "2006-01-02"
)

// accepted input layouts, most specific first.
var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// Timestamp wraps time.Time with the lenient JSON encoding used for set times.
// A missing or malformed value decodes to the zero Timestamp rather than an
// error so one bad row never breaks a whole lineup.
type Timestamp struct {
	time.Time
}

// Valid reports whether the timestamp carries a real time.
func (t Timestamp) Valid() bool {
	return !t.IsZero()
}

// ParseTimestamp parses any of the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Timestamp{t}, nil
		}
		lastErr = err
	}
	return Timestamp{}, lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(TimestampLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Not a string at all; treat like any other malformed value.
		return nil
	}
	if parsed, err := ParseTimestamp(s); err == nil {
		*t = parsed
	}
	return nil
}
