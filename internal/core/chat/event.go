// Package chat implements the message log, the presence registry and the
// stateless command dispatcher of the chat service.
package chat

import (
	"fmt"
	"strconv"
	"time"
)

// Store keys shared by every server process.
const (
	MessagesKey = "messages"
	ClientsKey  = "clients"
)

// Event is a single entry of the message log. Events are immutable once created.
type Event struct {
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
}

// Time converts the event timestamp back to a time.Time.
func (e Event) Time() time.Time {
	return FromTimestamp(e.Timestamp)
}

// Timestamp converts t to fractional seconds since the Unix epoch.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FormatTimestamp renders ts without losing precision.
func FormatTimestamp(ts float64) string {
	return strconv.FormatFloat(ts, 'f', -1, 64)
}

// FromTimestamp converts fractional epoch seconds to a time.Time.
func FromTimestamp(ts float64) time.Time {
	return time.Unix(0, int64(ts*1e9))
}

// JoinText is the announcement appended when username logs in.
func JoinText(username string) string {
	return fmt.Sprintf("*** %s has joined the chat ***", username)
}

// LeaveText is the announcement appended when username logs out.
func LeaveText(username string) string {
	return fmt.Sprintf("*** %s has left the chat ***", username)
}

// MessageText formats a user message for the log.
func MessageText(username, text string) string {
	return fmt.Sprintf("[%s]: %s", username, text)
}

// MaxTimestamp returns the largest timestamp in events, or floor when none exceeds it.
func MaxTimestamp(floor float64, events []Event) float64 {
	for _, ev := range events {
		if ev.Timestamp > floor {
			floor = ev.Timestamp
		}
	}
	return floor
}
