package engine

import (
	"time"

	"github.com/smokyabdulrahman/athany/internal/prayer"
)

// EventKind names what happened on a tick.
type EventKind string

const (
	PrayerElapsed    EventKind = "prayer-elapsed"
	RolloverOccurred EventKind = "rollover-occurred"
)

// Event is a side effect reported by Tick for UI layers to react to.
type Event struct {
	ID   string    `json:"id"`
	Kind EventKind `json:"kind"`
	At   time.Time `json:"at"`

	// Set for PrayerElapsed.
	Prayer  prayer.Prayer `json:"prayer,omitempty"`
	Missed  bool          `json:"missed,omitempty"`
	Alerted bool          `json:"alerted,omitempty"`

	// Set for RolloverOccurred: the day now loaded and its prayer count.
	Date     time.Time `json:"date,omitempty"`
	Upcoming int       `json:"upcoming,omitempty"`
}
