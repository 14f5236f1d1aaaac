// Package prayer binds the calendar's time-of-day strings to concrete
// timestamps and formats what is left until the next one.
package prayer

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/smokyabdulrahman/athany/internal/api"
)

// Prayer is a named prayer bound to an absolute timestamp.
type Prayer struct {
	Name string    `json:"name"`
	Time time.Time `json:"time"`
}

// Canonical lists the five obligatory daily prayers. Only these trigger the
// audible call to prayer.
var Canonical = []string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

// Tracked is what the upcoming queue holds: the canonical prayers plus
// Sunrise, which ends the Fajr window and is displayed but never announced.
var Tracked = []string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"}

// AllPrayerNames lists every prayer/event the API can return, in chronological order.
var AllPrayerNames = []string{
	"Imsak", "Fajr", "Sunrise", "Dhuhr", "Asr", "Sunset", "Maghrib", "Isha",
	"Firstthird", "Midnight", "Lastthird",
}

// ShortNames maps full prayer names to single-character abbreviations.
var ShortNames = map[string]string{
	"Fajr":       "F",
	"Sunrise":    "S",
	"Dhuhr":      "D",
	"Asr":        "A",
	"Sunset":     "St",
	"Maghrib":    "M",
	"Isha":       "I",
	"Imsak":      "Im",
	"Midnight":   "Mi",
	"Firstthird": "F3",
	"Lastthird":  "L3",
}

// IsCanonical reports whether name is one of the five obligatory prayers.
func IsCanonical(name string) bool {
	return slices.Contains(Canonical, name)
}

// ParseTimings binds the named timings to date in loc, in the order given.
func ParseTimings(timings api.Timings, date time.Time, loc *time.Location, names []string) ([]Prayer, error) {
	prayers := make([]Prayer, 0, len(names))
	for _, name := range names {
		raw, ok := timings.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown prayer name: %s", name)
		}

		t, err := Bind(raw, date, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse time for %s (%q): %w", name, raw, err)
		}

		prayers = append(prayers, Prayer{Name: name, Time: t})
	}

	return prayers, nil
}

// SortByTime orders prayers chronologically in place. Equal timestamps keep
// their relative order.
func SortByTime(prayers []Prayer) {
	slices.SortStableFunc(prayers, func(a, b Prayer) int {
		return a.Time.Compare(b.Time)
	})
}

// After returns the prayers strictly later than now, preserving order.
func After(prayers []Prayer, now time.Time) []Prayer {
	out := make([]Prayer, 0, len(prayers))
	for _, p := range prayers {
		if p.Time.After(now) {
			out = append(out, p)
		}
	}
	return out
}

// NextPrayer finds the first prayer after now, or nil when all have passed.
func NextPrayer(prayers []Prayer, now time.Time) *Prayer {
	for i := range prayers {
		if prayers[i].Time.After(now) {
			return &prayers[i]
		}
	}
	return nil
}

// CurrentPrayer returns the last prayer at or before now, or nil.
func CurrentPrayer(prayers []Prayer, now time.Time) *Prayer {
	var cur *Prayer
	for i := range prayers {
		if !prayers[i].Time.After(now) {
			cur = &prayers[i]
		}
	}
	return cur
}

// TimeRemaining returns the duration until the given prayer time.
func TimeRemaining(p Prayer, now time.Time) time.Duration {
	return p.Time.Sub(now)
}

// FormatRemaining formats a duration as "Xh Ym" or "Ym" if less than an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return "0m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatClock formats a duration as H:MM:SS, the ticking display used by
// the daemon.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// Bind parses a time-of-day like "15:02" or "15:02 (EET)" and places it on
// date's calendar day in loc.
func Bind(raw string, date time.Time, loc *time.Location) (time.Time, error) {
	s, _, _ := strings.Cut(strings.TrimSpace(raw), " ")

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return time.Time{}, fmt.Errorf("invalid time format: %q", raw)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute in %q", raw)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), nil
}
