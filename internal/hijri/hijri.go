// Package hijri renders the Hijri date of a Gregorian day from a month
// schedule. It performs no I/O.
package hijri

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smokyabdulrahman/athany/internal/api"
	"github.com/smokyabdulrahman/athany/internal/cache"
)

// ErrMonthMismatch is returned when the date lies outside the schedule's
// month. The caller should obtain that month's schedule and try again.
var ErrMonthMismatch = errors.New("date is not covered by the month schedule")

// Lang selects the script of the rendered date.
type Lang string

const (
	Arabic  Lang = "ar"
	English Lang = "en"
)

// ParseLang accepts "ar", "en" or the empty string (Arabic).
func ParseLang(s string) (Lang, error) {
	switch Lang(strings.ToLower(strings.TrimSpace(s))) {
	case "", Arabic:
		return Arabic, nil
	case English:
		return English, nil
	}
	return "", fmt.Errorf("unknown hijri language %q (want ar or en)", s)
}

// Resolve returns the Hijri date string for date's day in sched.
func Resolve(date time.Time, sched *cache.MonthSchedule, lang Lang) (string, error) {
	if sched == nil || !sched.Key.Contains(date) {
		return "", fmt.Errorf("%w: %s", ErrMonthMismatch, date.Format(time.DateOnly))
	}
	day, err := sched.Day(date.Day())
	if err != nil {
		return "", err
	}
	return Format(day.Date.Hijri, lang), nil
}

// Format renders h as "weekday day month year". The English form appends
// the designation, e.g. "Al Ahad 20 Ramaḍān 1445 AH". Missing parts are
// skipped; an entry without day, month or year renders as "".
func Format(h api.HijriDate, lang Lang) string {
	weekday, month := h.Weekday.Ar, h.Month.Ar
	if lang == English {
		weekday, month = h.Weekday.En, h.Month.En
	}
	if h.Day == "" || month == "" || h.Year == "" {
		return ""
	}

	parts := make([]string, 0, 5)
	if weekday != "" {
		parts = append(parts, weekday)
	}
	parts = append(parts, h.Day, month, h.Year)
	if lang == English {
		abbr := h.Designation.Abbreviated
		if abbr == "" {
			abbr = "AH"
		}
		parts = append(parts, abbr)
	}
	return strings.Join(parts, " ")
}

// Short renders h as "day month year AH" in English, the compact form used
// in tables.
func Short(h api.HijriDate) string {
	if h.Day == "" || h.Month.En == "" || h.Year == "" {
		return ""
	}
	abbr := h.Designation.Abbreviated
	if abbr == "" {
		abbr = "AH"
	}
	return h.Day + " " + h.Month.En + " " + h.Year + " " + abbr
}
