// Package apitest builds synthetic calendarByCity responses for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/smokyabdulrahman/athany/internal/api"
)

// Default timings used for every generated day unless overridden.
var DefaultTimings = api.Timings{
	Fajr:       "05:17 (UTC)",
	Sunrise:    "06:48 (UTC)",
	Dhuhr:      "12:13 (UTC)",
	Asr:        "15:02 (UTC)",
	Sunset:     "17:39 (UTC)",
	Maghrib:    "17:39 (UTC)",
	Isha:       "20:00 (UTC)",
	Imsak:      "05:07 (UTC)",
	Midnight:   "00:14 (UTC)",
	Firstthird: "22:02 (UTC)",
	Lastthird:  "02:25 (UTC)",
}

// Month returns a calendar response for every day of the given month.
// The Hijri day is the Gregorian day plus ten so tests can tell days apart.
// If edit is non-nil it is called for every day and may change the timings.
func Month(year int, month time.Month, tz string, edit func(day int, t *api.Timings)) api.CalendarResponse {
	days := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	resp := api.CalendarResponse{Code: 200, Status: "OK"}
	for d := 1; d <= days; d++ {
		t := DefaultTimings
		if edit != nil {
			edit(d, &t)
		}
		date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		resp.Data = append(resp.Data, api.Data{
			Timings: t,
			Date: api.DateInfo{
				Readable: date.Format("02 Jan 2006"),
				Hijri: api.HijriDate{
					Day:         fmt.Sprintf("%d", d+10),
					Weekday:     api.Weekday{En: "Al Ahad", Ar: "الاحد"},
					Month:       api.HijriMonth{Number: 9, En: "Ramaḍān", Ar: "رَمَضان"},
					Year:        "1445",
					Designation: api.HijriDesignation{Abbreviated: "AH"},
				},
				Gregorian: api.GregorianDate{
					Date:  date.Format("02-01-2006"),
					Day:   date.Format("02"),
					Month: api.GregorianMonth{Number: int(month), En: month.String()},
					Year:  fmt.Sprintf("%d", year),
				},
			},
			Meta: api.Meta{Timezone: tz},
		})
	}
	return resp
}

// MonthJSON is Month encoded as the raw body the API would return.
func MonthJSON(year int, month time.Month, tz string, edit func(day int, t *api.Timings)) []byte {
	data, err := json.Marshal(Month(year, month, tz, edit))
	if err != nil {
		panic(err)
	}
	return data
}
