package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/smokyabdulrahman/athany/internal/api"
	"github.com/smokyabdulrahman/athany/internal/cache"
	"github.com/smokyabdulrahman/athany/internal/display"
	"github.com/smokyabdulrahman/athany/internal/hijri"
	"github.com/smokyabdulrahman/athany/internal/prayer"
	"github.com/spf13/cobra"
)

// todayView is everything the today screen needs.
type todayView struct {
	Location cache.Location
	Timezone string
	Now      time.Time
	Day      api.Data
	Prayers  []prayer.Prayer
	Current  *prayer.Prayer
	Next     *prayer.Prayer
	Hijri    string
	Layout   string
}

func runToday(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := effectiveConfig(cmd)
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	lang, err := hijri.ParseLang(cfg.HijriLang)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	loc, _, err := resolveLocation(ctx, cfg)
	if err != nil {
		return err
	}

	cal := newCalendar(store, cfg, logger, nil)
	days, tz, err := loadDays(ctx, cal, loc, time.Now(), 1)
	if err != nil {
		return explain(err)
	}

	now := time.Now().In(tz)
	today := days[0]
	prayers, err := prayer.ParseTimings(today.Timings, now, tz, prayer.Tracked)
	if err != nil {
		return err
	}

	v := todayView{
		Location: loc,
		Timezone: tz.String(),
		Now:      now,
		Day:      today,
		Prayers:  prayers,
		Current:  prayer.CurrentPrayer(prayers, now),
		Next:     prayer.NextPrayer(prayers, now),
		Hijri:    hijri.Format(today.Date.Hijri, lang),
		Layout:   timeLayout(cfg.TimeFormat),
	}

	// After Isha the next prayer is tomorrow's Fajr.
	if v.Next == nil {
		if tomorrow, _, err := loadDays(ctx, cal, loc, now.AddDate(0, 0, 1), 1); err == nil {
			next, err := prayer.ParseTimings(tomorrow[0].Timings, now.AddDate(0, 0, 1), tz, prayer.Canonical[:1])
			if err == nil && len(next) > 0 {
				v.Next = &next[0]
			}
		} else {
			logger.Debug("Tomorrow's schedule unavailable")
		}
	}

	if FlagJSON {
		return printTodayJSON(v)
	}
	printTodayRich(v)
	return nil
}

// buildLocationStr builds a "City, Country" string.
func buildLocationStr(loc cache.Location) string {
	if loc.City == "" {
		return loc.Country
	}
	if loc.Country == "" {
		return loc.City
	}
	return loc.City + ", " + loc.Country
}

// printTodayRich renders the colored terminal output for today's prayer schedule.
func printTodayRich(v todayView) {
	fmt.Println()
	fmt.Printf("  %s\n", display.Bold("Athany"))
	fmt.Println()

	fmt.Printf("  %s\n", buildLocationStr(v.Location))
	fmt.Printf("  %s\n", display.Gray(v.Timezone))
	fmt.Printf("  %s\n", formatGregorianDate(v.Now, v.Day))
	if v.Hijri != "" {
		fmt.Printf("  %s\n", v.Hijri)
	}
	fmt.Println()

	maxNameLen := 0
	for _, p := range v.Prayers {
		maxNameLen = max(maxNameLen, len(p.Name))
	}

	for _, p := range v.Prayers {
		line := fmt.Sprintf("  %s  %s", display.PadRight(p.Name, maxNameLen), p.Time.Format(v.Layout))

		switch {
		case v.Current != nil && p.Name == v.Current.Name:
			fmt.Println(display.Dim(line))
		case v.Next != nil && p.Name == v.Next.Name && p.Time.Equal(v.Next.Time):
			remaining := prayer.FormatRemaining(prayer.TimeRemaining(p, v.Now))
			fmt.Println(display.Accent(line) + display.Accent(fmt.Sprintf("  <- next in %s", remaining)))
		case !prayer.IsCanonical(p.Name):
			fmt.Println(display.Gray(line))
		default:
			fmt.Println(line)
		}
	}

	if v.Next != nil && v.Next.Time.YearDay() != v.Now.YearDay() {
		fmt.Println()
		remaining := prayer.FormatRemaining(prayer.TimeRemaining(*v.Next, v.Now))
		fmt.Println(display.Accent(fmt.Sprintf("  Next: %s tomorrow at %s (in %s)", v.Next.Name, v.Next.Time.Format(v.Layout), remaining)))
	}

	fmt.Println()
}

// formatGregorianDate returns a formatted Gregorian date string.
// Prefers API data; falls back to formatting `now`.
func formatGregorianDate(now time.Time, day api.Data) string {
	g := day.Date.Gregorian
	if g.Day != "" && g.Month.En != "" && g.Year != "" {
		return g.Day + " " + g.Month.En + " " + g.Year
	}
	return now.Format("02 Jan 2006")
}

// todayJSON is the JSON output structure for the root command.
type todayJSON struct {
	Location todayJSONLocation `json:"location"`
	Date     todayJSONDate     `json:"date"`
	Timings  map[string]string `json:"timings"`
	Current  string            `json:"current"`
	Next     *todayJSONNext    `json:"next"`
}

type todayJSONLocation struct {
	City     string `json:"city"`
	Country  string `json:"country"`
	Timezone string `json:"timezone"`
}

type todayJSONDate struct {
	Gregorian string `json:"gregorian"`
	Hijri     string `json:"hijri"`
}

type todayJSONNext struct {
	Prayer    string `json:"prayer"`
	Time      string `json:"time"`
	Remaining string `json:"remaining"`
}

func buildTodayJSON(v todayView) todayJSON {
	timings := make(map[string]string, len(v.Prayers))
	for _, p := range v.Prayers {
		timings[strings.ToLower(p.Name)] = p.Time.Format(v.Layout)
	}

	out := todayJSON{
		Location: todayJSONLocation{
			City:     v.Location.City,
			Country:  v.Location.Country,
			Timezone: v.Timezone,
		},
		Date: todayJSONDate{
			Gregorian: formatGregorianDate(v.Now, v.Day),
			Hijri:     v.Hijri,
		},
		Timings: timings,
	}

	if v.Current != nil {
		out.Current = strings.ToLower(v.Current.Name)
	}
	if v.Next != nil {
		out.Next = &todayJSONNext{
			Prayer:    strings.ToLower(v.Next.Name),
			Time:      v.Next.Time.Format(v.Layout),
			Remaining: prayer.FormatRemaining(prayer.TimeRemaining(*v.Next, v.Now)),
		}
	}
	return out
}

// printTodayJSON renders structured JSON output.
func printTodayJSON(v todayView) error {
	data, err := json.MarshalIndent(buildTodayJSON(v), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
