package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/smokyabdulrahman/athany/internal/api"
	"github.com/smokyabdulrahman/athany/internal/api/apitest"
	"github.com/smokyabdulrahman/athany/internal/cache"
	"github.com/smokyabdulrahman/athany/internal/display"
	"github.com/smokyabdulrahman/athany/internal/prayer"
)

var cairo = cache.Location{City: "Cairo", Country: "Egypt"}

// monthFetcher serves generated months and records every request.
type monthFetcher struct {
	calls []string
	err   error
}

func (f *monthFetcher) FetchCalendarByCity(_ context.Context, city, country string, year int, month time.Month) ([]byte, error) {
	f.calls = append(f.calls, fmt.Sprintf("%d-%02d", year, int(month)))
	if f.err != nil {
		return nil, f.err
	}
	return apitest.MonthJSON(year, month, "UTC", nil), nil
}

func newTestCalendar(t *testing.T) (*cache.Calendar, *monthFetcher) {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &monthFetcher{}
	return cache.NewCalendar(store, f, nil, nil), f
}

func TestBuildLocationStr(t *testing.T) {
	tests := []struct {
		loc  cache.Location
		want string
	}{
		{cairo, "Cairo, Egypt"},
		{cache.Location{City: "Riyadh"}, "Riyadh"},
		{cache.Location{Country: "SA"}, "SA"},
	}
	for _, tt := range tests {
		if got := buildLocationStr(tt.loc); got != tt.want {
			t.Errorf("buildLocationStr(%+v) = %q, want %q", tt.loc, got, tt.want)
		}
	}
}

func TestFormatGregorianDate_FromAPI(t *testing.T) {
	now := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	day := api.Data{
		Date: api.DateInfo{
			Gregorian: api.GregorianDate{
				Day:   "28",
				Month: api.GregorianMonth{Number: 2, En: "February"},
				Year:  "2026",
			},
		},
	}

	if got, want := formatGregorianDate(now, day), "28 February 2026"; got != want {
		t.Errorf("formatGregorianDate() = %q, want %q", got, want)
	}
}

func TestFormatGregorianDate_Fallback(t *testing.T) {
	now := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)

	if got, want := formatGregorianDate(now, api.Data{}), "28 Feb 2026"; got != want {
		t.Errorf("formatGregorianDate() fallback = %q, want %q", got, want)
	}
}

func TestBuildTodayJSON(t *testing.T) {
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	prayers, err := prayer.ParseTimings(apitest.DefaultTimings, date, time.UTC, prayer.Tracked)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)
	v := todayView{
		Location: cairo,
		Timezone: "UTC",
		Now:      now,
		Prayers:  prayers,
		Current:  prayer.CurrentPrayer(prayers, now),
		Next:     prayer.NextPrayer(prayers, now),
		Hijri:    "Al Ahad 20 Ramaḍān 1445 AH",
		Layout:   timeLayout("24h"),
	}

	out := buildTodayJSON(v)
	if out.Location.City != "Cairo" || out.Location.Country != "Egypt" {
		t.Errorf("location = %+v", out.Location)
	}
	if out.Current != "dhuhr" {
		t.Errorf("current = %q, want dhuhr", out.Current)
	}
	if out.Next == nil || out.Next.Prayer != "asr" || out.Next.Time != "15:02" || out.Next.Remaining != "2h 2m" {
		t.Errorf("next = %+v, want asr at 15:02 in 2h 2m", out.Next)
	}
	if len(out.Timings) != len(prayer.Tracked) || out.Timings["sunrise"] != "06:48" {
		t.Errorf("timings = %v", out.Timings)
	}
	if out.Date.Gregorian != "10 Mar 2024" {
		t.Errorf("gregorian = %q", out.Date.Gregorian)
	}
}

// TestCurrentAndNext_Consistency verifies that CurrentPrayer and NextPrayer
// are consistent: at any point in time, current should be the prayer before next.
func TestCurrentAndNext_Consistency(t *testing.T) {
	date := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	prayers, err := prayer.ParseTimings(apitest.DefaultTimings, date, time.UTC, prayer.Tracked)
	if err != nil {
		t.Fatal(err)
	}

	for h := 6; h < 20; h++ {
		now := time.Date(2026, 2, 28, h, 30, 0, 0, time.UTC)
		current := prayer.CurrentPrayer(prayers, now)
		next := prayer.NextPrayer(prayers, now)
		if current == nil || next == nil {
			t.Fatalf("%02d:30: expected both current and next", h)
		}
		if !current.Time.Before(next.Time) {
			t.Errorf("%02d:30: current %s is not before next %s", h, current.Name, next.Name)
		}
	}
}

// --- loadDays ---

func TestLoadDays_AcrossMonthBoundary(t *testing.T) {
	cal, f := newTestCalendar(t)
	from := time.Date(2024, 3, 30, 9, 0, 0, 0, time.UTC)

	days, tz, err := loadDays(context.Background(), cal, cairo, from, 3)
	if err != nil {
		t.Fatalf("loadDays error: %v", err)
	}
	if tz.String() != "UTC" {
		t.Errorf("tz = %s, want UTC", tz)
	}

	var got []string
	for _, d := range days {
		got = append(got, d.Date.Gregorian.Date)
	}
	if want := "30-03-2024 31-03-2024 01-04-2024"; strings.Join(got, " ") != want {
		t.Errorf("days = %v, want %s", got, want)
	}
	if want := "2024-03 2024-04"; strings.Join(f.calls, " ") != want {
		t.Errorf("fetches = %v, want %s", f.calls, want)
	}

	// A second call is served from the cache.
	if _, _, err := loadDays(context.Background(), cal, cairo, from, 3); err != nil {
		t.Fatal(err)
	}
	if len(f.calls) != 2 {
		t.Errorf("cached months were fetched again: %v", f.calls)
	}
}

func TestLoadDays_LookupFailureIsExplained(t *testing.T) {
	cal, f := newTestCalendar(t)
	f.err = fmt.Errorf("%w: invalid city", api.ErrLookup)

	_, _, err := loadDays(context.Background(), cal, cairo, time.Now(), 1)
	if !errors.Is(err, api.ErrLookup) {
		t.Fatalf("err = %v, want ErrLookup", err)
	}
	explained := explain(err)
	if !errors.Is(explained, api.ErrLookup) || !strings.Contains(explained.Error(), "athany config set city") {
		t.Errorf("explain(lookup) = %v", explained)
	}
	if err := explain(context.Canceled); err != context.Canceled {
		t.Errorf("explain should pass through other errors, got %v", err)
	}
}

// --- list ---

func TestParseDays(t *testing.T) {
	tests := []struct {
		args    []string
		want    int
		wantErr bool
	}{
		{nil, 7, false},
		{[]string{"3"}, 3, false},
		{[]string{"week"}, 7, false},
		{[]string{"month"}, 30, false},
		{[]string{"0"}, 0, true},
		{[]string{"-2"}, 0, true},
		{[]string{"many"}, 0, true},
	}
	for _, tt := range tests {
		got, err := parseDays(tt.args, defaultListDays)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDays(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDays(%v) = %d, want %d", tt.args, got, tt.want)
		}
	}
}

func TestListColumns(t *testing.T) {
	cols, err := listColumns("")
	if err != nil || len(cols) != len(prayer.Tracked) {
		t.Errorf("listColumns(\"\") = %v, %v", cols, err)
	}
	cols, err = listColumns("fajr")
	if err != nil || len(cols) != 1 || cols[0] != "Fajr" {
		t.Errorf("listColumns(fajr) = %v, %v", cols, err)
	}
	if _, err := listColumns("Tahajjud"); err == nil {
		t.Error("listColumns(Tahajjud) should error")
	}
}

func TestListRowsAndTable(t *testing.T) {
	display.SetEnabled(false)

	cal, _ := newTestCalendar(t)
	now := time.Date(2024, 3, 31, 8, 0, 0, 0, time.UTC)
	days, tz, err := loadDays(context.Background(), cal, cairo, now, 2)
	if err != nil {
		t.Fatal(err)
	}

	rows, err := buildListRows(days, now, tz, []string{"Fajr", "Isha"}, timeLayout("24h"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if !rows[0].Today || rows[1].Today {
		t.Error("only the first row is today")
	}
	if rows[1].Date != "2024-04-01" || rows[1].Hijri != "11 Ramaḍān 1445 AH" {
		t.Errorf("second row = %+v", rows[1])
	}
	if rows[0].Timings["isha"] != "20:00" {
		t.Errorf("isha = %q", rows[0].Timings["isha"])
	}

	out := renderListTable(rows, []string{"Fajr", "Isha"})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("table has %d lines, want 4:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "Hijri") || !strings.Contains(lines[3], "Mon 01 Apr") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

// --- next ---

func TestSelectedPrayers(t *testing.T) {
	if got := selectedPrayers("", prayer.Canonical); len(got) != 5 {
		t.Errorf("default = %v", got)
	}
	got := selectedPrayers(" Fajr, Isha ", nil)
	if len(got) != 2 || got[0] != "Fajr" || got[1] != "Isha" {
		t.Errorf("selectedPrayers = %q", got)
	}
}

// --- config show ---

func TestDescribeValue(t *testing.T) {
	display.SetEnabled(false)

	tests := []struct {
		key, val, want string
	}{
		{"method", "5", "5 (Egyptian General Authority of Survey)"},
		{"method", "-1", "-1 (chosen by the calendar service)"},
		{"method", "6", "6"},
		{"school", "1", "1 (Hanafi)"},
		{"city", "Cairo", "Cairo"},
		{"city", "", "(not set)"},
	}
	for _, tt := range tests {
		if got := describeValue(tt.key, tt.val); got != tt.want {
			t.Errorf("describeValue(%q, %q) = %q, want %q", tt.key, tt.val, got, tt.want)
		}
	}
}
