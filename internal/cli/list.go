package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smokyabdulrahman/athany/internal/api"
	"github.com/smokyabdulrahman/athany/internal/display"
	"github.com/smokyabdulrahman/athany/internal/hijri"
	"github.com/smokyabdulrahman/athany/internal/prayer"
	"github.com/spf13/cobra"
)

const defaultListDays = 7

var flagListPrayer string

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [days]",
		Short: "Show prayer times for multiple days",
		Long:  "Display a grid of prayer times for N days (default: 7), read from the cached months.\nUse --prayer to show a single prayer per day.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runList,
	}
	cmd.Flags().StringVar(&flagListPrayer, "prayer", "", "Only show this prayer (e.g. Fajr)")
	return cmd
}

// parseDays validates the optional [days] argument.
func parseDays(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	switch args[0] {
	case "week":
		return 7, nil
	case "month":
		return 30, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number of days: %q (must be a positive integer)", args[0])
	}
	return n, nil
}

// listColumns picks the prayers to display.
func listColumns(only string) ([]string, error) {
	if only == "" {
		return prayer.Tracked, nil
	}
	for _, name := range prayer.AllPrayerNames {
		if strings.EqualFold(name, only) {
			return []string{name}, nil
		}
	}
	return nil, fmt.Errorf("unknown prayer %q; valid names: %s", only, strings.Join(prayer.AllPrayerNames, ", "))
}

func runList(cmd *cobra.Command, args []string) error {
	days, err := parseDays(args, defaultListDays)
	if err != nil {
		return err
	}
	columns, err := listColumns(flagListPrayer)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg := effectiveConfig(cmd)
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

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
	daysList, tz, err := loadDays(ctx, cal, loc, time.Now(), days)
	if err != nil {
		return explain(err)
	}

	now := time.Now().In(tz)
	layout := timeLayout(cfg.TimeFormat)
	rows, err := buildListRows(daysList, now, tz, columns, layout)
	if err != nil {
		return err
	}

	if FlagJSON {
		out := listJSONOutput{
			Location: todayJSONLocation{City: loc.City, Country: loc.Country, Timezone: tz.String()},
			Days:     rows,
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println()
	fmt.Printf("  %s\n", display.Boldf("Prayer Times, %d Days", days))
	fmt.Println()
	fmt.Printf("  %s\n", buildLocationStr(loc))
	fmt.Println()
	fmt.Print(renderListTable(rows, columns))
	fmt.Println()
	return nil
}

// listJSONOutput is the JSON structure for the list command.
type listJSONOutput struct {
	Location todayJSONLocation `json:"location"`
	Days     []listJSONDay     `json:"days"`
}

type listJSONDay struct {
	Date    string            `json:"date"`
	Hijri   string            `json:"hijri"`
	Today   bool              `json:"today,omitempty"`
	Timings map[string]string `json:"timings"`

	label string
	times []string
}

// buildListRows formats each day once for both the table and JSON.
func buildListRows(daysList []api.Data, now time.Time, tz *time.Location, columns []string, layout string) ([]listJSONDay, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, tz)

	rows := make([]listJSONDay, 0, len(daysList))
	for i, dd := range daysList {
		date := start.AddDate(0, 0, i)
		parsed, err := prayer.ParseTimings(dd.Timings, date, tz, columns)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", date.Format(time.DateOnly), err)
		}

		row := listJSONDay{
			Date:    date.Format(time.DateOnly),
			Hijri:   hijri.Short(dd.Date.Hijri),
			Today:   i == 0,
			Timings: make(map[string]string, len(parsed)),
			label:   date.Format("Mon 02 Jan"),
		}
		for _, p := range parsed {
			t := p.Time.Format(layout)
			row.Timings[strings.ToLower(p.Name)] = t
			row.times = append(row.times, t)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func renderListTable(rows []listJSONDay, columns []string) string {
	headers := append([]string{"Date", "Hijri"}, columns...)
	tbl := display.NewTable(headers...)
	for i, r := range rows {
		tbl.AddRow(append([]string{r.label, r.Hijri}, r.times...)...)
		if r.Today {
			tbl.StyleRow(i, display.StyleAccent)
		}
	}
	return tbl.Render()
}
