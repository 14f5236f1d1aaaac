package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/smokyabdulrahman/athany/internal/prayer"
	"github.com/spf13/cobra"
)

var (
	flagFormat  string
	flagPrayers string
)

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long:  "Display the next upcoming prayer time on a single line, suitable for status bars.",
		RunE:  runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", prayer.FormatFull, "Display format: "+strings.Join(prayer.Formats, ", ")+", or a custom Go template")
	cmd.Flags().StringVar(&flagPrayers, "prayers", "", "Comma-separated list of prayers to consider (default: the five prayers and Sunrise)")

	return cmd
}

// selectedPrayers parses a comma-separated list, falling back to def.
func selectedPrayers(list string, def []string) []string {
	if strings.TrimSpace(list) == "" {
		return def
	}
	names := strings.Split(list, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return names
}

func runNext(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := effectiveConfig(cmd)
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	names := selectedPrayers(flagPrayers, prayer.Tracked)
	layout := timeLayout(cfg.TimeFormat)

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
	prayers, err := prayer.ParseTimings(days[0].Timings, now, tz, names)
	if err != nil {
		return err
	}
	prayer.SortByTime(prayers)

	next := prayer.NextPrayer(prayers, now)

	// If all today's prayers have passed, use tomorrow's first prayer.
	if next == nil {
		tomorrow := now.AddDate(0, 0, 1)
		tDays, _, fetchErr := loadDays(ctx, cal, loc, tomorrow, 1)
		if fetchErr != nil {
			// Keep status bars readable when tomorrow's month is unreachable.
			if len(prayers) > 0 {
				fmt.Printf("%s --:--", prayers[len(prayers)-1].Name)
				return nil
			}
			return fmt.Errorf("failed to fetch tomorrow's times: %w", fetchErr)
		}

		tomorrowPrayers, err := prayer.ParseTimings(tDays[0].Timings, tomorrow, tz, names)
		if err != nil {
			return err
		}
		prayer.SortByTime(tomorrowPrayers)
		if len(tomorrowPrayers) > 0 {
			next = &tomorrowPrayers[0]
		}
	}

	if next == nil {
		return fmt.Errorf("could not determine next prayer")
	}

	fmt.Print(prayer.FormatOutput(*next, now, flagFormat, layout))
	return nil
}
