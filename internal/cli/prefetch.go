package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/smokyabdulrahman/athany/internal/cache"
	"github.com/smokyabdulrahman/athany/internal/display"
	"github.com/spf13/cobra"
)

const defaultPrefetchMonths = 12

func newPrefetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prefetch [months]",
		Short: "Download upcoming months into the cache",
		Long:  "Fetch and cache the prayer calendar for the current month and the following\nmonths (default: 12) so athany keeps working offline. Ctrl-C stops cleanly.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPrefetch,
	}
}

func runPrefetch(cmd *cobra.Command, args []string) error {
	months := defaultPrefetchMonths
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid number of months: %q (must be a positive integer)", args[0])
		}
		months = n
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

	fmt.Printf("Caching %d months for %s\n", months, buildLocationStr(loc))
	done := 0
	err = cal.Prefetch(ctx, loc, time.Now(), months, func(k cache.Key) {
		done++
		fmt.Printf("  [%2d/%d] %d-%02d\n", done, months, k.Year, int(k.Month))
	})
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Println(display.Yellow("Cancelled."))
		return nil
	case err != nil:
		return explain(err)
	}

	fmt.Println(display.Green("Done."))
	return nil
}
