package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smokyabdulrahman/athany/internal/alert"
	"github.com/smokyabdulrahman/athany/internal/config"
	"github.com/smokyabdulrahman/athany/internal/display"
	"github.com/smokyabdulrahman/athany/internal/engine"
	"github.com/smokyabdulrahman/athany/internal/hijri"
	"github.com/smokyabdulrahman/athany/internal/metrics"
	"github.com/smokyabdulrahman/athany/internal/notify"
	"github.com/smokyabdulrahman/athany/internal/prayer"
	"github.com/smokyabdulrahman/athany/internal/schedule"
	"github.com/smokyabdulrahman/athany/internal/server"
	"github.com/spf13/cobra"
)

var (
	flagListen       string
	flagInterval     time.Duration
	flagSaveLocation bool
	flagMute         bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the athan scheduler",
		Long: "Keep running, play the athan and send a notification at each prayer time,\n" +
			"and roll the schedule over to the next day (and month) when Isha passes.\n" +
			"Stop with Ctrl-C.",
		Args: cobra.NoArgs,
		RunE: runRun,
	}

	cmd.Flags().StringVar(&flagListen, "listen", "", "Serve the status API on this address (overrides listen_addr)")
	cmd.Flags().DurationVar(&flagInterval, "interval", time.Second, "How often the schedule is checked")
	cmd.Flags().BoolVar(&flagSaveLocation, "save-location", true, "Remember a location given by flags or auto-detection")
	cmd.Flags().BoolVar(&flagMute, "mute", false, "Do not play the athan (overrides mute)")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := effectiveConfig(cmd)
	if cmd.Flags().Changed("mute") {
		cfg.Mute = flagMute
	}
	if cmd.Flags().Changed("listen") {
		cfg.ListenAddr = flagListen
	}
	if flagInterval <= 0 {
		return fmt.Errorf("invalid --interval %s: must be positive", flagInterval)
	}

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

	loc, detected, err := resolveLocation(ctx, cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	cal := newCalendar(store, cfg, logger, m)

	player := alert.NewMutable(alert.NewCommandPlayer(cfg.Player, cfg.SelectedAudio, logger.Named("alert")), cfg.Mute)
	defer player.Stop()

	notifier, closeNotifier := buildNotifier(cfg, logger)
	defer closeNotifier()

	var locations engine.LocationStore
	if settings != nil {
		locations = settings
	}

	eng, err := engine.New(engine.Options{
		Location:   loc,
		Calendar:   cal,
		Rollover:   schedule.New(cal, logger.Named("rollover")),
		Player:     player,
		Notifier:   notifier,
		Settings:   locations,
		AlertGrace: cfg.AlertGraceOrDefault(engine.DefaultAlertGrace),
		Lang:       lang,
		Logger:     logger.Named("engine"),
		Metrics:    m,
	})
	if err != nil {
		return err
	}

	if err := eng.Start(ctx, time.Now()); err != nil {
		return explain(err)
	}

	if flagSaveLocation && settings != nil && (detected || flagWasSet(cmd.Flags(), cmd.Root().PersistentFlags(), "city")) {
		if err := settings.SaveLocation(loc.City, loc.Country); err != nil {
			logger.Warn("Couldn't save location", zap.Error(err))
		}
	}

	layout := timeLayout(cfg.TimeFormat)
	printRunHeader(ctx, eng, layout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(gctx, flagInterval, func(ev engine.Event) {
			printEvent(ev, layout)
		})
	})
	if cfg.ListenAddr != "" {
		srv := server.New(cfg.ListenAddr, eng, m, logger.Named("server"))
		g.Go(func() error { return srv.ListenAndServe(gctx) })
	}

	err = g.Wait()
	if errors.Is(err, engine.ErrSessionTerminated) {
		return fmt.Errorf("%w\nthe saved location was cleared; %s", err, locationHint)
	}
	return err
}

// buildNotifier always logs and, when a broker is configured, also
// publishes over MQTT. A broker that cannot be reached is logged and
// skipped.
func buildNotifier(cfg *config.Config, logger *zap.Logger) (notify.Notifier, func()) {
	sinks := notify.Multi{notify.NewLog(logger.Named("notify"))}
	if cfg.MQTTBroker == "" {
		return sinks, func() {}
	}

	mq, err := notify.NewMQTT(cfg.MQTTBroker, cfg.MQTTTopic, logger.Named("mqtt"))
	if err != nil {
		logger.Warn("MQTT notifications disabled", zap.Error(err))
		return sinks, func() {}
	}
	return append(sinks, mq), mq.Close
}

func printRunHeader(ctx context.Context, eng *engine.Engine, layout string) {
	snap := eng.Snapshot()
	fmt.Println()
	fmt.Printf("  %s  %s\n", display.Bold("Athany"), buildLocationStr(snap.Location))
	if h, err := eng.TodayHijri(ctx, time.Now()); err == nil && h != "" {
		fmt.Printf("  %s\n", h)
	}
	if next, err := eng.NextPrayer(); err == nil {
		remaining := prayer.FormatRemaining(prayer.TimeRemaining(next, time.Now()))
		fmt.Printf("  Next: %s at %s (in %s)\n", display.Accent(next.Name), next.Time.Format(layout), remaining)
	}
	fmt.Println()
}

// printEvent writes one line per engine event.
func printEvent(ev engine.Event, layout string) {
	stamp := display.Gray(ev.At.Format("2006-01-02 15:04:05"))
	switch ev.Kind {
	case engine.PrayerElapsed:
		line := fmt.Sprintf("%s  %s", ev.Prayer.Name, ev.Prayer.Time.Format(layout))
		switch {
		case ev.Missed:
			fmt.Printf("  %s  %s  %s\n", stamp, display.Dim(line), display.Yellow("missed"))
		case ev.Alerted:
			fmt.Printf("  %s  %s  %s\n", stamp, display.Accent(line), display.Green("athan"))
		default:
			fmt.Printf("  %s  %s\n", stamp, line)
		}
	case engine.RolloverOccurred:
		fmt.Printf("  %s  %s\n", stamp, display.Cyan(fmt.Sprintf("Schedule for %s loaded (%d prayers)", ev.Date.Format("Mon 02 Jan"), ev.Upcoming)))
	}
}
