package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/smokyabdulrahman/athany/internal/api"
	"github.com/smokyabdulrahman/athany/internal/cache"
	"github.com/smokyabdulrahman/athany/internal/config"
	"github.com/smokyabdulrahman/athany/internal/geo"
	"github.com/smokyabdulrahman/athany/internal/logging"
	"github.com/smokyabdulrahman/athany/internal/metrics"
)

// errNoLocation is returned when neither config nor detection produced a
// usable location.
var errNoLocation = errors.New("no location configured")

// locationHint tells the user how to fix a missing or unknown location.
const locationHint = "set one with: athany config set city <city> && athany config set country <country>"

func newLogger() *zap.Logger {
	return logging.Must(logEnv(), FlagVerbose)
}

// openStore builds the calendar store selected by cache_backend. The
// returned close function is always non-nil.
func openStore(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, func() {}, fmt.Errorf("cache_backend is redis but redis_addr is not set")
		}
		rs := cache.NewRedisStore(cfg.RedisAddr, os.Getenv("ATHANY_REDIS_USERNAME"), os.Getenv("ATHANY_REDIS_PASSWORD"))
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			_ = rs.Close()
			return nil, func() {}, err
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		fs, err := cache.NewFileStore(cfg.CacheDir)
		if err != nil {
			return nil, func() {}, err
		}
		return fs, func() {}, nil
	}
}

// newCalendar wires the store to an api client using the configured
// calculation method and school.
func newCalendar(store cache.Store, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *cache.Calendar {
	client := api.NewClient()
	client.Method = cfg.MethodOrDefault(-1)
	client.School = cfg.SchoolOrDefault(-1)
	return cache.NewCalendar(store, client, logger.Named("calendar"), m)
}

// resolveLocation determines the location to use.
// Priority: CLI flags > environment > config > IP auto-detect.
// detected reports whether the location came from auto-detection.
func resolveLocation(ctx context.Context, cfg *config.Config) (loc cache.Location, detected bool, err error) {
	switch {
	case cfg.City != "":
		if cfg.Country == "" {
			return cache.Location{}, false, fmt.Errorf("--country is required when using --city")
		}
		return cache.Location{City: cfg.City, Country: cfg.Country}, false, nil
	case cfg.Country != "":
		return cache.Location{}, false, fmt.Errorf("--city is required when using --country")
	}

	found, err := geo.DetectLocation(ctx)
	if err != nil {
		if geo.IsUnavailable(err) {
			return cache.Location{}, false, fmt.Errorf("%w and auto-detection failed (%v); %s", errNoLocation, err, locationHint)
		}
		return cache.Location{}, false, err
	}
	return found.CacheLocation(), true, nil
}

// explain adds a hint to errors the user can fix by choosing another
// location.
func explain(err error) error {
	if errors.Is(err, api.ErrLookup) {
		return fmt.Errorf("%w\nthe calendar service does not recognise this location; %s", err, locationHint)
	}
	if errors.Is(err, api.ErrTransport) {
		return fmt.Errorf("%w\ncheck your internet connection and try again", err)
	}
	return err
}

// loadDays returns n consecutive days starting at from, reading whole months
// through the calendar. The zone of the first month is used for all days.
func loadDays(ctx context.Context, cal *cache.Calendar, loc cache.Location, from time.Time, n int) ([]api.Data, *time.Location, error) {
	first, err := cal.Get(ctx, loc, from.Year(), from.Month())
	if err != nil {
		return nil, nil, err
	}
	tz := first.TimeLocation(time.Local)
	start := from.In(tz)

	months := map[cache.Key]*cache.MonthSchedule{first.Key: first}
	days := make([]api.Data, 0, n)
	for i := 0; i < n; i++ {
		d := start.AddDate(0, 0, i)
		key := cache.KeyFor(loc, d)
		sched, ok := months[key]
		if !ok {
			sched, err = cal.Get(ctx, loc, key.Year, key.Month)
			if err != nil {
				return nil, nil, err
			}
			months[key] = sched
		}
		day, err := sched.Day(d.Day())
		if err != nil {
			return nil, nil, err
		}
		days = append(days, day)
	}
	return days, tz, nil
}
