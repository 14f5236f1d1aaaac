// Package schedule decides which day's timings are active for a given moment
// and rolls the schedule over to tomorrow once Isha has passed.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smokyabdulrahman/athany/internal/api"
	"github.com/smokyabdulrahman/athany/internal/cache"
	"github.com/smokyabdulrahman/athany/internal/prayer"
)

// State records whether today's Isha has passed.
type State int

const (
	NotPassed State = iota
	Passed
)

func (s State) String() string {
	if s == Passed {
		return "passed"
	}
	return "not-passed"
}

// Result is the outcome of Resolve.
type Result struct {
	State State
	// Date is midnight of the calendar day the prayers are bound to, in the
	// schedule's timezone.
	Date time.Time
	Day  api.Data
	// Schedule is the month that Day was taken from. It differs from the
	// schedule passed to Resolve after a month rollover.
	Schedule *cache.MonthSchedule
	// Previous is the superseded month when Schedule was replaced, else nil.
	Previous *cache.MonthSchedule
	// Prayers are the tracked prayers still ahead of now, in order.
	Prayers []prayer.Prayer
}

// MonthSource supplies and evicts month schedules. *cache.Calendar
// implements it.
type MonthSource interface {
	Get(ctx context.Context, loc cache.Location, year int, month time.Month) (*cache.MonthSchedule, error)
	Evict(ctx context.Context, key cache.Key) error
}

// Rollover resolves the active day of a month schedule.
type Rollover struct {
	source MonthSource
	logger *zap.Logger
}

// New returns a Rollover reading months from source. logger may be nil.
func New(source MonthSource, logger *zap.Logger) *Rollover {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rollover{source: source, logger: logger}
}

// Resolve returns the prayers that are still ahead of now.
//
// Until today's Isha has passed they are today's prayers. After that they
// are tomorrow's, taken from the next day of sched or, on the last day of
// the month, from the following month fetched through the source. The month
// that was active is evicted only once the next one has been obtained.
// A failed fetch is returned with its api error kind intact.
func (r *Rollover) Resolve(ctx context.Context, sched *cache.MonthSchedule, now time.Time) (*Result, error) {
	if sched == nil {
		return nil, errors.New("no month schedule to resolve")
	}
	tz := sched.TimeLocation(now.Location())
	now = now.In(tz)

	res := &Result{Schedule: sched}

	// The caller may hand over a month that no longer covers now, for
	// example after the machine slept through a month boundary.
	if !sched.Key.Contains(now) {
		current, err := r.replace(ctx, sched, now.Year(), now.Month())
		if err != nil {
			return nil, err
		}
		res.Schedule, res.Previous = current, sched
		tz = current.TimeLocation(tz)
		now = now.In(tz)
	}

	today, err := res.Schedule.Day(now.Day())
	if err != nil {
		return nil, err
	}
	raw, _ := today.Timings.Get("Isha")
	isha, err := prayer.Bind(raw, now, tz)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Isha for %s: %w", now.Format(time.DateOnly), err)
	}

	res.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, tz)
	res.Day = today

	if now.After(isha) {
		res.State = Passed
		tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, tz)
		res.Date = tomorrow

		if tomorrow.Month() != res.Schedule.Key.Month {
			next, err := r.replace(ctx, res.Schedule, tomorrow.Year(), tomorrow.Month())
			if err != nil {
				return nil, err
			}
			res.Previous = res.Schedule
			res.Schedule = next
			res.Day = next.Days[0]
		} else {
			res.Day, err = res.Schedule.Day(tomorrow.Day())
			if err != nil {
				return nil, err
			}
		}
	}

	prayers, err := prayer.ParseTimings(res.Day.Timings, res.Date, tz, prayer.Tracked)
	if err != nil {
		return nil, err
	}
	prayer.SortByTime(prayers)
	res.Prayers = prayer.After(prayers, now)

	r.logger.Debug("Resolved schedule",
		zap.String("state", res.State.String()),
		zap.String("date", res.Date.Format(time.DateOnly)),
		zap.Int("remaining", len(res.Prayers)),
	)
	return res, nil
}

// replace fetches (year, month) for old's location and then evicts old.
// Eviction failures are logged, a stale file is only wasted space.
func (r *Rollover) replace(ctx context.Context, old *cache.MonthSchedule, year int, month time.Month) (*cache.MonthSchedule, error) {
	loc := old.Key.Location
	next, err := r.source.Get(ctx, loc, year, month)
	if err != nil {
		return nil, fmt.Errorf("month rollover to %d-%02d for %s: %w", year, int(month), loc, err)
	}
	if len(next.Days) == 0 {
		return nil, fmt.Errorf("month rollover to %d-%02d for %s: %w", year, int(month), loc, cache.ErrCorrupt)
	}

	if err := r.source.Evict(ctx, old.Key); err != nil {
		r.logger.Warn("Failed to evict superseded month",
			zap.String("key", old.Key.FileName()), zap.Error(err))
	}
	r.logger.Info("Rolled over to new month",
		zap.String("from", old.Key.FileName()),
		zap.String("to", next.Key.FileName()),
	)
	return next, nil
}
