// Package cache resolves (location, month) pairs to parsed month schedules,
// fetching from the calendar service only when no usable entry is stored.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smokyabdulrahman/athany/internal/api"
	"github.com/smokyabdulrahman/athany/internal/metrics"
)

// ErrCorrupt marks a stored entry that could not be decoded into a month
// schedule. Calendar treats it as a miss and fetches again.
var ErrCorrupt = errors.New("cached calendar is corrupt")

// Location identifies which cached schedules apply.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

func (l Location) String() string {
	return l.City + ", " + l.Country
}

// IsZero reports whether no location has been set.
func (l Location) IsZero() bool {
	return l.City == "" && l.Country == ""
}

// Key identifies one stored month schedule.
type Key struct {
	Year     int
	Month    time.Month
	Location Location
}

// KeyFor returns the key of the month containing t.
func KeyFor(loc Location, t time.Time) Key {
	return Key{Year: t.Year(), Month: t.Month(), Location: loc}
}

// FileName is the stored entry name: "{year}-{month}-{city}-{country}.json",
// with the month not zero-padded. Existing caches depend on this layout.
func (k Key) FileName() string {
	return fmt.Sprintf("%d-%d-%s-%s.json", k.Year, int(k.Month), k.Location.City, k.Location.Country)
}

// Next returns the key of the following month for the same location.
func (k Key) Next() Key {
	t := time.Date(k.Year, k.Month+1, 1, 0, 0, 0, 0, time.UTC)
	return Key{Year: t.Year(), Month: t.Month(), Location: k.Location}
}

// Contains reports whether t falls inside the key's month.
func (k Key) Contains(t time.Time) bool {
	return t.Year() == k.Year && t.Month() == k.Month
}

// MonthSchedule is one month of daily timings for a location. It is never
// mutated after creation.
type MonthSchedule struct {
	Key  Key
	Days []api.Data // index = day-of-month - 1
	Raw  []byte
}

// Day returns the entry for the given day of the month (1-based).
func (m *MonthSchedule) Day(day int) (api.Data, error) {
	if day < 1 || day > len(m.Days) {
		return api.Data{}, fmt.Errorf("day %d out of range for %d-%02d (got %d days)", day, m.Key.Year, int(m.Key.Month), len(m.Days))
	}
	return m.Days[day-1], nil
}

// TimeLocation returns the timezone the schedule's timings are expressed in,
// falling back to def when the API did not report a loadable zone.
func (m *MonthSchedule) TimeLocation(def *time.Location) *time.Location {
	if len(m.Days) > 0 && m.Days[0].Meta.Timezone != "" {
		if tz, err := time.LoadLocation(m.Days[0].Meta.Timezone); err == nil {
			return tz
		}
	}
	if def == nil {
		return time.Local
	}
	return def
}

// Parse decodes a raw calendar response into a MonthSchedule. Anything that
// is not a complete month (28 to 31 days, success code) wraps ErrCorrupt.
func Parse(key Key, raw []byte) (*MonthSchedule, error) {
	var resp api.CalendarResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, key.FileName(), err)
	}
	if resp.Code != 200 {
		return nil, fmt.Errorf("%w: %s: code=%d", ErrCorrupt, key.FileName(), resp.Code)
	}
	if n := len(resp.Data); n < 28 || n > 31 {
		return nil, fmt.Errorf("%w: %s: %d days", ErrCorrupt, key.FileName(), n)
	}
	return &MonthSchedule{Key: key, Days: resp.Data, Raw: raw}, nil
}

// Fetcher is the remote calendar lookup.
type Fetcher interface {
	FetchCalendarByCity(ctx context.Context, city, country string, year int, month time.Month) ([]byte, error)
}

// Calendar is the get-or-fetch cache of month schedules.
type Calendar struct {
	store   Store
	fetcher Fetcher
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCalendar wires a store to a fetcher. logger and m may be nil.
func NewCalendar(store Store, fetcher Fetcher, logger *zap.Logger, m *metrics.Metrics) *Calendar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calendar{store: store, fetcher: fetcher, logger: logger, metrics: m}
}

// Get returns the month schedule for loc, fetching and persisting it on a
// miss. A stored entry that fails to decode is treated as a miss.
// Fetch errors are returned unwrapped from their api kind so callers can
// tell api.ErrLookup from api.ErrTransport.
func (c *Calendar) Get(ctx context.Context, loc Location, year int, month time.Month) (*MonthSchedule, error) {
	key := Key{Year: year, Month: month, Location: loc}
	log := c.logger.With(zap.String("key", key.FileName()))

	raw, err := c.store.Load(ctx, key.FileName())
	switch {
	case err == nil:
		sched, perr := Parse(key, raw)
		if perr == nil {
			c.metrics.CacheHit()
			return sched, nil
		}
		c.metrics.CacheCorrupt()
		log.Warn("Discarding corrupt cached calendar", zap.Error(perr))
	case errors.Is(err, ErrNotFound):
		c.metrics.CacheMiss()
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn("Cache read failed, fetching instead", zap.Error(err))
	}

	return c.fetch(ctx, key)
}

func (c *Calendar) fetch(ctx context.Context, key Key) (*MonthSchedule, error) {
	log := c.logger.With(zap.String("key", key.FileName()))
	log.Info("Fetching calendar")

	raw, err := c.fetcher.FetchCalendarByCity(ctx, key.Location.City, key.Location.Country, key.Year, key.Month)
	if err != nil {
		c.metrics.CalendarFetch(fetchOutcome(err))
		return nil, fmt.Errorf("failed to fetch calendar for %d-%02d: %w", key.Year, int(key.Month), err)
	}

	sched, err := Parse(key, raw)
	if err != nil {
		c.metrics.CalendarFetch(metrics.OutcomeError)
		return nil, fmt.Errorf("calendar service returned an unusable month: %w", err)
	}
	c.metrics.CalendarFetch(metrics.OutcomeOK)

	if err := c.store.Save(ctx, key.FileName(), raw); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// The schedule is still usable for this session.
		log.Warn("Failed to persist calendar", zap.Error(err))
	}

	return sched, nil
}

func fetchOutcome(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	case errors.Is(err, api.ErrLookup):
		return metrics.OutcomeLookup
	case errors.Is(err, api.ErrTransport):
		return metrics.OutcomeTransport
	default:
		return metrics.OutcomeError
	}
}

// Evict deletes the stored month for key.
func (c *Calendar) Evict(ctx context.Context, key Key) error {
	if err := c.store.Delete(ctx, key.FileName()); err != nil {
		return err
	}
	c.logger.Info("Evicted calendar", zap.String("key", key.FileName()))
	return nil
}

// Prefetch makes sure the months starting at from's month are cached, one
// month at a time. progress, if non-nil, is called before each month.
// Cancellation stops between or during fetches without leaving partial
// entries behind.
func (c *Calendar) Prefetch(ctx context.Context, loc Location, from time.Time, months int, progress func(Key)) error {
	key := KeyFor(loc, from)
	for i := 0; i < months; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if progress != nil {
			progress(key)
		}
		if _, err := c.Get(ctx, loc, key.Year, key.Month); err != nil {
			return err
		}
		key = key.Next()
	}
	return nil
}
