// Package engine owns the running prayer schedule: it pops prayers as they
// elapse, fires the athan and notifications, and rolls the schedule over
// once the day is exhausted.
//
// A single goroutine drives the engine through Tick (or Run). Read-only
// accessors such as NextPrayer and Snapshot may be called from other
// goroutines.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/smokyabdulrahman/athany/internal/alert"
	"github.com/smokyabdulrahman/athany/internal/api"
	"github.com/smokyabdulrahman/athany/internal/cache"
	"github.com/smokyabdulrahman/athany/internal/hijri"
	"github.com/smokyabdulrahman/athany/internal/metrics"
	"github.com/smokyabdulrahman/athany/internal/notify"
	"github.com/smokyabdulrahman/athany/internal/prayer"
	"github.com/smokyabdulrahman/athany/internal/queue"
	"github.com/smokyabdulrahman/athany/internal/schedule"
)

// ErrSessionTerminated is returned by Tick and Run when a rollover could not
// obtain the next schedule. The saved location has been cleared and the
// session must end.
var ErrSessionTerminated = errors.New("session terminated: prayer schedule can no longer be resolved")

// DefaultAlertGrace is how late a prayer may be popped and still sound the
// athan.
const DefaultAlertGrace = 5 * time.Minute

// DefaultNotifyTimeout bounds a single notification delivery.
const DefaultNotifyTimeout = 10 * time.Second

// DefaultRetryBase is the first delay after a rollover fails for a reason
// other than a lookup or transport failure. Later failures double it up to
// MaxRetryDelay.
const (
	DefaultRetryBase = 5 * time.Second
	MaxRetryDelay    = 10 * time.Minute
)

// NotificationTitle is the title of every prayer notification.
const NotificationTitle = "Athany"

// State is the engine's position in its two-state machine.
type State int

const (
	DayActive State = iota
	RolloverPending
)

func (s State) String() string {
	switch s {
	case DayActive:
		return "day-active"
	case RolloverPending:
		return "rollover-pending"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Calendar supplies month schedules. *cache.Calendar implements it.
type Calendar interface {
	Get(ctx context.Context, loc cache.Location, year int, month time.Month) (*cache.MonthSchedule, error)
}

// Resolver computes the remaining prayers. *schedule.Rollover implements it.
type Resolver interface {
	Resolve(ctx context.Context, sched *cache.MonthSchedule, now time.Time) (*schedule.Result, error)
}

// LocationStore forgets the saved location. *config.Store implements it.
type LocationStore interface {
	ClearLocation() error
}

// Options configures an Engine. Location, Calendar and Rollover are required.
type Options struct {
	Location cache.Location
	Calendar Calendar
	Rollover Resolver
	Player   alert.Player
	Notifier notify.Notifier
	Settings LocationStore

	// AlertGrace bounds how late an athan is still played; older prayers
	// are reported as missed. Zero means DefaultAlertGrace.
	AlertGrace time.Duration
	// NotifyTimeout bounds each notification, which is delivered in the
	// background. Zero means DefaultNotifyTimeout.
	NotifyTimeout time.Duration
	// RetryBase is the initial rollover retry delay. Zero means
	// DefaultRetryBase.
	RetryBase time.Duration

	Lang    hijri.Lang
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Engine is the composed scheduling state machine.
type Engine struct {
	opts    Options
	session string
	logger  *zap.Logger
	now     func() time.Time

	deliveries sync.WaitGroup

	// Rollover retry state, touched only by the driving goroutine.
	backoff retry.Backoff
	retryAt time.Time

	mu      sync.RWMutex
	started bool
	state   State
	sched   *cache.MonthSchedule
	prev    *cache.MonthSchedule
	date    time.Time
	queue   *queue.Queue
}

// New validates opts and returns an engine that has not been started.
func New(opts Options) (*Engine, error) {
	if opts.Location.IsZero() {
		return nil, errors.New("engine: no location configured")
	}
	if opts.Calendar == nil || opts.Rollover == nil {
		return nil, errors.New("engine: calendar and rollover are required")
	}
	if opts.Player == nil {
		opts.Player = alert.Nop{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.AlertGrace <= 0 {
		opts.AlertGrace = DefaultAlertGrace
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultRetryBase
	}
	if opts.Lang == "" {
		opts.Lang = hijri.Arabic
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	session := uuid.NewString()
	q, _ := queue.New(nil)
	return &Engine{
		opts:    opts,
		session: session,
		logger:  opts.Logger.With(zap.String("session", session), zap.Stringer("location", opts.Location)),
		now:     time.Now,
		state:   RolloverPending,
		queue:   q,
	}, nil
}

// Session returns the identifier attached to this engine's log lines.
func (e *Engine) Session() string { return e.session }

// Start loads the month containing now and fills the queue. Lookup and
// transport failures are returned unchanged so the caller can ask for a new
// location; nothing is cleared.
func (e *Engine) Start(ctx context.Context, now time.Time) error {
	sched, err := e.opts.Calendar.Get(ctx, e.opts.Location, now.Year(), now.Month())
	if err != nil {
		return fmt.Errorf("failed to load schedule for %s: %w", e.opts.Location, err)
	}

	res, err := e.opts.Rollover.Resolve(ctx, sched, now)
	if err != nil {
		return fmt.Errorf("failed to resolve schedule for %s: %w", e.opts.Location, err)
	}

	e.mu.Lock()
	e.started = true
	err = e.apply(res)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.logger.Info("Engine started",
		zap.String("state", e.State().String()),
		zap.String("date", res.Date.Format(time.DateOnly)),
		zap.Int("upcoming", len(res.Prayers)),
	)
	return nil
}

// apply installs a resolved schedule. Callers hold e.mu.
func (e *Engine) apply(res *schedule.Result) error {
	if err := e.queue.Refill(res.Prayers); err != nil {
		return err
	}
	if res.Previous != nil {
		e.prev = res.Previous
	}
	e.sched = res.Schedule
	e.date = res.Date
	if e.queue.Empty() {
		e.state = RolloverPending
	} else {
		e.state = DayActive
	}
	e.opts.Metrics.QueueLength(e.queue.Len())
	return nil
}

// Tick advances the engine to now. Every prayer that has elapsed is popped
// and reported; canonical prayers sound the athan and send a notification
// unless they elapsed more than AlertGrace ago. When the queue runs out the
// schedule is rolled over.
//
// Notifications are delivered in the background; see Wait. Playback and
// notification errors are logged, never returned. A rollover that fails
// with a lookup or transport failure clears the saved location and returns
// ErrSessionTerminated. Any other rollover failure is returned and retried
// on a later tick after an exponential backoff.
func (e *Engine) Tick(ctx context.Context, now time.Time) ([]Event, error) {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil, errors.New("engine: Tick before Start")
	}
	var popped []prayer.Prayer
	for {
		p, ok := e.queue.PopIfElapsed(now)
		if !ok {
			break
		}
		popped = append(popped, p)
	}
	if e.queue.Empty() {
		e.state = RolloverPending
	}
	pending := e.state == RolloverPending
	sched := e.sched
	e.opts.Metrics.QueueLength(e.queue.Len())
	e.mu.Unlock()

	events := make([]Event, 0, len(popped)+1)
	for _, p := range popped {
		events = append(events, e.elapsed(ctx, p, now))
	}

	if !pending {
		return events, nil
	}

	ev, err := e.rollover(ctx, sched, now)
	if err != nil {
		return events, err
	}
	if ev != nil {
		events = append(events, *ev)
	}
	return events, nil
}

func (e *Engine) elapsed(ctx context.Context, p prayer.Prayer, now time.Time) Event {
	ev := Event{
		ID:     uuid.NewString(),
		Kind:   PrayerElapsed,
		At:     now,
		Prayer: p,
		Missed: now.Sub(p.Time) > e.opts.AlertGrace,
	}
	e.opts.Metrics.PrayerElapsed(p.Name)

	log := e.logger.With(zap.String("prayer", p.Name), zap.Time("time", p.Time), zap.String("event", ev.ID))
	if !prayer.IsCanonical(p.Name) {
		log.Info("Prayer time elapsed")
		return ev
	}
	if ev.Missed {
		log.Warn("Prayer elapsed while not running, skipping athan", zap.Duration("late", now.Sub(p.Time)))
		return ev
	}

	log.Info("Prayer time, playing athan")
	if err := e.opts.Player.Play(ctx); err != nil {
		e.opts.Metrics.AlertFailure()
		log.Warn("Couldn't play athan audio", zap.Error(err))
	} else {
		ev.Alerted = true
	}
	e.notify(ctx, log, fmt.Sprintf("It's time for %s prayer 🕌", p.Name))
	return ev
}

// notify hands the message to the notifier without blocking the tick.
func (e *Engine) notify(ctx context.Context, log *zap.Logger, msg string) {
	e.deliveries.Add(1)
	go func() {
		defer e.deliveries.Done()
		ctx, cancel := context.WithTimeout(ctx, e.opts.NotifyTimeout)
		defer cancel()
		if err := e.opts.Notifier.Notify(ctx, NotificationTitle, msg); err != nil {
			e.opts.Metrics.AlertFailure()
			log.Warn("Couldn't deliver notification", zap.Error(err))
		}
	}()
}

// Wait blocks until notifications handed off by Tick have been delivered or
// have timed out.
func (e *Engine) Wait() {
	e.deliveries.Wait()
}

func (e *Engine) rollover(ctx context.Context, sched *cache.MonthSchedule, now time.Time) (*Event, error) {
	if now.Before(e.retryAt) {
		return nil, nil
	}
	res, err := e.opts.Rollover.Resolve(ctx, sched, now)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, api.ErrLookup) || errors.Is(err, api.ErrTransport) {
			e.terminate(err)
			return nil, fmt.Errorf("%w: %w", ErrSessionTerminated, err)
		}
		// Anything else (a malformed day, say) leaves the engine pending
		// and retries with exponential backoff.
		if e.backoff == nil {
			e.backoff = retry.WithCappedDuration(MaxRetryDelay, retry.NewExponential(e.opts.RetryBase))
		}
		delay, _ := e.backoff.Next()
		e.retryAt = now.Add(delay)
		e.logger.Error("Rollover failed", zap.Error(err), zap.Time("retry_at", e.retryAt))
		return nil, err
	}
	e.backoff, e.retryAt = nil, time.Time{}
	if len(res.Prayers) == 0 {
		// now is exactly today's Isha; tomorrow resolves on a later tick.
		return nil, nil
	}

	e.mu.Lock()
	err = e.apply(res)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	e.opts.Metrics.Rollover()

	e.logger.Info("Rolled over schedule",
		zap.String("date", res.Date.Format(time.DateOnly)),
		zap.String("month", res.Schedule.Key.FileName()),
	)
	return &Event{
		ID:       uuid.NewString(),
		Kind:     RolloverOccurred,
		At:       now,
		Date:     res.Date,
		Upcoming: len(res.Prayers),
	}, nil
}

func (e *Engine) terminate(cause error) {
	e.logger.Error("Rollover could not fetch the next schedule, clearing saved location", zap.Error(cause))
	if e.opts.Settings == nil {
		return
	}
	if err := e.opts.Settings.ClearLocation(); err != nil {
		e.logger.Error("Failed to clear saved location", zap.Error(err))
	}
}

// Run ticks the engine every interval until ctx is cancelled or the session
// terminates. handle, if non-nil, receives every event on the driving
// goroutine. Run returns nil on cancellation, after pending notifications
// have finished.
func (e *Engine) Run(ctx context.Context, interval time.Duration, handle func(Event)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer e.Wait()

	for {
		events, err := e.Tick(ctx, e.now())
		for _, ev := range events {
			if handle != nil {
				handle(ev)
			}
		}
		switch {
		case errors.Is(err, ErrSessionTerminated):
			return err
		case ctx.Err() != nil:
			return nil
		case err != nil:
			e.logger.Warn("Tick failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// NextPrayer returns the front of the upcoming queue. It fails with
// queue.ErrEmpty while a rollover is pending.
func (e *Engine) NextPrayer() (prayer.Prayer, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.queue.Peek()
}

// TimeRemaining returns the time from now until the next prayer.
func (e *Engine) TimeRemaining(now time.Time) (time.Duration, error) {
	p, err := e.NextPrayer()
	if err != nil {
		return 0, err
	}
	return prayer.TimeRemaining(p, now), nil
}

// TodayHijri returns the Hijri date of now's day. After a month rollover
// the superseded month is still held in memory and answers for the last day
// of the old month; otherwise the month is obtained through the calendar.
func (e *Engine) TodayHijri(ctx context.Context, now time.Time) (string, error) {
	e.mu.RLock()
	sched, prev := e.sched, e.prev
	e.mu.RUnlock()
	if sched == nil {
		return "", errors.New("engine: not started")
	}

	date := now.In(sched.TimeLocation(now.Location()))
	for _, s := range []*cache.MonthSchedule{sched, prev} {
		if s != nil && s.Key.Contains(date) {
			return hijri.Resolve(date, s, e.opts.Lang)
		}
	}

	other, err := e.opts.Calendar.Get(ctx, e.opts.Location, date.Year(), date.Month())
	if err != nil {
		return "", err
	}
	return hijri.Resolve(date, other, e.opts.Lang)
}

// Snapshot is a consistent view of the engine for status endpoints.
type Snapshot struct {
	Session  string          `json:"session"`
	State    string          `json:"state"`
	Location cache.Location  `json:"location"`
	Date     string          `json:"date"`
	Upcoming []prayer.Prayer `json:"upcoming"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Snapshot{
		Session:  e.session,
		State:    e.state.String(),
		Location: e.opts.Location,
		Upcoming: e.queue.Items(),
	}
	if !e.date.IsZero() {
		s.Date = e.date.Format(time.DateOnly)
	}
	return s
}
