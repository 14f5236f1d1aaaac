// Package queue holds the prayers remaining in the current day, in the order
// they will elapse.
package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/smokyabdulrahman/athany/internal/prayer"
)

var (
	// ErrEmpty is returned by Peek when the queue has been drained without a
	// refill. It indicates a skipped rollover.
	ErrEmpty = errors.New("upcoming prayer queue is empty")

	// ErrUnordered is returned when entries are not strictly increasing by time.
	ErrUnordered = errors.New("upcoming prayers are not in chronological order")
)

// Queue is an ordered queue of upcoming prayers. The front is always the
// earliest entry. It is not safe for concurrent use.
type Queue struct {
	items []prayer.Prayer
}

// New returns a queue holding entries.
func New(entries []prayer.Prayer) (*Queue, error) {
	q := &Queue{}
	if err := q.Refill(entries); err != nil {
		return nil, err
	}
	return q, nil
}

// Peek returns the next prayer without removing it.
func (q *Queue) Peek() (prayer.Prayer, error) {
	if len(q.items) == 0 {
		return prayer.Prayer{}, ErrEmpty
	}
	return q.items[0], nil
}

// PopIfElapsed removes and returns the front entry when now has reached its
// timestamp. Otherwise the queue is left untouched and ok is false.
func (q *Queue) PopIfElapsed(now time.Time) (p prayer.Prayer, ok bool) {
	if len(q.items) == 0 || now.Before(q.items[0].Time) {
		return prayer.Prayer{}, false
	}
	p = q.items[0]
	q.items[0] = prayer.Prayer{}
	q.items = q.items[1:]
	return p, true
}

// Empty reports whether no prayers remain.
func (q *Queue) Empty() bool {
	return len(q.items) == 0
}

// Len returns the number of remaining prayers.
func (q *Queue) Len() int {
	return len(q.items)
}

// Refill replaces the contents with entries, which must be strictly
// increasing by timestamp. On error the queue is left unchanged.
func (q *Queue) Refill(entries []prayer.Prayer) error {
	for i := 1; i < len(entries); i++ {
		if !entries[i].Time.After(entries[i-1].Time) {
			return fmt.Errorf("%w: %s at %s does not follow %s at %s", ErrUnordered,
				entries[i].Name, entries[i].Time.Format(time.RFC3339),
				entries[i-1].Name, entries[i-1].Time.Format(time.RFC3339))
		}
	}
	q.items = append(make([]prayer.Prayer, 0, len(entries)), entries...)
	return nil
}

// Items returns a copy of the remaining prayers, front first.
func (q *Queue) Items() []prayer.Prayer {
	return append([]prayer.Prayer(nil), q.items...)
}
