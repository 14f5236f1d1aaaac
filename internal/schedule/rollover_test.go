package schedule

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/athany/internal/api"
	"github.com/smokyabdulrahman/athany/internal/api/apitest"
	"github.com/smokyabdulrahman/athany/internal/cache"
)

var cairo = cache.Location{City: "Cairo", Country: "Egypt"}

func month(year int, m time.Month, tz string) *cache.MonthSchedule {
	key := cache.Key{Year: year, Month: m, Location: cairo}
	sched, err := cache.Parse(key, apitest.MonthJSON(year, m, tz, nil))
	if err != nil {
		panic(err)
	}
	return sched
}

// fakeSource serves synthetic months and records every call in order.
type fakeSource struct {
	getErr   error
	evictErr error
	calls    []string
}

func (f *fakeSource) Get(_ context.Context, loc cache.Location, year int, m time.Month) (*cache.MonthSchedule, error) {
	f.calls = append(f.calls, fmt.Sprintf("get %d-%d", year, int(m)))
	if f.getErr != nil {
		return nil, f.getErr
	}
	return month(year, m, "UTC"), nil
}

func (f *fakeSource) Evict(_ context.Context, key cache.Key) error {
	f.calls = append(f.calls, "evict "+key.FileName())
	return f.evictErr
}

func names(r *Result) []string {
	out := make([]string, len(r.Prayers))
	for i, p := range r.Prayers {
		out[i] = p.Name
	}
	return out
}

func assertAllOn(t *testing.T, r *Result, year int, m time.Month, day int) {
	t.Helper()
	for _, p := range r.Prayers {
		y, mm, d := p.Time.Date()
		assert.Equal(t, []int{year, int(m), day}, []int{y, int(mm), d}, "%s dated %s", p.Name, p.Time)
	}
}

func assertAscending(t *testing.T, r *Result) {
	t.Helper()
	for i := 1; i < len(r.Prayers); i++ {
		assert.True(t, r.Prayers[i].Time.After(r.Prayers[i-1].Time), "%v not after %v", r.Prayers[i], r.Prayers[i-1])
	}
}

func TestResolve_BeforeIshaFiltersElapsed(t *testing.T) {
	src := &fakeSource{}
	r := New(src, nil)

	res, err := r.Resolve(context.Background(), month(2024, time.March, "UTC"),
		time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, NotPassed, res.State)
	assert.Equal(t, []string{"Asr", "Maghrib", "Isha"}, names(res))
	assertAllOn(t, res, 2024, time.March, 10)
	assertAscending(t, res)
	assert.Empty(t, src.calls)
}

func TestResolve_StartupBeforeFajr(t *testing.T) {
	r := New(&fakeSource{}, nil)

	res, err := r.Resolve(context.Background(), month(2024, time.March, "UTC"),
		time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"}, names(res))
	assertAllOn(t, res, 2024, time.March, 10)
	assert.Equal(t, "20", res.Day.Date.Hijri.Day)
}

func TestResolve_IshaPassedUsesTomorrow(t *testing.T) {
	src := &fakeSource{}
	r := New(src, nil)
	sched := month(2024, time.March, "UTC")

	res, err := r.Resolve(context.Background(), sched, time.Date(2024, 3, 10, 20, 1, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, Passed, res.State)
	assert.Len(t, res.Prayers, 6)
	assertAllOn(t, res, 2024, time.March, 11)
	assertAscending(t, res)
	assert.Equal(t, "21", res.Day.Date.Hijri.Day)
	assert.Same(t, sched, res.Schedule)
	assert.Nil(t, res.Previous)
	assert.Empty(t, src.calls, "same-month rollover must not touch the cache")
}

func TestResolve_ExactlyAtIshaIsNotPassed(t *testing.T) {
	r := New(&fakeSource{}, nil)

	res, err := r.Resolve(context.Background(), month(2024, time.March, "UTC"),
		time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, NotPassed, res.State)
	assert.Empty(t, res.Prayers)
}

func TestResolve_MonthBoundaryFetchesOnceThenEvicts(t *testing.T) {
	src := &fakeSource{}
	r := New(src, nil)
	march := month(2024, time.March, "UTC")

	res, err := r.Resolve(context.Background(), march, time.Date(2024, 3, 31, 21, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []string{"get 2024-4", "evict 2024-3-Cairo-Egypt.json"}, src.calls)
	assert.Equal(t, Passed, res.State)
	assertAllOn(t, res, 2024, time.April, 1)
	assert.Equal(t, time.April, res.Schedule.Key.Month)
	assert.Same(t, march, res.Previous)
	assert.Equal(t, "11", res.Day.Date.Hijri.Day, "day 1 of the new month")
}

func TestResolve_YearBoundary(t *testing.T) {
	src := &fakeSource{}
	r := New(src, nil)

	res, err := r.Resolve(context.Background(), month(2024, time.December, "UTC"),
		time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []string{"get 2025-1", "evict 2024-12-Cairo-Egypt.json"}, src.calls)
	assertAllOn(t, res, 2025, time.January, 1)
}

func TestResolve_MonthBoundaryFailureEvictsNothing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"lookup failure", fmt.Errorf("failed to fetch calendar: %w", api.ErrLookup), api.ErrLookup},
		{"transport failure", fmt.Errorf("failed to fetch calendar: %w", api.ErrTransport), api.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{getErr: tt.err}
			r := New(src, nil)

			_, err := r.Resolve(context.Background(), month(2024, time.March, "UTC"),
				time.Date(2024, 3, 31, 21, 0, 0, 0, time.UTC))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, []string{"get 2024-4"}, src.calls)
		})
	}
}

func TestResolve_EvictFailureIsNotFatal(t *testing.T) {
	src := &fakeSource{evictErr: errors.New("permission denied")}
	r := New(src, nil)

	res, err := r.Resolve(context.Background(), month(2024, time.February, "UTC"),
		time.Date(2024, 2, 29, 22, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assertAllOn(t, res, 2024, time.March, 1)
}

func TestResolve_StaleScheduleIsReplaced(t *testing.T) {
	src := &fakeSource{}
	r := New(src, nil)
	march := month(2024, time.March, "UTC")

	res, err := r.Resolve(context.Background(), march, time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []string{"get 2024-4", "evict 2024-3-Cairo-Egypt.json"}, src.calls)
	assert.Equal(t, NotPassed, res.State)
	assert.Equal(t, []string{"Dhuhr", "Asr", "Maghrib", "Isha"}, names(res))
	assertAllOn(t, res, 2024, time.April, 2)
	assert.Same(t, march, res.Previous)
}

func TestResolve_UsesScheduleTimezone(t *testing.T) {
	egypt, err := time.LoadLocation("Africa/Cairo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	r := New(&fakeSource{}, nil)
	sched := month(2024, time.March, "Africa/Cairo")

	// 18:30 UTC is 20:30 in Cairo, past the 20:00 Isha.
	res, err := r.Resolve(context.Background(), sched, time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, Passed, res.State)
	require.NotEmpty(t, res.Prayers)
	assert.Equal(t, egypt.String(), res.Prayers[0].Time.Location().String())
	assertAllOn(t, res, 2024, time.March, 11)
}

func TestResolve_NilSchedule(t *testing.T) {
	_, err := New(&fakeSource{}, nil).Resolve(context.Background(), nil, time.Now())
	assert.Error(t, err)
}
