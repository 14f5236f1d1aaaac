package hijri

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/athany/internal/api"
	"github.com/smokyabdulrahman/athany/internal/api/apitest"
	"github.com/smokyabdulrahman/athany/internal/cache"
)

func march2024(t *testing.T) *cache.MonthSchedule {
	t.Helper()
	key := cache.Key{Year: 2024, Month: time.March, Location: cache.Location{City: "Cairo", Country: "Egypt"}}
	sched, err := cache.Parse(key, apitest.MonthJSON(2024, time.March, "UTC", nil))
	require.NoError(t, err)
	return sched
}

func TestResolve(t *testing.T) {
	sched := march2024(t)
	date := time.Date(2024, 3, 10, 21, 0, 0, 0, time.UTC)

	ar, err := Resolve(date, sched, Arabic)
	require.NoError(t, err)
	assert.Equal(t, "الاحد 20 رَمَضان 1445", ar)

	en, err := Resolve(date, sched, English)
	require.NoError(t, err)
	assert.Equal(t, "Al Ahad 20 Ramaḍān 1445 AH", en)
}

func TestResolve_MonthMismatch(t *testing.T) {
	sched := march2024(t)

	for _, date := range []time.Time{
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC),
	} {
		_, err := Resolve(date, sched, Arabic)
		assert.ErrorIs(t, err, ErrMonthMismatch, date.String())
	}

	_, err := Resolve(time.Now(), nil, Arabic)
	assert.ErrorIs(t, err, ErrMonthMismatch)
}

func TestFormat(t *testing.T) {
	full := api.HijriDate{
		Day:         "10",
		Weekday:     api.Weekday{En: "Al Thalaata", Ar: "الثلاثاء"},
		Month:       api.HijriMonth{Number: 8, En: "Shaʿbān", Ar: "شَعْبان"},
		Year:        "1447",
		Designation: api.HijriDesignation{Abbreviated: "AH"},
	}
	noWeekday := full
	noWeekday.Weekday = api.Weekday{}
	noAbbr := full
	noAbbr.Designation = api.HijriDesignation{}

	tests := []struct {
		name string
		h    api.HijriDate
		lang Lang
		want string
	}{
		{"arabic", full, Arabic, "الثلاثاء 10 شَعْبان 1447"},
		{"english", full, English, "Al Thalaata 10 Shaʿbān 1447 AH"},
		{"english without weekday", noWeekday, English, "10 Shaʿbān 1447 AH"},
		{"default designation", noAbbr, English, "Al Thalaata 10 Shaʿbān 1447 AH"},
		{"empty", api.HijriDate{}, Arabic, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.h, tt.lang))
		})
	}
}

func TestShort(t *testing.T) {
	h := api.HijriDate{Day: "10", Month: api.HijriMonth{En: "Shaʿbān"}, Year: "1447"}
	assert.Equal(t, "10 Shaʿbān 1447 AH", Short(h))
	assert.Equal(t, "", Short(api.HijriDate{}))
}

func TestParseLang(t *testing.T) {
	for in, want := range map[string]Lang{"": Arabic, "ar": Arabic, "AR": Arabic, " en ": English} {
		got, err := ParseLang(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLang("fr")
	assert.Error(t, err)
}
