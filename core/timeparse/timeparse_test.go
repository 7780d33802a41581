package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/octoslots/core/model"
)

func london(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	return loc
}

func TestParse_EquivalentVariants(t *testing.T) {
	now := time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)
	want := time.Date(2024, 6, 4, 13, 5, 30, 0, time.UTC)
	inputs := []string{
		"2024-06-04T13:05:30Z",
		"2024-06-04T13:05:30.000Z",
		"2024-06-04T13:05:30+00:00",
		"2024-06-04T14:05:30+01:00",
		"2024-06-04T14:05:30.000000+01:00",
		"2024-06-04 14:05:30+01:00",
		"2024-06-04T08:05:30-05:00",
		"2024-06-04T14:05:30+0100",
		"2024-06-04T14:05:30+01",
		"2024-06-04T13:05:30",
		"2024-06-04 13:05:30.5",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got, ok := Parse(in, now, time.UTC).Get()
			require.True(t, ok)
			assert.True(t, want.Equal(got.Truncate(time.Second)), "got %s", got)
		})
	}
}

func TestParse_MinutePrecision(t *testing.T) {
	got, ok := Parse("2024-06-04T14:05+01:00", time.Now(), time.UTC).Get()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 4, 13, 5, 0, 0, time.UTC), got)
}

func TestParse_ClockOnlyUsesLocalDate(t *testing.T) {
	loc := london(t)
	now := time.Date(2024, 6, 4, 23, 30, 0, 0, time.UTC) // 00:30 on the 5th in London
	got, ok := Parse("14:05:30", now, loc).Get()
	require.True(t, ok)
	local := got.In(loc)
	assert.Equal(t, 5, local.Day())
	assert.Equal(t, 14, local.Hour())
	assert.Equal(t, 5, local.Minute())
	assert.Equal(t, 30, local.Second())
}

func TestParse_DateOnlyIsLocalMidnight(t *testing.T) {
	loc := london(t)
	got, ok := Parse("2024-06-04", time.Now(), loc).Get()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 3, 23, 0, 0, 0, time.UTC), got)
}

func TestParse_Malformed(t *testing.T) {
	for _, in := range []string{"", "   ", "not-a-time", "2024-13-40T00:00:00Z", "25:00", "12:60:00"} {
		assert.False(t, Parse(in, time.Now(), time.UTC).Ok(), in)
	}
}

func TestParseAny_NonString(t *testing.T) {
	assert.False(t, ParseAny(nil, time.Now(), time.UTC).Ok())
	assert.False(t, ParseAny(12.5, time.Now(), time.UTC).Ok())
	assert.True(t, ParseAny("2024-06-04T10:00:00Z", time.Now(), time.UTC).Ok())
}

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]struct {
		want model.TimeOfDay
		ok   bool
	}{
		"07:00":      {model.MustTimeOfDay(7, 0, 0), true},
		"7:30":       {model.MustTimeOfDay(7, 30, 0), true},
		"23:59:59":   {model.MustTimeOfDay(23, 59, 59), true},
		"05:30:00.0": {model.MustTimeOfDay(5, 30, 0), true},
		"24:00":      {0, false},
		"07":         {0, false},
		"aa:bb":      {0, false},
		"07:000":     {0, false},
	}
	for in, tc := range cases {
		got, ok := ParseTimeOfDay(in).Get()
		assert.Equal(t, tc.ok, ok, in)
		if tc.ok {
			assert.Equal(t, tc.want, got, in)
		}
	}
}

func TestResolveTimeOfDay_FromTimestamp(t *testing.T) {
	loc := london(t)
	got, ok := ResolveTimeOfDay("2024-06-04T05:30:00Z", time.Now(), loc).Get()
	require.True(t, ok)
	assert.Equal(t, model.MustTimeOfDay(6, 30, 0), got)

	assert.False(t, ResolveTimeOfDay(true, time.Now(), loc).Ok())
}

func TestParseOffpeakWindow(t *testing.T) {
	w, ok := ParseOffpeakWindow("23:30", "05:30:00", time.Now(), time.UTC).Get()
	require.True(t, ok)
	assert.True(t, w.Wraps())
	assert.Equal(t, "23:30-05:30", w.String())

	assert.False(t, ParseOffpeakWindow("23:30", nil, time.Now(), time.UTC).Ok())
}
