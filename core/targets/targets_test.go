package targets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/octoslots/core/model"
)

var (
	tuesday  = time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC)
	saturday = time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)
)

func pref(id, weekday, weekend string, wdSoc, weSoc any) model.DevicePreference {
	raw := model.RawPreferences{
		WeekdayTargetTime: weekday,
		WeekendTargetTime: weekend,
		WeekdayTargetSoc:  wdSoc,
		WeekendTargetSoc:  weSoc,
	}
	return FromRaw(id, "Car "+id, raw, false, tuesday, time.UTC)
}

func TestModeAt(t *testing.T) {
	assert.Equal(t, model.ModeWeekday, ModeAt(tuesday, time.UTC))
	assert.Equal(t, model.ModeWeekend, ModeAt(saturday, time.UTC))
	assert.Equal(t, model.ModeWeekend, ModeAt(saturday.AddDate(0, 0, 1), time.UTC))

	// Friday 23:30 UTC is already Saturday in Auckland.
	nz, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)
	friday := time.Date(2024, 6, 7, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, model.ModeWeekend, ModeAt(friday, nz))
}

func TestResolve_EarliestWeekdayTarget(t *testing.T) {
	prefs := []model.DevicePreference{
		pref("b", "07:00", "09:00", 80.0, 90.0),
		pref("a", "06:30", "10:00", 70.0, 60.0),
	}
	got := Resolve(prefs, tuesday, time.UTC)
	assert.Equal(t, model.ModeWeekday, got.Mode)
	assert.Equal(t, "weekdayTargetTime", got.ActiveTargetKey)
	assert.Equal(t, model.Parsed(model.MustTimeOfDay(6, 30, 0)), got.ReadyTime)
	assert.Equal(t, model.Parsed(70), got.SocLimit)
	assert.Equal(t, 2, got.DeviceCount)
	assert.Equal(t, "a", got.TargetDeviceID)
	require.Len(t, got.DeviceTargets, 2)
	assert.Equal(t, "b", got.DeviceTargets[0].DeviceID, "device order follows input")
	assert.Equal(t, model.Parsed(model.MustTimeOfDay(7, 0, 0)), got.DeviceTargets[0].ActiveTargetTime)
}

func TestResolve_WeekendUsesWeekendTargets(t *testing.T) {
	prefs := []model.DevicePreference{
		pref("b", "07:00", "09:00", 80.0, 90.0),
		pref("a", "06:30", "10:00", 70.0, 60.0),
	}
	got := Resolve(prefs, saturday, time.UTC)
	assert.Equal(t, model.ModeWeekend, got.Mode)
	assert.Equal(t, "weekendTargetTime", got.ActiveTargetKey)
	assert.Equal(t, model.Parsed(model.MustTimeOfDay(9, 0, 0)), got.ReadyTime)
	assert.Equal(t, model.Parsed(90), got.SocLimit)
	assert.Equal(t, "b", got.TargetDeviceID)
}

func TestResolve_TieBrokenByDeviceID(t *testing.T) {
	prefs := []model.DevicePreference{
		pref("zeta", "06:00", "", nil, nil),
		pref("alpha", "06:00", "", nil, nil),
	}
	got := Resolve(prefs, tuesday, time.UTC)
	assert.Equal(t, "alpha", got.TargetDeviceID)
}

func TestResolve_MissingTimeExcluded(t *testing.T) {
	prefs := []model.DevicePreference{
		pref("a", "garbage", "", 70.0, nil),
		pref("b", "08:15:00", "", "85", nil),
	}
	got := Resolve(prefs, tuesday, time.UTC)
	assert.Equal(t, 1, got.DeviceCount)
	assert.Equal(t, "b", got.TargetDeviceID)
	assert.Equal(t, model.Parsed(85), got.SocLimit)
	assert.False(t, got.DeviceTargets[0].ActiveTargetTime.Ok())
	assert.Equal(t, model.Parsed(70), got.DeviceTargets[0].ActiveTargetSoc, "per-device state is independent of the account")
}

func TestResolve_NoContributors(t *testing.T) {
	got := Resolve([]model.DevicePreference{pref("a", "", "", nil, nil)}, tuesday, time.UTC)
	assert.Zero(t, got.DeviceCount)
	assert.False(t, got.ReadyTime.Ok())
	assert.False(t, got.ReadyAt.Ok())
	assert.False(t, got.SocLimit.Ok())
	assert.Empty(t, got.TargetDeviceID)
}

func TestResolveDevice_SocFallsBackToOtherMode(t *testing.T) {
	p := pref("a", "07:00", "", nil, 65.0)
	dt := ResolveDevice(p, model.ModeWeekday, tuesday, time.UTC)
	assert.Equal(t, model.Parsed(65), dt.ActiveTargetSoc)
}

func TestNextOccurrence(t *testing.T) {
	tod := model.Parsed(model.MustTimeOfDay(7, 0, 0))
	got, ok := NextOccurrence(tod, tuesday, time.UTC).Get()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 5, 7, 0, 0, 0, time.UTC), got)

	tod = model.Parsed(model.MustTimeOfDay(13, 0, 0))
	got, _ = NextOccurrence(tod, tuesday, time.UTC).Get()
	assert.Equal(t, time.Date(2024, 6, 4, 13, 0, 0, 0, time.UTC), got)

	tod = model.Parsed(model.MustTimeOfDay(12, 0, 0))
	got, _ = NextOccurrence(tod, tuesday, time.UTC).Get()
	assert.Equal(t, time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC), got, "strictly after now")

	assert.False(t, NextOccurrence(model.Fallback[model.TimeOfDay](), tuesday, time.UTC).Ok())
}
