// Package targets resolves the active charging target (ready time and state
// of charge) per device and for the account as a whole.
package targets

import (
	"time"

	"github.com/kilianp07/octoslots/core/model"
	"github.com/kilianp07/octoslots/core/timeparse"
)

// ModeAt selects weekend preferences on local Saturdays and Sundays.
func ModeAt(now time.Time, loc *time.Location) model.Mode {
	if loc == nil {
		loc = time.UTC
	}
	switch now.In(loc).Weekday() {
	case time.Saturday, time.Sunday:
		return model.ModeWeekend
	default:
		return model.ModeWeekday
	}
}

// FromRaw parses upstream preferences for one device.
func FromRaw(deviceID, label string, raw model.RawPreferences, suspended bool, now time.Time, loc *time.Location) model.DevicePreference {
	return model.DevicePreference{
		DeviceID:          deviceID,
		Label:             label,
		WeekdayTargetTime: timeparse.ResolveTimeOfDay(raw.WeekdayTargetTime, now, loc),
		WeekendTargetTime: timeparse.ResolveTimeOfDay(raw.WeekendTargetTime, now, loc),
		WeekdayTargetSoc:  model.IntField(raw.WeekdayTargetSoc),
		WeekendTargetSoc:  model.IntField(raw.WeekendTargetSoc),
		MinimumSoc:        model.IntField(raw.MinimumSoc),
		MaximumSoc:        model.IntField(raw.MaximumSoc),
		Suspended:         suspended,
	}
}

// ResolveDevice picks the preference set for mode. A missing SoC for the
// active mode falls back to the other mode's value.
func ResolveDevice(p model.DevicePreference, mode model.Mode, now time.Time, loc *time.Location) model.DeviceTarget {
	t := model.DeviceTarget{DevicePreference: p}
	if mode == model.ModeWeekend {
		t.ActiveTargetTime = p.WeekendTargetTime
		t.ActiveTargetSoc = p.WeekendTargetSoc.Or(p.WeekdayTargetSoc)
	} else {
		t.ActiveTargetTime = p.WeekdayTargetTime
		t.ActiveTargetSoc = p.WeekdayTargetSoc.Or(p.WeekendTargetSoc)
	}
	t.ReadyAt = NextOccurrence(t.ActiveTargetTime, now, loc)
	return t
}

// NextOccurrence returns the first local instant strictly after now whose
// wall clock equals tod.
func NextOccurrence(tod model.Field[model.TimeOfDay], now time.Time, loc *time.Location) model.Field[time.Time] {
	v, ok := tod.Get()
	if !ok {
		return model.Fallback[time.Time]()
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	at := v.On(local)
	if !at.After(now) {
		at = v.On(local.AddDate(0, 0, 1))
	}
	return model.Parsed(at.UTC())
}

// Resolve computes per-device targets and the account summary. The account
// follows the device with the earliest ready time, ties going to the lowest
// device id; devices without an active time do not contribute.
func Resolve(prefs []model.DevicePreference, now time.Time, loc *time.Location) model.TargetReadyState {
	mode := ModeAt(now, loc)
	out := model.TargetReadyState{
		Mode:            mode,
		ActiveTargetKey: mode.TargetKey(),
		ReadyTime:       model.Fallback[model.TimeOfDay](),
		ReadyAt:         model.Fallback[time.Time](),
		SocLimit:        model.Fallback[int](),
		DeviceTargets:   make([]model.DeviceTarget, 0, len(prefs)),
	}

	var winner *model.DeviceTarget
	for _, p := range prefs {
		out.DeviceTargets = append(out.DeviceTargets, ResolveDevice(p, mode, now, loc))
	}
	for i := range out.DeviceTargets {
		dt := &out.DeviceTargets[i]
		tod, ok := dt.ActiveTargetTime.Get()
		if !ok {
			continue
		}
		out.DeviceCount++
		if winner == nil {
			winner = dt
			continue
		}
		best, _ := winner.ActiveTargetTime.Get()
		if tod < best || (tod == best && dt.DeviceID < winner.DeviceID) {
			winner = dt
		}
	}
	if winner != nil {
		out.ReadyTime = winner.ActiveTargetTime
		out.ReadyAt = winner.ReadyAt
		out.SocLimit = winner.ActiveTargetSoc
		out.TargetDeviceID = winner.DeviceID
		out.TargetDeviceLabel = winner.Label
	}
	return out
}
