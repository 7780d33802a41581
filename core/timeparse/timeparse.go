package timeparse

import (
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/octoslots/core/model"
)

// offsetLayouts carry an explicit zone. Fractional seconds are accepted by
// time.Parse even when the layout omits them.
var offsetLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02 15:04:05Z07",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
}

// naiveLayouts have no zone; the API emits them for UTC fields.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

const dateLayout = "2006-01-02"

// Parse interprets raw as an absolute instant. Date-only strings resolve to
// local midnight and bare clock strings to the same clock time on now's local
// date. The result is in UTC.
func Parse(raw string, now time.Time, loc *time.Location) model.Field[time.Time] {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.Fallback[time.Time]()
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Parsed(t.UTC())
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return model.Parsed(t)
		}
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return model.Parsed(t.UTC())
	}
	if tod, ok := ParseTimeOfDay(s).Get(); ok {
		return model.Parsed(tod.On(now.In(loc)).UTC())
	}
	return model.Fallback[time.Time]()
}

// ParseAny is Parse for loosely-typed JSON values. Non-strings fall back.
func ParseAny(v any, now time.Time, loc *time.Location) model.Field[time.Time] {
	s, ok := v.(string)
	if !ok {
		return model.Fallback[time.Time]()
	}
	return Parse(s, now, loc)
}

// ParseTimeOfDay accepts HH:MM and HH:MM:SS, optionally with fractional seconds.
func ParseTimeOfDay(raw string) model.Field[model.TimeOfDay] {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return model.Fallback[model.TimeOfDay]()
	}
	if len(parts) == 3 {
		parts[2], _, _ = strings.Cut(parts[2], ".")
	}
	var comps [3]int
	for i, p := range parts {
		if len(p) == 0 || len(p) > 2 {
			return model.Fallback[model.TimeOfDay]()
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return model.Fallback[model.TimeOfDay]()
		}
		comps[i] = n
	}
	tod, err := model.NewTimeOfDay(comps[0], comps[1], comps[2])
	if err != nil {
		return model.Fallback[model.TimeOfDay]()
	}
	return model.Parsed(tod)
}

// ResolveTimeOfDay extracts a local wall-clock time from a preference value,
// which upstream sends either as a clock string or as a full timestamp.
func ResolveTimeOfDay(v any, now time.Time, loc *time.Location) model.Field[model.TimeOfDay] {
	s, ok := v.(string)
	if !ok {
		return model.Fallback[model.TimeOfDay]()
	}
	if tod := ParseTimeOfDay(s); tod.Ok() {
		return tod
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, ok := Parse(s, now, loc).Get(); ok {
		return model.Parsed(model.TimeOfDayOf(t.In(loc)))
	}
	return model.Fallback[model.TimeOfDay]()
}

// ParseOffpeakWindow builds the tariff window from its two loosely-typed ends.
func ParseOffpeakWindow(start, end any, now time.Time, loc *time.Location) model.Field[model.OffpeakWindow] {
	s, ok1 := ResolveTimeOfDay(start, now, loc).Get()
	e, ok2 := ResolveTimeOfDay(end, now, loc).Get()
	if !ok1 || !ok2 {
		return model.Fallback[model.OffpeakWindow]()
	}
	return model.Parsed(model.OffpeakWindow{Start: s, End: e})
}
