package dispatch

import (
	"sort"
	"time"

	"github.com/kilianp07/octoslots/core/model"
	"github.com/kilianp07/octoslots/core/timeparse"
)

// Normalise parses raw dispatches for one owner. Entries without a usable
// interval are dropped and counted.
func Normalise(raw []model.RawDispatch, deviceID string, now time.Time, loc *time.Location) ([]model.Dispatch, int) {
	out := make([]model.Dispatch, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		d, ok := Parse(r, deviceID, now, loc)
		if !ok {
			dropped++
			continue
		}
		out = append(out, d)
	}
	return out, dropped
}

// Parse converts a single raw dispatch. The completed shape (startDtUtc,
// endDtUtc, meta.source) takes precedence over the planned one, and
// meta.deviceId over the owner id.
func Parse(r model.RawDispatch, deviceID string, now time.Time, loc *time.Location) (model.Dispatch, bool) {
	start := timeparse.ParseAny(r.StartUTC, now, time.UTC).Or(timeparse.ParseAny(r.Start, now, loc))
	end := timeparse.ParseAny(r.EndUTC, now, time.UTC).Or(timeparse.ParseAny(r.End, now, loc))
	s, ok1 := start.Get()
	e, ok2 := end.Get()
	if !ok1 || !ok2 || !e.After(s) {
		return model.Dispatch{}, false
	}
	rawType, ok := model.AsString(r.Type)
	if !ok {
		rawType, _ = model.AsString(r.Meta.Source)
	}
	kwh, ok := model.AsString(r.EnergyKWh)
	if !ok {
		kwh, _ = model.AsString(r.Delta)
	}
	location, _ := model.AsString(r.Meta.Location)
	if id, ok := model.AsString(r.Meta.DeviceID); ok {
		deviceID = id
	}
	return model.Dispatch{
		Start:     s,
		End:       e,
		Source:    Classify(rawType),
		RawType:   rawType,
		DeviceID:  deviceID,
		ChargeKWh: kwh,
		Location:  location,
	}, true
}

// FilterFuture drops dispatches whose end is strictly before now and returns
// the rest ordered by start.
func FilterFuture(ds []model.Dispatch, now time.Time) []model.Dispatch {
	out := make([]model.Dispatch, 0, len(ds))
	for _, d := range ds {
		if d.End.Before(now) {
			continue
		}
		out = append(out, d)
	}
	SortByStart(out)
	return out
}

// SortByStart orders dispatches by start, then end, then device id.
func SortByStart(ds []model.Dispatch) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		return a.DeviceID < b.DeviceID
	})
}

// OfSource keeps the dispatches whose source satisfies keep.
func OfSource(ds []model.Dispatch, keep func(model.Source) bool) []model.Dispatch {
	out := make([]model.Dispatch, 0, len(ds))
	for _, d := range ds {
		if keep(d.Source) {
			out = append(out, d)
		}
	}
	return out
}

// SmartOnly is an OfSource predicate.
func SmartOnly(s model.Source) bool { return s == model.SourceSmartCharge }

// FallbackPolicy decides what ChargingStart reports when no charging dispatch
// is pending.
type FallbackPolicy string

const (
	// FallbackOffpeak uses the next off-peak start.
	FallbackOffpeak FallbackPolicy = "offpeak"
	// FallbackNone reports nothing.
	FallbackNone FallbackPolicy = "none"
)

// Valid reports whether p is a known policy.
func (p FallbackPolicy) Valid() bool { return p == FallbackOffpeak || p == FallbackNone }

// ChargingStart returns the earliest start among smart or bump dispatches that
// have not ended. Without one it applies policy to offpeakStart.
func ChargingStart(ds []model.Dispatch, now time.Time, policy FallbackPolicy, offpeakStart model.Field[time.Time]) model.Field[time.Time] {
	var first *model.Dispatch
	for i := range ds {
		d := &ds[i]
		if !d.Source.Charging() || !d.End.After(now) {
			continue
		}
		if first == nil || d.Start.Before(first.Start) {
			first = d
		}
	}
	if first != nil {
		return model.Parsed(first.Start)
	}
	if policy == FallbackNone {
		return model.Fallback[time.Time]()
	}
	return offpeakStart
}
