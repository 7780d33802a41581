package state

import (
	"time"

	"github.com/kilianp07/octoslots/core/dispatch"
	"github.com/kilianp07/octoslots/core/model"
)

// Reduce merges a freshly derived tree with the previous one. A timestamp or
// target field that came out as Fallback keeps its previous parsed value so
// that ambiguous polls do not flip it to unknown. Carried instants must still
// lie ahead of next.At, and ChargingStart is never carried under FallbackNone.
// Slot predicates and dispatch lists are always taken from next.
func Reduce(prev, next State, policy dispatch.FallbackPolicy) State {
	if prev.Empty() {
		return next
	}
	at := next.At
	next.Account.EntityState = reduceEntity(prev.Account.EntityState, next.Account.EntityState, at, policy)
	next.Account.Targets = reduceTargets(prev.Account.Targets, next.Account.Targets, at)

	for i := range next.Devices {
		cur := &next.Devices[i]
		old, ok := prev.Device(cur.ID)
		if !ok || !cur.Available || !old.Available {
			continue
		}
		cur.EntityState = reduceEntity(old.EntityState, cur.EntityState, at, policy)
		cur.Target.ActiveTargetTime = cur.Target.ActiveTargetTime.Or(old.Target.ActiveTargetTime)
		cur.Target.ActiveTargetSoc = cur.Target.ActiveTargetSoc.Or(old.Target.ActiveTargetSoc)
		cur.Target.ReadyAt = cur.Target.ReadyAt.Or(ahead(old.Target.ReadyAt, at))
	}
	return next
}

func reduceEntity(prev, next EntityState, at time.Time, policy dispatch.FallbackPolicy) EntityState {
	if !next.NextOffpeakStart.Ok() {
		// A started range keeps its start while its end is still ahead.
		if end, ok := prev.OffpeakEnd.Get(); ok && end.After(at) {
			next.NextOffpeakStart = prev.NextOffpeakStart
		} else {
			next.NextOffpeakStart = ahead(prev.NextOffpeakStart, at)
		}
	}
	next.OffpeakEnd = next.OffpeakEnd.Or(ahead(prev.OffpeakEnd, at))
	if policy != dispatch.FallbackNone {
		next.ChargingStart = next.ChargingStart.Or(ahead(prev.ChargingStart, at))
	}
	return next
}

func reduceTargets(prev, next model.TargetReadyState, at time.Time) model.TargetReadyState {
	if !next.ReadyTime.Ok() && prev.ReadyTime.Ok() {
		next.ReadyTime = prev.ReadyTime
		next.ReadyAt = ahead(prev.ReadyAt, at)
		next.TargetDeviceID = prev.TargetDeviceID
		next.TargetDeviceLabel = prev.TargetDeviceLabel
	}
	next.SocLimit = next.SocLimit.Or(prev.SocLimit)
	return next
}

// ahead drops an instant that is no longer after at.
func ahead(f model.Field[time.Time], at time.Time) model.Field[time.Time] {
	if t, ok := f.Get(); ok && t.After(at) {
		return f
	}
	return model.Fallback[time.Time]()
}
