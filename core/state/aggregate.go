package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/kilianp07/octoslots/core/dispatch"
	"github.com/kilianp07/octoslots/core/equipment"
	"github.com/kilianp07/octoslots/core/model"
	"github.com/kilianp07/octoslots/core/slots"
	"github.com/kilianp07/octoslots/core/targets"
	"github.com/kilianp07/octoslots/core/timeparse"
)

// Options are the configured inputs of the aggregation.
type Options struct {
	// Window is used when the snapshot carries no parseable tariff window.
	Window                model.Field[model.OffpeakWindow]
	Location              *time.Location
	ChargingStartFallback dispatch.FallbackPolicy
	Equipment             equipment.Filter
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// derived is the intermediate per-device result.
type derived struct {
	state     DeviceState
	own       []model.Dispatch
	completed []model.Dispatch
	pref      model.DevicePreference
}

// Aggregate derives the full state tree from snap at now. A nil snapshot
// leaves prev unchanged. A device that cannot be derived is reported as
// unavailable without affecting the others.
func Aggregate(snap *model.Snapshot, now time.Time, prev State, opts Options) State {
	if snap == nil {
		return prev
	}
	loc := opts.location()
	window := timeparse.ParseOffpeakWindow(snap.Tariff.OffpeakStart, snap.Tariff.OffpeakEnd, now, loc).Or(opts.Window)
	ev := slots.NewEvaluator(window, loc)
	mode := targets.ModeAt(now, loc)

	next := State{
		At:          now,
		Fingerprint: Fingerprint(snap),
		Window:      window,
		Devices:     make([]DeviceState, 0, len(snap.Devices)),
	}
	next.Fresh = next.Fingerprint != prev.Fingerprint

	accountPlanned, dropped := dispatch.Normalise(snap.Account.Dispatches.Planned, "", now, loc)
	accountCompleted, d2 := dispatch.Normalise(snap.Account.Dispatches.Completed, "", now, loc)
	next.DroppedDispatches = dropped + d2 + snap.Account.Dispatches.Malformed

	var (
		results  []derived
		prefs    []model.DevicePreference
		excluded = map[string]bool{}
	)
	for i, raw := range snap.Devices {
		dev, err := model.DecodeDevice(raw)
		if err != nil {
			next.failDevice(fallbackDeviceID(raw, i), err)
			continue
		}
		if !opts.Equipment.Supported(dev) {
			continue
		}
		res, err := deriveDevice(dev, accountPlanned, accountCompleted, ev, mode, now, opts)
		if err != nil {
			next.failDevice(dev.ID, err)
			continue
		}
		next.DroppedDispatches += res.dropped
		results = append(results, res.derived)
		prefs = append(prefs, res.pref)
		if res.state.Suspended {
			excluded[dev.ID] = true
		}
		next.Devices = append(next.Devices, res.state)
	}

	if len(prefs) == 0 && snap.Account.ID != "" {
		prefs = append(prefs, targets.FromRaw(snap.Account.ID, "", snap.Account.Preferences, false, now, loc))
	}

	planned := append([]model.Dispatch(nil), accountPlanned...)
	completed := append([]model.Dispatch(nil), accountCompleted...)
	for _, r := range results {
		planned = append(planned, r.own...)
		completed = append(completed, r.completed...)
	}
	planned = dedupe(planned)
	completed = dedupe(completed)
	next.Account = deriveAccount(snap.Account.ID, planned, completed, excluded, prefs, ev, now, opts)
	next.Departed = departed(prev, next)
	return Reduce(prev, next, opts.ChargingStartFallback)
}

type deviceResult struct {
	derived
	dropped int
}

func deriveDevice(dev model.RawDevice, accountPlanned, accountCompleted []model.Dispatch, ev *slots.Evaluator, mode model.Mode, now time.Time, opts Options) (res deviceResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &model.DeviceError{DeviceID: dev.ID, Err: model.ErrDeviceMalformed, Detail: fmt.Sprint(r)}
		}
	}()
	loc := opts.location()
	own, d1 := dispatch.Normalise(dev.Dispatches.Planned, dev.ID, now, loc)
	ownCompleted, d2 := dispatch.Normalise(dev.Dispatches.Completed, dev.ID, now, loc)
	planned := append(append([]model.Dispatch(nil), own...), forDevice(accountPlanned, dev.ID)...)
	completed := append(append([]model.Dispatch(nil), ownCompleted...), forDevice(accountCompleted, dev.ID)...)

	suspended, _ := model.AsBool(dev.Suspended)
	if s, ok := model.AsBool(dev.Status.IsSuspended); ok {
		suspended = suspended || s
	}
	currentState, ok := model.AsString(dev.Status.CurrentState)
	if !ok {
		currentState, _ = model.AsString(dev.Status.Current)
	}
	label := equipment.Label(dev)

	subj := slots.Subject{Planned: planned, Completed: completed, Suspended: suspended}
	future := dispatch.FilterFuture(planned, now)
	smart := dispatch.OfSource(future, dispatch.SmartOnly)

	entity := deriveEntity(ev, subj, future, smart, len(smart) == 0, now, opts.ChargingStartFallback)
	pref := targets.FromRaw(dev.ID, label, dev.Preferences, suspended, now, loc)

	res.state = DeviceState{
		ID:           dev.ID,
		Label:        label,
		Available:    true,
		Suspended:    suspended,
		CurrentState: currentState,
		EntityState:  entity,
		Target:       targets.ResolveDevice(pref, mode, now, loc),
	}
	res.own = own
	res.completed = ownCompleted
	res.pref = pref
	res.dropped = d1 + d2 + dev.Dispatches.Malformed
	return res, nil
}

func deriveAccount(id string, planned, completed []model.Dispatch, excluded map[string]bool, prefs []model.DevicePreference, ev *slots.Evaluator, now time.Time, opts Options) AccountState {
	subj := slots.Subject{Planned: planned, Completed: completed, Excluded: excluded}
	future := dispatch.FilterFuture(planned, now)
	var smart []model.Dispatch
	for _, d := range dispatch.OfSource(future, dispatch.SmartOnly) {
		if !excluded[d.DeviceID] {
			smart = append(smart, d)
		}
	}
	return AccountState{
		ID:          id,
		EntityState: deriveEntity(ev, subj, future, smart, true, now, opts.ChargingStartFallback),
		Targets:     targets.Resolve(prefs, now, opts.location()),
	}
}

func deriveEntity(ev *slots.Evaluator, subj slots.Subject, future, smart []model.Dispatch, withWindow bool, now time.Time, policy dispatch.FallbackPolicy) EntityState {
	e := EntityState{
		Slots:            make(map[model.Family]model.SlotState, len(model.Families)),
		NextOffpeakStart: model.Fallback[time.Time](),
		OffpeakEnd:       model.Fallback[time.Time](),
	}
	for _, st := range ev.EvaluateAll(subj, now) {
		e.Slots[st.Family] = st
	}
	if r, ok := ev.NextOffpeak(smart, now, withWindow).Get(); ok {
		e.NextOffpeakStart = model.Parsed(r.Start.UTC())
		if !r.Start.After(now) {
			e.OffpeakEnd = model.Parsed(r.End.UTC())
		}
	}
	e.ChargingStart = dispatch.ChargingStart(future, now, policy, e.NextOffpeakStart)
	return e
}

func (s *State) failDevice(id string, err error) {
	s.Failures = append(s.Failures, DeviceFailure{DeviceID: id, Err: err})
	s.Devices = append(s.Devices, DeviceState{ID: id, Label: id, Err: err.Error()})
}

// fallbackDeviceID recovers an id from an entry that failed to decode.
func fallbackDeviceID(raw json.RawMessage, index int) string {
	var probe struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil {
		if id, ok := model.AsString(probe.ID); ok {
			return id
		}
	}
	return fmt.Sprintf("device-%d", index)
}

func forDevice(ds []model.Dispatch, id string) []model.Dispatch {
	var out []model.Dispatch
	for _, d := range ds {
		if d.DeviceID == id {
			out = append(out, d)
		}
	}
	return out
}

// dedupe drops dispatches reported both on the account and on a device.
func dedupe(ds []model.Dispatch) []model.Dispatch {
	type key struct {
		start, end int64
		device     string
	}
	seen := make(map[key]bool, len(ds))
	out := ds[:0]
	for _, d := range ds {
		k := key{d.Start.UnixNano(), d.End.UnixNano(), d.DeviceID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	return out
}

// maxDeparted bounds the departed list; the oldest ids are dropped first.
const maxDeparted = 32

// departed lists ids that were available in prev and are missing from next,
// newest first, followed by ids still missing from earlier polls. Devices
// already unavailable in prev, including placeholders for undecodable
// entries, are not tracked.
func departed(prev, next State) []string {
	present := make(map[string]bool, len(next.Devices))
	for _, d := range next.Devices {
		present[d.ID] = true
	}
	var out []string
	for _, d := range prev.Devices {
		if d.Available && !present[d.ID] && !containsID(out, d.ID) {
			out = append(out, d.ID)
		}
	}
	for _, id := range prev.Departed {
		if !present[id] && !containsID(out, id) {
			out = append(out, id)
		}
	}
	if len(out) > maxDeparted {
		out = out[:maxDeparted]
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Fingerprint hashes the snapshot content, ignoring the fetch time, so that
// consumers can tell whether new data arrived.
func Fingerprint(snap *model.Snapshot) uint64 {
	if snap == nil {
		return 0
	}
	h := xxhash.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(snap.Account)
	_ = enc.Encode(snap.Tariff)
	for _, raw := range snap.Devices {
		_, _ = h.Write(raw)
		_, _ = h.Write([]byte{'\n'})
	}
	return h.Sum64()
}
