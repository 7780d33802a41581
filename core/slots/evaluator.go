package slots

import (
	"time"

	"github.com/kilianp07/octoslots/core/dispatch"
	"github.com/kilianp07/octoslots/core/model"
)

// Subject is the dispatch data of one entity: a device, or the account as the
// union of its devices.
type Subject struct {
	Planned   []model.Dispatch
	Completed []model.Dispatch
	// Suspended forces the off-peak family off.
	Suspended bool
	// Excluded lists devices whose dispatches do not count toward the
	// off-peak family, typically suspended devices seen from the account.
	Excluded map[string]bool
}

// Evaluator computes slot states against a shared off-peak window. It holds
// no mutable state and is safe for concurrent use.
type Evaluator struct {
	Window    model.Field[model.OffpeakWindow]
	Location  *time.Location
	Lookahead []int
}

// NewEvaluator returns an evaluator using the default look-ahead horizons.
func NewEvaluator(window model.Field[model.OffpeakWindow], loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{Window: window, Location: loc, Lookahead: model.LookaheadHours}
}

// Evaluate derives one family's state for subj at now.
func (e *Evaluator) Evaluate(family model.Family, subj Subject, now time.Time) model.SlotState {
	planned := dispatch.FilterFuture(subj.Planned, now)
	completed := append([]model.Dispatch(nil), subj.Completed...)
	dispatch.SortByStart(completed)

	active := e.activeIntervals(family, subj, planned, now)
	st := model.SlotState{
		Family:              family,
		IsOn:                anyContains(active, now),
		NextHours:           make(map[int]bool, len(e.Lookahead)),
		PlannedDispatches:   planned,
		CompletedDispatches: completed,
	}
	for _, n := range e.Lookahead {
		horizon := model.Interval{Start: now, End: now.Add(time.Duration(n) * time.Hour)}
		st.NextHours[n] = anyOverlaps(active, horizon)
	}
	return st
}

// EvaluateAll derives every family in model.Families order.
func (e *Evaluator) EvaluateAll(subj Subject, now time.Time) []model.SlotState {
	out := make([]model.SlotState, 0, len(model.Families))
	for _, f := range model.Families {
		out = append(out, e.Evaluate(f, subj, now))
	}
	return out
}

// IsOffpeakTime reports whether now falls inside the configured window alone.
func (e *Evaluator) IsOffpeakTime(now time.Time) bool {
	w, ok := e.Window.Get()
	if !ok {
		return false
	}
	return anyContains(WindowRanges(w, now, e.Location), now)
}

// NextOffpeak selects the current or next cheap range from smart dispatches,
// merged with the window ranges when withWindow is set.
func (e *Evaluator) NextOffpeak(smart []model.Dispatch, now time.Time, withWindow bool) model.Field[model.Interval] {
	candidates := dispatchIntervals(smart)
	if w, ok := e.Window.Get(); ok && withWindow {
		candidates = append(candidates, WindowRanges(w, now, e.Location)...)
	}
	return FirstRelevant(candidates, now)
}

func (e *Evaluator) activeIntervals(family model.Family, subj Subject, planned []model.Dispatch, now time.Time) []model.Interval {
	switch family {
	case model.FamilySmartCharge:
		return dispatchIntervals(dispatch.OfSource(planned, dispatch.SmartOnly))
	case model.FamilyPlannedDispatch:
		return dispatchIntervals(planned)
	case model.FamilyOffpeakWindow:
		if subj.Suspended {
			return nil
		}
		var ivs []model.Interval
		for _, d := range planned {
			if d.Source == model.SourceSmartCharge && !subj.Excluded[d.DeviceID] {
				ivs = append(ivs, d.Interval())
			}
		}
		if w, ok := e.Window.Get(); ok {
			ivs = append(ivs, WindowRanges(w, now, e.Location)...)
		}
		return ivs
	}
	return nil
}

func anyContains(ivs []model.Interval, t time.Time) bool {
	for _, iv := range ivs {
		if iv.Contains(t) {
			return true
		}
	}
	return false
}

func anyOverlaps(ivs []model.Interval, horizon model.Interval) bool {
	for _, iv := range ivs {
		if iv.Overlaps(horizon) {
			return true
		}
	}
	return false
}
