package slots

import (
	"sort"
	"time"

	"github.com/kilianp07/octoslots/core/model"
)

// MergeIntervals coalesces overlapping or touching intervals into a minimal
// sorted set. Invalid intervals are skipped.
func MergeIntervals(ivs []model.Interval) []model.Interval {
	sorted := make([]model.Interval, 0, len(ivs))
	for _, iv := range ivs {
		if iv.Valid() {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return sorted
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	result := []model.Interval{sorted[0]}
	for _, cur := range sorted[1:] {
		last := &result[len(result)-1]
		if !cur.Start.After(last.End) {
			if cur.End.After(last.End) {
				last.End = cur.End
			}
			continue
		}
		result = append(result, cur)
	}
	return result
}

// FirstRelevant returns the first merged range that is running at now or has
// not started yet.
func FirstRelevant(ivs []model.Interval, now time.Time) model.Field[model.Interval] {
	for _, iv := range MergeIntervals(ivs) {
		if iv.Contains(now) || !now.After(iv.Start) {
			return model.Parsed(iv)
		}
	}
	return model.Fallback[model.Interval]()
}

// WindowRanges instantiates w on the local days before, of and after now.
// An empty window yields nothing.
func WindowRanges(w model.OffpeakWindow, now time.Time, loc *time.Location) []model.Interval {
	if w.Empty() {
		return nil
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	out := make([]model.Interval, 0, 3)
	for offset := -1; offset <= 1; offset++ {
		out = append(out, w.On(today.AddDate(0, 0, offset)))
	}
	return out
}

func dispatchIntervals(ds []model.Dispatch) []model.Interval {
	out := make([]model.Interval, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Interval())
	}
	return out
}
