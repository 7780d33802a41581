package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/octoslots/core/metrics"
	"github.com/kilianp07/octoslots/core/model"
	"github.com/kilianp07/octoslots/core/state"
	"github.com/kilianp07/octoslots/infra/logger"
	"github.com/kilianp07/octoslots/internal/eventbus"
)

// AccountEntity labels account-level samples.
const AccountEntity = "account"

// Samples flattens the slot predicates of a derived tree. Unavailable devices
// are skipped.
func Samples(st state.State) []coremetrics.SlotSample {
	var out []coremetrics.SlotSample
	add := func(entity string, e state.EntityState) {
		for _, f := range model.Families {
			slot := e.Slot(f)
			out = append(out, coremetrics.SlotSample{Entity: entity, Family: string(f), Horizon: 0, Active: slot.IsOn, Time: st.At})
			for _, h := range model.LookaheadHours {
				out = append(out, coremetrics.SlotSample{Entity: entity, Family: string(f), Horizon: h, Active: slot.Next(h), Time: st.At})
			}
		}
	}
	add(AccountEntity, st.Account.EntityState)
	for _, d := range st.Devices {
		if d.Available {
			add(d.ID, d.EntityState)
		}
	}
	return out
}

// StartSlotCollector records the slot predicates of every tree published on
// bus until ctx is canceled. Sinks that do not record slot states are ignored.
func StartSlotCollector(ctx context.Context, bus *eventbus.TypedBus[state.State], sink coremetrics.MetricsSink, log logger.Logger) {
	rec, ok := sink.(coremetrics.SlotStateRecorder)
	if bus == nil || !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-sub:
				if !ok {
					return
				}
				if err := rec.RecordSlotStates(Samples(st)); err != nil {
					log.Warnf("record slot states: %v", err)
				}
			}
		}
	}()
}
