package metrics

import "time"

// PollResult classifies the outcome of one poll cycle.
type PollResult string

const (
	PollOK         PollResult = "ok"
	PollFetchError PollResult = "fetch_error"
	PollUnchanged  PollResult = "unchanged"
)

// PollEvent summarises one poll cycle.
type PollEvent struct {
	Result        PollResult
	Duration      time.Duration
	Devices       int
	FailedDevices []string
	Fresh         bool
	Time          time.Time
}

// MetricsSink records poll outcomes.
type MetricsSink interface {
	RecordPoll(ev PollEvent) error
}

// SlotSample is one slot predicate of one entity. Horizon 0 is "now".
type SlotSample struct {
	Entity  string
	Family  string
	Horizon int
	Active  bool
	Time    time.Time
}

// SlotStateRecorder records slot predicates.
type SlotStateRecorder interface {
	RecordSlotStates(samples []SlotSample) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPoll(PollEvent) error          { return nil }
func (NopSink) RecordSlotStates([]SlotSample) error { return nil }
