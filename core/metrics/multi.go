package metrics

import "errors"

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPoll forwards to all sinks and joins their errors.
func (m *MultiSink) RecordPoll(ev PollEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordPoll(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordSlotStates forwards to the sinks that record slot states.
func (m *MultiSink) RecordSlotStates(samples []SlotSample) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(SlotStateRecorder); ok {
			if err := rec.RecordSlotStates(samples); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
