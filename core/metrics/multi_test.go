package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	polls int
	slots int
	err   error
}

func (r *recordSink) RecordPoll(PollEvent) error {
	r.polls++
	return r.err
}

func (r *recordSink) RecordSlotStates([]SlotSample) error {
	r.slots++
	return nil
}

type pollOnly struct{ polls int }

func (p *pollOnly) RecordPoll(PollEvent) error {
	p.polls++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &pollOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordPoll(PollEvent{Result: PollOK}); err != nil {
		t.Fatalf("record poll: %v", err)
	}
	if err := m.RecordSlotStates(nil); err != nil {
		t.Fatalf("record slots: %v", err)
	}
	if s1.polls != 1 || s2.polls != 1 || s1.slots != 1 {
		t.Fatalf("events not forwarded: %+v %+v", s1, s2)
	}
}

func TestMultiSink_ContinuesAfterError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &pollOnly{}
	err := NewMultiSink(s1, s2).RecordPoll(PollEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if s2.polls != 1 {
		t.Fatalf("second sink skipped")
	}
}
