// Package history keeps an append-only JSONL log of derived poll results.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/octoslots/core/model"
	"github.com/kilianp07/octoslots/core/state"
)

// Record summarises one aggregated poll.
type Record struct {
	PollID      string                `json:"poll_id"`
	Timestamp   time.Time             `json:"timestamp"`
	Fingerprint uint64                `json:"fingerprint"`
	Fresh       bool                  `json:"fresh"`
	Account     map[model.Family]bool `json:"account"`
	Devices     []DeviceRecord        `json:"devices"`
	Departed    []string              `json:"departed,omitempty"`
}

// DeviceRecord is the per-device part of a Record.
type DeviceRecord struct {
	ID        string                `json:"id"`
	Available bool                  `json:"available"`
	Slots     map[model.Family]bool `json:"slots,omitempty"`
}

// Query filters records. Zero values match everything.
type Query struct {
	From     time.Time
	To       time.Time
	DeviceID string
	Limit    int
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NewRecord builds the history entry for st.
func NewRecord(st state.State) Record {
	rec := Record{
		PollID:      uuid.NewString(),
		Timestamp:   st.At,
		Fingerprint: st.Fingerprint,
		Fresh:       st.Fresh,
		Account:     slotFlags(st.Account.EntityState),
		Departed:    st.Departed,
	}
	for _, d := range st.Devices {
		dr := DeviceRecord{ID: d.ID, Available: d.Available}
		if d.Available {
			dr.Slots = slotFlags(d.EntityState)
		}
		rec.Devices = append(rec.Devices, dr)
	}
	return rec
}

func slotFlags(e state.EntityState) map[model.Family]bool {
	out := make(map[model.Family]bool, len(model.Families))
	for _, f := range model.Families {
		out[f] = e.Slot(f).IsOn
	}
	return out
}

func (q Query) match(r Record) bool {
	if !q.From.IsZero() && r.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && r.Timestamp.After(q.To) {
		return false
	}
	if q.DeviceID == "" {
		return true
	}
	for _, d := range r.Devices {
		if d.ID == q.DeviceID {
			return true
		}
	}
	for _, id := range r.Departed {
		if id == q.DeviceID {
			return true
		}
	}
	return false
}
