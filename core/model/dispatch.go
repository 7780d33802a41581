package model

import (
	"encoding/json"
	"time"
)

// Source is the canonical category of a dispatch.
type Source int

const (
	SourceUnknown Source = iota
	SourceSmartCharge
	SourceBumpCharge
)

func (s Source) String() string {
	switch s {
	case SourceSmartCharge:
		return "smart-charge"
	case SourceBumpCharge:
		return "bump-charge"
	default:
		return "unknown"
	}
}

// Charging reports whether the source is a true charging dispatch.
func (s Source) Charging() bool { return s == SourceSmartCharge || s == SourceBumpCharge }

func (s Source) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *Source) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v {
	case "smart-charge":
		*s = SourceSmartCharge
	case "bump-charge":
		*s = SourceBumpCharge
	default:
		*s = SourceUnknown
	}
	return nil
}

// Dispatch is a classified charging interval. It is rebuilt from the raw
// payload on every poll and never mutated afterwards.
type Dispatch struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Source    Source    `json:"source"`
	RawType   string    `json:"raw_type"`
	DeviceID  string    `json:"device_id,omitempty"`
	ChargeKWh string    `json:"charge_kwh,omitempty"`
	Location  string    `json:"location,omitempty"`
}

// Interval returns the dispatch as [Start, End).
func (d Dispatch) Interval() Interval { return Interval{Start: d.Start, End: d.End} }

// Contains reports whether t falls inside the dispatch.
func (d Dispatch) Contains(t time.Time) bool { return d.Interval().Contains(t) }
