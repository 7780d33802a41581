// Package state aggregates one fetched snapshot into the derived state tree
// consumed by the presentation layers.
package state

import (
	"time"

	"github.com/kilianp07/octoslots/core/model"
)

// EntityState holds the derived values shared by the account and devices.
type EntityState struct {
	Slots            map[model.Family]model.SlotState `json:"slots"`
	NextOffpeakStart model.Field[time.Time]           `json:"next_offpeak_start"`
	OffpeakEnd       model.Field[time.Time]           `json:"offpeak_end"`
	ChargingStart    model.Field[time.Time]           `json:"charging_start"`
}

// Slot returns the state of family, or an off state when absent.
func (e EntityState) Slot(f model.Family) model.SlotState {
	if st, ok := e.Slots[f]; ok {
		return st
	}
	return model.SlotState{Family: f, NextHours: map[int]bool{}}
}

// AccountState is the account seen as a pseudo-device over all its devices.
type AccountState struct {
	ID string `json:"id"`
	EntityState
	Targets model.TargetReadyState `json:"targets"`
}

// DeviceState is one supported device. When Available is false only ID,
// Label and Err are meaningful.
type DeviceState struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Available    bool   `json:"available"`
	Err          string `json:"error,omitempty"`
	Suspended    bool   `json:"suspended"`
	CurrentState string `json:"current_state,omitempty"`
	EntityState
	Target model.DeviceTarget `json:"target"`
}

// DeviceFailure records a device isolated during aggregation.
type DeviceFailure struct {
	DeviceID string `json:"device_id"`
	Err      error  `json:"-"`
}

// State is the full derived tree for one poll. It is passed into and returned
// from Aggregate; nothing else carries state between polls.
type State struct {
	At                time.Time                        `json:"at"`
	Fingerprint       uint64                           `json:"fingerprint"`
	Fresh             bool                             `json:"fresh"`
	Window            model.Field[model.OffpeakWindow] `json:"offpeak_window"`
	Account           AccountState                     `json:"account"`
	Devices           []DeviceState                    `json:"devices"`
	Departed          []string                         `json:"departed_devices"`
	Failures          []DeviceFailure                  `json:"-"`
	DroppedDispatches int                              `json:"dropped_dispatches"`
}

// Device returns the device with id.
func (s State) Device(id string) (DeviceState, bool) {
	for _, d := range s.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return DeviceState{}, false
}

// Empty reports whether no poll has been aggregated yet.
func (s State) Empty() bool { return s.At.IsZero() }
