package model

import "time"

// Family names a slot predicate family.
type Family string

const (
	FamilySmartCharge     Family = "smart_charge"
	FamilyOffpeakWindow   Family = "offpeak_window"
	FamilyPlannedDispatch Family = "planned_dispatch"
)

// Families lists every slot family in presentation order.
var Families = []Family{FamilySmartCharge, FamilyOffpeakWindow, FamilyPlannedDispatch}

// LookaheadHours are the horizons of the look-ahead predicates.
var LookaheadHours = []int{1, 2, 3}

// SlotState is the derived state of one slot family for one entity.
type SlotState struct {
	Family              Family       `json:"family"`
	IsOn                bool         `json:"is_on"`
	NextHours           map[int]bool `json:"next_n_hours"`
	PlannedDispatches   []Dispatch   `json:"planned_dispatches"`
	CompletedDispatches []Dispatch   `json:"completed_dispatches"`
}

// Next returns the look-ahead predicate for n hours.
func (s SlotState) Next(n int) bool { return s.NextHours[n] }

// Mode selects which preference set is active.
type Mode string

const (
	ModeWeekday Mode = "weekday"
	ModeWeekend Mode = "weekend"
)

// TargetKey returns the upstream preference key for the mode.
func (m Mode) TargetKey() string {
	if m == ModeWeekend {
		return "weekendTargetTime"
	}
	return "weekdayTargetTime"
}

// DevicePreference is a device's charging preferences after parsing.
type DevicePreference struct {
	DeviceID          string           `json:"device_id"`
	Label             string           `json:"label"`
	WeekdayTargetTime Field[TimeOfDay] `json:"weekday_target_time"`
	WeekendTargetTime Field[TimeOfDay] `json:"weekend_target_time"`
	WeekdayTargetSoc  Field[int]       `json:"weekday_target_soc"`
	WeekendTargetSoc  Field[int]       `json:"weekend_target_soc"`
	MinimumSoc        Field[int]       `json:"minimum_soc"`
	MaximumSoc        Field[int]       `json:"maximum_soc"`
	Suspended         bool             `json:"suspended"`
}

// DeviceTarget is one device's resolved target for the active mode.
type DeviceTarget struct {
	DevicePreference
	ActiveTargetTime Field[TimeOfDay] `json:"active_target_time"`
	ActiveTargetSoc  Field[int]       `json:"active_target_soc"`
	ReadyAt          Field[time.Time] `json:"ready_at"`
}

// TargetReadyState is the account-level target summary.
type TargetReadyState struct {
	Mode              Mode             `json:"mode"`
	ActiveTargetKey   string           `json:"active_target_key"`
	ReadyTime         Field[TimeOfDay] `json:"ready_time"`
	ReadyAt           Field[time.Time] `json:"ready_at"`
	SocLimit          Field[int]       `json:"soc_limit"`
	TargetDeviceID    string           `json:"target_device_id,omitempty"`
	TargetDeviceLabel string           `json:"target_device_label,omitempty"`
	DeviceTargets     []DeviceTarget   `json:"device_targets"`
	DeviceCount       int              `json:"device_count"`
}
