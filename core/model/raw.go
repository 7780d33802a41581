package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Snapshot is one poll's complete fetched state for an account. Devices are
// kept undecoded so that a single malformed entry can be isolated.
type Snapshot struct {
	Account   RawAccount        `json:"account"`
	Devices   []json.RawMessage `json:"devices"`
	Tariff    RawTariff         `json:"tariff"`
	FetchedAt time.Time         `json:"fetched_at,omitempty"`
}

// RawAccount carries account-level data not attached to a device.
type RawAccount struct {
	ID          string         `json:"id"`
	Dispatches  RawDispatches  `json:"dispatches"`
	Preferences RawPreferences `json:"preferences"`
}

// UnmarshalJSON accepts a non-string id. The nested blocks are lenient.
func (a *RawAccount) UnmarshalJSON(b []byte) error {
	var w struct {
		ID          any            `json:"id"`
		Dispatches  RawDispatches  `json:"dispatches"`
		Preferences RawPreferences `json:"preferences"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	id, _ := AsString(w.ID)
	*a = RawAccount{ID: id, Dispatches: w.Dispatches, Preferences: w.Preferences}
	return nil
}

// RawTariff holds the tariff's off-peak window as reported upstream.
type RawTariff struct {
	OffpeakStart any `json:"offpeak_start"`
	OffpeakEnd   any `json:"offpeak_end"`
}

// RawDevice is one supported vehicle or charger as reported upstream.
type RawDevice struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Provider    string         `json:"provider"`
	DeviceType  string         `json:"device_type"`
	Make        string         `json:"make"`
	Model       string         `json:"model"`
	Suspended   any            `json:"suspended"`
	Status      RawStatus      `json:"status"`
	Dispatches  RawDispatches  `json:"dispatches"`
	Preferences RawPreferences `json:"preferences"`
}

// UnmarshalJSON only fails when the entry is not an object. Text fields of
// the wrong type are left empty and both the snake_case and the upstream
// camelCase spellings are read.
func (d *RawDevice) UnmarshalJSON(b []byte) error {
	var w struct {
		ID               any            `json:"id"`
		Label            any            `json:"label"`
		Provider         any            `json:"provider"`
		DeviceType       any            `json:"device_type"`
		DeviceTypeCamel  any            `json:"deviceType"`
		Make             any            `json:"make"`
		VehicleMake      any            `json:"vehicleMake"`
		ChargePointMake  any            `json:"chargePointMake"`
		Model            any            `json:"model"`
		VehicleModel     any            `json:"vehicleModel"`
		ChargePointModel any            `json:"chargePointModel"`
		Suspended        any            `json:"suspended"`
		Status           RawStatus      `json:"status"`
		Dispatches       RawDispatches  `json:"dispatches"`
		Preferences      RawPreferences `json:"preferences"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = RawDevice{
		ID:          firstString(w.ID),
		Label:       firstString(w.Label),
		Provider:    firstString(w.Provider),
		DeviceType:  firstString(w.DeviceType, w.DeviceTypeCamel),
		Make:        firstString(w.Make, w.VehicleMake, w.ChargePointMake),
		Model:       firstString(w.Model, w.VehicleModel, w.ChargePointModel),
		Suspended:   w.Suspended,
		Status:      w.Status,
		Dispatches:  w.Dispatches,
		Preferences: w.Preferences,
	}
	return nil
}

func firstString(vs ...any) string {
	for _, v := range vs {
		if s, ok := AsString(v); ok {
			return s
		}
	}
	return ""
}

// RawStatus mirrors the upstream device status block.
type RawStatus struct {
	Current      any `json:"current"`
	CurrentState any `json:"currentState"`
	IsSuspended  any `json:"isSuspended"`
}

// UnmarshalJSON leaves the status empty when the block is not an object.
func (s *RawStatus) UnmarshalJSON(b []byte) error {
	type plain RawStatus
	var p plain
	if json.Unmarshal(b, &p) == nil {
		*s = RawStatus(p)
	}
	return nil
}

// RawDispatches groups planned and completed dispatches.
type RawDispatches struct {
	Planned   []RawDispatch `json:"planned"`
	Completed []RawDispatch `json:"completed"`
	// Malformed counts entries, or whole lists, that were not usable.
	Malformed int           `json:"-"`
}

// UnmarshalJSON decodes each dispatch on its own so that one bad entry is
// counted in Malformed instead of failing the device.
func (r *RawDispatches) UnmarshalJSON(b []byte) error {
	*r = RawDispatches{}
	if isNull(b) {
		return nil
	}
	var w struct {
		Planned   json.RawMessage `json:"planned"`
		Completed json.RawMessage `json:"completed"`
	}
	if json.Unmarshal(b, &w) != nil {
		r.Malformed = 1
		return nil
	}
	var bad int
	r.Planned, bad = decodeDispatchList(w.Planned)
	r.Malformed += bad
	r.Completed, bad = decodeDispatchList(w.Completed)
	r.Malformed += bad
	return nil
}

func decodeDispatchList(b json.RawMessage) ([]RawDispatch, int) {
	if isNull(b) {
		return nil, 0
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, 1
	}
	out := make([]RawDispatch, 0, len(items))
	bad := 0
	for _, it := range items {
		var d RawDispatch
		if isNull(it) || json.Unmarshal(it, &d) != nil {
			bad++
			continue
		}
		out = append(out, d)
	}
	return out, bad
}

func isNull(b []byte) bool {
	s := bytes.TrimSpace(b)
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}

// RawDispatch accepts both the planned (start/end/type) and the completed
// (startDtUtc/endDtUtc/meta.source) upstream shapes.
type RawDispatch struct {
	Start     any             `json:"start"`
	End       any             `json:"end"`
	StartUTC  any             `json:"startDtUtc"`
	EndUTC    any             `json:"endDtUtc"`
	Type      any             `json:"type"`
	EnergyKWh any             `json:"energyAddedKwh"`
	Delta     any             `json:"delta"`
	Meta      RawDispatchMeta `json:"meta"`
}

// RawDispatchMeta is the optional meta block of a dispatch.
type RawDispatchMeta struct {
	Source   any `json:"source"`
	Location any `json:"location"`
	DeviceID any `json:"deviceId"`
}

// UnmarshalJSON leaves the meta block empty when it is not an object.
func (m *RawDispatchMeta) UnmarshalJSON(b []byte) error {
	type plain RawDispatchMeta
	var p plain
	if json.Unmarshal(b, &p) == nil {
		*m = RawDispatchMeta(p)
	}
	return nil
}

// RawPreferences mirrors the upstream charging preference block.
type RawPreferences struct {
	WeekdayTargetTime any `json:"weekdayTargetTime"`
	WeekendTargetTime any `json:"weekendTargetTime"`
	WeekdayTargetSoc  any `json:"weekdayTargetSoc"`
	WeekendTargetSoc  any `json:"weekendTargetSoc"`
	MinimumSoc        any `json:"minimumSoc"`
	MaximumSoc        any `json:"maximumSoc"`
}

// UnmarshalJSON leaves the preferences empty when the block is not an object.
func (p *RawPreferences) UnmarshalJSON(b []byte) error {
	type plain RawPreferences
	var v plain
	if json.Unmarshal(b, &v) == nil {
		*p = RawPreferences(v)
	}
	return nil
}

// DecodeDevice decodes one raw device entry. Only an entry that is not an
// object or has no id is reported as ErrDeviceMalformed; wrong-typed fields
// degrade on their own.
func DecodeDevice(raw json.RawMessage) (RawDevice, error) {
	var d RawDevice
	if isNull(raw) {
		return RawDevice{}, &DeviceError{Err: ErrDeviceMalformed, Detail: "null entry"}
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return RawDevice{}, &DeviceError{Err: ErrDeviceMalformed, Detail: err.Error()}
	}
	if d.ID == "" {
		return RawDevice{}, &DeviceError{Err: ErrDeviceMalformed, Detail: "missing id"}
	}
	return d, nil
}

// DeviceError describes why a device could not be derived.
type DeviceError struct {
	DeviceID string
	Err      error
	Detail   string
}

func (e *DeviceError) Error() string {
	msg := e.Err.Error()
	if e.DeviceID != "" {
		msg = "device " + e.DeviceID + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DeviceError) Unwrap() error { return e.Err }
