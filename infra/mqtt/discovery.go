package mqtt

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/kilianp07/octoslots/core/model"
	"github.com/kilianp07/octoslots/core/state"
)

const (
	payloadOn   = "ON"
	payloadOff  = "OFF"
	payloadNone = "None"

	componentBinarySensor = "binary_sensor"
	componentSensor       = "sensor"
)

// scope is one Home Assistant device: the account or a single vehicle.
type scope struct {
	slug      string
	name      string
	model     string
	available bool
	entity    state.EntityState
	readyAt   model.Field[time.Time]
	soc       model.Field[int]
	targets   map[string]any
	status    map[string]any
	parent    string
}

// entity describes one Home Assistant entity published for every scope.
type entity struct {
	component   string
	key         string
	name        string
	deviceClass string
	unit        string
	icon        string
	value       func(scope) string
	attributes  func(scope) map[string]any
}

var familyNames = map[model.Family]string{
	model.FamilySmartCharge:     "Smart charge slot",
	model.FamilyOffpeakWindow:   "Off-peak window",
	model.FamilyPlannedDispatch: "Planned dispatch slot",
}

var familyIcons = map[model.Family]string{
	model.FamilySmartCharge:     "mdi:ev-station",
	model.FamilyOffpeakWindow:   "mdi:clock-time-four-outline",
	model.FamilyPlannedDispatch: "mdi:calendar-clock",
}

var entities = buildEntities()

func buildEntities() []entity {
	var out []entity
	for _, f := range model.Families {
		out = append(out, entity{
			component:  componentBinarySensor,
			key:        string(f),
			name:       familyNames[f],
			icon:       familyIcons[f],
			value:      func(s scope) string { return onOff(s.entity.Slot(f).IsOn) },
			attributes: func(s scope) map[string]any { return slotAttributes(s, f) },
		})
		for _, n := range model.LookaheadHours {
			out = append(out, entity{
				component: componentBinarySensor,
				key:       fmt.Sprintf("%s_next_%dh", f, n),
				name:      fmt.Sprintf("%s next %dh", familyNames[f], n),
				icon:      familyIcons[f],
				value:     func(s scope) string { return onOff(s.entity.Slot(f).Next(n)) },
			})
		}
	}
	out = append(out,
		entity{
			component:   componentSensor,
			key:         "next_offpeak_start",
			name:        "Next off-peak start",
			deviceClass: "timestamp",
			value:       func(s scope) string { return timestamp(s.entity.NextOffpeakStart) },
		},
		entity{
			component:   componentSensor,
			key:         "offpeak_end",
			name:        "Off-peak end",
			deviceClass: "timestamp",
			value:       func(s scope) string { return timestamp(s.entity.OffpeakEnd) },
		},
		entity{
			component:   componentSensor,
			key:         "charging_start",
			name:        "Charging start",
			deviceClass: "timestamp",
			value:       func(s scope) string { return timestamp(s.entity.ChargingStart) },
		},
		entity{
			component:   componentSensor,
			key:         "target_ready_time",
			name:        "Target ready time",
			deviceClass: "timestamp",
			value:       func(s scope) string { return timestamp(s.readyAt) },
			attributes:  func(s scope) map[string]any { return s.targets },
		},
		entity{
			component: componentSensor,
			key:       "target_soc",
			name:      "Target state of charge",
			unit:      "%",
			icon:      "mdi:battery-charging-high",
			value:     func(s scope) string { return percentage(s.soc) },
		},
	)
	return out
}

func slotAttributes(s scope, f model.Family) map[string]any {
	slot := s.entity.Slot(f)
	attrs := map[string]any{
		"planned_dispatches":   nonNil(slot.PlannedDispatches),
		"completed_dispatches": nonNil(slot.CompletedDispatches),
	}
	if f == model.FamilyPlannedDispatch {
		for k, v := range s.status {
			attrs[k] = v
		}
	}
	return attrs
}

func accountScope(acc state.AccountState) scope {
	t := acc.Targets
	return scope{
		slug:      "account",
		name:      accountName(acc.ID),
		model:     "Account",
		available: true,
		entity:    acc.EntityState,
		readyAt:   t.ReadyAt,
		soc:       t.SocLimit,
		targets: map[string]any{
			"mode":                t.Mode,
			"active_target_key":   t.ActiveTargetKey,
			"ready_time":          t.ReadyTime,
			"target_device_id":    t.TargetDeviceID,
			"target_device_label": t.TargetDeviceLabel,
			"device_count":        t.DeviceCount,
			"device_targets":      nonNil(t.DeviceTargets),
		},
	}
}

func deviceScope(d state.DeviceState) scope {
	return scope{
		slug:      deviceSlug(d.ID),
		name:      d.Label,
		model:     "Vehicle",
		available: d.Available,
		entity:    d.EntityState,
		readyAt:   d.Target.ReadyAt,
		soc:       d.Target.ActiveTargetSoc,
		targets: map[string]any{
			"active_target_time": d.Target.ActiveTargetTime,
			"minimum_soc":        d.Target.MinimumSoc,
			"maximum_soc":        d.Target.MaximumSoc,
		},
		status: map[string]any{
			"current_state": d.CurrentState,
			"suspended":     d.Suspended,
		},
		parent: "account",
	}
}

func accountName(id string) string {
	if id == "" {
		return "Octopus account"
	}
	return "Octopus account " + id
}

func deviceSlug(id string) string { return "device_" + slug(id) }

// slug lowercases v and replaces anything but letters and digits with '_'.
func slug(v string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(v) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func onOff(v bool) string {
	if v {
		return payloadOn
	}
	return payloadOff
}

func timestamp(f model.Field[time.Time]) string {
	if t, ok := f.Get(); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return payloadNone
}

func percentage(f model.Field[int]) string {
	if v, ok := f.Get(); ok {
		return fmt.Sprintf("%d", v)
	}
	return payloadNone
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
