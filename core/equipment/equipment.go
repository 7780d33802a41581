// Package equipment decides which upstream devices are controllable vehicles
// or chargers and how they are labelled.
package equipment

import (
	"strings"
	"unicode"

	"github.com/kilianp07/octoslots/core/model"
)

var defaultAllowedTypes = []string{"ELECTRIC_VEHICLES", "ELECTRIC_VEHICLE", "CHARGE_POINTS", "CHARGE_POINT", "EV"}

var defaultExcludedKeywords = []string{"BATTERY", "HEAT", "SOLAR", "INVERTER", "THERMOSTAT"}

// Filter excludes devices that cannot take smart-charge dispatches.
type Filter struct {
	AllowedTypes         []string
	ExcludedKeywords     []string
	UnsupportedProviders []string
	UnsupportedIDs       []string
}

// DefaultFilter accepts EVs and charge points only.
func DefaultFilter() Filter {
	return Filter{AllowedTypes: defaultAllowedTypes, ExcludedKeywords: defaultExcludedKeywords}
}

// Supported reports whether d should be derived. Devices without a type are
// accepted.
func (f Filter) Supported(d model.RawDevice) bool {
	if p := normalizeID(d.Provider); p != "" && contains(f.UnsupportedProviders, p) {
		return false
	}
	for _, v := range []string{d.Label, d.ID} {
		if id := normalizeID(v); id != "" && contains(f.UnsupportedIDs, id) {
			return false
		}
	}
	kind := strings.ToUpper(strings.TrimSpace(d.DeviceType))
	if kind == "" {
		return true
	}
	if len(f.AllowedTypes) > 0 && !containsFold(f.AllowedTypes, kind) {
		return false
	}
	for _, kw := range f.ExcludedKeywords {
		if strings.Contains(kind, strings.ToUpper(kw)) {
			return false
		}
	}
	return true
}

func normalizeID(v string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(v) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if normalizeID(x) == v {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(strings.TrimSpace(x), v) {
			return true
		}
	}
	return false
}

// Label returns a human-friendly device name. Labels that look like upstream
// identifiers are replaced by "make model - provider".
func Label(d model.RawDevice) string {
	label := strings.TrimSpace(d.Label)
	labelIsID := looksLikeIdentifier(label)
	if label != "" && !labelIsID {
		return label
	}

	var parts []string
	seen := map[string]bool{}
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		key := strings.Join(strings.Fields(strings.ToUpper(v)), " ")
		if seen[key] {
			return
		}
		seen[key] = true
		parts = append(parts, v)
	}
	add(strings.TrimSpace(strings.TrimSpace(d.Make) + " " + strings.TrimSpace(d.Model)))
	if !looksLikeIdentifier(d.Provider) {
		add(d.Provider)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " - ")
	}
	if label != "" {
		return label
	}
	if id := strings.TrimSpace(d.ID); id != "" {
		return "Equipment " + id
	}
	return "Equipment"
}

// looksLikeIdentifier matches values such as "OCPP_WIFI" or "EV-1234":
// no lowercase letters and at least one digit, '_' or '-'.
func looksLikeIdentifier(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	hasLower, hasIDChar := false, false
	for _, r := range v {
		if unicode.IsLower(r) {
			hasLower = true
		}
		if unicode.IsDigit(r) || r == '_' || r == '-' {
			hasIDChar = true
		}
	}
	return !hasLower && hasIDChar
}
