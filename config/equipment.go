package config

import "github.com/kilianp07/octoslots/core/equipment"

// EquipmentConfig extends the built-in supported-equipment filter.
type EquipmentConfig struct {
	AllowedTypes         []string `json:"allowed_types"`
	UnsupportedProviders []string `json:"unsupported_providers"`
	UnsupportedIDs       []string `json:"unsupported_ids"`
}

// Filter merges the configured lists into the default filter.
func (c EquipmentConfig) Filter() equipment.Filter {
	f := equipment.DefaultFilter()
	if len(c.AllowedTypes) > 0 {
		f.AllowedTypes = c.AllowedTypes
	}
	f.UnsupportedProviders = append(f.UnsupportedProviders, c.UnsupportedProviders...)
	f.UnsupportedIDs = append(f.UnsupportedIDs, c.UnsupportedIDs...)
	return f
}
