package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/octoslots/core/dispatch"
	"github.com/kilianp07/octoslots/core/model"
	"github.com/kilianp07/octoslots/core/timeparse"
)

const (
	defaultOffpeakStart = "23:30"
	defaultOffpeakEnd   = "05:30"
	defaultTimezone     = "Europe/London"
)

// TariffConfig describes the static off-peak window of the tariff.
type TariffConfig struct {
	OffpeakStart          string                  `json:"offpeak_start"`
	OffpeakEnd            string                  `json:"offpeak_end"`
	Timezone              string                  `json:"timezone"`
	ChargingStartFallback dispatch.FallbackPolicy `json:"charging_start_fallback"`
}

func (c *TariffConfig) SetDefaults() {
	if c.OffpeakStart == "" {
		c.OffpeakStart = defaultOffpeakStart
	}
	if c.OffpeakEnd == "" {
		c.OffpeakEnd = defaultOffpeakEnd
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.ChargingStartFallback == "" {
		c.ChargingStartFallback = dispatch.FallbackOffpeak
	}
}

func (c TariffConfig) Validate() error {
	if !timeparse.ParseTimeOfDay(c.OffpeakStart).Ok() {
		return fmt.Errorf("invalid offpeak_start %q", c.OffpeakStart)
	}
	if !timeparse.ParseTimeOfDay(c.OffpeakEnd).Ok() {
		return fmt.Errorf("invalid offpeak_end %q", c.OffpeakEnd)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if !c.ChargingStartFallback.Valid() {
		return fmt.Errorf("unknown charging_start_fallback %q", c.ChargingStartFallback)
	}
	return nil
}

// Window returns the configured off-peak window.
func (c TariffConfig) Window() model.Field[model.OffpeakWindow] {
	start, okStart := timeparse.ParseTimeOfDay(c.OffpeakStart).Get()
	end, okEnd := timeparse.ParseTimeOfDay(c.OffpeakEnd).Get()
	if !okStart || !okEnd {
		return model.Fallback[model.OffpeakWindow]()
	}
	return model.Parsed(model.OffpeakWindow{Start: start, End: end})
}

// Location returns the tariff timezone, UTC when it cannot be loaded.
func (c TariffConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
