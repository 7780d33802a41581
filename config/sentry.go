package config

import "fmt"

// SentryConfig defines settings for Sentry error monitoring. An empty DSN
// disables reporting.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
	ServerName       string  `json:"server_name"`
}

// SetDefaults tags events with the service name when no release is set.
func (s *SentryConfig) SetDefaults() {
	if s.DSN == "" {
		return
	}
	if s.Environment == "" {
		s.Environment = "production"
	}
	if s.Release == "" {
		s.Release = "octoslots"
	}
}

// Validate checks the trace sample rate.
func (s SentryConfig) Validate() error {
	if s.TracesSampleRate < 0 || s.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate %v out of [0,1]", s.TracesSampleRate)
	}
	return nil
}
