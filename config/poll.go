package config

import (
	"fmt"
	"time"
)

const (
	defaultPollSeconds = 300
	minPollSeconds     = 10
)

// PollConfig sets the cadence of the snapshot poll loop.
type PollConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
	TimeoutSeconds  int `json:"timeout_seconds"`
}

func (c *PollConfig) SetDefaults() {
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = defaultPollSeconds
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
}

func (c PollConfig) Validate() error {
	if c.IntervalSeconds < minPollSeconds {
		return fmt.Errorf("interval_seconds must be at least %d", minPollSeconds)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	return nil
}

func (c PollConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c PollConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
