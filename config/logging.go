package config

import "github.com/rs/zerolog"

// LoggingConfig sets the process-wide log level.
type LoggingConfig struct {
	Level string `json:"level"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

func (c LoggingConfig) Validate() error {
	_, err := zerolog.ParseLevel(c.Level)
	return err
}
