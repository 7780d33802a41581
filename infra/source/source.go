package source

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/octoslots/core/model"
)

// Source returns the latest raw snapshot for an account.
type Source interface {
	Fetch(ctx context.Context) (*model.Snapshot, error)
}

// Config selects and configures a snapshot source.
type Config struct {
	Type           string            `json:"type"`
	Path           string            `json:"path"`
	URL            string            `json:"url"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	MaxRetries     int               `json:"max_retries"`
	BackoffMS      int               `json:"backoff_ms"`
	Headers        map[string]string `json:"headers"`
}

func (c *Config) SetDefaults() {
	if c.Type == "" {
		c.Type = "file"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 500
	}
}

func (c Config) Validate() error {
	switch c.Type {
	case "file":
		if c.Path == "" {
			return fmt.Errorf("path is required for file source")
		}
	case "http":
		if c.URL == "" {
			return fmt.Errorf("url is required for http source")
		}
	default:
		return fmt.Errorf("unknown source type %q", c.Type)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}

// New builds the source described by cfg.
func New(cfg Config) (Source, error) {
	switch cfg.Type {
	case "file":
		return NewFileSource(cfg.Path), nil
	case "http":
		return NewHTTPSource(cfg), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

func (c Config) timeout() time.Duration { return time.Duration(c.TimeoutSeconds) * time.Second }
func (c Config) backoff() time.Duration { return time.Duration(c.BackoffMS) * time.Millisecond }
