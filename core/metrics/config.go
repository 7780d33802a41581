package metrics

import "github.com/kilianp07/octoslots/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusPort serves /metrics on its own listener when set. Without it
	// the metrics handler is mounted on the API server.
	PrometheusPort string `json:"prometheus_port"`
}
