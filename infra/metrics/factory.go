package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/octoslots/core/factory"
	coremetrics "github.com/kilianp07/octoslots/core/metrics"
)

// influxConf is the conf block of a metrics.sinks entry of type influx.
type influxConf struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})
	_ = coremetrics.RegisterMetricsSink("prometheus", newPromFromConf)
	_ = coremetrics.RegisterMetricsSink("influx", newInfluxFromConf)
}

func newPromFromConf(map[string]any) (coremetrics.MetricsSink, error) {
	s, err := NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("prometheus: %w", err)
	}
	return s, nil
}

// newInfluxFromConf falls back to a NopSink when the server is unhealthy so a
// missing Influx does not stop polling.
func newInfluxFromConf(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c influxConf
	if err := factory.Decode(conf, &c); err != nil {
		return nil, fmt.Errorf("influx: %w", err)
	}
	if c.URL == "" || c.Bucket == "" {
		return nil, errors.New("influx: url and bucket are required")
	}
	return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
}
