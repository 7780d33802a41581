package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/octoslots/core/metrics"
)

// PromSink exposes poll outcomes and slot predicates as Prometheus metrics.
type PromSink struct {
	polls          *prometheus.CounterVec
	deviceFailures *prometheus.CounterVec
	slotActive     *prometheus.GaugeVec
	lastPoll       prometheus.Gauge
	pollDuration   prometheus.Histogram
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on reg. A nil registerer defaults
// to the global one. Collectors already registered by an earlier sink are
// reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.polls, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "octoslots_polls_total",
		Help: "Poll cycles by result",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if s.deviceFailures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "octoslots_device_failures_total",
		Help: "Devices that could not be derived",
	}, []string{"device_id"})); err != nil {
		return nil, err
	}
	if s.slotActive, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "octoslots_slot_active",
		Help: "Slot predicate per entity, family and look-ahead horizon in hours (0 = now)",
	}, []string{"entity", "family", "horizon"})); err != nil {
		return nil, err
	}
	if s.lastPoll, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "octoslots_last_poll_timestamp_seconds",
		Help: "Unix time of the last successful poll",
	})); err != nil {
		return nil, err
	}
	if s.pollDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "octoslots_poll_duration_seconds",
		Help:    "Duration of poll cycles including fetch",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPoll updates the poll counters.
func (s *PromSink) RecordPoll(ev coremetrics.PollEvent) error {
	s.polls.WithLabelValues(string(ev.Result)).Inc()
	s.pollDuration.Observe(ev.Duration.Seconds())
	for _, id := range ev.FailedDevices {
		s.deviceFailures.WithLabelValues(id).Inc()
	}
	if ev.Result != coremetrics.PollFetchError && !ev.Time.IsZero() {
		s.lastPoll.Set(float64(ev.Time.Unix()))
	}
	return nil
}

// RecordSlotStates sets one gauge per sample.
func (s *PromSink) RecordSlotStates(samples []coremetrics.SlotSample) error {
	for _, smp := range samples {
		v := 0.0
		if smp.Active {
			v = 1
		}
		s.slotActive.WithLabelValues(smp.Entity, smp.Family, strconv.Itoa(smp.Horizon)).Set(v)
	}
	return nil
}
