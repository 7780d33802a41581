package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/octoslots/api/state"
	"github.com/kilianp07/octoslots/config"
	coremetrics "github.com/kilianp07/octoslots/core/metrics"
	"github.com/kilianp07/octoslots/core/model"
	"github.com/kilianp07/octoslots/core/monitoring"
	corestate "github.com/kilianp07/octoslots/core/state"
	"github.com/kilianp07/octoslots/infra/history"
	"github.com/kilianp07/octoslots/infra/logger"
	"github.com/kilianp07/octoslots/infra/metrics"
	"github.com/kilianp07/octoslots/infra/mqtt"
	"github.com/kilianp07/octoslots/infra/source"
	"github.com/kilianp07/octoslots/internal/eventbus"
)

// Service polls the snapshot source and fans every derived tree out to the
// MQTT publisher, the metrics sinks and the history log.
type Service struct {
	cfg    *config.Config
	opts   corestate.Options
	source source.Source
	store  *corestate.Store
	bus    *eventbus.TypedBus[corestate.State]
	sink   coremetrics.MetricsSink
	hist   history.Store
	client *mqtt.PahoClient
	pub    *mqtt.StatePublisher
	log    logger.Logger
	now    func() time.Time
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	src, err := source.New(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("snapshot source: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	svc := newService(cfg, src, sink)

	if cfg.History.Enabled {
		hist, err := history.NewJSONLStore(cfg.History)
		if err != nil {
			return nil, fmt.Errorf("history store: %w", err)
		}
		svc.hist = hist
	}
	if cfg.MQTT.Enabled() {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.client = client
		svc.pub = mqtt.NewStatePublisher(client, cfg.MQTT, logger.New("mqtt_publisher"))
		client.OnBirth(svc.pub.Reannounce)
	}
	return svc, nil
}

func newService(cfg *config.Config, src source.Source, sink coremetrics.MetricsSink) *Service {
	return &Service{
		cfg:    cfg,
		opts:   Options(cfg),
		source: src,
		store:  corestate.NewStore(),
		bus:    eventbus.NewTyped[corestate.State](),
		sink:   sink,
		log:    logger.New("service"),
		now:    time.Now,
	}
}

// Options maps the configuration onto aggregation options.
func Options(cfg *config.Config) corestate.Options {
	return corestate.Options{
		Window:                cfg.Tariff.Window(),
		Location:              cfg.Tariff.Location(),
		ChargingStartFallback: cfg.Tariff.ChargingStartFallback,
		Equipment:             cfg.Equipment.Filter(),
	}
}

// Evaluate derives the state tree for snap at the given instant without any
// previous state.
func Evaluate(cfg *config.Config, snap *model.Snapshot, at time.Time) corestate.State {
	return corestate.Aggregate(snap, at, corestate.State{}, Options(cfg))
}

// Store exposes the last known good state.
func (s *Service) Store() *corestate.Store { return s.store }

// Run starts the consumers and servers, then polls until the context is
// cancelled. Polls never overlap.
func (s *Service) Run(ctx context.Context) error {
	defer monitoring.Recover()

	metrics.StartSlotCollector(ctx, s.bus, s.sink, logger.New("slot_collector"))
	if s.pub != nil {
		s.pub.Start(ctx, s.bus)
	}
	if s.hist != nil {
		history.Start(ctx, s.bus, s.hist, logger.New("history"))
	}
	if addr := s.cfg.API.Address; addr != "" {
		mux := state.NewMux(s.store, s.hist, s.cfg.API.Token, metrics.Handler())
		go func() {
			if err := state.Serve(ctx, addr, mux, logger.New("api")); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, ":"+port, logger.New("prometheus")); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	ticker := time.NewTicker(s.cfg.Poll.Interval())
	defer ticker.Stop()
	_ = s.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = s.Poll(ctx)
		}
	}
}

// Poll runs one fetch and derivation cycle. A fetch failure leaves the stored
// state untouched and is returned wrapped in model.ErrSnapshotUnavailable.
func (s *Service) Poll(ctx context.Context) error {
	started := time.Now()
	now := s.now()

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Poll.Timeout())
	snap, err := s.source.Fetch(fetchCtx)
	cancel()
	if err != nil {
		err = fmt.Errorf("%w: %w", model.ErrSnapshotUnavailable, err)
		if !errors.Is(err, context.Canceled) {
			s.log.Errorf("poll: %v", err)
			monitoring.CaptureException(err, map[string]string{"module": "poll", "source": s.cfg.Source.Type})
		}
		s.record(coremetrics.PollEvent{Result: coremetrics.PollFetchError, Duration: time.Since(started), Time: now})
		return err
	}

	st := corestate.Aggregate(snap, now, s.store.Load(), s.opts)
	failed := make([]string, 0, len(st.Failures))
	for _, f := range st.Failures {
		s.log.Warnf("device %s unavailable: %v", f.DeviceID, f.Err)
		failed = append(failed, f.DeviceID)
	}
	if st.DroppedDispatches > 0 {
		s.log.Debugf("dropped %d unparseable dispatches", st.DroppedDispatches)
	}
	s.store.Replace(st)
	s.bus.Publish(st)

	result := coremetrics.PollOK
	if !st.Fresh {
		result = coremetrics.PollUnchanged
	}
	s.record(coremetrics.PollEvent{
		Result:        result,
		Duration:      time.Since(started),
		Devices:       len(st.Devices),
		FailedDevices: failed,
		Fresh:         st.Fresh,
		Time:          now,
	})
	s.log.Debugw("poll complete", map[string]any{
		"devices": len(st.Devices),
		"failed":  len(failed),
		"fresh":   st.Fresh,
	})
	return nil
}

func (s *Service) record(ev coremetrics.PollEvent) {
	if err := s.sink.RecordPoll(ev); err != nil {
		s.log.Warnf("record poll: %v", err)
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.client != nil {
		s.client.Disconnect()
	}
	if s.hist != nil {
		return s.hist.Close()
	}
	return nil
}
