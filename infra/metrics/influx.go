package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/octoslots/core/metrics"
	"github.com/kilianp07/octoslots/infra/logger"
)

// InfluxSink writes poll outcomes and slot predicates to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings InfluxDB and returns a NopSink when the
// health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordPoll writes one "poll" point.
func (s *InfluxSink) RecordPoll(ev coremetrics.PollEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("poll").
		AddTag("result", string(ev.Result)).
		AddField("devices", ev.Devices).
		AddField("failures", len(ev.FailedDevices)).
		AddField("fresh", ev.Fresh).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSlotStates writes one "slot_state" point per entity and family, with
// one boolean field per horizon.
func (s *InfluxSink) RecordSlotStates(samples []coremetrics.SlotSample) error {
	if len(samples) == 0 {
		return nil
	}
	type key struct{ entity, family string }
	points := map[key]*write.Point{}
	var order []key
	for _, smp := range samples {
		k := key{smp.Entity, smp.Family}
		p, ok := points[k]
		if !ok {
			p = write.NewPointWithMeasurement("slot_state").
				AddTag("entity", smp.Entity).
				AddTag("family", smp.Family).
				SetTime(smp.Time)
			points[k] = p
			order = append(order, k)
		}
		p.AddField(horizonField(smp.Horizon), smp.Active)
	}
	batch := make([]*write.Point, 0, len(order))
	for _, k := range order {
		batch = append(batch, points[k])
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, batch...)
}

func horizonField(h int) string {
	if h == 0 {
		return "now"
	}
	return fmt.Sprintf("next_%dh", h)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
