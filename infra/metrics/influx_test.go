package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/octoslots/core/metrics"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestInfluxSink_RecordPoll(t *testing.T) {
	rec := &bodyRecorder{}
	srv := rec.server()
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.PollEvent{
		Result:        coremetrics.PollOK,
		Duration:      1500 * time.Millisecond,
		Devices:       2,
		FailedDevices: []string{"ev-x"},
		Fresh:         true,
		Time:          now,
	}
	if err := sink.RecordPoll(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("poll").
		AddTag("result", "ok").
		AddField("devices", 2).
		AddField("failures", 1).
		AddField("fresh", true).
		AddField("duration_ms", int64(1500)).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(rec.bodies) != 1 || rec.bodies[0] != expected {
		t.Errorf("unexpected bodies: %#v", rec.bodies)
	}
}

func TestInfluxSink_RecordSlotStates(t *testing.T) {
	rec := &bodyRecorder{}
	srv := rec.server()
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	samples := []coremetrics.SlotSample{
		{Entity: "account", Family: "smart_charge", Horizon: 0, Active: true, Time: now},
		{Entity: "account", Family: "smart_charge", Horizon: 1, Active: false, Time: now},
		{Entity: "ev-1", Family: "offpeak_window", Horizon: 3, Active: true, Time: now},
	}
	if err := sink.RecordSlotStates(samples); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if len(rec.bodies) != 1 {
		t.Fatalf("expected one batch, got %d", len(rec.bodies))
	}
	lines := strings.Split(rec.bodies[0], "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 points, got %#v", lines)
	}
	for _, want := range []string{"slot_state,entity=account,family=smart_charge", "now=true", "next_1h=false"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line %q missing %q", lines[0], want)
		}
	}
	if !strings.Contains(lines[1], "entity=ev-1") || !strings.Contains(lines[1], "next_3h=true") {
		t.Errorf("unexpected second line %q", lines[1])
	}

	if err := sink.RecordSlotStates(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if len(rec.bodies) != 1 {
		t.Fatalf("empty batch must not write")
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
