package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/octoslots/core/metrics"
)

func TestPromSink_RecordPoll(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	now := time.Unix(1717500000, 0)
	require.NoError(t, s.RecordPoll(coremetrics.PollEvent{Result: coremetrics.PollOK, Time: now, FailedDevices: []string{"ev-1"}}))
	require.NoError(t, s.RecordPoll(coremetrics.PollEvent{Result: coremetrics.PollFetchError, Time: now.Add(time.Minute)}))

	assert.Equal(t, 1.0, testutil.ToFloat64(s.polls.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.polls.WithLabelValues("fetch_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.deviceFailures.WithLabelValues("ev-1")))
	assert.Equal(t, float64(now.Unix()), testutil.ToFloat64(s.lastPoll), "failed polls do not advance the timestamp")
}

func TestPromSink_RecordSlotStates(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s.RecordSlotStates([]coremetrics.SlotSample{
		{Entity: "account", Family: "offpeak_window", Horizon: 0, Active: true},
		{Entity: "account", Family: "offpeak_window", Horizon: 2, Active: false},
	}))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.slotActive.WithLabelValues("account", "offpeak_window", "0")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.slotActive.WithLabelValues("account", "offpeak_window", "2")))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, second.RecordPoll(coremetrics.PollEvent{Result: coremetrics.PollUnchanged}))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.polls.WithLabelValues("unchanged")))
}
