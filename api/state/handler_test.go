package state

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corestate "github.com/kilianp07/octoslots/core/state"
	"github.com/kilianp07/octoslots/infra/history"
)

type fakeHistory struct {
	records []history.Record
	got     history.Query
	err     error
}

func (f *fakeHistory) Append(context.Context, history.Record) error { return nil }
func (f *fakeHistory) Query(_ context.Context, q history.Query) ([]history.Record, error) {
	f.got = q
	return f.records, f.err
}
func (f *fakeHistory) Close() error { return nil }

func loadedStore() *corestate.Store {
	store := corestate.NewStore()
	store.Replace(corestate.State{
		At:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Account: corestate.AccountState{ID: "A-1"},
		Devices: []corestate.DeviceState{{ID: "dev-1", Label: "Car", Available: true}},
	})
	return store
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestStateHandler(t *testing.T) {
	mux := NewMux(loadedStore(), nil, "", nil)
	rr := do(t, mux, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "A-1", out["account"].(map[string]any)["id"])
}

func TestStateHandlerBeforeFirstPoll(t *testing.T) {
	mux := NewMux(corestate.NewStore(), nil, "", nil)
	rr := do(t, mux, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestStateHandlerMethod(t *testing.T) {
	mux := NewMux(loadedStore(), nil, "", nil)
	rr := do(t, mux, httptest.NewRequest(http.MethodPost, "/api/state", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestDeviceHandler(t *testing.T) {
	mux := NewMux(loadedStore(), nil, "", nil)
	rr := do(t, mux, httptest.NewRequest(http.MethodGet, "/api/devices/dev-1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var dev corestate.DeviceState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dev))
	assert.Equal(t, "Car", dev.Label)

	rr = do(t, mux, httptest.NewRequest(http.MethodGet, "/api/devices/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHistoryHandler(t *testing.T) {
	hist := &fakeHistory{records: []history.Record{{PollID: "p1"}}}
	mux := NewMux(loadedStore(), hist, "", nil)
	rr := do(t, mux, httptest.NewRequest(http.MethodGet, "/api/history?from=2024-05-01T00:00:00Z&to=2024-05-02T00:00:00Z&device_id=dev-1&limit=5", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var out []history.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "p1", out[0].PollID)
	assert.Equal(t, "dev-1", hist.got.DeviceID)
	assert.Equal(t, 5, hist.got.Limit)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), hist.got.From.UTC())
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), hist.got.To.UTC())
}

func TestHistoryHandlerEmpty(t *testing.T) {
	mux := NewMux(loadedStore(), &fakeHistory{}, "", nil)
	rr := do(t, mux, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestHistoryHandlerErrors(t *testing.T) {
	mux := NewMux(loadedStore(), &fakeHistory{err: errors.New("disk")}, "secret", nil)

	rr := do(t, mux, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/history?from=yesterday", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr = do(t, mux, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr = do(t, mux, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	mux := NewMux(loadedStore(), nil, "", metrics)
	rr := do(t, mux, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "ok", rr.Body.String())

	rr = do(t, mux, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
