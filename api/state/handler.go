// Package state exposes the derived state tree and poll history over HTTP.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	corestate "github.com/kilianp07/octoslots/core/state"
	"github.com/kilianp07/octoslots/infra/history"
	"github.com/kilianp07/octoslots/infra/logger"
)

// NewStateHandler returns an HTTP handler exposing the whole derived tree via
// GET /api/state. It answers 503 until the first poll succeeded.
func NewStateHandler(store *corestate.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := store.Load()
		if st.Empty() {
			http.Error(w, "no state yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, st)
	})
}

// NewDeviceHandler returns an HTTP handler exposing one device via
// GET /api/devices/{id}.
func NewDeviceHandler(store *corestate.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dev, ok := store.Load().Device(r.PathValue("id"))
		if !ok {
			http.Error(w, "device not found", http.StatusNotFound)
			return
		}
		writeJSON(w, dev)
	})
}

// NewHistoryHandler returns an HTTP handler exposing poll history via
// GET /api/history?from=&to=&device_id=&limit=.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewHistoryHandler(store history.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []history.Record{}
		}
		writeJSON(w, records)
	})
}

func parseQuery(r *http.Request) (history.Query, error) {
	v := r.URL.Query()
	q := history.Query{DeviceID: v.Get("device_id")}
	var err error
	if s := v.Get("from"); s != "" {
		if q.From, err = time.Parse(time.RFC3339, s); err != nil {
			return q, errors.New("from must be RFC3339")
		}
	}
	if s := v.Get("to"); s != "" {
		if q.To, err = time.Parse(time.RFC3339, s); err != nil {
			return q, errors.New("to must be RFC3339")
		}
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 0 {
			return q, errors.New("limit must be a positive integer")
		}
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// NewMux routes the state API. hist and metrics may be nil.
func NewMux(store *corestate.Store, hist history.Store, token string, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /api/state", NewStateHandler(store))
	mux.Handle("GET /api/devices/{id}", NewDeviceHandler(store))
	if hist != nil {
		mux.Handle("GET /api/history", NewHistoryHandler(hist, token))
	}
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}

// Serve runs h on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler, log logger.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("api server shutdown: %v", err)
		}
	}()
	log.Infof("api listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
