package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/octoslots/core/model"
	"github.com/kilianp07/octoslots/infra/logger"
)

// HTTPSource GETs the snapshot from a JSON endpoint, retrying transport
// errors and 5xx responses with exponential backoff.
type HTTPSource struct {
	client     *http.Client
	url        string
	headers    map[string]string
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

func NewHTTPSource(cfg Config) *HTTPSource {
	return &HTTPSource{
		client:     &http.Client{Timeout: cfg.timeout()},
		url:        cfg.URL,
		headers:    cfg.Headers,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.backoff(),
		log:        logger.New("http_source"),
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) (*model.Snapshot, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			wait := s.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		body, retry, err := s.get(ctx)
		if err == nil {
			return Decode(body)
		}
		lastErr = err
		if !retry {
			break
		}
		s.log.Warnf("fetch attempt %d failed: %v", attempt+1, err)
	}
	return nil, lastErr
}

func (s *HTTPSource) get(ctx context.Context) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= 500, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	return body, false, nil
}
