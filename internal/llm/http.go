package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const maxResponseBytes = 16 << 20

// Endpoint is one provider URL with its auth headers, client and outbound rate limit.
type Endpoint struct {
	Provider string
	URL      string
	Headers  map[string]string
	Client   *http.Client
	Limiter  *rate.Limiter
	Logger   *slog.Logger
}

// StatusError is a provider reply outside 2xx.
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: non-2xx status %d: %s", e.Provider, e.Status, e.Body)
}

// NewLimiter paces outbound calls; perSec <= 0 means unlimited.
func NewLimiter(perSec float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(perSec), burst)
}

// PostJSON waits for a rate slot, posts body and returns the 2xx response body.
// reqID is logged on every llm.http event so they line up with the caller's events.
func (e Endpoint) PostJSON(ctx context.Context, reqID string, body any) ([]byte, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}

	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx); err != nil {
			logger.Error("llm.http.rate_wait_aborted", "req_id", reqID, "provider", e.Provider, "error", err)
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", e.Provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", e.Provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range e.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	logger.Info("llm.http.request", "req_id", reqID, "provider", e.Provider, "content_length", len(bs))

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "provider", e.Provider, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("send %s request: %w", e.Provider, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.Error("llm.http.read_error", "req_id", reqID, "provider", e.Provider, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("read %s response: %w", e.Provider, err)
	}

	logger.Info("llm.http.response",
		"req_id", reqID,
		"provider", e.Provider,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{Provider: e.Provider, Status: resp.StatusCode, Body: truncate(string(raw), 300)}
	}
	return raw, nil
}
