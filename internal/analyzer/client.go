// Package analyzer implements HTTP clients for the external analysis
// services. All four share one failure contract: a transport error, a
// non-2xx status, or an undecodable body is logged with the analyzer name
// and returned as an error for the caller to absorb. Nothing here panics
// or retries; a flaky analyzer costs data quality, never availability.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/metrics"
)

// Config parameterizes one analyzer client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// client is the shared HTTP plumbing behind the four analyzer clients.
type client struct {
	name    string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func newClient(name string, cfg Config, logger *zap.Logger) client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return client{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With(zap.String("analyzer", name)),
	}
}

// postJSON sends payload as JSON and decodes the response into out.
func (c *client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return c.fail(fmt.Errorf("encode request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return c.fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// getJSON performs a GET with the query already encoded into path.
func (c *client) getJSON(ctx context.Context, pathAndQuery string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathAndQuery, nil)
	if err != nil {
		return c.fail(fmt.Errorf("build request: %w", err))
	}
	return c.do(req, out)
}

// do executes the request and enforces the shared failure contract.
func (c *client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveAnalyzer(c.name, "transport_error", time.Since(start))
		return c.fail(fmt.Errorf("request failed: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveAnalyzer(c.name, fmt.Sprintf("http_%d", resp.StatusCode), time.Since(start))
		// Drain a little of the body for the log; callers never see it.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("analyzer returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return fmt.Errorf("%s: unexpected status %d", c.name, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ObserveAnalyzer(c.name, "decode_error", time.Since(start))
		return c.fail(fmt.Errorf("decode response: %w", err))
	}
	metrics.ObserveAnalyzer(c.name, "ok", time.Since(start))
	return nil
}

func (c *client) fail(err error) error {
	c.logger.Warn("analyzer call failed", zap.Error(err))
	return fmt.Errorf("%s: %w", c.name, err)
}
