// Package resolver obtains the raw HTML text an upload refers to.
package resolver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls the URL fetch path.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Resolver fetches a URL's body as text using a Colly collector. All
// transport-level failures collapse into one rejection: the caller only
// needs to know the URL could not be resolved.
type Resolver struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a Resolver.
func New(cfg Config, logger *zap.Logger) *Resolver {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{cfg: cfg, logger: logger}
}

// Fetch performs a single GET and returns the body as text.
func (r *Resolver) Fetch(ctx context.Context, url string) (string, error) {
	collector := colly.NewCollector()
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(r.cfg.Timeout)
	if r.cfg.UserAgent != "" {
		collector.UserAgent = r.cfg.UserAgent
	}

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(resp *colly.Response) {
		if resp.StatusCode != http.StatusOK {
			fetchErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			return
		}
		body = resp.Body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err == nil {
			err = fetchErr
		}
		if err != nil {
			r.logger.Warn("url fetch failed", zap.String("url", url), zap.Error(err))
			return "", fmt.Errorf("fetch %s: %w", url, err)
		}
	}
	return string(body), nil
}
