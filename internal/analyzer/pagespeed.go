package analyzer

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
)

// PageSpeed calls the performance analyzer. It only makes sense for live
// URLs; the orchestrator never calls it for raw uploads.
type PageSpeed struct {
	client
	apiKey string
}

// NewPageSpeed builds the performance analyzer client.
func NewPageSpeed(cfg Config, logger *zap.Logger) *PageSpeed {
	return &PageSpeed{
		client: newClient("pagespeed", cfg, logger),
		apiKey: cfg.APIKey,
	}
}

// Analyze runs a PageSpeed audit of the URL.
func (p *PageSpeed) Analyze(ctx context.Context, pageURL string) (analysis.PageSpeedResponse, error) {
	q := url.Values{}
	q.Set("url", pageURL)
	if p.apiKey != "" {
		q.Set("key", p.apiKey)
	}
	var resp analysis.PageSpeedResponse
	if err := p.getJSON(ctx, "/runPagespeed?"+q.Encode(), &resp); err != nil {
		return analysis.PageSpeedResponse{}, err
	}
	return resp, nil
}
