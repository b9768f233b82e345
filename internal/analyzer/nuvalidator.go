package analyzer

import (
	"context"

	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
)

// NuValidator calls the markup validation analyzer.
type NuValidator struct {
	client
}

// NewNuValidator builds the markup validator client.
func NewNuValidator(cfg Config, logger *zap.Logger) *NuValidator {
	return &NuValidator{client: newClient("nuvalidator", cfg, logger)}
}

type nuValidatorRequest struct {
	HTML string `json:"html,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Validate submits the page and returns the validator's message list.
func (n *NuValidator) Validate(ctx context.Context, input analysis.AnalyzerInput) ([]analysis.NuValidatorMessage, error) {
	if (input.HTML == "") == (input.URL == "") {
		return nil, errAmbiguousInput
	}
	var resp analysis.NuValidatorResponse
	err := n.postJSON(ctx, "/validate", nuValidatorRequest{HTML: input.HTML, URL: input.URL}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}
