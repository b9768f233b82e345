package analyzer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
)

// errAmbiguousInput flags a caller bug, not a user-facing validation: the
// orchestrator guarantees the XOR before calling.
var errAmbiguousInput = errors.New("exactly one of html or url must be set")

// AxeCore calls the accessibility analyzer, which runs axe-core and
// viewport responsiveness probes against the page.
type AxeCore struct {
	client
}

// NewAxeCore builds the accessibility analyzer client.
func NewAxeCore(cfg Config, logger *zap.Logger) *AxeCore {
	return &AxeCore{client: newClient("axecore", cfg, logger)}
}

type axeCoreRequest struct {
	HTML string `json:"html,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Analyze submits the page and returns violations plus responsiveness
// metrics.
func (a *AxeCore) Analyze(ctx context.Context, input analysis.AnalyzerInput) (analysis.AxeCoreResponse, error) {
	if (input.HTML == "") == (input.URL == "") {
		return analysis.AxeCoreResponse{}, errAmbiguousInput
	}
	var resp analysis.AxeCoreResponse
	err := a.postJSON(ctx, "/analyze", axeCoreRequest{HTML: input.HTML, URL: input.URL}, &resp)
	if err != nil {
		return analysis.AxeCoreResponse{}, err
	}
	return resp, nil
}
