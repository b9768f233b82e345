package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
)

// LLM calls the LLM reviewer. The request is multipart: the page text, the
// extracted specification, the design mock as a file part, and the audit
// bundle as a JSON field so the reviewer can ground its critique in the
// non-LLM results.
type LLM struct {
	client
}

// NewLLM builds the LLM reviewer client.
func NewLLM(cfg Config, logger *zap.Logger) *LLM {
	return &LLM{client: newClient("llm", cfg, logger)}
}

// Review submits the page and its context and returns the structured
// critique.
func (l *LLM) Review(ctx context.Context, review analysis.LLMRequest) (analysis.LLMResponse, error) {
	body, contentType, err := encodeReview(review)
	if err != nil {
		return analysis.LLMResponse{}, l.fail(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/review", body)
	if err != nil {
		return analysis.LLMResponse{}, l.fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)

	var resp analysis.LLMResponse
	if err := l.do(req, &resp); err != nil {
		return analysis.LLMResponse{}, err
	}
	return resp, nil
}

func encodeReview(review analysis.LLMRequest) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField("html", review.HTML); err != nil {
		return nil, "", fmt.Errorf("write html field: %w", err)
	}
	if review.Specification != "" {
		if err := w.WriteField("specification", review.Specification); err != nil {
			return nil, "", fmt.Errorf("write specification field: %w", err)
		}
	}

	auditJSON, err := json.Marshal(review.Audit)
	if err != nil {
		return nil, "", fmt.Errorf("marshal audit bundle: %w", err)
	}
	if err := w.WriteField("auditResults", string(auditJSON)); err != nil {
		return nil, "", fmt.Errorf("write audit field: %w", err)
	}

	if review.Design != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="designFile"; filename=%q`, review.Design.FileName))
		if review.Design.ContentType != "" {
			header.Set("Content-Type", review.Design.ContentType)
		}
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create design part: %w", err)
		}
		if _, err := part.Write(review.Design.Data); err != nil {
			return nil, "", fmt.Errorf("write design part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, w.FormDataContentType(), nil
}
