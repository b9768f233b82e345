// Package orchestrator implements the upload workflow: validate, resolve
// content, fan out to the analyzers and the file store, merge the partial
// results, and commit the webpage with its analysis record.
package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/metrics"
)

// FileUpload is one uploaded file's name, declared size, and content.
type FileUpload struct {
	Name string
	Size int64
	Data []byte
}

// UploadRequest carries everything the client submitted. Exactly one of
// HTMLFile and URL must be present; validation enforces it.
type UploadRequest struct {
	Name              string
	Email             string
	URL               string
	HTMLFile          *FileUpload
	DesignFile        *FileUpload
	SpecificationFile *FileUpload
}

// Config controls orchestration behavior.
type Config struct {
	// AnalyzerTimeout bounds each non-LLM analyzer call. The join barrier
	// needs no timeout of its own: every arm is individually bounded.
	AnalyzerTimeout time.Duration
	// LLMTimeout bounds the reviewer call, which does the most work.
	LLMTimeout time.Duration
	// Topic is where completion events are published.
	Topic string
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Users         analysis.UserDirectory
	Blobs         analysis.BlobStore
	Pages         analysis.WebpageStore
	Resolver      analysis.ContentResolver
	SpecText      analysis.SpecTextExtractor
	Accessibility analysis.AccessibilityAnalyzer
	Performance   analysis.PerformanceAnalyzer
	Markup        analysis.MarkupValidator
	Reviewer      analysis.LLMReviewer
	Publisher     analysis.Publisher
	Clock         analysis.Clock
}

// Orchestrator runs the upload workflow.
type Orchestrator struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New constructs an Orchestrator.
func New(deps Deps, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.AnalyzerTimeout == 0 {
		cfg.AnalyzerTimeout = 20 * time.Second
	}
	if cfg.LLMTimeout == 0 {
		cfg.LLMTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{deps: deps, cfg: cfg, logger: logger}
}

// Upload validates the request, runs the analysis workflow, and returns
// the new webpage's id. Analyzer failures degrade the record; only
// validation, authorization, content resolution, and store failures reach
// the caller.
func (o *Orchestrator) Upload(ctx context.Context, req UploadRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		metrics.ObserveUpload("validation_rejected")
		return "", err
	}

	userID, err := o.deps.Users.FindByEmail(ctx, req.Email)
	if errors.Is(err, analysis.ErrUserNotFound) {
		metrics.ObserveUpload("unauthorized")
		return "", ErrNotRegistered
	}
	if err != nil {
		metrics.ObserveUpload("store_error")
		return "", fmt.Errorf("lookup user: %w", err)
	}

	html, err := o.resolveContent(ctx, req)
	if err != nil {
		metrics.ObserveUpload("resolve_failed")
		return "", err
	}

	fan := o.fanOut(ctx, req, html)
	if fan.putErr != nil {
		metrics.ObserveUpload("store_error")
		return "", fan.putErr
	}

	audit, result := o.mergeAudit(fan, req.URL != "")

	// A broken specification file is fatal, unlike an analyzer outage: the
	// review would silently lose the document it is meant to check against.
	specText, err := o.extractSpecText(req)
	if err != nil {
		metrics.ObserveUpload("spec_extract_failed")
		return "", err
	}

	llmResp, llmErr := o.review(ctx, req, html, specText, audit)
	if llmErr != nil {
		o.logger.Warn("llm review failed", zap.Error(llmErr))
		result.LLMError = true
	} else {
		result.LLM = &llmResp
	}
	result.Audit = &audit

	page := analysis.Webpage{
		UserID:              userID,
		HTMLContentID:       fan.htmlFileID,
		URL:                 req.URL,
		Name:                req.Name,
		DesignFileID:        fan.designFileID,
		SpecificationFileID: fan.specFileID,
		UploadDate:          o.deps.Clock.Now(),
	}
	if req.HTMLFile != nil {
		page.FileName = req.HTMLFile.Name
	}

	webpageID, err := o.deps.Pages.CreateWebpageAndResult(ctx, page, result)
	if err != nil {
		metrics.ObserveUpload("store_error")
		return "", fmt.Errorf("commit webpage: %w", err)
	}

	o.publishCompletion(ctx, webpageID, userID, result)
	metrics.ObserveUpload("ok")
	return webpageID, nil
}

// resolveContent produces the HTML text to analyze: the uploaded file
// decoded as UTF-8, or the URL's fetched body.
func (o *Orchestrator) resolveContent(ctx context.Context, req UploadRequest) (string, error) {
	if req.HTMLFile != nil {
		return string(req.HTMLFile.Data), nil
	}
	html, err := o.deps.Resolver.Fetch(ctx, req.URL)
	if err != nil {
		return "", &ResolveError{URL: req.URL, Err: err}
	}
	return html, nil
}

// fanOutResult collects the six concurrent arms. Analyzer arms record
// presence flags; blob arms record the first fatal error. Fields are
// written by exactly one goroutine each and read only after the join.
type fanOutResult struct {
	htmlFileID   string
	designFileID string
	specFileID   string

	putMu  sync.Mutex
	putErr error

	axe   analysis.AxeCoreResponse
	axeOK bool

	pageSpeed   analysis.PageSpeedResponse
	pageSpeedOK bool

	nuMessages []analysis.NuValidatorMessage
	nuOK       bool
}

func (f *fanOutResult) recordPutErr(err error) {
	f.putMu.Lock()
	defer f.putMu.Unlock()
	if f.putErr == nil {
		f.putErr = err
	}
}

// fanOut starts the file-store writes and the non-LLM analyzer calls
// without waiting on each other, then joins them all. No arm short-
// circuits another: a failed analyzer is absorbed, a failed write
// surfaces after the barrier.
func (o *Orchestrator) fanOut(ctx context.Context, req UploadRequest, html string) *fanOutResult {
	fan := &fanOutResult{}
	input := analyzerInput(req, html)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		// Each consumer reads its own copy of the bytes; the analyzers
		// never share a stream with the store writes.
		name := "webpage.html"
		if req.HTMLFile != nil {
			name = req.HTMLFile.Name
		}
		id, err := o.deps.Blobs.PutObject(ctx, name, "text/html; charset=utf-8", bytes.NewReader([]byte(html)))
		if err != nil {
			fan.recordPutErr(fmt.Errorf("store html content: %w", err))
			return
		}
		fan.htmlFileID = id
	}()

	if req.DesignFile != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := o.deps.Blobs.PutObject(ctx, req.DesignFile.Name,
				designContentType(req.DesignFile), bytes.NewReader(req.DesignFile.Data))
			if err != nil {
				fan.recordPutErr(fmt.Errorf("store design file: %w", err))
				return
			}
			fan.designFileID = id
		}()
	}

	if req.SpecificationFile != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := o.deps.Blobs.PutObject(ctx, req.SpecificationFile.Name,
				"application/octet-stream", bytes.NewReader(req.SpecificationFile.Data))
			if err != nil {
				fan.recordPutErr(fmt.Errorf("store specification file: %w", err))
				return
			}
			fan.specFileID = id
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		actx, cancel := context.WithTimeout(ctx, o.cfg.AnalyzerTimeout)
		defer cancel()
		resp, err := o.deps.Accessibility.Analyze(actx, input)
		if err != nil {
			o.logger.Warn("accessibility analysis failed", zap.Error(err))
			return
		}
		fan.axe, fan.axeOK = resp, true
	}()

	// Performance analysis has no meaning for raw uploaded HTML.
	if req.URL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actx, cancel := context.WithTimeout(ctx, o.cfg.AnalyzerTimeout)
			defer cancel()
			resp, err := o.deps.Performance.Analyze(actx, req.URL)
			if err != nil {
				o.logger.Warn("performance analysis failed", zap.Error(err))
				return
			}
			fan.pageSpeed, fan.pageSpeedOK = resp, true
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		actx, cancel := context.WithTimeout(ctx, o.cfg.AnalyzerTimeout)
		defer cancel()
		msgs, err := o.deps.Markup.Validate(actx, input)
		if err != nil {
			o.logger.Warn("markup validation failed", zap.Error(err))
			return
		}
		fan.nuMessages, fan.nuOK = msgs, true
	}()

	wg.Wait()
	return fan
}

// mergeAudit folds the fan-out into the audit bundle and error flags.
// Responsiveness metrics ride on the accessibility response, so its flag
// follows that call's fate.
func (o *Orchestrator) mergeAudit(fan *fanOutResult, hasURL bool) (analysis.WebAuditResults, analysis.WebpageAnalysisResult) {
	var audit analysis.WebAuditResults
	var result analysis.WebpageAnalysisResult

	if fan.axeOK {
		audit.AxeCoreResult = fan.axe.Violations
		audit.ResponsivenessResult = fan.axe.ResponsivenessResults
	} else {
		result.AxeCoreError = true
		result.ResponsivenessError = true
	}

	if !hasURL {
		// Applicability, not failure: the analyzer was never called.
		result.PageSpeedError = true
	} else if fan.pageSpeedOK {
		audit.PageSpeedResult = &fan.pageSpeed
	} else {
		result.PageSpeedError = true
	}

	if fan.nuOK {
		audit.NuValidatorResult = fan.nuMessages
	} else {
		result.NuValidatorError = true
	}

	return audit, result
}

// extractSpecText turns the optional specification file into the text the
// reviewer reads.
func (o *Orchestrator) extractSpecText(req UploadRequest) (string, error) {
	if req.SpecificationFile == nil {
		return "", nil
	}
	text, err := o.deps.SpecText.Extract(req.SpecificationFile.Name, req.SpecificationFile.Data)
	if err != nil {
		return "", fmt.Errorf("extract specification text: %w", err)
	}
	return text, nil
}

// review calls the LLM reviewer with the page, the spec, the design mock,
// and the audit bundle.
func (o *Orchestrator) review(ctx context.Context, req UploadRequest, html, specText string, audit analysis.WebAuditResults) (analysis.LLMResponse, error) {
	var design *analysis.DesignAttachment
	if req.DesignFile != nil {
		design = &analysis.DesignAttachment{
			FileName:    req.DesignFile.Name,
			ContentType: designContentType(req.DesignFile),
			Data:        req.DesignFile.Data,
		}
	}

	lctx, cancel := context.WithTimeout(ctx, o.cfg.LLMTimeout)
	defer cancel()
	return o.deps.Reviewer.Review(lctx, analysis.LLMRequest{
		HTML:          html,
		Specification: specText,
		Design:        design,
		Audit:         audit,
	})
}

// completionEvent is the payload published after a successful commit.
type completionEvent struct {
	WebpageID           string    `json:"webpage_id"`
	UserID              string    `json:"user_id"`
	UploadDate          time.Time `json:"upload_date"`
	AxeCoreError        bool      `json:"axe_core_error"`
	NuValidatorError    bool      `json:"nu_validator_error"`
	PageSpeedError      bool      `json:"page_speed_error"`
	LLMError            bool      `json:"llm_error"`
	ResponsivenessError bool      `json:"responsiveness_error"`
}

// publishCompletion is fire-and-forget: a broken event bus never fails an
// upload that already committed.
func (o *Orchestrator) publishCompletion(ctx context.Context, webpageID, userID string, result analysis.WebpageAnalysisResult) {
	if o.deps.Publisher == nil || o.cfg.Topic == "" {
		return
	}
	event := completionEvent{
		WebpageID:           webpageID,
		UserID:              userID,
		UploadDate:          o.deps.Clock.Now(),
		AxeCoreError:        result.AxeCoreError,
		NuValidatorError:    result.NuValidatorError,
		PageSpeedError:      result.PageSpeedError,
		LLMError:            result.LLMError,
		ResponsivenessError: result.ResponsivenessError,
	}
	if _, err := o.deps.Publisher.Publish(ctx, o.cfg.Topic, event); err != nil {
		o.logger.Warn("publish completion event failed",
			zap.String("webpage_id", webpageID), zap.Error(err))
	}
}

func analyzerInput(req UploadRequest, html string) analysis.AnalyzerInput {
	if req.URL != "" {
		return analysis.AnalyzerInput{URL: req.URL}
	}
	return analysis.AnalyzerInput{HTML: html}
}

func designContentType(f *FileUpload) string {
	if ct := mime.TypeByExtension(ext(f.Name)); ct != "" {
		return ct
	}
	return http.DetectContentType(f.Data)
}
