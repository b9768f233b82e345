package analysis

import (
	"context"
	"errors"
	"io"
	"time"
)

// Sentinel errors shared across store implementations.
var (
	// ErrUserNotFound is returned when an email has no registered user.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Create for an already-registered email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrWebpageNotFound is returned when a webpage id does not exist or
	// is not owned by the requesting user.
	ErrWebpageNotFound = errors.New("webpage not found")
	// ErrObjectNotFound is returned when a blob id has no stored object.
	ErrObjectNotFound = errors.New("object not found")
)

// BlobStore persists opaque byte streams under generated ids.
type BlobStore interface {
	// PutObject stores data under a new id, keeping name as metadata.
	PutObject(ctx context.Context, name string, contentType string, data io.Reader) (string, error)
	// GetObject returns the stored stream and its original name.
	GetObject(ctx context.Context, id string) (io.ReadCloser, string, error)
}

// UserDirectory maps emails to stable user ids.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (string, error)
	Create(ctx context.Context, email string) (string, error)
}

// WebpageStore persists webpages and their analysis results.
type WebpageStore interface {
	// CreateWebpageAndResult writes both records atomically, stamping the
	// webpage id into the result, and returns the webpage id.
	CreateWebpageAndResult(ctx context.Context, page Webpage, result WebpageAnalysisResult) (string, error)
	GetWebpage(ctx context.Context, webpageID, userID string) (Webpage, error)
	GetAnalysisResult(ctx context.Context, webpageID string) (WebpageAnalysisResult, error)
	ListWebpages(ctx context.Context, userID string) ([]WebpageSummary, error)
}

// AnalyzerInput carries exactly one of an inline HTML document or a URL.
type AnalyzerInput struct {
	HTML string
	URL  string
}

// AccessibilityAnalyzer runs axe-core (plus responsiveness probes) against
// a page.
type AccessibilityAnalyzer interface {
	Analyze(ctx context.Context, input AnalyzerInput) (AxeCoreResponse, error)
}

// PerformanceAnalyzer runs a PageSpeed audit against a live URL.
type PerformanceAnalyzer interface {
	Analyze(ctx context.Context, url string) (PageSpeedResponse, error)
}

// MarkupValidator checks a page against the Nu HTML validator.
type MarkupValidator interface {
	Validate(ctx context.Context, input AnalyzerInput) ([]NuValidatorMessage, error)
}

// DesignAttachment is a design file forwarded to the LLM reviewer.
type DesignAttachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// LLMRequest is everything the reviewer sees: the page, the written
// specification, the design mock, and the audit bundle for context.
type LLMRequest struct {
	HTML          string
	Specification string
	Design        *DesignAttachment
	Audit         WebAuditResults
}

// LLMReviewer produces the structured critique of a page.
type LLMReviewer interface {
	Review(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// ContentResolver fetches the HTML body of a URL.
type ContentResolver interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// SpecTextExtractor extracts plain text from a specification file.
type SpecTextExtractor interface {
	Extract(filename string, data []byte) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record ids (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
