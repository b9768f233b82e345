// Package analysis defines the webpage-analysis domain model and the
// interfaces its collaborators implement.
package analysis

import "time"

// Webpage is the persisted record of one uploaded page. The raw HTML is
// never stored on the record itself, only the blob id referencing it.
type Webpage struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"userId"`
	HTMLContentID       string    `json:"htmlContentId"`
	URL                 string    `json:"url,omitempty"`
	FileName            string    `json:"fileName,omitempty"`
	Name                string    `json:"name,omitempty"`
	DesignFileID        string    `json:"designFileId,omitempty"`
	SpecificationFileID string    `json:"specificationFileId,omitempty"`
	UploadDate          time.Time `json:"uploadDate"`
}

// WebpageSummary is the projection returned by the list endpoint.
type WebpageSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	UploadDate time.Time `json:"uploadDate"`
	FileName   string    `json:"fileName,omitempty"`
	URL        string    `json:"url,omitempty"`
}

// WebpageAnalysisResult holds everything the analyzers produced for one
// webpage. It is created together with its Webpage and never updated.
// Each error flag marks its dimension's data as a failure placeholder
// rather than trustworthy output.
type WebpageAnalysisResult struct {
	ID        string           `json:"id"`
	WebpageID string           `json:"webpageId"`
	LLM       *LLMResponse     `json:"LLMResponse"`
	Audit     *WebAuditResults `json:"webAuditResults"`

	AxeCoreError        bool `json:"AxeCoreError"`
	NuValidatorError    bool `json:"NuValidatorError"`
	PageSpeedError      bool `json:"PageSpeedError"`
	LLMError            bool `json:"LLMError"`
	ResponsivenessError bool `json:"ResponsivenessError"`
}

// WebAuditResults bundles the raw outputs of the non-LLM analyzers.
// A nil field means that analyzer failed or did not apply.
type WebAuditResults struct {
	AxeCoreResult        []AxeCoreViolation      `json:"axeCoreResult"`
	PageSpeedResult      *PageSpeedResponse      `json:"pageSpeedResult"`
	NuValidatorResult    []NuValidatorMessage    `json:"nuValidatorResult"`
	ResponsivenessResult []ResponsivenessMetrics `json:"responsivenessResult"`
}

// User maps a unique email to a stable id.
type User struct {
	ID    string `json:"userId"`
	Email string `json:"email"`
}

// AxeCoreNode locates one offending element within a violation.
type AxeCoreNode struct {
	Impact         string `json:"Impact,omitempty"`
	HTML           string `json:"Html,omitempty"`
	FailureSummary string `json:"FailureSummary,omitempty"`
}

// AxeCoreViolation is one accessibility rule failure reported by the
// accessibility analyzer.
type AxeCoreViolation struct {
	ID          string        `json:"Id,omitempty"`
	Description string        `json:"Description,omitempty"`
	Help        string        `json:"Help,omitempty"`
	Nodes       []AxeCoreNode `json:"Nodes"`
}

// ResponsivenessMetrics reports layout behavior at one viewport.
type ResponsivenessMetrics struct {
	Viewport       string `json:"Viewport,omitempty"`
	Overflow       bool   `json:"Overflow"`
	ImagesOversize bool   `json:"ImagesOversize"`
}

// AxeCoreResponse is the accessibility analyzer's wire format.
type AxeCoreResponse struct {
	Violations            []AxeCoreViolation      `json:"violations"`
	LightHouseResults     *PageSpeedResponse      `json:"lightHouseResults"`
	ResponsivenessResults []ResponsivenessMetrics `json:"responsivenessResults"`
}

// PageSpeedResponse is the performance analyzer's wire format.
type PageSpeedResponse struct {
	LoadingExperience LoadingExperience `json:"loadingExperience"`
	LighthouseResult  LighthouseResult  `json:"lighthouseResult"`
}

// LoadingExperience carries field-data metrics for the analyzed URL.
type LoadingExperience struct {
	Metrics         Metrics `json:"metrics"`
	OverallCategory string  `json:"overall_category"`
	LabTest         bool    `json:"LabTest"`
}

// Metrics names follow the upstream PageSpeed API verbatim.
type Metrics struct {
	CumulativeLayoutShiftScore  MetricModel `json:"CUMULATIVE_LAYOUT_SHIFT_SCORE"`
	ExperimentalTimeToFirstByte MetricModel `json:"EXPERIMENTAL_TIME_TO_FIRST_BYTE"`
	FirstContentfulPaintMS      MetricModel `json:"FIRST_CONTENTFUL_PAINT_MS"`
	InteractionToNextPaint      MetricModel `json:"INTERACTION_TO_NEXT_PAINT"`
	LargestContentfulPaintMS    MetricModel `json:"LARGEST_CONTENTFUL_PAINT_MS"`
}

// MetricModel is one metric's percentile and distribution buckets.
type MetricModel struct {
	Percentile    int            `json:"percentile"`
	Distributions []Distribution `json:"distributions"`
	Category      string         `json:"category"`
}

// Distribution is one bucket of a metric distribution. Max is a pointer
// because the last bucket is open-ended.
type Distribution struct {
	Min        int     `json:"min"`
	Max        *int    `json:"max"`
	Proportion float64 `json:"proportion"`
}

// LighthouseResult holds the lab-test category scores.
type LighthouseResult struct {
	Categories LighthouseCategories `json:"categories"`
}

// LighthouseCategories scores the four lighthouse dimensions.
type LighthouseCategories struct {
	Performance   CategoryScore `json:"performance"`
	SEO           CategoryScore `json:"seo"`
	BestPractices CategoryScore `json:"best-practices"`
	Accessibility CategoryScore `json:"accessibility"`
}

// CategoryScore is a 0..1 lighthouse score.
type CategoryScore struct {
	Score float64 `json:"score"`
}

// NuValidatorMessage is one finding from the markup validator. The wire
// keys contain spaces; they come from the upstream service as-is.
type NuValidatorMessage struct {
	Type         string `json:"Type"`
	LastLine     int    `json:"Last Line"`
	LastColumn   int    `json:"Last Column"`
	FirstColumn  int    `json:"First Column"`
	Message      string `json:"Message"`
	Extract      string `json:"Extract"`
	HiliteStart  int    `json:"HiliteStart"`
	HiliteLength int    `json:"HiliteLength"`
}

// NuValidatorResponse is the markup validator's wire format.
type NuValidatorResponse struct {
	Messages []NuValidatorMessage `json:"Messages"`
}

// LLMResponse is the structured critique produced by the LLM reviewer.
// Key names (including the embedded spaces) are the reviewer's wire format
// and are persisted verbatim.
type LLMResponse struct {
	ExecutiveSummary  string             `json:"Executive Summary,omitempty"`
	DetailedAnalysis  *DetailedAnalysis  `json:"Detailed Analysis,omitempty"`
	NonLLMEvaluations *NonLLMEvaluations `json:"Non-LLM Evaluations,omitempty"`
	OtherIssues       []Finding          `json:"Other Issues,omitempty"`
}

// DetailedAnalysis groups the reviewer's per-dimension findings.
type DetailedAnalysis struct {
	ContentDiscrepancies          *FindingsReport `json:"Content Discrepancies,omitempty"`
	StylingDiscrepancies          *FindingsReport `json:"Styling Discrepancies,omitempty"`
	IntentionalFlawsAndKnownIssue *FindingsReport `json:"Intentional Flaws And Known Issues,omitempty"`
	FunctionalDiscrepancies       *FindingsReport `json:"Functional Discrepancies,omitempty"`
}

// FindingsReport is a summary plus its individual findings.
type FindingsReport struct {
	Summary  string    `json:"Summary,omitempty"`
	Findings []Finding `json:"Findings,omitempty"`
}

// Finding is one reviewer observation. Section, Category, and Code are
// populated only by the report types that carry them.
type Finding struct {
	Section        string `json:"Section,omitempty"`
	Category       string `json:"Category,omitempty"`
	Issue          string `json:"Issue,omitempty"`
	Details        string `json:"Details,omitempty"`
	Code           string `json:"Code,omitempty"`
	RecommendedFix string `json:"Recommended Fix,omitempty"`
}

// NonLLMEvaluations is the reviewer's reading of the audit bundle it was
// given alongside the page.
type NonLLMEvaluations struct {
	AccessibilityReport *KeyFindingsReport `json:"Accessibility Report,omitempty"`
	PerformanceReport   *KeyFindingsReport `json:"Performance Report,omitempty"`
	ValidationReport    *KeyFindingsReport `json:"Validation Report,omitempty"`
	LayoutReport        *LayoutReport      `json:"Layout Report,omitempty"`
}

// KeyFindingsReport is a summary plus key issue/fix pairs.
type KeyFindingsReport struct {
	Summary     string       `json:"Summary,omitempty"`
	KeyFindings []KeyFinding `json:"Key Findings,omitempty"`
}

// KeyFinding pairs an issue with its recommended fix.
type KeyFinding struct {
	Issue          string `json:"Issue,omitempty"`
	RecommendedFix string `json:"Recommended Fix,omitempty"`
}

// LayoutReport summarizes responsiveness findings.
type LayoutReport struct {
	Summary        string `json:"Summary,omitempty"`
	RecommendedFix string `json:"Recommended Fix,omitempty"`
}
