package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pagelens/pagelens/internal/analysis"
)

// WebpageStore keeps webpages and their analysis results in-memory for
// development mode and tests. The mutex gives the dual-write the same
// all-or-nothing visibility the Postgres transaction provides.
type WebpageStore struct {
	idGen analysis.IDGenerator

	mu      sync.RWMutex
	pages   map[string]analysis.Webpage
	results map[string]analysis.WebpageAnalysisResult // keyed by webpage id
}

// NewWebpageStore creates a new in-memory WebpageStore.
func NewWebpageStore(idGen analysis.IDGenerator) *WebpageStore {
	return &WebpageStore{
		idGen:   idGen,
		pages:   make(map[string]analysis.Webpage),
		results: make(map[string]analysis.WebpageAnalysisResult),
	}
}

// CreateWebpageAndResult stores both records under one lock.
func (s *WebpageStore) CreateWebpageAndResult(_ context.Context, page analysis.Webpage, result analysis.WebpageAnalysisResult) (string, error) {
	pageID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate webpage id: %w", err)
	}
	resultID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate result id: %w", err)
	}
	page.ID = pageID
	result.ID = resultID
	result.WebpageID = pageID

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[pageID] = page
	s.results[pageID] = result
	return pageID, nil
}

// GetWebpage fetches a webpage by id, scoped to its owner.
func (s *WebpageStore) GetWebpage(_ context.Context, webpageID, userID string) (analysis.Webpage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[webpageID]
	if !ok || page.UserID != userID {
		return analysis.Webpage{}, analysis.ErrWebpageNotFound
	}
	return page, nil
}

// GetAnalysisResult fetches the result created with a webpage.
func (s *WebpageStore) GetAnalysisResult(_ context.Context, webpageID string) (analysis.WebpageAnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[webpageID]
	if !ok {
		return analysis.WebpageAnalysisResult{}, analysis.ErrWebpageNotFound
	}
	return result, nil
}

// ListWebpages returns the user's webpage summaries, newest first.
func (s *WebpageStore) ListWebpages(_ context.Context, userID string) ([]analysis.WebpageSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var summaries []analysis.WebpageSummary
	for _, page := range s.pages {
		if page.UserID != userID {
			continue
		}
		summaries = append(summaries, analysis.WebpageSummary{
			ID:         page.ID,
			Name:       page.Name,
			UploadDate: page.UploadDate,
			FileName:   page.FileName,
			URL:        page.URL,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UploadDate.After(summaries[j].UploadDate)
	})
	return summaries, nil
}
