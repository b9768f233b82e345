// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagelens/pagelens/internal/analysis"
)

// PoolConfig controls the Postgres connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the subset of pgxpool.Pool the stores use; pgxmock satisfies
// it in tests.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// NewPool creates a pgx pool from the provided config.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// WebpageStore persists webpages and their analysis results.
//
// It assumes the schema:
//
//	CREATE TABLE webpages (
//		id UUID PRIMARY KEY,
//		user_id UUID NOT NULL REFERENCES users(id),
//		html_content_id TEXT NOT NULL,
//		url TEXT,
//		file_name TEXT,
//		name TEXT,
//		design_file_id TEXT,
//		specification_file_id TEXT,
//		upload_date TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE webpage_analysis_results (
//		id UUID PRIMARY KEY,
//		webpage_id UUID NOT NULL UNIQUE REFERENCES webpages(id),
//		llm_response JSONB,
//		audit JSONB,
//		axe_core_error BOOLEAN NOT NULL,
//		nu_validator_error BOOLEAN NOT NULL,
//		page_speed_error BOOLEAN NOT NULL,
//		llm_error BOOLEAN NOT NULL,
//		responsiveness_error BOOLEAN NOT NULL
//	);
type WebpageStore struct {
	pool  pgxPool
	idGen analysis.IDGenerator
}

// NewWebpageStore creates a Postgres-backed WebpageStore.
func NewWebpageStore(pool *pgxpool.Pool, idGen analysis.IDGenerator) (*WebpageStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &WebpageStore{pool: pool, idGen: idGen}, nil
}

// NewWebpageStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewWebpageStoreWithPool(pool pgxPool, idGen analysis.IDGenerator) (*WebpageStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &WebpageStore{pool: pool, idGen: idGen}, nil
}

// Close releases the underlying pool resources.
func (s *WebpageStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateWebpageAndResult inserts the webpage and its analysis result in a
// single transaction. Ids are assigned here: the webpage id is generated
// first and stamped into the result's back-reference before the second
// insert. Either both rows become visible at commit or neither does.
func (s *WebpageStore) CreateWebpageAndResult(ctx context.Context, page analysis.Webpage, result analysis.WebpageAnalysisResult) (string, error) {
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

	llmJSON, err := marshalNullable(result.LLM)
	if err != nil {
		return "", fmt.Errorf("marshal llm response: %w", err)
	}
	auditJSON, err := marshalNullable(result.Audit)
	if err != nil {
		return "", fmt.Errorf("marshal audit bundle: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
INSERT INTO webpages (
	id, user_id, html_content_id, url, file_name, name,
	design_file_id, specification_file_id, upload_date
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		page.ID,
		page.UserID,
		page.HTMLContentID,
		nullIfEmpty(page.URL),
		nullIfEmpty(page.FileName),
		nullIfEmpty(page.Name),
		nullIfEmpty(page.DesignFileID),
		nullIfEmpty(page.SpecificationFileID),
		page.UploadDate,
	)
	if err != nil {
		return "", fmt.Errorf("insert webpage: %w", err)
	}

	_, err = tx.Exec(ctx, `
INSERT INTO webpage_analysis_results (
	id, webpage_id, llm_response, audit,
	axe_core_error, nu_validator_error, page_speed_error, llm_error, responsiveness_error
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		result.ID,
		result.WebpageID,
		llmJSON,
		auditJSON,
		result.AxeCoreError,
		result.NuValidatorError,
		result.PageSpeedError,
		result.LLMError,
		result.ResponsivenessError,
	)
	if err != nil {
		return "", fmt.Errorf("insert analysis result: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}
	return pageID, nil
}

// GetWebpage fetches a webpage by id, scoped to its owner.
func (s *WebpageStore) GetWebpage(ctx context.Context, webpageID, userID string) (analysis.Webpage, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, user_id, html_content_id,
	COALESCE(url,''), COALESCE(file_name,''), COALESCE(name,''),
	COALESCE(design_file_id,''), COALESCE(specification_file_id,''),
	upload_date
FROM webpages
WHERE id = $1 AND user_id = $2`, webpageID, userID)

	var page analysis.Webpage
	err := row.Scan(
		&page.ID,
		&page.UserID,
		&page.HTMLContentID,
		&page.URL,
		&page.FileName,
		&page.Name,
		&page.DesignFileID,
		&page.SpecificationFileID,
		&page.UploadDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return analysis.Webpage{}, analysis.ErrWebpageNotFound
	}
	if err != nil {
		return analysis.Webpage{}, fmt.Errorf("select webpage: %w", err)
	}
	return page, nil
}

// GetAnalysisResult fetches the analysis result created with a webpage.
func (s *WebpageStore) GetAnalysisResult(ctx context.Context, webpageID string) (analysis.WebpageAnalysisResult, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, webpage_id, llm_response, audit,
	axe_core_error, nu_validator_error, page_speed_error, llm_error, responsiveness_error
FROM webpage_analysis_results
WHERE webpage_id = $1`, webpageID)

	var (
		result    analysis.WebpageAnalysisResult
		llmJSON   []byte
		auditJSON []byte
	)
	err := row.Scan(
		&result.ID,
		&result.WebpageID,
		&llmJSON,
		&auditJSON,
		&result.AxeCoreError,
		&result.NuValidatorError,
		&result.PageSpeedError,
		&result.LLMError,
		&result.ResponsivenessError,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return analysis.WebpageAnalysisResult{}, analysis.ErrWebpageNotFound
	}
	if err != nil {
		return analysis.WebpageAnalysisResult{}, fmt.Errorf("select analysis result: %w", err)
	}
	if len(llmJSON) > 0 {
		result.LLM = &analysis.LLMResponse{}
		if err := json.Unmarshal(llmJSON, result.LLM); err != nil {
			return analysis.WebpageAnalysisResult{}, fmt.Errorf("decode llm response: %w", err)
		}
	}
	if len(auditJSON) > 0 {
		result.Audit = &analysis.WebAuditResults{}
		if err := json.Unmarshal(auditJSON, result.Audit); err != nil {
			return analysis.WebpageAnalysisResult{}, fmt.Errorf("decode audit bundle: %w", err)
		}
	}
	return result, nil
}

// ListWebpages returns the summaries of all webpages owned by a user,
// newest first.
func (s *WebpageStore) ListWebpages(ctx context.Context, userID string) ([]analysis.WebpageSummary, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, COALESCE(name,''), upload_date, COALESCE(file_name,''), COALESCE(url,'')
FROM webpages
WHERE user_id = $1
ORDER BY upload_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select webpages: %w", err)
	}
	defer rows.Close()

	var summaries []analysis.WebpageSummary
	for rows.Next() {
		var s analysis.WebpageSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.UploadDate, &s.FileName, &s.URL); err != nil {
			return nil, fmt.Errorf("scan webpage summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webpages: %w", err)
	}
	return summaries, nil
}

func marshalNullable(v any) ([]byte, error) {
	switch x := v.(type) {
	case *analysis.LLMResponse:
		if x == nil {
			return nil, nil
		}
	case *analysis.WebAuditResults:
		if x == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
