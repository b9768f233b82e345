package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/analysis"
)

type seqIDGen struct {
	ids []string
	n   int
}

func (g *seqIDGen) NewID() (string, error) {
	if g.n >= len(g.ids) {
		return "", errors.New("out of ids")
	}
	id := g.ids[g.n]
	g.n++
	return id, nil
}

func testPage(now time.Time) analysis.Webpage {
	return analysis.Webpage{
		UserID:        "user-1",
		HTMLContentID: "blob-1",
		Name:          "landing page",
		FileName:      "landing.html",
		UploadDate:    now,
	}
}

func TestCreateWebpageAndResult_CommitsBothRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWebpageStoreWithPool(mock, &seqIDGen{ids: []string{"page-1", "result-1"}})
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	page := testPage(now)
	result := analysis.WebpageAnalysisResult{
		LLM:            &analysis.LLMResponse{ExecutiveSummary: "fine"},
		Audit:          &analysis.WebAuditResults{},
		PageSpeedError: true,
	}

	llmJSON, err := json.Marshal(result.LLM)
	require.NoError(t, err)
	auditJSON, err := json.Marshal(result.Audit)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webpages").
		WithArgs(
			"page-1", "user-1", "blob-1",
			nil, "landing.html", "landing page", nil, nil,
			now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO webpage_analysis_results").
		WithArgs(
			"result-1", "page-1", llmJSON, auditJSON,
			false, false, true, false, false,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	id, err := store.CreateWebpageAndResult(context.Background(), page, result)
	require.NoError(t, err)
	require.Equal(t, "page-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWebpageAndResult_NilPayloadsStoredAsNull(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWebpageStoreWithPool(mock, &seqIDGen{ids: []string{"page-1", "result-1"}})
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	// A fully failed analysis keeps the record but with null payloads.
	result := analysis.WebpageAnalysisResult{
		AxeCoreError:        true,
		NuValidatorError:    true,
		PageSpeedError:      true,
		LLMError:            true,
		ResponsivenessError: true,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webpages").
		WithArgs(
			"page-1", "user-1", "blob-1",
			nil, "landing.html", "landing page", nil, nil,
			now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO webpage_analysis_results").
		WithArgs(
			"result-1", "page-1", []byte(nil), []byte(nil),
			true, true, true, true, true,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	_, err = store.CreateWebpageAndResult(context.Background(), testPage(now), result)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWebpageAndResult_RollsBackOnSecondInsertFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWebpageStoreWithPool(mock, &seqIDGen{ids: []string{"page-1", "result-1"}})
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webpages").
		WithArgs(
			"page-1", "user-1", "blob-1",
			nil, "landing.html", "landing page", nil, nil,
			now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO webpage_analysis_results").
		WithArgs(
			"result-1", "page-1", []byte(nil), []byte(nil),
			false, false, false, false, false,
		).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = store.CreateWebpageAndResult(context.Background(), testPage(now), analysis.WebpageAnalysisResult{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert analysis result")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWebpage_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWebpageStoreWithPool(mock, &seqIDGen{})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, user_id, html_content_id").
		WithArgs("page-404", "user-1").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetWebpage(context.Background(), "page-404", "user-1")
	require.ErrorIs(t, err, analysis.ErrWebpageNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWebpage_ScansRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWebpageStoreWithPool(mock, &seqIDGen{})
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rows := pgxmock.NewRows([]string{
		"id", "user_id", "html_content_id", "url", "file_name", "name",
		"design_file_id", "specification_file_id", "upload_date",
	}).AddRow("page-1", "user-1", "blob-1", "", "landing.html", "landing page", "blob-2", "", now)

	mock.ExpectQuery("SELECT id, user_id, html_content_id").
		WithArgs("page-1", "user-1").
		WillReturnRows(rows)

	page, err := store.GetWebpage(context.Background(), "page-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, "page-1", page.ID)
	require.Equal(t, "landing.html", page.FileName)
	require.Equal(t, "blob-2", page.DesignFileID)
	require.Equal(t, now, page.UploadDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAnalysisResult_DecodesPayloads(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWebpageStoreWithPool(mock, &seqIDGen{})
	require.NoError(t, err)

	llmJSON := []byte(`{"Executive Summary":"mostly fine"}`)
	auditJSON := []byte(`{"axeCoreResult":[{"Id":"image-alt","Nodes":null}]}`)
	rows := pgxmock.NewRows([]string{
		"id", "webpage_id", "llm_response", "audit",
		"axe_core_error", "nu_validator_error", "page_speed_error", "llm_error", "responsiveness_error",
	}).AddRow("result-1", "page-1", llmJSON, auditJSON, false, true, false, false, false)

	mock.ExpectQuery("SELECT id, webpage_id, llm_response, audit").
		WithArgs("page-1").
		WillReturnRows(rows)

	result, err := store.GetAnalysisResult(context.Background(), "page-1")
	require.NoError(t, err)
	require.NotNil(t, result.LLM)
	require.Equal(t, "mostly fine", result.LLM.ExecutiveSummary)
	require.NotNil(t, result.Audit)
	require.Len(t, result.Audit.AxeCoreResult, 1)
	require.True(t, result.NuValidatorError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAnalysisResult_NullPayloadsStayNil(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWebpageStoreWithPool(mock, &seqIDGen{})
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{
		"id", "webpage_id", "llm_response", "audit",
		"axe_core_error", "nu_validator_error", "page_speed_error", "llm_error", "responsiveness_error",
	}).AddRow("result-1", "page-1", []byte(nil), []byte(nil), true, true, true, true, true)

	mock.ExpectQuery("SELECT id, webpage_id, llm_response, audit").
		WithArgs("page-1").
		WillReturnRows(rows)

	result, err := store.GetAnalysisResult(context.Background(), "page-1")
	require.NoError(t, err)
	require.Nil(t, result.LLM)
	require.Nil(t, result.Audit)
	require.True(t, result.AxeCoreError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListWebpages_ReturnsSummaries(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWebpageStoreWithPool(mock, &seqIDGen{})
	require.NoError(t, err)

	newer := time.Unix(1700001000, 0).UTC()
	older := time.Unix(1700000000, 0).UTC()
	rows := pgxmock.NewRows([]string{"id", "name", "upload_date", "file_name", "url"}).
		AddRow("page-2", "second", newer, "", "https://example.com").
		AddRow("page-1", "first", older, "landing.html", "")

	mock.ExpectQuery("SELECT id, COALESCE").
		WithArgs("user-1").
		WillReturnRows(rows)

	summaries, err := store.ListWebpages(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "page-2", summaries[0].ID)
	require.Equal(t, "https://example.com", summaries[0].URL)
	require.Equal(t, "landing.html", summaries[1].FileName)
	require.NoError(t, mock.ExpectationsWereMet())
}
