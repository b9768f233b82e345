package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/clock/system"
	"github.com/pagelens/pagelens/internal/id/uuid"
	"github.com/pagelens/pagelens/internal/orchestrator"
	memorypublisher "github.com/pagelens/pagelens/internal/publisher/memory"
	"github.com/pagelens/pagelens/internal/spectext"
	memoryStorage "github.com/pagelens/pagelens/internal/storage/memory"
)

type stubAxe struct{}

func (stubAxe) Analyze(_ context.Context, _ analysis.AnalyzerInput) (analysis.AxeCoreResponse, error) {
	return analysis.AxeCoreResponse{
		Violations: []analysis.AxeCoreViolation{{ID: "image-alt"}},
	}, nil
}

type stubPageSpeed struct{}

func (stubPageSpeed) Analyze(_ context.Context, _ string) (analysis.PageSpeedResponse, error) {
	return analysis.PageSpeedResponse{}, nil
}

type stubNu struct{}

func (stubNu) Validate(_ context.Context, _ analysis.AnalyzerInput) ([]analysis.NuValidatorMessage, error) {
	return []analysis.NuValidatorMessage{{Type: "info", Message: "ok"}}, nil
}

type stubLLM struct{}

func (stubLLM) Review(_ context.Context, _ analysis.LLMRequest) (analysis.LLMResponse, error) {
	return analysis.LLMResponse{ExecutiveSummary: "solid page"}, nil
}

type stubResolver struct{}

func (stubResolver) Fetch(_ context.Context, _ string) (string, error) {
	return "", errors.New("no network in tests")
}

type testEnv struct {
	srv   *Server
	users *memoryStorage.UserStore
	pages *memoryStorage.WebpageStore
	blobs *memoryStorage.BlobStore
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	idGen := uuid.New()
	users := memoryStorage.NewUserStore(idGen)
	pages := memoryStorage.NewWebpageStore(idGen)
	blobs := memoryStorage.NewBlobStore(idGen)
	specText := spectext.New()

	orch := orchestrator.New(orchestrator.Deps{
		Users:         users,
		Blobs:         blobs,
		Pages:         pages,
		Resolver:      stubResolver{},
		SpecText:      specText,
		Accessibility: stubAxe{},
		Performance:   stubPageSpeed{},
		Markup:        stubNu{},
		Reviewer:      stubLLM{},
		Publisher:     memorypublisher.New(),
		Clock:         system.New(),
	}, orchestrator.Config{Topic: "analysis-completed"}, zap.NewNop())

	srv := NewServer(orch, users, pages, blobs, specText, zap.NewNop())
	return testEnv{srv: srv, users: users, pages: pages, blobs: blobs}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestEnv(t).srv
}

func signUp(t *testing.T, s *Server, email string) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/signup?email="+email, nil)
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

type uploadPart struct {
	field, filename string
	data            []byte
}

func multipartUpload(t *testing.T, email, name, url string, files ...uploadPart) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("name", name))
	if url != "" {
		require.NoError(t, w.WriteField("url", url))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload?email="+email, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func uploadPage(t *testing.T, s *Server, email string, files ...uploadPart) string {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, multipartUpload(t, email, "test page", "", files...))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var id string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &id))
	require.NotEmpty(t, id)
	return id
}

func TestSignupAndLogin(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	signUp(t, s, "new@example.com")

	// Duplicate signup is rejected.
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signup?email=new@example.com", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Email already exists")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login?email=new@example.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "new@example.com")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login?email=ghost@example.com", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignup_InvalidEmail(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signup?email=not-an-email", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid email")
}

func TestUpload_ThenListAndView(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	signUp(t, s, "owner@example.com")

	id := uploadPage(t, s, "owner@example.com",
		uploadPart{field: "htmlFile", filename: "page.html", data: []byte("<html><body>hi</body></html>")})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list-webpages?email=owner@example.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []analysis.WebpageSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	require.Equal(t, id, summaries[0].ID)
	require.Equal(t, "page.html", summaries[0].FileName)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/view-webpage/%s?email=owner@example.com", id), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		HTMLContent string                         `json:"htmlContent"`
		Result      analysis.WebpageAnalysisResult `json:"webpageAnalysisResult"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "<html><body>hi</body></html>", view.HTMLContent)
	require.NotNil(t, view.Result.LLM)
	require.Equal(t, "solid page", view.Result.LLM.ExecutiveSummary)
	require.NotNil(t, view.Result.Audit)
	require.Len(t, view.Result.Audit.AxeCoreResult, 1)
}

func TestUpload_ValidationFailure(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	signUp(t, s, "owner@example.com")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, multipartUpload(t, "owner@example.com", "test page", ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "HTML or URL required")

	// Nothing was persisted for the rejected upload.
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list-webpages?email=owner@example.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestUpload_UnregisteredEmail(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, multipartUpload(t, "ghost@example.com", "test page", "",
		uploadPart{field: "htmlFile", filename: "page.html", data: []byte("<html></html>")}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestViewWebpage_OtherUsersPageIsHidden(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	signUp(t, s, "owner@example.com")
	signUp(t, s, "other@example.com")

	id := uploadPage(t, s, "owner@example.com",
		uploadPart{field: "htmlFile", filename: "page.html", data: []byte("<html></html>")})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/view-webpage/%s?email=other@example.com", id), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewWebpage_MissingHTMLContentIs404(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	userID, err := env.users.Create(context.Background(), "owner@example.com")
	require.NoError(t, err)

	// A page whose HTML blob was never written (or has been purged) must
	// read as gone, not as a server fault.
	id, err := env.pages.CreateWebpageAndResult(context.Background(),
		analysis.Webpage{UserID: userID, Name: "test page", HTMLContentID: "purged-blob"},
		analysis.WebpageAnalysisResult{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/view-webpage/%s?email=owner@example.com", id), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Webpage or HTML content not found")
}

func TestDownloadDesignFile(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	signUp(t, s, "owner@example.com")

	design := []byte{0x89, 0x50, 0x4e, 0x47}
	id := uploadPage(t, s, "owner@example.com",
		uploadPart{field: "htmlFile", filename: "page.html", data: []byte("<html></html>")},
		uploadPart{field: "designFile", filename: "mock.png", data: design})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/download-designfile/%s?email=owner@example.com", id), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Equal(t, design, body)
}

func TestDownloadDesignFile_NoneAttached(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	signUp(t, s, "owner@example.com")

	id := uploadPage(t, s, "owner@example.com",
		uploadPart{field: "htmlFile", filename: "page.html", data: []byte("<html></html>")})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/download-designfile/%s?email=owner@example.com", id), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadSpecifications(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	signUp(t, s, "owner@example.com")

	id := uploadPage(t, s, "owner@example.com",
		uploadPart{field: "htmlFile", filename: "page.html", data: []byte("<html></html>")},
		uploadPart{field: "specificationFile", filename: "spec.txt", data: []byte("the page must greet")})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/download-specifications/%s?email=owner@example.com", id), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "the page must greet", resp["content"])
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "https://ui.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}
