package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/orchestrator"
)

// maxUploadMemory bounds how much of a multipart body stays in memory
// before spilling to temp files.
const maxUploadMemory = 32 << 20

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if err := orchestrator.ValidateEmail(email); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}
	userID, err := s.users.Create(r.Context(), email)
	if errors.Is(err, analysis.ErrEmailTaken) {
		s.writeError(w, http.StatusBadRequest, "Email already exists")
		return
	}
	if err != nil {
		s.logger.Error("create user failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"userId": userID, "email": email})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if err := orchestrator.ValidateEmail(email); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}
	if _, err := s.users.FindByEmail(r.Context(), email); err != nil {
		if errors.Is(err, analysis.ErrUserNotFound) {
			s.writeError(w, http.StatusUnauthorized, "User not registered")
			return
		}
		s.logger.Error("lookup user failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"email": email})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := orchestrator.UploadRequest{
		Name:  r.FormValue("name"),
		Email: r.URL.Query().Get("email"),
		URL:   r.FormValue("url"),
	}

	var err error
	if req.HTMLFile, err = formFile(r, "htmlFile"); err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable htmlFile")
		return
	}
	if req.DesignFile, err = formFile(r, "designFile"); err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable designFile")
		return
	}
	if req.SpecificationFile, err = formFile(r, "specificationFile"); err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable specificationFile")
		return
	}

	webpageID, err := s.orchestrator.Upload(r.Context(), req)
	if err != nil {
		s.writeUploadError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, webpageID)
}

func (s *Server) writeUploadError(w http.ResponseWriter, err error) {
	var vErr *orchestrator.ValidationError
	if errors.As(err, &vErr) {
		s.writeError(w, http.StatusBadRequest, vErr.Reason)
		return
	}
	var rErr *orchestrator.ResolveError
	if errors.As(err, &rErr) {
		s.writeError(w, http.StatusBadRequest, rErr.Error())
		return
	}
	if errors.Is(err, orchestrator.ErrNotRegistered) {
		s.writeError(w, http.StatusUnauthorized, "User not registered")
		return
	}
	s.logger.Error("upload failed", zap.Error(err))
	s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
}

func (s *Server) listWebpages(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authorize(w, r)
	if !ok {
		return
	}
	pages, err := s.pages.ListWebpages(r.Context(), userID)
	if err != nil {
		s.logger.Error("list webpages failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	if pages == nil {
		pages = []analysis.WebpageSummary{}
	}
	s.writeJSON(w, http.StatusOK, pages)
}

type viewWebpageResponse struct {
	HTMLContent string                         `json:"htmlContent"`
	Result      analysis.WebpageAnalysisResult `json:"webpageAnalysisResult"`
}

func (s *Server) viewWebpage(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authorize(w, r)
	if !ok {
		return
	}
	page, ok := s.lookupWebpage(w, r, chi.URLParam(r, "id"), userID)
	if !ok {
		return
	}

	rc, _, err := s.blobs.GetObject(r.Context(), page.HTMLContentID)
	if errors.Is(err, analysis.ErrObjectNotFound) {
		s.writeError(w, http.StatusNotFound, "Webpage or HTML content not found")
		return
	}
	if err != nil {
		s.logger.Error("fetch html content failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	defer rc.Close()
	html, err := io.ReadAll(rc)
	if err != nil {
		s.logger.Error("read html content failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	result, err := s.pages.GetAnalysisResult(r.Context(), page.ID)
	if errors.Is(err, analysis.ErrWebpageNotFound) {
		s.writeError(w, http.StatusNotFound, "Webpage or HTML content not found")
		return
	}
	if err != nil {
		s.logger.Error("fetch analysis result failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, viewWebpageResponse{HTMLContent: string(html), Result: result})
}

func (s *Server) downloadDesignFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authorize(w, r)
	if !ok {
		return
	}
	page, ok := s.lookupWebpage(w, r, chi.URLParam(r, "webpageId"), userID)
	if !ok {
		return
	}
	if page.DesignFileID == "" {
		s.writeError(w, http.StatusNotFound, "No design file")
		return
	}

	rc, name, err := s.blobs.GetObject(r.Context(), page.DesignFileID)
	if errors.Is(err, analysis.ErrObjectNotFound) {
		s.writeError(w, http.StatusNotFound, "No design file")
		return
	}
	if err != nil {
		s.logger.Error("fetch design file failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("stream design file failed", zap.Error(err))
	}
}

func (s *Server) downloadSpecifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authorize(w, r)
	if !ok {
		return
	}
	page, ok := s.lookupWebpage(w, r, chi.URLParam(r, "webpageId"), userID)
	if !ok {
		return
	}
	if page.SpecificationFileID == "" {
		s.writeError(w, http.StatusNotFound, "No specification file")
		return
	}

	rc, name, err := s.blobs.GetObject(r.Context(), page.SpecificationFileID)
	if errors.Is(err, analysis.ErrObjectNotFound) {
		s.writeError(w, http.StatusNotFound, "No specification file")
		return
	}
	if err != nil {
		s.logger.Error("fetch specification file failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		s.logger.Error("read specification file failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	text, err := s.specText.Extract(name, data)
	if err != nil {
		s.logger.Error("extract specification text failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"content": text})
}

// authorize resolves the email query parameter to a user id, writing the
// failure response itself. Every read endpoint is scoped to the caller.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	email := r.URL.Query().Get("email")
	if err := orchestrator.ValidateEmail(email); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid email")
		return "", false
	}
	userID, err := s.users.FindByEmail(r.Context(), email)
	if errors.Is(err, analysis.ErrUserNotFound) {
		s.writeError(w, http.StatusUnauthorized, "User not registered")
		return "", false
	}
	if err != nil {
		s.logger.Error("lookup user failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return "", false
	}
	return userID, true
}

func (s *Server) lookupWebpage(w http.ResponseWriter, r *http.Request, webpageID, userID string) (analysis.Webpage, bool) {
	page, err := s.pages.GetWebpage(r.Context(), webpageID, userID)
	if errors.Is(err, analysis.ErrWebpageNotFound) {
		s.writeError(w, http.StatusNotFound, "Webpage not found")
		return analysis.Webpage{}, false
	}
	if err != nil {
		s.logger.Error("fetch webpage failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return analysis.Webpage{}, false
	}
	return page, true
}

// formFile reads one optional multipart file fully into memory. A missing
// part is not an error.
func formFile(r *http.Request, field string) (*orchestrator.FileUpload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &orchestrator.FileUpload{Name: header.Filename, Size: header.Size, Data: data}, nil
}
