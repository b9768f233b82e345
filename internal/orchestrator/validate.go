package orchestrator

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	maxEmailLength = 100
	maxNameLength  = 100
	maxURLLength   = 2000

	maxHTMLBytes   = 2 << 20 // 2 MiB
	maxSpecBytes   = 2 << 20 // 2 MiB
	maxDesignBytes = 5 << 20 // 5 MiB
)

var specExtensions = map[string]bool{
	".txt": true,
	".pdf": true,
}

var designExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".svg":  true,
}

var validate = validator.New()

// ValidateEmail checks an email address the same way the upload path
// does, so every endpoint rejects the same inputs.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=100"); err != nil {
		return &ValidationError{Reason: "Invalid email"}
	}
	return nil
}

// validateRequest enforces the upload's shape checks in order, each with
// its own rejection reason, before any side effect happens.
func validateRequest(req UploadRequest) error {
	if err := validate.Var(req.Email, "required,email,max=100"); err != nil {
		return &ValidationError{Reason: "Invalid email"}
	}
	if err := validate.Var(req.Name, "required,max=100"); err != nil {
		return &ValidationError{Reason: "Invalid name"}
	}
	if len(req.URL) > maxURLLength {
		return &ValidationError{Reason: "URL too long"}
	}

	hasHTML := req.HTMLFile != nil
	hasURL := req.URL != ""
	if !hasHTML && !hasURL {
		return &ValidationError{Reason: "HTML or URL required"}
	}
	if hasHTML && hasURL {
		return &ValidationError{Reason: "Provide either an HTML file or a URL, not both"}
	}

	if hasHTML {
		if ext(req.HTMLFile.Name) != ".html" {
			return &ValidationError{Reason: "HTML file must have a .html extension"}
		}
		if req.HTMLFile.Size > maxHTMLBytes {
			return &ValidationError{Reason: "HTML file exceeds 2 MB"}
		}
		if len(req.HTMLFile.Data) == 0 {
			return &ValidationError{Reason: "HTML file is empty"}
		}
	}
	if req.SpecificationFile != nil {
		if !specExtensions[ext(req.SpecificationFile.Name)] {
			return &ValidationError{Reason: "Specification file must be .txt or .pdf"}
		}
		if req.SpecificationFile.Size > maxSpecBytes {
			return &ValidationError{Reason: "Specification file exceeds 2 MB"}
		}
	}
	if req.DesignFile != nil {
		if !designExtensions[ext(req.DesignFile.Name)] {
			return &ValidationError{Reason: "Design file must be an image"}
		}
		if req.DesignFile.Size > maxDesignBytes {
			return &ValidationError{Reason: "Design file exceeds 5 MB"}
		}
	}
	return nil
}

func ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
