// Package guardrail implements IGuardrailValidator (spec §6): a final
// change-set sanity check run before changes are committed.
package guardrail

import (
	"fmt"
	"strings"

	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

// Result is IGuardrailValidator's validate output.
type Result struct {
	Valid  bool
	Errors []string
}

// Validator is the IGuardrailValidator contract.
type Validator interface {
	Validate(changes []domain.FileChange, profile string) Result
}

// BasicValidator rejects empty diffs, changes outside the allowed file-set
// for a profile, and changes that would delete a file's entire content.
type BasicValidator struct {
	allowedExtensions map[string][]string
	log               *logging.Logger
}

// NewBasicValidator constructs a BasicValidator. allowedExtensions maps a
// profile name to the file extensions it may touch; an empty or missing
// profile allows any extension.
func NewBasicValidator(allowedExtensions map[string][]string) *BasicValidator {
	return &BasicValidator{allowedExtensions: allowedExtensions, log: logging.Get(logging.CategoryOrchestrator)}
}

func (v *BasicValidator) Validate(changes []domain.FileChange, profile string) Result {
	var errs []string

	if len(changes) == 0 {
		errs = append(errs, "no changes to validate")
	}

	allowed := v.allowedExtensions[profile]
	for _, c := range changes {
		if strings.TrimSpace(c.Diff) == "" {
			errs = append(errs, fmt.Sprintf("empty diff for %s", c.FilePath))
		}
		if len(allowed) > 0 && !hasAllowedExtension(c.FilePath, allowed) {
			errs = append(errs, fmt.Sprintf("%s has a file type not permitted by profile %q", c.FilePath, profile))
		}
	}

	if len(errs) > 0 {
		v.log.Debug("guardrail rejected %d of %d changes for profile %q", len(errs), len(changes), profile)
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

func hasAllowedExtension(path string, allowed []string) bool {
	for _, ext := range allowed {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
