package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/edgesoc/ids2-supervisor/internal/apperrors"
)

// singleton validator instance, following the same pattern used for
// request validation elsewhere in the codebase: build it once, reuse it
// for every Validate call.
var (
	configValidator    *validator.Validate
	configValidateOnce sync.Once
)

func getValidator() *validator.Validate {
	configValidateOnce.Do(func() {
		configValidator = validator.New(validator.WithRequiredStructEnabled())
		configValidator.RegisterStructValidation(validateGitBranchRequiredForSnapshots, Config{})
	})
	return configValidator
}

// validateGitBranchRequiredForSnapshots enforces the one invariant that
// spans two otherwise-unrelated sections (Features and Git) and so cannot
// be expressed as a single struct tag.
func validateGitBranchRequiredForSnapshots(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if c.Features.VersionedSnapshots && c.Git.RequiredBranch == "" {
		sl.ReportError(c.Git.RequiredBranch, "Git.RequiredBranch", "RequiredBranch", "required_if_versioned_snapshots", "")
	}
}

// Validate checks invariants that Load cannot express through koanf
// unmarshaling alone: threshold ordering, percentage ranges, and required
// identifiers, via the same go-playground/validator struct-tag approach
// used for request validation. It is also re-run by Update before any
// Control API config patch is persisted.
func (c *Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid, err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, translateFieldError(fe))
	}
	return fmt.Errorf("%w: %s", apperrors.ErrConfigInvalid, strings.Join(messages, "; "))
}

// translateFieldError turns one validator.FieldError into the same kind of
// human-readable sentence the hand-written checks used to produce.
func translateFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s, got %v", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s, got %v", field, fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", field, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s, got %v", field, fe.Param(), fe.Value())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "required_if_versioned_snapshots":
		return "git.required_branch is required when versioned_snapshots is enabled"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
