package validation

import (
	"errors"
	"fmt"
	"strings"

	"job-marketplace-backend/internal/domain"

	"github.com/go-playground/validator/v10"
)

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

// FormatValidationError joins every message into a single line.
func FormatValidationError(err error) string {
	return strings.Join(FormatValidationErrors(err), "; ")
}

func formatSingleError(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required", "not_blank":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "job_type":
		return fmt.Sprintf("%s must be one of %s", field, joinValues(domain.JobTypes))
	case "experience_level":
		return fmt.Sprintf("%s must be one of %s", field, joinValues(domain.ExperienceLevels))
	case "job_status":
		return fmt.Sprintf("%s must be one of %s", field, joinValues([]domain.JobStatus{domain.JobStatusOpen, domain.JobStatusClosed}))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
