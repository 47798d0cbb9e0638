package validation

import (
	"reflect"
	"strings"

	"job-marketplace-backend/internal/domain"

	"github.com/go-playground/validator/v10"
)

// New returns a validator with the job rules registered and JSON field
// names used in error messages.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("not_blank", NotBlank)
	_ = v.RegisterValidation("job_type", ValidJobType)
	_ = v.RegisterValidation("experience_level", ValidExperienceLevel)
	_ = v.RegisterValidation("job_status", ValidJobStatus)
}

// NotBlank rejects empty and whitespace-only strings.
func NotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func ValidJobType(fl validator.FieldLevel) bool {
	return domain.JobType(fl.Field().String()).Valid()
}

func ValidExperienceLevel(fl validator.FieldLevel) bool {
	return domain.ExperienceLevel(fl.Field().String()).Valid()
}

func ValidJobStatus(fl validator.FieldLevel) bool {
	return domain.JobStatus(fl.Field().String()).Valid()
}
