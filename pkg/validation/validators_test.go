package validation_test

import (
	"testing"

	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validJob() *domain.Job {
	return &domain.Job{
		Title:           "Backend Engineer",
		Description:     "Build APIs",
		JobType:         domain.JobTypeFullTime,
		ExperienceLevel: domain.ExperienceMid,
		Status:          domain.JobStatusOpen,
	}
}

func TestJobValidation(t *testing.T) {
	v := validation.New()

	t.Run("Should accept a complete job", func(t *testing.T) {
		assert.NoError(t, v.Struct(validJob()))
	})

	t.Run("Should reject whitespace-only title", func(t *testing.T) {
		job := validJob()
		job.Title = "   "
		err := v.Struct(job)
		require.Error(t, err)
		assert.Contains(t, validation.FormatValidationError(err), "title is required")
	})

	t.Run("Should reject unknown enum values", func(t *testing.T) {
		job := validJob()
		job.JobType = "GIG"
		job.ExperienceLevel = "WIZARD"
		job.Status = "ARCHIVED"
		msgs := validation.FormatValidationErrors(v.Struct(job))
		assert.Len(t, msgs, 3)
		assert.Contains(t, msgs[0], "jobType must be one of FULL_TIME")
	})

	t.Run("Should reject negative salary", func(t *testing.T) {
		job := validJob()
		neg := -1
		job.MinSalary = &neg
		err := v.Struct(job)
		require.Error(t, err)
		assert.Contains(t, validation.FormatValidationError(err), "minSalary must be at least 0")
	})
}
