package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/internal/usecase"
	"job-marketplace-backend/pkg/apperror"
	"job-marketplace-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type jobFixture struct {
	repo      *MockJobRepo
	outbox    *MockOutboxRepo
	publisher *MockPublisher
	audit     *MockAudit
	uc        domain.JobUsecase
}

func newJobFixture(now time.Time) *jobFixture {
	f := &jobFixture{
		repo:      new(MockJobRepo),
		outbox:    new(MockOutboxRepo),
		publisher: new(MockPublisher),
		audit:     new(MockAudit),
	}
	f.uc = usecase.NewJobUsecase(f.repo, f.outbox, f.publisher, validation.New(), f.audit,
		usecase.WithClock(func() time.Time { return now }),
		usecase.WithWriteTimeout(time.Second),
	)
	return f
}

func createInput() domain.CreateJobInput {
	return domain.CreateJobInput{
		Title:           "Backend Engineer",
		Description:     "Build APIs",
		JobType:         domain.JobTypeFullTime,
		ExperienceLevel: domain.ExperienceMid,
		MinSalary:       intPtr(50000),
		MaxSalary:       intPtr(90000),
		RequiredSkills:  []string{"Go"},
	}
}

func TestCreateJob(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	t.Run("Should persist, publish and mark the event", func(t *testing.T) {
		f := newJobFixture(now)
		var saved *domain.Job
		var sent *domain.Event
		f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Job"), mock.AnythingOfType("*domain.Event")).
			Return(nil).Run(func(args mock.Arguments) {
			saved = args.Get(1).(*domain.Job)
			sent = args.Get(2).(*domain.Event)
		})
		f.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.Event")).Return(nil)
		f.outbox.On("MarkPublished", mock.Anything, mock.AnythingOfType("string")).Return(nil)

		job, err := f.uc.CreateJob(context.Background(), "emp-1", createInput())
		require.NoError(t, err)

		assert.NotEmpty(t, job.ID)
		assert.Equal(t, "emp-1", job.EmployerID)
		assert.Equal(t, domain.JobStatusOpen, job.Status)
		assert.Equal(t, now, job.CreatedAt)
		assert.Equal(t, job.CreatedAt, job.UpdatedAt)
		assert.Same(t, job, saved)

		require.NotNil(t, sent)
		assert.Equal(t, domain.EventJobCreated, sent.Type)
		assert.Equal(t, job.ID, sent.JobID)
		assert.Equal(t, job.Title, sent.Job.Title)
		f.outbox.AssertCalled(t, "MarkPublished", mock.Anything, sent.ID)
	})

	t.Run("Should succeed even when the channel is down", func(t *testing.T) {
		f := newJobFixture(now)
		f.repo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(domain.ErrChannelUnavailable)

		job, err := f.uc.CreateJob(context.Background(), "emp-1", createInput())
		require.NoError(t, err)
		assert.NotNil(t, job)
		f.outbox.AssertNotCalled(t, "MarkPublished", mock.Anything, mock.Anything)
	})

	t.Run("Should reject anonymous callers", func(t *testing.T) {
		f := newJobFixture(now)
		_, err := f.uc.CreateJob(context.Background(), "", createInput())
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should reject missing required fields", func(t *testing.T) {
		f := newJobFixture(now)
		in := createInput()
		in.Title = "  "
		_, err := f.uc.CreateJob(context.Background(), "emp-1", in)
		require.ErrorIs(t, err, apperror.ErrValidation)
		assert.Contains(t, err.Error(), "title is required")
	})

	t.Run("Should reject inverted salary range", func(t *testing.T) {
		f := newJobFixture(now)
		in := createInput()
		in.MinSalary = intPtr(100000)
		in.MaxSalary = intPtr(1000)
		_, err := f.uc.CreateJob(context.Background(), "emp-1", in)
		require.ErrorIs(t, err, apperror.ErrValidation)
		assert.Contains(t, err.Error(), "Minimum salary cannot be greater than maximum salary")
	})

	t.Run("Should surface store failures as internal errors", func(t *testing.T) {
		f := newJobFixture(now)
		f.repo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(errBoom)
		_, err := f.uc.CreateJob(context.Background(), "emp-1", createInput())
		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperror.CodeInternal, appErr.ErrorCode)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestGetAndListJobs(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	t.Run("Should map missing job to not found", func(t *testing.T) {
		f := newJobFixture(now)
		f.repo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrNotFound)
		_, err := f.uc.GetJob(context.Background(), "missing")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("Should cap the page size and trim the query", func(t *testing.T) {
		f := newJobFixture(now)
		want := domain.JobFilter{Query: "go", Page: 1, Limit: domain.MaxPageLimit}
		f.repo.On("FetchOpen", mock.Anything, want).Return(nil, nil)

		jobs, err := f.uc.ListJobs(context.Background(), domain.JobFilter{Query: "  go ", Limit: 500})
		require.NoError(t, err)
		assert.NotNil(t, jobs)
		assert.Empty(t, jobs)
	})

	t.Run("Should reject unknown enum filters", func(t *testing.T) {
		f := newJobFixture(now)
		_, err := f.uc.ListJobs(context.Background(), domain.JobFilter{JobType: "GIG"})
		assert.ErrorIs(t, err, apperror.ErrValidation)
		_, err = f.uc.ListJobs(context.Background(), domain.JobFilter{MinSalary: -5})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("Should page the employer listing", func(t *testing.T) {
		f := newJobFixture(now)
		closed := sampleJob("job-2", "emp-1", now)
		closed.Status = domain.JobStatusClosed
		f.repo.On("FetchByEmployer", mock.Anything, "emp-1", 10, 10).Return([]domain.Job{*closed}, nil)

		jobs, err := f.uc.ListJobsByEmployer(context.Background(), "emp-1", 2, 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, domain.JobStatusClosed, jobs[0].Status)
	})
}

func TestUpdateJob(t *testing.T) {
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)

	t.Run("Should merge the patch and emit an update", func(t *testing.T) {
		f := newJobFixture(now)
		current := sampleJob("job-1", "emp-1", created)
		current.Responsibilities = strPtr("On call")
		f.repo.On("GetByID", mock.Anything, "job-1").Return(current, nil)

		var sent *domain.Event
		f.repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Job"), mock.AnythingOfType("*domain.Event")).
			Return(nil).Run(func(args mock.Arguments) { sent = args.Get(2).(*domain.Event) })
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
		f.outbox.On("MarkPublished", mock.Anything, mock.Anything).Return(nil)

		patch := domain.JobPatch{
			Title:            domain.Some("Staff Engineer"),
			Responsibilities: domain.Null[string](),
			Status:           domain.Some(domain.JobStatusClosed),
		}
		job, err := f.uc.UpdateJob(context.Background(), "emp-1", "job-1", patch)
		require.NoError(t, err)

		assert.Equal(t, "Staff Engineer", job.Title)
		assert.Nil(t, job.Responsibilities)
		assert.Equal(t, domain.JobStatusClosed, job.Status)
		assert.Equal(t, "Build APIs", job.Description)
		assert.Equal(t, created, job.CreatedAt)
		assert.Equal(t, now, job.UpdatedAt)
		assert.Equal(t, "Backend Engineer", current.Title, "stored record is not mutated")

		require.NotNil(t, sent)
		assert.Equal(t, domain.EventJobUpdated, sent.Type)
		assert.Equal(t, "Staff Engineer", sent.Job.Title)
	})

	t.Run("Should advance the version when the clock has not moved", func(t *testing.T) {
		f := newJobFixture(created)
		f.repo.On("GetByID", mock.Anything, "job-1").Return(sampleJob("job-1", "emp-1", created), nil)
		f.repo.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
		f.outbox.On("MarkPublished", mock.Anything, mock.Anything).Return(nil)

		job, err := f.uc.UpdateJob(context.Background(), "emp-1", "job-1", domain.JobPatch{Title: domain.Some("Again")})
		require.NoError(t, err)
		assert.Greater(t, domain.DocumentVersion(job.UpdatedAt), domain.DocumentVersion(created))
	})

	t.Run("Should forbid other employers and audit it", func(t *testing.T) {
		f := newJobFixture(now)
		f.repo.On("GetByID", mock.Anything, "job-1").Return(sampleJob("job-1", "emp-1", created), nil)
		f.audit.On("OwnershipViolation", mock.Anything, "update", "job-1", "emp-2").Return()

		_, err := f.uc.UpdateJob(context.Background(), "emp-2", "job-1", domain.JobPatch{Title: domain.Some("Mine now")})
		assert.ErrorIs(t, err, apperror.ErrForbidden)
		f.audit.AssertExpectations(t)
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should report missing jobs before ownership", func(t *testing.T) {
		f := newJobFixture(now)
		f.repo.On("GetByID", mock.Anything, "job-x").Return(nil, domain.ErrNotFound)

		_, err := f.uc.UpdateJob(context.Background(), "emp-2", "job-x", domain.JobPatch{})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("Should reject null on required fields", func(t *testing.T) {
		f := newJobFixture(now)
		f.repo.On("GetByID", mock.Anything, "job-1").Return(sampleJob("job-1", "emp-1", created), nil)

		_, err := f.uc.UpdateJob(context.Background(), "emp-1", "job-1", domain.JobPatch{Title: domain.Null[string]()})
		require.ErrorIs(t, err, apperror.ErrValidation)
		assert.Contains(t, err.Error(), "title cannot be null")
	})

	t.Run("Should validate the merged salary range", func(t *testing.T) {
		f := newJobFixture(now)
		f.repo.On("GetByID", mock.Anything, "job-1").Return(sampleJob("job-1", "emp-1", created), nil)

		_, err := f.uc.UpdateJob(context.Background(), "emp-1", "job-1", domain.JobPatch{MinSalary: domain.Some(95000)})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}

func TestDeleteJob(t *testing.T) {
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	t.Run("Should delete and emit a later-versioned tombstone", func(t *testing.T) {
		f := newJobFixture(created)
		f.repo.On("GetByID", mock.Anything, "job-1").Return(sampleJob("job-1", "emp-1", created), nil)

		var sent *domain.Event
		f.repo.On("Delete", mock.Anything, "job-1", mock.AnythingOfType("*domain.Event")).
			Return(nil).Run(func(args mock.Arguments) { sent = args.Get(2).(*domain.Event) })
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
		f.outbox.On("MarkPublished", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.uc.DeleteJob(context.Background(), "emp-1", "job-1"))
		require.NotNil(t, sent)
		assert.Equal(t, domain.EventJobDeleted, sent.Type)
		assert.Nil(t, sent.Job)
		assert.Equal(t, created.Add(time.Millisecond), sent.OccurredAt)
		f.publisher.AssertNumberOfCalls(t, "Publish", 1)
	})

	t.Run("Should forbid other employers", func(t *testing.T) {
		f := newJobFixture(created)
		f.repo.On("GetByID", mock.Anything, "job-1").Return(sampleJob("job-1", "emp-1", created), nil)
		f.audit.On("OwnershipViolation", mock.Anything, "delete", "job-1", "emp-2").Return()

		err := f.uc.DeleteJob(context.Background(), "emp-2", "job-1")
		assert.ErrorIs(t, err, apperror.ErrForbidden)
		f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should report a concurrent delete as not found", func(t *testing.T) {
		f := newJobFixture(created)
		f.repo.On("GetByID", mock.Anything, "job-1").Return(sampleJob("job-1", "emp-1", created), nil)
		f.repo.On("Delete", mock.Anything, "job-1", mock.Anything).Return(domain.ErrNotFound)

		err := f.uc.DeleteJob(context.Background(), "emp-1", "job-1")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("Should not be interrupted by a cancelled caller once committed", func(t *testing.T) {
		f := newJobFixture(created.Add(time.Minute))
		f.repo.On("GetByID", mock.Anything, "job-1").Return(sampleJob("job-1", "emp-1", created), nil)
		f.repo.On("Delete", mock.Anything, "job-1", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			assert.NoError(t, args.Get(0).(context.Context).Err())
		})
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
		f.outbox.On("MarkPublished", mock.Anything, mock.Anything).Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NoError(t, f.uc.DeleteJob(ctx, "emp-1", "job-1"))
	})
}
