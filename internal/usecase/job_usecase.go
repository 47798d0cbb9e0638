package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/pkg/apperror"
	"job-marketplace-backend/pkg/logger"
	"job-marketplace-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const defaultWriteTimeout = 10 * time.Second

type jobUsecase struct {
	jobRepo      domain.JobRepository
	outboxRepo   domain.OutboxRepository
	publisher    domain.EventPublisher
	validate     *validator.Validate
	audit        domain.AuditLogger
	writeTimeout time.Duration
	now          func() time.Time
}

type JobUsecaseOption func(*jobUsecase)

// WithWriteTimeout bounds a store commit once it has started.
func WithWriteTimeout(d time.Duration) JobUsecaseOption {
	return func(u *jobUsecase) {
		if d > 0 {
			u.writeTimeout = d
		}
	}
}

func WithClock(now func() time.Time) JobUsecaseOption {
	return func(u *jobUsecase) { u.now = now }
}

func NewJobUsecase(
	jobRepo domain.JobRepository,
	outboxRepo domain.OutboxRepository,
	publisher domain.EventPublisher,
	validate *validator.Validate,
	audit domain.AuditLogger,
	opts ...JobUsecaseOption,
) domain.JobUsecase {
	u := &jobUsecase{
		jobRepo:      jobRepo,
		outboxRepo:   outboxRepo,
		publisher:    publisher,
		validate:     validate,
		audit:        audit,
		writeTimeout: defaultWriteTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *jobUsecase) CreateJob(ctx context.Context, employerID string, input domain.CreateJobInput) (*domain.Job, error) {
	if employerID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}

	status := domain.JobStatusOpen
	if input.Status != nil {
		status = *input.Status
	}
	skills := input.RequiredSkills
	if skills == nil {
		skills = []string{}
	}

	now := u.now().UTC()
	job := &domain.Job{
		ID:               uuid.NewString(),
		EmployerID:       employerID,
		Title:            input.Title,
		Description:      input.Description,
		Responsibilities: input.Responsibilities,
		JobType:          input.JobType,
		ExperienceLevel:  input.ExperienceLevel,
		MinSalary:        input.MinSalary,
		MaxSalary:        input.MaxSalary,
		RequiredSkills:   append([]string{}, skills...),
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := u.validateJob(job); err != nil {
		return nil, err
	}

	evt := domain.NewJobCreated(job)
	if err := u.commit(ctx, func(wctx context.Context) error {
		return u.jobRepo.Create(wctx, job, evt)
	}); err != nil {
		return nil, err
	}

	u.emit(ctx, evt)
	return job, nil
}

func (u *jobUsecase) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	job, err := u.jobRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("Job with ID " + id + " not found")
		}
		return nil, apperror.Internal(err)
	}
	return job, nil
}

// ListJobs returns only OPEN jobs.
func (u *jobUsecase) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	if filter.JobType != "" && !filter.JobType.Valid() {
		return nil, apperror.BadRequest("jobType must be one of " + joinEnum(domain.JobTypes))
	}
	if filter.ExperienceLevel != "" && !filter.ExperienceLevel.Valid() {
		return nil, apperror.BadRequest("experienceLevel must be one of " + joinEnum(domain.ExperienceLevels))
	}
	if filter.MinSalary < 0 {
		return nil, apperror.BadRequest("minSalary must be at least 0")
	}
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Normalize()

	jobs, err := u.jobRepo.FetchOpen(ctx, filter)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	return jobs, nil
}

// ListJobsByEmployer returns every job owned by the caller regardless of status.
func (u *jobUsecase) ListJobsByEmployer(ctx context.Context, employerID string, page, limit int) ([]domain.Job, error) {
	if employerID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}
	f := domain.JobFilter{Page: page, Limit: limit}
	f.Normalize()

	jobs, err := u.jobRepo.FetchByEmployer(ctx, employerID, f.Limit, f.Offset())
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	return jobs, nil
}

func (u *jobUsecase) UpdateJob(ctx context.Context, employerID, id string, patch domain.JobPatch) (*domain.Job, error) {
	current, err := u.loadOwned(ctx, "update", employerID, id)
	if err != nil {
		return nil, err
	}

	merged, err := patch.ApplyTo(current)
	if err != nil {
		return nil, apperror.Validation(err.Error(), err)
	}
	merged.UpdatedAt = laterThan(u.now().UTC(), current.UpdatedAt)

	if err := u.validateJob(merged); err != nil {
		return nil, err
	}

	evt := domain.NewJobUpdated(merged)
	if err := u.commit(ctx, func(wctx context.Context) error {
		return u.jobRepo.Update(wctx, merged, evt)
	}); err != nil {
		return nil, err
	}

	u.emit(ctx, evt)
	return merged, nil
}

// DeleteJob commits the delete and its outbox record first, then emits.
func (u *jobUsecase) DeleteJob(ctx context.Context, employerID, id string) error {
	current, err := u.loadOwned(ctx, "delete", employerID, id)
	if err != nil {
		return err
	}

	evt := domain.NewJobDeleted(id, laterThan(u.now().UTC(), current.UpdatedAt))
	if err := u.commit(ctx, func(wctx context.Context) error {
		return u.jobRepo.Delete(wctx, id, evt)
	}); err != nil {
		return err
	}

	u.emit(ctx, evt)
	return nil
}

// loadOwned reads the freshest record and applies the ownership predicate.
// Not-found and forbidden stay distinguishable.
func (u *jobUsecase) loadOwned(ctx context.Context, action, employerID, id string) (*domain.Job, error) {
	if employerID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}
	job, err := u.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.OwnedBy(employerID) {
		if u.audit != nil {
			u.audit.OwnershipViolation(ctx, action, id, employerID)
		}
		return nil, apperror.Forbidden("You can only " + action + " jobs that you have created")
	}
	return job, nil
}

func (u *jobUsecase) validateJob(job *domain.Job) error {
	if err := u.validate.Struct(job); err != nil {
		return apperror.Validation(validation.FormatValidationError(err), err)
	}
	if !job.SalaryRangeValid() {
		return apperror.BadRequest("Minimum salary cannot be greater than maximum salary")
	}
	return nil
}

// commit runs a store mutation detached from the caller's cancellation so an
// abandoned request cannot interrupt a commit that has started.
func (u *jobUsecase) commit(ctx context.Context, write func(context.Context) error) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.writeTimeout)
	defer cancel()

	if err := write(wctx); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperror.NotFound("Job not found")
		}
		return apperror.Internal(err)
	}
	return nil
}

// emit publishes a committed event. Failure never rolls back the write: the
// outbox row stays pending and the relay retries it.
func (u *jobUsecase) emit(ctx context.Context, evt *domain.Event) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.writeTimeout)
	defer cancel()

	if err := u.publisher.Publish(pctx, evt); err != nil {
		appErr := apperror.ChannelUnavailable(err)
		logger.Log.Warn("Event publish failed, left for outbox relay",
			"event_id", evt.ID, "type", evt.Type, "job_id", evt.JobID, "code", appErr.ErrorCode, "error", err)
		return
	}
	if u.outboxRepo == nil {
		return
	}
	if err := u.outboxRepo.MarkPublished(pctx, evt.ID); err != nil {
		// The relay will publish it again; consumers are idempotent.
		logger.Log.Warn("Failed to mark outbox event published", "event_id", evt.ID, "error", err)
	}
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// laterThan returns now, or the first millisecond after prev when the clock
// has not moved past it. Index versions are millisecond based and must grow
// with every mutation of a job.
func laterThan(now, prev time.Time) time.Time {
	if domain.DocumentVersion(now) > domain.DocumentVersion(prev) {
		return now
	}
	return prev.Truncate(time.Millisecond).Add(time.Millisecond)
}
