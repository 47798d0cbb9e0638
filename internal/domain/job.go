package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Common domain errors
var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("resource conflict")
)

type JobType string

const (
	JobTypeFullTime   JobType = "FULL_TIME"
	JobTypePartTime   JobType = "PART_TIME"
	JobTypeContract   JobType = "CONTRACT"
	JobTypeInternship JobType = "INTERNSHIP"
	JobTypeFreelance  JobType = "FREELANCE"
)

// JobTypes lists every accepted JobType in display order.
var JobTypes = []JobType{JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship, JobTypeFreelance}

func (t JobType) Valid() bool {
	for _, v := range JobTypes {
		if v == t {
			return true
		}
	}
	return false
}

type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "ENTRY_LEVEL"
	ExperienceMid       ExperienceLevel = "MID_LEVEL"
	ExperienceSenior    ExperienceLevel = "SENIOR_LEVEL"
	ExperienceLead      ExperienceLevel = "LEAD_LEVEL"
	ExperienceExecutive ExperienceLevel = "EXECUTIVE_LEVEL"
)

var ExperienceLevels = []ExperienceLevel{ExperienceEntry, ExperienceMid, ExperienceSenior, ExperienceLead, ExperienceExecutive}

func (l ExperienceLevel) Valid() bool {
	for _, v := range ExperienceLevels {
		if v == l {
			return true
		}
	}
	return false
}

// JobStatus has no forward-only constraint: OPEN and CLOSED may be swapped
// freely by the owner. Deletion removes the row, it is not a status.
type JobStatus string

const (
	JobStatusOpen   JobStatus = "OPEN"
	JobStatusClosed JobStatus = "CLOSED"
)

func (s JobStatus) Valid() bool {
	return s == JobStatusOpen || s == JobStatusClosed
}

// ParseJobStatus converts a raw string to a JobStatus, returning an error
// for unknown values.
func ParseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown job status %q", s)
	}
	return st, nil
}

type Job struct {
	ID               string          `json:"id"`
	EmployerID       string          `json:"employerId"`
	Title            string          `json:"title" validate:"not_blank,max=255"`
	Description      string          `json:"description" validate:"not_blank"`
	Responsibilities *string         `json:"responsibilities,omitempty"`
	JobType          JobType         `json:"jobType" validate:"job_type"`
	ExperienceLevel  ExperienceLevel `json:"experienceLevel" validate:"experience_level"`
	MinSalary        *int            `json:"minSalary,omitempty" validate:"omitempty,min=0"`
	MaxSalary        *int            `json:"maxSalary,omitempty" validate:"omitempty,min=0"`
	RequiredSkills   []string        `json:"requiredSkills"`
	Status           JobStatus       `json:"status" validate:"job_status"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// SalaryRangeValid reports whether the salary bounds are ordered. An absent
// bound never violates the range.
func (j *Job) SalaryRangeValid() bool {
	if j.MinSalary == nil || j.MaxSalary == nil {
		return true
	}
	return *j.MinSalary <= *j.MaxSalary
}

// OwnedBy is the sole authorization predicate for mutations.
func (j *Job) OwnedBy(employerID string) bool {
	return employerID != "" && j.EmployerID == employerID
}

// Clone returns a deep copy so a patch can be merged without touching the
// record read from the store.
func (j *Job) Clone() *Job {
	c := *j
	if j.Responsibilities != nil {
		v := *j.Responsibilities
		c.Responsibilities = &v
	}
	if j.MinSalary != nil {
		v := *j.MinSalary
		c.MinSalary = &v
	}
	if j.MaxSalary != nil {
		v := *j.MaxSalary
		c.MaxSalary = &v
	}
	c.RequiredSkills = append([]string{}, j.RequiredSkills...)
	return &c
}

// CreateJobInput is the validated create request. It has no employer field:
// ownership always comes from the authenticated caller.
type CreateJobInput struct {
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Responsibilities *string         `json:"responsibilities"`
	JobType          JobType         `json:"jobType"`
	ExperienceLevel  ExperienceLevel `json:"experienceLevel"`
	MinSalary        *int            `json:"minSalary"`
	MaxSalary        *int            `json:"maxSalary"`
	RequiredSkills   []string        `json:"requiredSkills"`
	Status           *JobStatus      `json:"status"`
}

// JobFilter drives the public listing.
type JobFilter struct {
	Query           string
	JobType         JobType
	ExperienceLevel ExperienceLevel
	MinSalary       int
	Page            int
	Limit           int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps pagination into the accepted range.
func (f *JobFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
}

func (f JobFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// JobRepository is the Job Store. Every mutation writes its domain event to
// the outbox inside the same transaction.
type JobRepository interface {
	Create(ctx context.Context, job *Job, evt *Event) error
	GetByID(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, job *Job, evt *Event) error
	Delete(ctx context.Context, id string, evt *Event) error
	FetchOpen(ctx context.Context, filter JobFilter) ([]Job, error)
	FetchByEmployer(ctx context.Context, employerID string, limit, offset int) ([]Job, error)
	// FetchAll pages through every job regardless of status, ordered by
	// creation time then id.
	FetchAll(ctx context.Context, limit, offset int) ([]Job, error)
}

type JobUsecase interface {
	CreateJob(ctx context.Context, employerID string, input CreateJobInput) (*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]Job, error)
	ListJobsByEmployer(ctx context.Context, employerID string, page, limit int) ([]Job, error)
	UpdateJob(ctx context.Context, employerID, id string, patch JobPatch) (*Job, error)
	DeleteJob(ctx context.Context, employerID, id string) error
}

// AuditLogger records authorization denials on the write path.
type AuditLogger interface {
	OwnershipViolation(ctx context.Context, action, jobID, callerID string)
}
