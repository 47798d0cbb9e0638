package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrIndexUnavailable = errors.New("search index unavailable")
	// ErrStaleDocument means the index already holds a newer version.
	ErrStaleDocument = errors.New("stale document version")
)

// SearchDocument is the indexed projection of a Job. It has no lifecycle of
// its own.
type SearchDocument struct {
	ID               string          `json:"id"`
	EmployerID       string          `json:"employerId"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Responsibilities *string         `json:"responsibilities,omitempty"`
	JobType          JobType         `json:"jobType"`
	ExperienceLevel  ExperienceLevel `json:"experienceLevel"`
	MinSalary        *int            `json:"minSalary,omitempty"`
	MaxSalary        *int            `json:"maxSalary,omitempty"`
	RequiredSkills   []string        `json:"requiredSkills"`
	Status           JobStatus       `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func NewSearchDocument(job *Job) SearchDocument {
	c := job.Clone()
	skills := c.RequiredSkills
	if skills == nil {
		skills = []string{}
	}
	return SearchDocument{
		ID:               c.ID,
		EmployerID:       c.EmployerID,
		Title:            c.Title,
		Description:      c.Description,
		Responsibilities: c.Responsibilities,
		JobType:          c.JobType,
		ExperienceLevel:  c.ExperienceLevel,
		MinSalary:        c.MinSalary,
		MaxSalary:        c.MaxSalary,
		RequiredSkills:   skills,
		Status:           c.Status,
		CreatedAt:        c.CreatedAt.UTC(),
		UpdatedAt:        c.UpdatedAt.UTC(),
	}
}

// DocumentVersion orders writes for the same id; later mutations carry a
// higher version.
func DocumentVersion(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// SearchFields are the fields a free-text query matches against.
var SearchFields = []string{"title", "description", "requiredSkills"}

// SearchIndex is the derived document store.
type SearchIndex interface {
	// Upsert replaces the document at doc.ID. ErrStaleDocument is returned
	// when a newer version is already indexed.
	Upsert(ctx context.Context, doc SearchDocument, version int64) error
	// Delete removes the document; a missing document is not an error.
	Delete(ctx context.Context, id string, version int64) error
	Search(ctx context.Context, text string, fields []string, limit int) ([]SearchDocument, error)
	IDs(ctx context.Context) ([]string, error)
}

type IndexerUsecase interface {
	Apply(ctx context.Context, evt Event) error
}

type SearchUsecase interface {
	Search(ctx context.Context, query string, limit int) ([]SearchDocument, error)
}

type ReconcileReport struct {
	Indexed int `json:"indexed"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

type ReconcileUsecase interface {
	Run(ctx context.Context) (ReconcileReport, error)
}
