package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"job-marketplace-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const jobColumns = `id, employer_id, title, description, responsibilities, job_type, experience_level,
	min_salary, max_salary, required_skills, status, created_at, updated_at`

type jobRepo struct {
	db *pgxpool.Pool
}

func NewJobRepository(db *pgxpool.Pool) domain.JobRepository {
	return &jobRepo{db: db}
}

// Create inserts the job and its outbox record in one transaction.
func (r *jobRepo) Create(ctx context.Context, job *domain.Job, evt *domain.Event) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `INSERT INTO jobs (` + jobColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
		_, err := tx.Exec(ctx, query,
			job.ID, job.EmployerID, job.Title, job.Description, job.Responsibilities,
			string(job.JobType), string(job.ExperienceLevel), job.MinSalary, job.MaxSalary,
			pq.Array(job.RequiredSkills), string(job.Status), job.CreatedAt, job.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		return insertOutbox(ctx, tx, evt)
	})
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// Update replaces every mutable column. Last write wins: no version column
// is checked.
func (r *jobRepo) Update(ctx context.Context, job *domain.Job, evt *domain.Event) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `UPDATE jobs SET
			title = $2,
			description = $3,
			responsibilities = $4,
			job_type = $5,
			experience_level = $6,
			min_salary = $7,
			max_salary = $8,
			required_skills = $9,
			status = $10,
			updated_at = $11
		WHERE id = $1`
		result, err := tx.Exec(ctx, query,
			job.ID, job.Title, job.Description, job.Responsibilities,
			string(job.JobType), string(job.ExperienceLevel), job.MinSalary, job.MaxSalary,
			pq.Array(job.RequiredSkills), string(job.Status), job.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		if result.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return insertOutbox(ctx, tx, evt)
	})
}

// Delete is a hard delete; only the outbox record survives it.
func (r *jobRepo) Delete(ctx context.Context, id string, evt *domain.Event) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		if result.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return insertOutbox(ctx, tx, evt)
	})
}

// FetchOpen lists OPEN jobs only. The status predicate is hardcoded so no
// caller can widen the public listing.
func (r *jobRepo) FetchOpen(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	query, args := openJobsQuery(filter)
	return r.fetch(ctx, query, args...)
}

// openJobsQuery builds the public listing query. Only OPEN jobs are listed.
func openJobsQuery(filter domain.JobFilter) (string, []any) {
	where := []string{"status = 'OPEN'"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Query != "" {
		p := arg("%" + escapeLike(filter.Query) + "%")
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}
	if filter.JobType != "" {
		where = append(where, "job_type = "+arg(string(filter.JobType)))
	}
	if filter.ExperienceLevel != "" {
		where = append(where, "experience_level = "+arg(string(filter.ExperienceLevel)))
	}
	if filter.MinSalary > 0 {
		p := arg(filter.MinSalary)
		where = append(where, "(min_salary >= "+p+" OR max_salary >= "+p+")")
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(filter.Offset())
	return query, args
}

func (r *jobRepo) FetchByEmployer(ctx context.Context, employerID string, limit, offset int) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE employer_id = $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	return r.fetch(ctx, query, employerID, limit, offset)
}

func (r *jobRepo) FetchAll(ctx context.Context, limit, offset int) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at, id LIMIT $1 OFFSET $2`
	return r.fetch(ctx, query, limit, offset)
}

func (r *jobRepo) fetch(ctx context.Context, query string, args ...any) ([]domain.Job, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job                    domain.Job
		jobType, level, status string
		skills                 []string
	)
	err := row.Scan(
		&job.ID, &job.EmployerID, &job.Title, &job.Description, &job.Responsibilities,
		&jobType, &level, &job.MinSalary, &job.MaxSalary, pq.Array(&skills), &status,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.JobType = domain.JobType(jobType)
	job.ExperienceLevel = domain.ExperienceLevel(level)
	job.Status = domain.JobStatus(status)
	if skills == nil {
		skills = []string{}
	}
	job.RequiredSkills = skills
	return &job, nil
}

// escapeLike makes % and _ in user input match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
