package postgres

import (
	"strings"
	"testing"

	"job-marketplace-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"golang":     "golang",
		"100%":       `100\%`,
		"snake_case": `snake\_case`,
		`C:\temp`:    `C:\\temp`,
		`50%_\`:      `50\%\_\\`,
	}
	for in, want := range cases {
		assert.Equal(t, want, escapeLike(in), in)
	}
}

// whereClause returns the text between WHERE and ORDER BY.
func whereClause(t *testing.T, query string) string {
	t.Helper()
	_, rest, ok := strings.Cut(query, " WHERE ")
	require.True(t, ok, query)
	where, _, ok := strings.Cut(rest, " ORDER BY ")
	require.True(t, ok, query)
	return where
}

func TestOpenJobsQuery(t *testing.T) {
	t.Run("Should list only open jobs without filters", func(t *testing.T) {
		query, args := openJobsQuery(domain.JobFilter{Page: 1, Limit: 20})

		assert.Equal(t, "status = 'OPEN'", whereClause(t, query))
		assert.True(t, strings.HasSuffix(query, "ORDER BY created_at DESC, id LIMIT $1 OFFSET $2"), query)
		assert.Equal(t, []any{20, 0}, args)
	})

	t.Run("Should number placeholders in filter order", func(t *testing.T) {
		query, args := openJobsQuery(domain.JobFilter{
			Query:           "50%_off",
			JobType:         domain.JobTypeFullTime,
			ExperienceLevel: domain.ExperienceMid,
			MinSalary:       50000,
			Page:            3,
			Limit:           10,
		})

		assert.Equal(t,
			"status = 'OPEN'"+
				" AND (title ILIKE $1 OR description ILIKE $1)"+
				" AND job_type = $2"+
				" AND experience_level = $3"+
				" AND (min_salary >= $4 OR max_salary >= $4)",
			whereClause(t, query))
		assert.True(t, strings.HasSuffix(query, "LIMIT $5 OFFSET $6"), query)
		assert.Equal(t, []any{`%50\%\_off%`, "FULL_TIME", "MID_LEVEL", 50000, 10, 20}, args)
	})

	t.Run("Should match either salary bound against the threshold", func(t *testing.T) {
		query, args := openJobsQuery(domain.JobFilter{MinSalary: 45000, Page: 1, Limit: 5})

		assert.Equal(t, "status = 'OPEN' AND (min_salary >= $1 OR max_salary >= $1)", whereClause(t, query))
		assert.Equal(t, []any{45000, 5, 0}, args)
	})

	t.Run("Should skip the salary filter at zero", func(t *testing.T) {
		query, args := openJobsQuery(domain.JobFilter{JobType: domain.JobTypeFullTime, Page: 2, Limit: 5})

		where := whereClause(t, query)
		assert.NotContains(t, where, "salary")
		assert.Equal(t, "status = 'OPEN' AND job_type = $1", where)
		assert.Equal(t, []any{"FULL_TIME", 5, 5}, args)
	})
}
