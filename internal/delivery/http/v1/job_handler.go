package v1

import (
	"net/http"
	"strconv"

	"job-marketplace-backend/internal/delivery/http/response"
	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type JobHandler struct {
	jobUC domain.JobUsecase
}

func NewJobHandler(public *gin.RouterGroup, protected *gin.RouterGroup, jobUC domain.JobUsecase) {
	handler := &JobHandler{jobUC: jobUC}

	// Reads are public and never expose CLOSED jobs in the listing.
	publicJobs := public.Group("/jobs")
	{
		publicJobs.GET("", handler.List)
		publicJobs.GET("/:id", handler.GetDetails)
	}

	protectedJobs := protected.Group("/jobs")
	{
		protectedJobs.POST("", handler.Create)
		protectedJobs.PUT("/:id", handler.Update)
		protectedJobs.DELETE("/:id", handler.Delete)
	}

	employers := protected.Group("/employers")
	{
		employers.GET("/jobs", handler.ListByEmployer)
	}
}

// JobList wraps a page of jobs.
type JobList struct {
	Jobs  []domain.Job `json:"jobs"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// CreateJob godoc
// @Summary      Create a new job
// @Description  Create a job posting owned by the authenticated employer
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        job  body      domain.CreateJobInput  true  "Job JSON"
// @Success      201  {object}  response.Response{data=domain.Job}
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Router       /jobs [post]
// @Security     BearerAuth
func (h *JobHandler) Create(c *gin.Context) {
	var req domain.CreateJobInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.Validation("Invalid request body: "+err.Error(), err))
		return
	}

	job, err := h.jobUC.CreateJob(c.Request.Context(), callerID(c), req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "Job created", job)
}

// ListJobs godoc
// @Summary      List open jobs
// @Description  List OPEN jobs, newest first
// @Tags         jobs
// @Produce      json
// @Param        q                query     string  false  "Substring of title or description"
// @Param        jobType          query     string  false  "FULL_TIME, PART_TIME, CONTRACT, INTERNSHIP or FREELANCE"
// @Param        experienceLevel  query     string  false  "ENTRY_LEVEL, MID_LEVEL, SENIOR_LEVEL, LEAD_LEVEL or EXECUTIVE_LEVEL"
// @Param        minSalary        query     int     false  "Matches when minSalary or maxSalary reaches it"
// @Param        page             query     int     false  "Page number (1-based)"
// @Param        limit            query     int     false  "Page size (max 100)"
// @Success      200              {object}  response.Response{data=JobList}
// @Failure      400              {object}  response.Response
// @Router       /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	page, limit, err := pagination(c)
	if err != nil {
		c.Error(err)
		return
	}
	minSalary, err := intQuery(c, "minSalary", 0)
	if err != nil {
		c.Error(err)
		return
	}

	filter := domain.JobFilter{
		Query:           c.Query("q"),
		JobType:         domain.JobType(c.Query("jobType")),
		ExperienceLevel: domain.ExperienceLevel(c.Query("experienceLevel")),
		MinSalary:       minSalary,
		Page:            page,
		Limit:           limit,
	}
	jobs, err := h.jobUC.ListJobs(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	filter.Normalize()
	response.Success(c, http.StatusOK, "Job list", JobList{Jobs: jobs, Page: filter.Page, Limit: filter.Limit})
}

// ListByEmployer godoc
// @Summary      List employer's own jobs
// @Description  List every job owned by the authenticated employer, any status
// @Tags         employers
// @Produce      json
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Page size (max 100)"
// @Success      200    {object}  response.Response{data=JobList}
// @Failure      401    {object}  response.Response
// @Router       /employers/jobs [get]
// @Security     BearerAuth
func (h *JobHandler) ListByEmployer(c *gin.Context) {
	page, limit, err := pagination(c)
	if err != nil {
		c.Error(err)
		return
	}

	jobs, err := h.jobUC.ListJobsByEmployer(c.Request.Context(), callerID(c), page, limit)
	if err != nil {
		c.Error(err)
		return
	}

	f := domain.JobFilter{Page: page, Limit: limit}
	f.Normalize()
	response.Success(c, http.StatusOK, "Employer job list", JobList{Jobs: jobs, Page: f.Page, Limit: f.Limit})
}

// GetJobDetails godoc
// @Summary      Get job details
// @Description  Get a job by id, any status
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  response.Response{data=domain.Job}
// @Failure      404  {object}  response.Response
// @Router       /jobs/{id} [get]
func (h *JobHandler) GetDetails(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	job, err := h.jobUC.GetJob(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Job details", job)
}

// UpdateJob godoc
// @Summary      Update a job
// @Description  Partially update a job. Absent fields are kept, null clears an optional field.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id   path      string           true  "Job ID"
// @Param        job  body      domain.JobPatch  true  "Fields to change"
// @Success      200  {object}  response.Response{data=domain.Job}
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /jobs/{id} [put]
// @Security     BearerAuth
func (h *JobHandler) Update(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	var patch domain.JobPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.Error(apperror.Validation("Invalid request body: "+err.Error(), err))
		return
	}

	job, err := h.jobUC.UpdateJob(c.Request.Context(), callerID(c), id, patch)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Job updated successfully", job)
}

// DeleteJob godoc
// @Summary      Delete a job
// @Description  Permanently delete a job posting
// @Tags         jobs
// @Param        id   path      string  true  "Job ID"
// @Success      204
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /jobs/{id} [delete]
// @Security     BearerAuth
func (h *JobHandler) Delete(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	if err := h.jobUC.DeleteJob(c.Request.Context(), callerID(c), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// callerID is the employer id AuthMiddleware took from the token subject.
func callerID(c *gin.Context) string {
	return c.GetString(string(domain.KeyUserID))
}

// jobID reads the :id path parameter. Ids are UUIDs, so anything else cannot
// name an existing job.
func jobID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.Error(apperror.NotFound("Job with ID " + id + " not found"))
		return "", false
	}
	return id, true
}

func pagination(c *gin.Context) (int, int, error) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	limit, err := intQuery(c, "limit", domain.DefaultPageLimit)
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.BadRequest(name + " must be an integer")
	}
	return n, nil
}
