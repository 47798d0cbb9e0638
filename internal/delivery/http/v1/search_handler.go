package v1

import (
	"net/http"

	"job-marketplace-backend/internal/delivery/http/response"
	"job-marketplace-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	searchUC domain.SearchUsecase
}

func NewSearchHandler(group *gin.RouterGroup, searchUC domain.SearchUsecase, mw ...gin.HandlerFunc) {
	handler := &SearchHandler{searchUC: searchUC}
	group.GET("/search", append(mw, handler.Search)...)
}

// SearchResult wraps the ranked hits of a full-text query.
type SearchResult struct {
	Query   string                  `json:"query"`
	Results []domain.SearchDocument `json:"results"`
}

// SearchJobs godoc
// @Summary      Full-text job search
// @Description  Match the query against title, description and required skills. Results are relevance ordered; an empty query returns no results.
// @Tags         search
// @Produce      json
// @Param        q      query     string  false  "Search text"
// @Param        limit  query     int     false  "Maximum hits (default 20, max 100)"
// @Success      200    {object}  response.Response{data=SearchResult}
// @Failure      400    {object}  response.Response
// @Failure      429    {object}  response.Response
// @Failure      502    {object}  response.Response
// @Router       /search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	limit, err := intQuery(c, "limit", domain.DefaultPageLimit)
	if err != nil {
		c.Error(err)
		return
	}

	query := c.Query("q")
	docs, err := h.searchUC.Search(c.Request.Context(), query, limit)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Search results", SearchResult{Query: query, Results: docs})
}
