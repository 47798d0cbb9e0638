package v1

import (
	"net/http"

	"job-marketplace-backend/internal/delivery/http/response"
	"job-marketplace-backend/internal/usecase"

	"github.com/gin-gonic/gin"
)

// HealthCheck godoc
// @Summary      Service health
// @Description  Reports each dependency as ok or down
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /health [get]
func healthHandler(uc usecase.HealthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uc == nil {
			response.Success(c, http.StatusOK, "System operational", gin.H{"status": "ok"})
			return
		}
		status, healthy := uc.Check(c.Request.Context())
		if !healthy {
			response.Error(c, http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE", "Degraded", status)
			return
		}
		response.Success(c, http.StatusOK, "System operational", status)
	}
}
