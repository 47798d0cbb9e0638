package v1

import (
	"job-marketplace-backend/config"
	"job-marketplace-backend/internal/delivery/http/middleware"
	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/internal/usecase"
	"job-marketplace-backend/pkg/auth"
	"job-marketplace-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterDeps wires one binary's routes. The write service sets JobUC and the
// search service sets SearchUC.
type RouterDeps struct {
	JobUC         domain.JobUsecase
	SearchUC      domain.SearchUsecase
	HealthUC      usecase.HealthUsecase
	Verifier      *auth.Verifier
	Audit         *security.SecurityLogger
	SearchLimiter *middleware.RateLimiter
	Config        *config.Config
}

func init() {
	// Request bodies are a whitelist: unknown fields are a 400.
	binding.EnableDecoderDisallowUnknownFields = true
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	var origins []string
	if deps.Config != nil {
		origins = deps.Config.CORSAllowedOrigins
	}

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(origins)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())

	v1 := r.Group("/v1")

	// Swagger UI needs its own scripts, so it sits outside the strict headers.
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := v1.Group("")
	api.Use(middleware.SecurityHeadersMiddleware())
	api.GET("/health", healthHandler(deps.HealthUC))

	if deps.JobUC != nil {
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(deps.Verifier, deps.Audit))
		NewJobHandler(api, protected, deps.JobUC)
	}

	if deps.SearchUC != nil {
		var mw []gin.HandlerFunc
		if deps.SearchLimiter != nil {
			mw = append(mw, deps.SearchLimiter.Middleware())
		}
		NewSearchHandler(api, deps.SearchUC, mw...)
	}

	return r
}
