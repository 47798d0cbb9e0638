package middleware

import (
	"strings"

	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/pkg/apperror"
	"job-marketplace-backend/pkg/auth"
	"job-marketplace-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a valid bearer token (header or auth_token cookie)
// and exposes its subject as the caller's employer id.
func AuthMiddleware(verifier *auth.Verifier, audit *security.SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string
		if header := c.GetHeader("Authorization"); header != "" {
			tokenString = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		} else if cookie, err := c.Cookie("auth_token"); err == nil {
			tokenString = cookie
		}

		if tokenString == "" {
			c.Error(apperror.Unauthorized("Authorization header or auth_token cookie required"))
			c.Abort()
			return
		}

		identity, err := verifier.Verify(tokenString)
		if err != nil {
			if audit != nil {
				audit.LogInvalidToken(c.Request.Context(), c.ClientIP(), err.Error())
			}
			c.Error(apperror.Unauthorized("Invalid token"))
			c.Abort()
			return
		}

		c.Set(string(domain.KeyUserID), identity.Subject)
		c.Set(string(domain.KeyUserEmail), identity.Email)

		c.Next()
	}
}
