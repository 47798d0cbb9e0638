package middleware

import (
	"errors"
	"net/http"

	"job-marketplace-backend/internal/delivery/http/response"
	"job-marketplace-backend/pkg/apperror"
	"job-marketplace-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code < http.StatusInternalServerError {
			response.Error(c, appErr.Code, appErr.ErrorCode, appErr.Message, nil)
			return
		}

		// Never expose internal error details to clients.
		logger.Log.Error("Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", c.GetString(requestIDKey),
			"error", err)

		if appErr != nil {
			response.Error(c, appErr.Code, appErr.ErrorCode, appErr.Message, nil)
			return
		}
		response.Error(c, http.StatusInternalServerError, apperror.CodeInternal,
			"An unexpected error occurred. Please try again later.", nil)
	}
}
