package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	"stockflow/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses
// of the shape {code, message, details}. Internal causes are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		status, body := renderError(c, err)
		failIdempotency(c, status, body)
		c.JSON(status, body)
	}
}

func renderError(c *gin.Context, err error) (int, gin.H) {
	if appErr, ok := apperror.AsAppError(err); ok {
		if appErr.Err != nil || appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"details", appErr.Details,
				"cause", appErr.Err,
			)
		}

		details := appErr.Details
		if details == nil {
			details = map[string]any{}
		}
		return appErr.HTTPStatus, gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": details,
		}
	}

	logger.Error(c.Request.Context(), "unhandled error", "error", err)

	return http.StatusInternalServerError, gin.H{
		"code":    apperror.CodeInternal,
		"message": "Internal server error",
		"details": map[string]any{
			"requestId": c.GetString("request_id"),
		},
	}
}
