package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jobtrackr/jobtrackr-api/internal/apperrors"
)

// Every response carries success, a UTC timestamp and a request_id for
// traceability; errors additionally carry a stable code distinct from the
// HTTP status.

func respondSuccess(c *gin.Context, status int, data gin.H) {
	body := gin.H{
		"success":    true,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": uuid.NewString(),
	}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, status int, message string, code apperrors.Code, details gin.H) {
	errBody := gin.H{
		"message": message,
		"code":    code,
	}
	if details != nil {
		errBody["details"] = details
	}
	c.JSON(status, gin.H{
		"success":    false,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": uuid.NewString(),
		"error":      errBody,
	})
}

// httpStatusFor maps stable error codes to HTTP statuses. Handlers surface
// only the AppError message, never the wrapped cause.
func httpStatusFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeDatabaseError, apperrors.CodeInternalError, apperrors.CodeProcessingFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func respondAppError(c *gin.Context, appErr *apperrors.AppError) {
	respondError(c, httpStatusFor(appErr.Code), appErr.Message, appErr.Code, nil)
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"status": "ok"})
}

// RecoveryHandler maps panics escaping any handler to a generic 500
// envelope, keeping internal error text out of responses.
func RecoveryHandler(c *gin.Context, _ any) {
	respondError(c, http.StatusInternalServerError, "Internal server error", apperrors.CodeInternalError, nil)
	c.Abort()
}
