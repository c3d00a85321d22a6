package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"secureshare/models"
)

// Context keys set by the auth middleware.
const (
	ContextPrincipalKey = "principal"
	ContextUserIDKey    = "user_id"
)

// SuccessResponse sends a successful API response
func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// CreatedResponse sends a 201 created response
func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// ErrorResponse sends an error API response using the HTTP status text as code
func ErrorResponse(c *gin.Context, statusCode int, message string, details map[string]interface{}) {
	CodedErrorResponse(c, statusCode, http.StatusText(statusCode), message, details)
}

// CodedErrorResponse sends an error API response with a machine readable code
func CodedErrorResponse(c *gin.Context, statusCode int, code, message string, details map[string]interface{}) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	})
}

// ValidationErrorResponse sends a validation error response
func ValidationErrorResponse(c *gin.Context, field, reason string) {
	details := map[string]interface{}{}
	if field != "" {
		details["field"] = field
	}
	CodedErrorResponse(c, http.StatusBadRequest, "validation_error", reason, details)
}

// UnauthorizedResponse sends an unauthorized response
func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized access"
	}
	ErrorResponse(c, http.StatusUnauthorized, message, nil)
}

// ForbiddenResponse sends a forbidden response
func ForbiddenResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Access forbidden"
	}
	ErrorResponse(c, http.StatusForbidden, message, nil)
}

// NotFoundResponse sends a not found response
func NotFoundResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	CodedErrorResponse(c, http.StatusNotFound, "not_found", message, nil)
}

// InternalServerErrorResponse sends an internal server error response
func InternalServerErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	ErrorResponse(c, http.StatusInternalServerError, message, nil)
}

// ServiceUnavailableResponse reports a transient backend failure
func ServiceUnavailableResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Storage temporarily unavailable"
	}
	ErrorResponse(c, http.StatusServiceUnavailable, message, nil)
}

// TooManyRequestsResponse sends a rate limit exceeded response
func TooManyRequestsResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Rate limit exceeded"
	}
	ErrorResponse(c, http.StatusTooManyRequests, message, nil)
}

// GetPrincipalFromContext gets the authenticated principal from gin context
func GetPrincipalFromContext(c *gin.Context) (*models.Principal, bool) {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return nil, false
	}
	principal, ok := value.(*models.Principal)
	return principal, ok && principal != nil
}

// SetPrincipalInContext sets the principal in gin context
func SetPrincipalInContext(c *gin.Context, principal *models.Principal) {
	c.Set(ContextPrincipalKey, principal)
	c.Set(ContextUserIDKey, principal.ID)
}
