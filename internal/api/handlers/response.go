package handlers

import (
	"errors"
	"net/http"

	"academic-scheduler/internal/auth"
	domain "academic-scheduler/internal/domain/scheduling"
	"academic-scheduler/internal/service"
	"academic-scheduler/pkg/logger"
	"academic-scheduler/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// bindJSON decodes and validates the request body, writing a 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Invalid request format",
			Errors:  err.Error(),
		})
		return false
	}

	if err := validator.ValidateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Validation failed",
			Errors:  validator.FormatValidationError(err),
		})
		return false
	}
	return true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Invalid " + name + " format",
		})
		return uuid.Nil, false
	}
	return id, true
}

// errorStatus maps service errors to HTTP status codes. Unknown errors are storage failures.
func errorStatus(err error) int {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		switch conflict.Reason {
		case domain.ReasonNotFound:
			return http.StatusNotFound
		case domain.ReasonIneligibleTarget:
			return http.StatusBadRequest
		default:
			return http.StatusConflict
		}
	}

	var resolved *domain.AlreadyResolvedError
	switch {
	case errors.As(err, &resolved):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidSessionType),
		errors.Is(err, domain.ErrIneligibleTarget),
		errors.Is(err, domain.ErrTitleCycle),
		errors.Is(err, domain.ErrMalformedTime):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCapacityConflict),
		errors.Is(err, domain.ErrAlreadyEnrolled),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrDebtSessionExists),
		errors.Is(err, domain.ErrConflictingWrite):
		return http.StatusConflict
	case errors.Is(err, service.ErrIdempotencyKeyReused):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// errorResponse builds the body for err. Rejected enrollments carry their reason and,
// when the absence is already resolved, the existing resolution.
func errorResponse(err error, message string) APIResponse {
	resp := APIResponse{Success: false, Message: message, Errors: err.Error()}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		data := gin.H{"reason": conflict.Reason}
		var resolved *domain.AlreadyResolvedError
		if errors.As(err, &resolved) {
			data["resolution"] = resolved.Resolution
		}
		resp.Data = data
		return resp
	}

	var resolved *domain.AlreadyResolvedError
	if errors.As(err, &resolved) {
		resp.Data = gin.H{"reason": domain.ReasonAlreadyResolved, "resolution": resolved.Resolution}
	}
	return resp
}

func writeError(c *gin.Context, err error, message string) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.WithField("path", c.FullPath()).WithError(err).Error(message)
		c.JSON(status, APIResponse{Success: false, Message: message, Errors: "internal error"})
		return
	}
	c.JSON(status, errorResponse(err, message))
}
