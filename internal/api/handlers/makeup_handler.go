package handlers

import (
	"errors"
	"net/http"

	"academic-scheduler/internal/api/middleware"
	domain "academic-scheduler/internal/domain/scheduling"
	serviceInterfaces "academic-scheduler/internal/interfaces/service"
	"academic-scheduler/internal/service"
	"academic-scheduler/pkg/logger"

	"github.com/gin-gonic/gin"
)

// MakeupHandler handles eligibility lookups and makeup enrollments
type MakeupHandler struct {
	makeupService      serviceInterfaces.MakeupService
	idempotencyService *service.IdempotencyService
}

// NewMakeupHandler creates a new makeup handler
func NewMakeupHandler(makeupService serviceInterfaces.MakeupService, idempotencyService *service.IdempotencyService) *MakeupHandler {
	return &MakeupHandler{
		makeupService:      makeupService,
		idempotencyService: idempotencyService,
	}
}

// EligibleSessions handles GET /api/v1/students/:student_id/absences/:attendance_id/eligible-sessions
func (h *MakeupHandler) EligibleSessions(c *gin.Context) {
	studentID := c.Param("student_id")
	attendanceID, ok := parseUUIDParam(c, "attendance_id")
	if !ok {
		return
	}

	report, err := h.makeupService.ResolveEligibleSessions(c.Request.Context(), studentID, attendanceID)
	if err != nil {
		var resolved *domain.AlreadyResolvedError
		if errors.As(err, &resolved) {
			c.JSON(http.StatusConflict, APIResponse{
				Success: false,
				Message: "Absence already resolved",
				Data: domain.EligibilityReport{
					EligibleSessions: []domain.EligibleSession{},
					Resolution:       &resolved.Resolution,
				},
			})
			return
		}
		writeError(c, err, "Failed to resolve eligible sessions")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Eligible sessions retrieved successfully",
		Data:    report,
	})
}

// Enroll handles POST /api/v1/makeup/enroll. A request repeated with the same
// Idempotency-Key replays the first response.
func (h *MakeupHandler) Enroll(c *gin.Context) {
	var req domain.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	if !middleware.CanActAs(c, req.StudentID) {
		c.JSON(http.StatusForbidden, APIResponse{
			Success: false,
			Message: "Cannot enroll on behalf of another student",
		})
		return
	}

	ctx := c.Request.Context()
	key := c.GetString(middleware.ContextIdempotencyKey)

	replay, err := h.idempotencyService.Lookup(ctx, key, req.StudentID, req)
	if err != nil {
		writeError(c, err, "Failed to check idempotency key")
		return
	}
	if replay != nil {
		c.Header("Idempotent-Replayed", "true")
		c.Data(replay.StatusCode, "application/json; charset=utf-8", replay.Body)
		return
	}

	status := http.StatusCreated
	var response APIResponse

	result, err := h.makeupService.Enroll(ctx, &req)
	if err != nil {
		status = errorStatus(err)
		if status >= http.StatusInternalServerError {
			writeError(c, err, "Enrollment failed")
			return
		}
		response = errorResponse(err, "Enrollment rejected")
	} else {
		response = APIResponse{
			Success: true,
			Message: "Enrollment processed successfully",
			Data:    result,
		}
	}

	if err := h.idempotencyService.Record(ctx, key, req.StudentID, req, status, response); err != nil {
		logger.Warn("Failed to record idempotent response for key %s: %v", key, err)
	}
	c.JSON(status, response)
}
