package handlers

import (
	"net/http"

	"academic-scheduler/internal/api/middleware"
	serviceInterfaces "academic-scheduler/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

type CompensationHandler struct {
	compensationService serviceInterfaces.CompensationService
}

func NewCompensationHandler(compensationService serviceInterfaces.CompensationService) *CompensationHandler {
	return &CompensationHandler{compensationService: compensationService}
}

// Decide handles POST /api/v1/compensations/:request_id/decision
func (h *CompensationHandler) Decide(c *gin.Context) {
	requestID, ok := parseUUIDParam(c, "request_id")
	if !ok {
		return
	}

	var req serviceInterfaces.DecisionRequest
	if !bindJSON(c, &req) {
		return
	}
	if !middleware.CanActAs(c, req.ProfessorID) {
		c.JSON(http.StatusForbidden, APIResponse{
			Success: false,
			Message: "Cannot decide on behalf of another professor",
		})
		return
	}

	decided, err := h.compensationService.Decide(c.Request.Context(), requestID, &req)
	if err != nil {
		writeError(c, err, "Failed to decide compensation request")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Compensation request " + string(decided.Status),
		Data:    decided,
	})
}
