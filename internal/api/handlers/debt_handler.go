package handlers

import (
	"net/http"

	domain "academic-scheduler/internal/domain/scheduling"
	serviceInterfaces "academic-scheduler/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

type DebtHandler struct {
	debtService serviceInterfaces.DebtService
}

func NewDebtHandler(debtService serviceInterfaces.DebtService) *DebtHandler {
	return &DebtHandler{debtService: debtService}
}

// ListModules handles GET /api/v1/students/:student_id/debt-modules
func (h *DebtHandler) ListModules(c *gin.Context) {
	modules, err := h.debtService.ListDebtModules(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		writeError(c, err, "Failed to retrieve debt modules")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Debt modules retrieved successfully",
		Data:    map[string]interface{}{"modules": modules},
	})
}

// AvailableSessions handles GET /api/v1/students/:student_id/debt-sessions/available/:module_id/:type
func (h *DebtHandler) AvailableSessions(c *gin.Context) {
	moduleID, ok := parseUUIDParam(c, "module_id")
	if !ok {
		return
	}

	sessions, err := h.debtService.AvailableSessions(c.Request.Context(), c.Param("student_id"), moduleID, domain.SessionType(c.Param("type")))
	if err != nil {
		writeError(c, err, "Failed to retrieve debt sessions")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Debt sessions retrieved successfully",
		Data:    map[string]interface{}{"sessions": sessions},
	})
}

// Register handles POST /api/v1/students/:student_id/debt-sessions
func (h *DebtHandler) Register(c *gin.Context) {
	var req domain.DebtSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	debt, err := h.debtService.Register(c.Request.Context(), c.Param("student_id"), &req)
	if err != nil {
		writeError(c, err, "Failed to register debt session")
		return
	}

	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Message: "Debt session registered successfully",
		Data:    debt,
	})
}
