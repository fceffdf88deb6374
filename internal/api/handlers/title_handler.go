package handlers

import (
	"net/http"

	domain "academic-scheduler/internal/domain/scheduling"
	serviceInterfaces "academic-scheduler/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

// TitleHandler manages syllabus titles and the per-session completion flags
type TitleHandler struct {
	progressService serviceInterfaces.ProgressService
}

func NewTitleHandler(progressService serviceInterfaces.ProgressService) *TitleHandler {
	return &TitleHandler{progressService: progressService}
}

// ListTitles handles GET /api/v1/modules/:module_id/titles/:type
func (h *TitleHandler) ListTitles(c *gin.Context) {
	moduleID, ok := parseUUIDParam(c, "module_id")
	if !ok {
		return
	}

	titles, err := h.progressService.ListTitles(c.Request.Context(), moduleID, domain.SessionType(c.Param("type")))
	if err != nil {
		writeError(c, err, "Failed to retrieve titles")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Titles retrieved successfully",
		Data:    map[string]interface{}{"titles": titles},
	})
}

// CreateTitle handles POST /api/v1/titles
func (h *TitleHandler) CreateTitle(c *gin.Context) {
	var req domain.CreateTitleRequest
	if !bindJSON(c, &req) {
		return
	}

	title, err := h.progressService.CreateTitle(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, "Failed to create title")
		return
	}

	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Message: "Title created successfully",
		Data:    title,
	})
}

// UpdateTitle handles PUT /api/v1/titles/:id
func (h *TitleHandler) UpdateTitle(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req domain.UpdateTitleRequest
	if !bindJSON(c, &req) {
		return
	}

	title, err := h.progressService.UpdateTitle(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err, "Failed to update title")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Title updated successfully",
		Data:    title,
	})
}

// DeleteTitle handles DELETE /api/v1/titles/:id
func (h *TitleHandler) DeleteTitle(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	removed, err := h.progressService.DeleteTitle(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "Failed to delete title")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Title deleted successfully",
		Data:    map[string]interface{}{"deleted": removed},
	})
}

// SessionTitles handles GET /api/v1/sessions/:session_id/titles
func (h *TitleHandler) SessionTitles(c *gin.Context) {
	sessionID, ok := parseUUIDParam(c, "session_id")
	if !ok {
		return
	}

	titles, err := h.progressService.SessionTitles(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err, "Failed to retrieve session titles")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Session titles retrieved successfully",
		Data:    titles,
	})
}

// SetProgress handles POST /api/v1/professors/:professor_id/title-progress
func (h *TitleHandler) SetProgress(c *gin.Context) {
	var req domain.ProgressRequest
	if !bindJSON(c, &req) {
		return
	}

	progress, err := h.progressService.SetProgress(c.Request.Context(), c.Param("professor_id"), &req)
	if err != nil {
		writeError(c, err, "Failed to update progress")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Progress updated successfully",
		Data:    progress,
	})
}

// BulkSetProgress handles POST /api/v1/professors/:professor_id/title-progress/bulk
func (h *TitleHandler) BulkSetProgress(c *gin.Context) {
	var req domain.BulkProgressRequest
	if !bindJSON(c, &req) {
		return
	}

	progress, err := h.progressService.BulkSetProgress(c.Request.Context(), c.Param("professor_id"), &req)
	if err != nil {
		writeError(c, err, "Failed to update progress")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Progress updated successfully",
		Data:    progress,
	})
}

// ProfessorSessions handles GET /api/v1/professors/:professor_id/sessions
func (h *TitleHandler) ProfessorSessions(c *gin.Context) {
	sessions, err := h.progressService.ProfessorSessions(c.Request.Context(), c.Param("professor_id"))
	if err != nil {
		writeError(c, err, "Failed to retrieve sessions")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Sessions retrieved successfully",
		Data:    map[string]interface{}{"sessions": sessions},
	})
}
