package handlers

import (
	"net/http"
	"strconv"

	serviceInterfaces "academic-scheduler/internal/interfaces/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StudentHandler serves a student's absences, absence rate and weekly schedule
type StudentHandler struct {
	attendanceService serviceInterfaces.AttendanceService
	scheduleService   serviceInterfaces.ScheduleService
}

func NewStudentHandler(attendanceService serviceInterfaces.AttendanceService, scheduleService serviceInterfaces.ScheduleService) *StudentHandler {
	return &StudentHandler{
		attendanceService: attendanceService,
		scheduleService:   scheduleService,
	}
}

// ListAbsences handles GET /api/v1/students/:student_id/absences
func (h *StudentHandler) ListAbsences(c *gin.Context) {
	absences, err := h.attendanceService.ListAbsences(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		writeError(c, err, "Failed to retrieve absences")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Absences retrieved successfully",
		Data:    map[string]interface{}{"absences": absences},
	})
}

// AbsenceRate handles GET /api/v1/students/:student_id/absence-rate
func (h *StudentHandler) AbsenceRate(c *gin.Context) {
	var semesterID *uuid.UUID
	if raw := c.Query("semester_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, APIResponse{
				Success: false,
				Message: "Invalid semester_id format",
			})
			return
		}
		semesterID = &parsed
	}

	rate, err := h.attendanceService.AbsenceRate(c.Request.Context(), c.Param("student_id"), semesterID)
	if err != nil {
		writeError(c, err, "Failed to compute absence rate")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Absence rate computed successfully",
		Data:    map[string]interface{}{"absence_rate": rate},
	})
}

// WeeklySchedule handles GET /api/v1/students/:student_id/schedule
func (h *StudentHandler) WeeklySchedule(c *gin.Context) {
	offset, err := strconv.Atoi(c.DefaultQuery("week_offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "week_offset must be an integer",
		})
		return
	}

	week, err := h.scheduleService.WeeklySchedule(c.Request.Context(), c.Param("student_id"), offset)
	if err != nil {
		writeError(c, err, "Failed to build schedule")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Schedule retrieved successfully",
		Data:    week,
	})
}
