package handlers

import (
	"net/http"

	serviceInterfaces "academic-scheduler/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService serviceInterfaces.AuthService
}

func NewAuthHandler(authService serviceInterfaces.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginStudent handles POST /api/v1/auth/login
func (h *AuthHandler) LoginStudent(c *gin.Context) {
	var req serviceInterfaces.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.authService.LoginStudent(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, "Login failed")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Login successful",
		Data:    token,
	})
}

// LoginProfessor handles POST /api/v1/auth/professors/login
func (h *AuthHandler) LoginProfessor(c *gin.Context) {
	var req serviceInterfaces.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.authService.LoginProfessor(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, "Login failed")
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Login successful",
		Data:    token,
	})
}
