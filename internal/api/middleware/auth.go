package middleware

import (
	"net/http"
	"strings"

	"academic-scheduler/internal/auth"
	"academic-scheduler/internal/config"
	"academic-scheduler/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "auth_user_id"
	ContextRole   = "auth_role"
)

// JWTAuth rejects requests without a valid bearer token and stores its claims on the context.
func JWTAuth(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			abort(c, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		claims, err := auth.ParseToken(cfg.JWTSecret, cfg.JWTIssuer, token)
		if err != nil {
			logger.WithField("client_ip", c.ClientIP()).WithError(err).Debug("Rejected token")
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole lets through authenticated callers of role whose id matches the
// :student_id or :professor_id path parameter when the route has one.
// Without authentication it does nothing.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, authenticated := c.Get(ContextRole); !authenticated {
			c.Next()
			return
		}
		if c.GetString(ContextRole) != role {
			abort(c, http.StatusForbidden, "Forbidden for role "+c.GetString(ContextRole))
			return
		}
		for _, param := range []string{"student_id", "professor_id"} {
			if id := c.Param(param); id != "" && !CanActAs(c, id) {
				abort(c, http.StatusForbidden, "Cannot act on behalf of "+id)
				return
			}
		}
		c.Next()
	}
}

// CanActAs reports whether the caller may act as subject. It always holds when
// authentication is disabled.
func CanActAs(c *gin.Context, subject string) bool {
	userID, authenticated := c.Get(ContextUserID)
	if !authenticated {
		return true
	}
	return userID == subject
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
