package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ContextIdempotencyKey = "idempotency_key"
	IdempotencyKeyHeader  = "Idempotency-Key"

	maxIdempotencyKeyLength = 255
)

// IdempotencyMiddleware exposes the Idempotency-Key of write requests to handlers.
// Keys are opaque to the server but must be printable ASCII.
func IdempotencyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		if len(key) > maxIdempotencyKeyLength || !printableASCII(key) {
			abort(c, http.StatusBadRequest, "Invalid Idempotency-Key header")
			return
		}

		c.Set(ContextIdempotencyKey, key)
		c.Next()
	}
}

func printableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
