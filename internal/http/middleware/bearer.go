package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/socialreel-backend/internal/platform/logger"
)

// RequireBearer guards the API with a single shared token. With an
// empty token the check is disabled and every request passes, which is
// the local-development default.
func RequireBearer(log *logger.Logger, token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		scheme, presented, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			presented = ""
		}
		presented = strings.TrimSpace(presented)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			if log != nil {
				log.Warn("Rejected request with bad bearer token", "path", c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		c.Next()
	}
}
