package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// internalKeyHeader carries the shared planning key on calls between
// services, e.g. a demand forecaster handing rows straight to a run.
const internalKeyHeader = "X-Internal-API-Key"

// InternalAuthMiddleware guards the /internal route group. The expected
// key is read once at startup from MIX_SERVICE_INTERNAL_KEY; when it is
// unset the internal surface stays up but refuses every call, so a
// missing deployment secret shows as 500s on /internal instead of an
// open planning API.
func InternalAuthMiddleware() gin.HandlerFunc {
	key := []byte(os.Getenv("MIX_SERVICE_INTERNAL_KEY"))
	if len(key) == 0 {
		log.Warn().Msg("MIX_SERVICE_INTERNAL_KEY not set, internal routes will reject all calls")
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "internal routes not configured",
			})
		}
	}

	return func(c *gin.Context) {
		presented := []byte(c.GetHeader(internalKeyHeader))
		if subtle.ConstantTimeCompare(presented, key) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}
		c.Next()
	}
}
