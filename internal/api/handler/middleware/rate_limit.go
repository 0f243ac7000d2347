package middleware

import (
	"kbc/internal/api/handler/response"
	"kbc/pkg"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// GenerationRateLimit counts generate calls per storage token. A nil limiter
// disables it. It is meant to run after request validation; requests without
// a token pass through, and Redis failures let the request through.
func GenerationRateLimit(limiter *pkg.RedisRateLimiter, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(StorageTokenHeader)
		if limiter == nil || token == "" {
			c.Next()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), token)
		if err != nil {
			logger.Warn().Err(err).Str("requestId", GetRequestID(c)).Msg("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				response.NewAPIError("Too many generation requests. Please wait before trying again.", ""))
			return
		}
		c.Next()
	}
}
