package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func mwLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		startTime := time.Now()
		ctx.Next()
		duration := time.Since(startTime)

		log.Info("api request",
			"kind", "api",
			"method", ctx.Request.Method,
			"uri", ctx.Request.RequestURI,
			"code", ctx.Writer.Status(),
			"client", ctx.ClientIP(),
			"duration", duration)
	}
}

// mwRateLimit applies one token bucket to the whole API. A non-positive rps
// disables limiting.
func mwRateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(*gin.Context) {}
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			writeError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
