package httpapi

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/qlerdi098-png/chatbot-filkom/internal/ctxutil"
	"github.com/qlerdi098-png/chatbot-filkom/internal/ratelimit"
)

// RequestIDHeader carries the request identifier on responses.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request an identifier, reusing the inbound
// header when the caller supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// RateLimit throttles requests per client IP with a token bucket.
func RateLimit(requestsPerMinute float64) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*ratelimit.Limiter)
	)

	limiterFor := func(ip string) *ratelimit.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[ip]
		if !ok {
			l = ratelimit.NewPerMinute(requestsPerMinute)
			limiters[ip] = l
		}
		return l
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
