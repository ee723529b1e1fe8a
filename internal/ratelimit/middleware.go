package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/shengyanli1982/ratewarden/internal/metrics"
	"github.com/shengyanli1982/ratewarden/internal/response"
)

// DecisionContextKey 放行请求的判定结果在 gin.Context 中的键
const DecisionContextKey = "ratewarden.decision"

// GinMiddleware 返回按单个限流器判定的 gin 中间件
func GinMiddleware(l *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := l.Check(c.Request.Context(), RequestFromHTTP(c.Request))
		handleDecision(c, &decision)
	}
}

// ManagerMiddleware 返回按路径选择限流器的 gin 中间件
func ManagerMiddleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := m.Check(c.Request.Context(), RequestFromHTTP(c.Request))
		handleDecision(c, &decision)
	}
}

func handleDecision(c *gin.Context, decision *Decision) {
	if decision.Limited {
		WriteRejection(c, decision)
		return
	}
	c.Set(DecisionContextKey, *decision)
	c.Next()
}

// LocalMiddleware 返回进程内按IP限流的 gin 中间件
func LocalMiddleware(l *LocalLimiter, serverName string, logger *logr.Logger, collector metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.AllowRequest(c.Request) {
			c.Next()
			return
		}

		clientIP := ClientIP(c.Request)
		if logger != nil {
			logger.V(1).Info("Local rate limit exceeded", "server", serverName, "ip", clientIP)
		}
		if collector != nil {
			collector.RecordLocalRejection(serverName)
		}
		detail := map[string]interface{}{
			"code": "RATE_LIMIT_EXCEEDED",
			"ip":   clientIP,
		}
		response.Error(response.CodeRateLimit, "too many requests from this IP").
			WithDetail(detail).
			JSON(c, http.StatusTooManyRequests)
		c.Abort()
	}
}
