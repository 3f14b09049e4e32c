package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Phuduong999/annotation-platform-sub000/internal/config"
	"github.com/Phuduong999/annotation-platform-sub000/internal/metrics"
	"github.com/Phuduong999/annotation-platform-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// actorKey 存放 actor 身份的 gin 上下文键
const actorKey = "actor"

// ActorMiddleware 提取调用者身份
// actor 由外部认证协作方通过 X-Actor-ID 头传入,变更类路由强制要求
func ActorMiddleware(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader("X-Actor-ID")
		if actor == "" && required {
			Error(c, http.StatusUnauthorized, "missing actor identity", "X-Actor-ID header is required")
			c.Abort()
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// GetActor 从上下文读取调用者身份
func GetActor(c *gin.Context) string {
	return c.GetString(actorKey)
}

// RequestIDMiddleware 请求 ID 中间件
// 调用方可通过 X-Request-ID 透传自己的请求 ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		// 审计日志从请求上下文读取这些字段
		ctx := context.WithValue(c.Request.Context(), service.ContextKeyRequestID, requestID)
		ctx = context.WithValue(ctx, service.ContextKeyClientIP, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequestLogMiddleware 请求日志中间件
func RequestLogMiddleware() gin.HandlerFunc {
	logger := GetLogger()

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		requestID := c.GetString("request_id")

		metrics.RecordAPIRequest(method, path, strconv.Itoa(status), latency.Seconds())

		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     method,
			"path":       path,
			"status":     status,
			"latency":    latency.String(),
			"ip":         c.ClientIP(),
			"actor":      c.GetString(actorKey),
		})

		switch {
		case status >= 500:
			entry.Error("API request")
		case status >= 400:
			entry.Warn("API request")
		default:
			entry.Info("API request")
		}
	}
}

// RateLimitMiddleware 按客户端 IP 限流
func RateLimitMiddleware(cfg *config.RateLimitConfig) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		if cfg == nil || !cfg.Enabled {
			c.Next()
			return
		}

		ip := c.ClientIP()
		mu.Lock()
		limiter, ok := limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
			limiters[ip] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			Error(c, http.StatusTooManyRequests, "rate limit exceeded", "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CORSMiddleware CORS 中间件
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowAll := false
		for _, allowed := range cfg.AllowedOrigins {
			if allowed == "*" {
				allowAll = true
				break
			}
		}

		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range cfg.AllowedOrigins {
				if allowed == origin && origin != "" {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Header("Access-Control-Allow-Credentials", "true")
					break
				}
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Actor-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")
		c.Header("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
