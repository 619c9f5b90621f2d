package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxTraceIDKey = "traceID"

	// TraceHeader 请求追踪ID头
	TraceHeader = "X-Trace-ID"
)

// TraceMiddleware 添加请求追踪ID
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 尝试从请求头获取 TraceID，如果没有则生成新的
		traceID := c.GetHeader(TraceHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(ctxTraceIDKey, traceID)
		c.Header(TraceHeader, traceID)

		c.Next()
	}
}

// GetTraceID 未经过 TraceMiddleware 时返回空串
func GetTraceID(c *gin.Context) string {
	return c.GetString(ctxTraceIDKey)
}
