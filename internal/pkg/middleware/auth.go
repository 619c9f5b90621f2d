package middleware

import (
	"net/http"
	"strings"

	"f2fpay/pkg/response"
	"f2fpay/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserIDKey = "userID"
	ctxRoleKey   = "role"
)

// AuthMiddleware JWT认证中间件，未登录直接返回 401
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, "用户未登录")
			c.Abort()
			return
		}

		claims, ok := parseBearer(authHeader)
		if !ok {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware 携带合法 token 时写入用户信息，否则按匿名请求放行
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearer(c.GetHeader("Authorization")); ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// GetUserID 读取鉴权中间件写入的用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	val, exists := c.Get(ctxUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := val.(int64)
	return id, ok && id > 0
}

// parseBearer 检查格式 "Bearer <token>"
func parseBearer(header string) (*utils.Claims, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}
	claims, err := utils.ParseToken(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims *utils.Claims) {
	c.Set(ctxUserIDKey, claims.UserID)
	c.Set(ctxRoleKey, claims.Role)
}
