package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"forum_client/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 状态服务的访问令牌校验, token 为空时不校验
func AuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Authorization header is required")
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid authorization header format")
			return
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid token")
			return
		}
		c.Next()
	}
}
