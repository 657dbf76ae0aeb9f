package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/echonow/echonow_server/internal/model"
	"github.com/echonow/echonow_server/internal/pkg/jwt"
	"github.com/echonow/echonow_server/internal/pkg/response"
)

const (
	EmailKey = "email"
)

// RoleSource 按邮箱查询角色
type RoleSource interface {
	RoleOf(email string) (string, error)
}

// Auth JWT 认证中间件
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "请提供认证信息")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			response.AuthError(c, "认证格式错误")
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "认证失败或已过期")
			return
		}

		c.Set(EmailKey, strings.ToLower(claims.Email))
		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制要求登录）
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.Next()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err == nil {
			c.Set(EmailKey, strings.ToLower(claims.Email))
		}

		c.Next()
	}
}

// RequireAdmin 管理员校验，必须挂在 Auth 之后
func RequireAdmin(roles RoleSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := GetEmail(c)
		if !ok {
			response.AuthError(c, "请先登录")
			return
		}

		role, err := roles.RoleOf(email)
		if err != nil || role != model.RoleAdmin {
			response.PermissionError(c, "需要管理员权限")
			return
		}

		c.Next()
	}
}

// GetEmail 从上下文获取已认证的邮箱
func GetEmail(c *gin.Context) (string, bool) {
	v, exists := c.Get(EmailKey)
	if !exists {
		return "", false
	}
	email, ok := v.(string)
	return email, ok && email != ""
}
