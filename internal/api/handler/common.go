package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/echonow/echonow_server/internal/api/middleware"
	"github.com/echonow/echonow_server/internal/pkg/response"
)

// internalError 记录原始错误供访问日志输出，客户端只看到通用提示
func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	response.ServerError(c, "")
}

// callerEmail 路由已挂 Auth 时一定存在
func callerEmail(c *gin.Context) string {
	email, _ := middleware.GetEmail(c)
	return email
}
