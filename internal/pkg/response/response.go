package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	CodeSuccess          = 0
	CodeParamError       = 1000
	CodeAuthFailed       = 1001
	CodePermissionDenied = 1002
	CodeResourceNotFound = 1003
	CodeConflict         = 1005
	CodeTooManyRequests  = 1006
	CodeServerError      = 5000
	CodeUnavailable      = 5003
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:          "success",
	CodeParamError:       "参数错误",
	CodeAuthFailed:       "认证失败",
	CodePermissionDenied: "权限不足",
	CodeResourceNotFound: "资源不存在",
	CodeConflict:         "操作冲突",
	CodeTooManyRequests:  "请求过于频繁",
	CodeServerError:      "服务器内部错误",
	CodeUnavailable:      "服务暂不可用",
}

// 错误码对应的 HTTP 状态码
var codeStatus = map[int]int{
	CodeParamError:       http.StatusBadRequest,
	CodeAuthFailed:       http.StatusUnauthorized,
	CodePermissionDenied: http.StatusForbidden,
	CodeResourceNotFound: http.StatusNotFound,
	CodeConflict:         http.StatusConflict,
	CodeTooManyRequests:  http.StatusTooManyRequests,
	CodeServerError:      http.StatusInternalServerError,
	CodeUnavailable:      http.StatusServiceUnavailable,
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageData 分页数据结构
type PageData struct {
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"totalPages"`
	Items      interface{} `json:"items"`
}

// StatusFor 返回错误码对应的 HTTP 状态码
func StatusFor(code int) int {
	if s, ok := codeStatus[code]; ok {
		return s
	}
	if code == CodeSuccess {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: "created",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// SuccessPage 分页成功响应
func SuccessPage(c *gin.Context, total int64, page, limit int, items interface{}) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data: PageData{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
			Items:      items,
		},
	})
}

// Error 错误响应，终止后续处理
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 携带附加数据的错误响应
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	if message == "" {
		message = codeMessages[code]
	}
	c.AbortWithStatusJSON(StatusFor(code), Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// ParamError 参数错误
func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

// AuthError 认证失败
func AuthError(c *gin.Context, message string) {
	Error(c, CodeAuthFailed, message)
}

// PermissionError 权限不足
func PermissionError(c *gin.Context, message string) {
	Error(c, CodePermissionDenied, message)
}

// NotFoundError 资源不存在
func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeResourceNotFound, message)
}

// ConflictError 冲突，包括重复提交和非法状态流转
func ConflictError(c *gin.Context, message string) {
	Error(c, CodeConflict, message)
}

// TooManyRequests 限流，retryAfter 为剩余秒数
func TooManyRequests(c *gin.Context, message string, retryAfter int) {
	ErrorWithData(c, CodeTooManyRequests, message, gin.H{"retryAfter": retryAfter})
}

// ServerError 服务器错误
func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

// Unavailable 依赖的外部服务未配置
func Unavailable(c *gin.Context, message string) {
	Error(c, CodeUnavailable, message)
}
