package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	var resp Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func serve(h gin.HandlerFunc) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/test", h)
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSuccess(t *testing.T) {
	w := serve(func(c *gin.Context) {
		Success(c, gin.H{"key": "value"})
	})

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "success", resp.Message)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", data["key"])
}

func TestCreated(t *testing.T) {
	w := serve(func(c *gin.Context) {
		Created(c, gin.H{"id": "abc"})
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, CodeSuccess, parseResponse(t, w).Code)
}

func TestSuccessWithMessage(t *testing.T) {
	w := serve(func(c *gin.Context) {
		SuccessWithMessage(c, "操作成功", gin.H{"result": true})
	})

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "操作成功", resp.Message)
}

func TestSuccessPage(t *testing.T) {
	w := serve(func(c *gin.Context) {
		SuccessPage(c, 13, 2, 6, []string{"item1", "item2", "item3"})
	})

	resp := parseResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(13), data["total"])
	assert.Equal(t, float64(2), data["page"])
	assert.Equal(t, float64(6), data["limit"])
	assert.Equal(t, float64(3), data["totalPages"])

	items, ok := data["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 3)
}

func TestSuccessPage_ZeroLimit(t *testing.T) {
	w := serve(func(c *gin.Context) {
		SuccessPage(c, 0, 1, 0, []string{})
	})

	data := parseResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, float64(0), data["totalPages"])
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name        string
		call        func(c *gin.Context)
		wantStatus  int
		wantCode    int
		wantMessage string
	}{
		{"param default", func(c *gin.Context) { ParamError(c, "") }, http.StatusBadRequest, CodeParamError, "参数错误"},
		{"param custom", func(c *gin.Context) { ParamError(c, "缺少标题") }, http.StatusBadRequest, CodeParamError, "缺少标题"},
		{"auth", func(c *gin.Context) { AuthError(c, "") }, http.StatusUnauthorized, CodeAuthFailed, "认证失败"},
		{"permission", func(c *gin.Context) { PermissionError(c, "") }, http.StatusForbidden, CodePermissionDenied, "权限不足"},
		{"not found", func(c *gin.Context) { NotFoundError(c, "用户不存在") }, http.StatusNotFound, CodeResourceNotFound, "用户不存在"},
		{"conflict", func(c *gin.Context) { ConflictError(c, "") }, http.StatusConflict, CodeConflict, "操作冲突"},
		{"server", func(c *gin.Context) { ServerError(c, "") }, http.StatusInternalServerError, CodeServerError, "服务器内部错误"},
		{"unavailable", func(c *gin.Context) { Unavailable(c, "") }, http.StatusServiceUnavailable, CodeUnavailable, "服务暂不可用"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(tt.call)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := parseResponse(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMessage, resp.Message)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestTooManyRequests(t *testing.T) {
	w := serve(func(c *gin.Context) {
		TooManyRequests(c, "", 42)
	})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, CodeTooManyRequests, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(42), data["retryAfter"])
}

func TestError_AbortsChain(t *testing.T) {
	reached := false
	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		PermissionError(c, "")
	}, func(c *gin.Context) {
		reached = true
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, reached)
}

func TestStatusFor_Unknown(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusFor(CodeSuccess))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(4242))
}
