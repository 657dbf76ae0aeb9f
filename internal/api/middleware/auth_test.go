package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echonow/echonow_server/internal/model"
	"github.com/echonow/echonow_server/internal/pkg/jwt"
	"github.com/echonow/echonow_server/internal/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key-for-middleware"

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func mustToken(t *testing.T, email string) string {
	t.Helper()
	token, err := jwt.GenerateToken(email, testJWTSecret, 24)
	require.NoError(t, err)
	return token
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func echoEmailRouter(mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw...)
	router.GET("/test", func(c *gin.Context) {
		email, ok := GetEmail(c)
		c.JSON(http.StatusOK, gin.H{"email": email, "ok": ok})
	})
	return router
}

func TestAuth_Success(t *testing.T) {
	router := echoEmailRouter(Auth(testJWTSecret))

	w := serve(router, "Bearer "+mustToken(t, "User@Example.com"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"user@example.com","ok":true}`, w.Body.String())
}

func TestAuth_Rejects(t *testing.T) {
	expired, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, jwt.Claims{
		Email: "a@x.com",
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	otherSecret, err := jwt.GenerateToken("a@x.com", "another-secret", 24)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"缺少 header", ""},
		{"没有 Bearer 前缀", "some-token-without-bearer"},
		{"空 token", "Bearer "},
		{"无效 token", "Bearer not.a.jwt"},
		{"密钥不匹配", "Bearer " + otherSecret},
		{"已过期", "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := echoEmailRouter(Auth(testJWTSecret))
			w := serve(router, tt.header)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	router := echoEmailRouter(OptionalAuth(testJWTSecret))

	w := serve(router, "Bearer "+mustToken(t, "a@x.com"))
	assert.JSONEq(t, `{"email":"a@x.com","ok":true}`, w.Body.String())

	w = serve(router, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"","ok":false}`, w.Body.String())

	w = serve(router, "Bearer invalid")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"","ok":false}`, w.Body.String())
}

type stubRoles map[string]string

func (s stubRoles) RoleOf(email string) (string, error) {
	role, ok := s[email]
	if !ok {
		return "", errors.New("not found")
	}
	return role, nil
}

func TestRequireAdmin(t *testing.T) {
	roles := stubRoles{"admin@x.com": model.RoleAdmin, "user@x.com": model.RoleUser}

	var reached int
	router := gin.New()
	router.Use(Auth(testJWTSecret), RequireAdmin(roles))
	router.GET("/test", func(c *gin.Context) {
		reached++
		c.Status(http.StatusOK)
	})

	w := serve(router, "Bearer "+mustToken(t, "admin@x.com"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, "Bearer "+mustToken(t, "user@x.com"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.CodePermissionDenied, parseResponse(t, w).Code)

	w = serve(router, "Bearer "+mustToken(t, "ghost@x.com"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 身份校验先于角色校验
	w = serve(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, 1, reached)
}
