package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/pkg/oauth"
	"github.com/echonow/echonow_server/internal/pkg/response"
	"github.com/echonow/echonow_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register 用户注册
// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists):
			response.ConflictError(c, err.Error())
		default:
			internalError(c, err)
		}
		return
	}

	response.Created(c, resp)
}

// Login 用户登录
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.AuthError(c, err.Error())
		default:
			internalError(c, err)
		}
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}

// GithubAuth 跳转到 GitHub 授权页
// GET /auth/github?redirect=
func (h *AuthHandler) GithubAuth(c *gin.Context) {
	authURL, err := h.authService.GithubAuthURL(c.Request.Context(), c.Query("redirect"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGithubDisabled):
			response.Unavailable(c, err.Error())
		case errors.Is(err, oauth.ErrRedirectNotAllowed):
			response.ParamError(c, "不允许的跳转地址")
		default:
			internalError(c, err)
		}
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// GithubCallback GitHub 回调，成功后带 token 跳回前端
// GET /auth/github/callback?code=&state=
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.ParamError(c, "缺少授权码")
		return
	}

	resp, redirect, err := h.authService.GithubCallback(c.Request.Context(), code, c.Query("state"))
	if err != nil {
		switch {
		case errors.Is(err, oauth.ErrInvalidState):
			response.ParamError(c, "登录状态无效或已过期，请重新登录")
		case errors.Is(err, oauth.ErrRedirectNotAllowed):
			response.ParamError(c, "不允许的跳转地址")
		case errors.Is(err, service.ErrGithubDisabled):
			response.Unavailable(c, err.Error())
		case errors.Is(err, service.ErrGithubEmailMissing):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrGithubFailed):
			_ = c.Error(err)
			response.ServerError(c, service.ErrGithubFailed.Error())
		default:
			internalError(c, err)
		}
		return
	}

	if redirect == "" {
		response.SuccessWithMessage(c, "登录成功", resp)
		return
	}
	c.Redirect(http.StatusFound, withTokenFragment(redirect, resp.Token))
}

// withTokenFragment token 放在 fragment 中，不会出现在服务端日志和 Referer 里
func withTokenFragment(redirect, token string) string {
	u, err := url.Parse(redirect)
	if err != nil {
		return redirect
	}
	u.Fragment = "token=" + token
	return u.String()
}
