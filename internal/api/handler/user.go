package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/pkg/response"
	"github.com/echonow/echonow_server/internal/policy"
	"github.com/echonow/echonow_server/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrEmailRequired),
		errors.Is(err, service.ErrInvalidPremiumTaken),
		errors.Is(err, service.ErrPremiumTakenSkew),
		errors.Is(err, policy.ErrUnknownDuration),
		errors.Is(err, policy.ErrExpiredGrant):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.PermissionError(c, err.Error())
	default:
		internalError(c, err)
	}
}

// Upsert 同步用户资料
// POST /users
func (h *UserHandler) Upsert(c *gin.Context) {
	var req dto.UpsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.userService.Upsert(callerEmail(c), &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	if resp.Created {
		response.Created(c, resp)
		return
	}
	c.JSON(http.StatusOK, response.Response{Code: response.CodeSuccess, Message: "updated", Data: resp})
}

// GetProfile 获取用户详情
// GET /users/:email
func (h *UserHandler) GetProfile(c *gin.Context) {
	info, err := h.userService.GetProfile(callerEmail(c), c.Param("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, info)
}

// UpdateProfile 更新昵称和头像
// PATCH /users/:email
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	info, err := h.userService.UpdateProfile(callerEmail(c), c.Param("email"), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, info)
}

// MakeAdmin 设为管理员
// PATCH|POST /users/admin/:email
func (h *UserHandler) MakeAdmin(c *gin.Context) {
	info, err := h.userService.MakeAdmin(c.Param("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "已设为管理员", info)
}

// GetRole 查询角色
// POST /get-role
func (h *UserHandler) GetRole(c *gin.Context) {
	var req dto.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.userService.GetRole(callerEmail(c), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// ListAll 后台用户列表
// GET /all-users
func (h *UserHandler) ListAll(c *gin.Context) {
	resp, err := h.userService.ListAll()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// CountInfo 用户统计
// GET /users-count-info
func (h *UserHandler) CountInfo(c *gin.Context) {
	resp, err := h.userService.CountInfo()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}
