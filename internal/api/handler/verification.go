package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/pkg/otp"
	"github.com/echonow/echonow_server/internal/pkg/response"
	"github.com/echonow/echonow_server/internal/service"
)

type VerificationHandler struct {
	verificationService *service.VerificationService
}

func NewVerificationHandler(verificationService *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{
		verificationService: verificationService,
	}
}

func (h *VerificationHandler) fail(c *gin.Context, err error) {
	var pending *otp.PendingError
	switch {
	case errors.As(err, &pending):
		response.TooManyRequests(c, pending.Error(), otp.RetryAfterSeconds(pending.RetryAfter))
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, otp.ErrNotFound), errors.Is(err, otp.ErrMismatch), errors.Is(err, otp.ErrTooManyAttempts):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrOTPSendFailed):
		response.ServerError(c, service.ErrOTPSendFailed.Error())
	default:
		internalError(c, err)
	}
}

// RequestOTP 发送邮箱验证码
// POST /api/request-otp
func (h *VerificationHandler) RequestOTP(c *gin.Context) {
	var req dto.RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	email := req.Email
	if email == "" {
		email = callerEmail(c)
	}

	resp, err := h.verificationService.RequestOTP(c.Request.Context(), callerEmail(c), email)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "验证码已发送", resp)
}

// VerifyOTP 校验验证码
// POST /api/verify-otp
func (h *VerificationHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	email := req.Email
	if email == "" {
		email = callerEmail(c)
	}

	resp, err := h.verificationService.VerifyOTP(c.Request.Context(), callerEmail(c), email, req.OTP)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "邮箱验证成功", resp)
}

// Status 查询验证状态
// GET /api/verification-status/:email
func (h *VerificationHandler) Status(c *gin.Context) {
	resp, err := h.verificationService.Status(callerEmail(c), c.Param("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}
