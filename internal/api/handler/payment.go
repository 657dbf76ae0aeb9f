package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/pkg/payment"
	"github.com/echonow/echonow_server/internal/pkg/response"
	"github.com/echonow/echonow_server/internal/service"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// CreateIntent 创建支付意图
// POST /create-payment-intent
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req dto.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.paymentService.CreateIntent(c.Request.Context(), req.Cost, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCost):
			response.ParamError(c, err.Error())
		case errors.Is(err, payment.ErrNotConfigured):
			response.Unavailable(c, "支付服务未配置")
		case errors.Is(err, service.ErrPaymentFailed):
			response.ServerError(c, service.ErrPaymentFailed.Error())
		default:
			internalError(c, err)
		}
		return
	}

	response.Success(c, resp)
}

// Plans 订阅套餐
// GET /plans
func (h *PaymentHandler) Plans(c *gin.Context) {
	response.Success(c, h.paymentService.Plans())
}
