package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/echonow/echonow_server/config"
	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/pkg/logger"
	"github.com/echonow/echonow_server/internal/pkg/payment"
)

var (
	ErrInvalidCost   = errors.New("支付金额必须大于 0")
	ErrPaymentFailed = errors.New("创建支付失败，请稍后重试")
)

type PaymentService struct {
	provider payment.Provider
	currency string
	plans    map[string]config.SubscriptionPlan
	log      *logger.Logger
}

func NewPaymentService(provider payment.Provider, cfg *config.Config, log *logger.Logger) *PaymentService {
	if log == nil {
		log = logger.Nop()
	}
	plans := cfg.Subscription.Plans
	if len(plans) == 0 {
		plans = config.DefaultPlans()
	}
	currency := strings.ToLower(cfg.Payment.Currency)
	if currency == "" {
		currency = "usd"
	}
	return &PaymentService{
		provider: provider,
		currency: currency,
		plans:    plans,
		log:      log,
	}
}

// CreateIntent 创建支付意图；失败不重试，重复提交靠幂等键去重
func (s *PaymentService) CreateIntent(ctx context.Context, cost float64, idempotencyKey string) (*dto.PaymentIntentResponse, error) {
	if cost <= 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return nil, ErrInvalidCost
	}
	amount := int64(math.Round(cost * 100))
	if amount <= 0 {
		return nil, ErrInvalidCost
	}

	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	intent, err := s.provider.CreateIntent(ctx, amount, s.currency, idempotencyKey)
	if err != nil {
		s.log.Error("create payment intent failed", "amount", amount, "idempotency_key", idempotencyKey, "error", err)
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	return &dto.PaymentIntentResponse{
		ClientSecret:   intent.ClientSecret,
		IntentID:       intent.ID,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// Plans 套餐列表，按天数升序
func (s *PaymentService) Plans() []dto.PlanInfo {
	out := make([]dto.PlanInfo, 0, len(s.plans))
	for code, p := range s.plans {
		out = append(out, dto.PlanInfo{Code: code, Days: p.Days, Price: p.Price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Days < out[j].Days })
	return out
}
