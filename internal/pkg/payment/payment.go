package payment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

var ErrNotConfigured = errors.New("payment provider not configured")

// Intent 支付意图，ClientSecret 交给前端完成卡片确认
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Provider 支付服务商
type Provider interface {
	CreateIntent(ctx context.Context, amountCents int64, currency, idempotencyKey string) (*Intent, error)
}

type StripeProvider struct {
	sc *client.API
}

// NewStripe 创建 Stripe 客户端；关闭 SDK 自带重试，重复请求依赖幂等键去重
func NewStripe(secretKey string, timeout time.Duration) *StripeProvider {
	return newStripe(secretKey, timeout, "")
}

func newStripe(secretKey string, timeout time.Duration, baseURL string) *StripeProvider {
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if baseURL != "" {
		cfg.URL = stripe.String(baseURL)
	}

	sc := &client.API{}
	sc.Init(secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	})
	return &StripeProvider{sc: sc}
}

// CreateIntent 创建卡支付意图
func (p *StripeProvider) CreateIntent(ctx context.Context, amountCents int64, currency, idempotencyKey string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountCents),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := p.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// Unconfigured 未配置密钥时使用，所有调用返回 ErrNotConfigured
type Unconfigured struct{}

func (Unconfigured) CreateIntent(context.Context, int64, string, string) (*Intent, error) {
	return nil, ErrNotConfigured
}
