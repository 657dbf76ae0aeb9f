package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echonow/echonow_server/config"
	"github.com/echonow/echonow_server/internal/pkg/payment"
)

type fakeProvider struct {
	calls []string
	err   error
}

func (p *fakeProvider) CreateIntent(_ context.Context, amount int64, currency, key string) (*payment.Intent, error) {
	p.calls = append(p.calls, key)
	if p.err != nil {
		return nil, p.err
	}
	return &payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret", Amount: amount, Currency: currency}, nil
}

func TestPaymentService_CreateIntent(t *testing.T) {
	provider := &fakeProvider{}
	svc := NewPaymentService(provider, &config.Config{Payment: config.PaymentConfig{Currency: "USD"}}, nil)

	resp, err := svc.CreateIntent(context.Background(), 5.5, "key-1")
	require.NoError(t, err)
	assert.Equal(t, int64(550), resp.Amount)
	assert.Equal(t, "usd", resp.Currency)
	assert.Equal(t, "pi_1_secret", resp.ClientSecret)
	assert.Equal(t, "key-1", resp.IdempotencyKey)

	resp, err = svc.CreateIntent(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Len(t, resp.IdempotencyKey, 36)
}

func TestPaymentService_CreateIntent_InvalidCost(t *testing.T) {
	provider := &fakeProvider{}
	svc := NewPaymentService(provider, &config.Config{}, nil)

	for _, cost := range []float64{0, -1, 0.001} {
		_, err := svc.CreateIntent(context.Background(), cost, "")
		assert.ErrorIs(t, err, ErrInvalidCost)
	}
	assert.Empty(t, provider.calls)
}

func TestPaymentService_CreateIntent_NoRetry(t *testing.T) {
	provider := &fakeProvider{err: errors.New("stripe 500")}
	svc := NewPaymentService(provider, &config.Config{}, nil)

	_, err := svc.CreateIntent(context.Background(), 1, "k")
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.Len(t, provider.calls, 1)
}

func TestPaymentService_Plans(t *testing.T) {
	svc := NewPaymentService(payment.Unconfigured{}, &config.Config{}, nil)

	plans := svc.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, "1", plans[0].Code)
	assert.Equal(t, "5", plans[1].Code)
	assert.Equal(t, 10, plans[2].Days)
}
