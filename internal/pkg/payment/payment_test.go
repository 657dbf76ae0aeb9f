package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripeProvider_CreateIntent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "500", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "card", r.PostForm.Get("payment_method_types[0]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_1","object":"payment_intent","amount":500,"currency":"usd","client_secret":"pi_1_secret_abc"}`))
	}))
	defer server.Close()

	p := newStripe("sk_test_123", 2*time.Second, server.URL)

	intent, err := p.CreateIntent(context.Background(), 500, "usd", "key-123")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret_abc", intent.ClientSecret)
	assert.Equal(t, int64(500), intent.Amount)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStripeProvider_NoRetryOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
	}))
	defer server.Close()

	p := newStripe("sk_test_123", 2*time.Second, server.URL)

	_, err := p.CreateIntent(context.Background(), 500, "usd", "key-1")
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStripeProvider_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	p := newStripe("sk_test_123", 50*time.Millisecond, server.URL)

	_, err := p.CreateIntent(context.Background(), 500, "usd", "key-1")
	assert.Error(t, err)
}

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.CreateIntent(context.Background(), 100, "usd", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
