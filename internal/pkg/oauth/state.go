package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	stateKeyPrefix  = "oauth:state:"
	defaultStateTTL = 10 * time.Minute
	stateBytes      = 32
)

var (
	ErrInvalidState       = errors.New("invalid or expired state")
	ErrRedirectNotAllowed = errors.New("redirect target is not an allowed frontend origin")
)

// StateStore GitHub 登录的一次性 state，绑定登录完成后要跳回的前端地址。
// 跳转地址只接受站内相对路径或白名单内的前端源，避免被当作开放跳转。
type StateStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	origins map[string]struct{}
}

// NewStateStore allowedOrigins 形如 https://app.example.com，只比较 scheme 和 host
func NewStateStore(rdb *redis.Client, ttl time.Duration, allowedOrigins ...string) *StateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if origin, ok := originOf(o); ok {
			origins[origin] = struct{}{}
		}
	}
	return &StateStore{rdb: rdb, ttl: ttl, origins: origins}
}

// AllowRedirect 空地址表示不跳转，直接返回 JSON
func (s *StateStore) AllowRedirect(redirect string) bool {
	if redirect == "" {
		return true
	}
	if strings.HasPrefix(redirect, "/") {
		return !strings.HasPrefix(redirect, "//") && !strings.HasPrefix(redirect, "/\\")
	}
	origin, ok := originOf(redirect)
	if !ok {
		return false
	}
	_, ok = s.origins[origin]
	return ok
}

// GenerateState 校验跳转地址后签发 state
func (s *StateStore) GenerateState(ctx context.Context, redirect string) (string, error) {
	if !s.AllowRedirect(redirect) {
		return "", ErrRedirectNotAllowed
	}

	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random state: %w", err)
	}
	state := hex.EncodeToString(buf)

	if err := s.rdb.Set(ctx, stateKeyPrefix+state, redirect, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}
	return state, nil
}

// ValidateState 消费 state 并取回跳转地址；白名单收紧后签发的旧 state 同样失效
func (s *StateStore) ValidateState(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrInvalidState
	}
	key := stateKeyPrefix + state

	var redirect string
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrInvalidState
		}
		if err != nil {
			return fmt.Errorf("failed to get state: %w", err)
		}
		redirect = val

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return "", ErrInvalidState
	case err != nil:
		return "", err
	}

	if !s.AllowRedirect(redirect) {
		return "", ErrRedirectNotAllowed
	}
	return redirect, nil
}

func originOf(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	return scheme + "://" + strings.ToLower(u.Host), true
}
