package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix        = "otp:"
	attemptsPrefix   = "otp:attempts:"
	maxFailedAttempt = 5
)

var (
	ErrNotFound        = errors.New("验证码不存在或已过期")
	ErrMismatch        = errors.New("验证码错误")
	ErrTooManyAttempts = errors.New("验证码错误次数过多，请重新获取")
)

// PendingError 上一个验证码仍在有效期内
type PendingError struct {
	RetryAfter time.Duration
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("验证码已发送，请 %d 秒后重试", RetryAfterSeconds(e.RetryAfter))
}

// RetryAfterSeconds 向上取整到秒
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Store 基于 Redis 的一次性验证码存储，过期由 TTL 处理
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	length int
}

func NewStore(rdb *redis.Client, ttl time.Duration, length int) *Store {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if length <= 0 {
		length = 6
	}
	return &Store{rdb: rdb, ttl: ttl, length: length}
}

// TTL 验证码有效期
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func key(email string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(email))
}

func attemptsKey(email string) string {
	return attemptsPrefix + strings.ToLower(strings.TrimSpace(email))
}

// Issue 生成并保存验证码；已有未过期验证码时返回 *PendingError
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	code, err := generate(s.length)
	if err != nil {
		return "", err
	}

	ok, err := s.rdb.SetNX(ctx, key(email), code, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	if !ok {
		remaining, err := s.rdb.PTTL(ctx, key(email)).Result()
		if err != nil {
			return "", fmt.Errorf("failed to read otp ttl: %w", err)
		}
		return "", &PendingError{RetryAfter: remaining}
	}

	if err := s.rdb.Del(ctx, attemptsKey(email)).Err(); err != nil {
		return "", fmt.Errorf("failed to reset otp attempts: %w", err)
	}
	return code, nil
}

// Verify 校验验证码，匹配时原子删除；不匹配时保留以便重试，
// 连续错误达到上限后作废验证码
func (s *Store) Verify(ctx context.Context, email, code string) error {
	k := key(email)
	ak := attemptsKey(email)

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, k).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get otp: %w", err)
		}
		if subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) != 1 {
			return ErrMismatch
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, k, ak)
			return nil
		})
		return err
	}, k)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		// 并发校验时另一请求已消费
		return ErrNotFound
	case errors.Is(err, ErrMismatch):
		return s.recordMiss(ctx, k, ak)
	}
	return err
}

// recordMiss 累加错误次数，计数与验证码同时过期
func (s *Store) recordMiss(ctx context.Context, k, ak string) error {
	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, ak)
		pttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to count otp attempts: %w", err)
	}

	if incr.Val() >= maxFailedAttempt {
		if err := s.rdb.Del(ctx, k, ak).Err(); err != nil {
			return fmt.Errorf("failed to discard otp: %w", err)
		}
		return ErrTooManyAttempts
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.rdb.PExpire(ctx, ak, ttl).Err(); err != nil {
		return fmt.Errorf("failed to expire otp attempts: %w", err)
	}
	return ErrMismatch
}

// Discard 删除验证码和错误计数，发送失败时调用
func (s *Store) Discard(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, key(email), attemptsKey(email)).Err()
}

// generate 生成 n 位数字验证码
func generate(n int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v), nil
}
