package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/pkg/logger"
	"github.com/echonow/echonow_server/internal/pkg/otp"
	"github.com/echonow/echonow_server/internal/repository"
)

var ErrOTPSendFailed = errors.New("验证码发送失败，请稍后重试")

// Mailer 验证码邮件发送
type Mailer interface {
	SendOTP(ctx context.Context, to, code string, ttl time.Duration) error
}

type VerificationService struct {
	userRepo *repository.UserRepository
	store    *otp.Store
	mailer   Mailer
	log      *logger.Logger
	now      func() time.Time
}

func NewVerificationService(userRepo *repository.UserRepository, store *otp.Store, mailer Mailer, log *logger.Logger) *VerificationService {
	if log == nil {
		log = logger.Nop()
	}
	return &VerificationService{
		userRepo: userRepo,
		store:    store,
		mailer:   mailer,
		log:      log,
		now:      time.Now,
	}
}

// RequestOTP 生成并发送验证码；未过期前重复请求返回 *otp.PendingError
func (s *VerificationService) RequestOTP(ctx context.Context, callerEmail, email string) (*dto.RequestOTPResponse, error) {
	email = normalizeEmail(email)
	if err := requireSelfOrAdmin(s.userRepo, callerEmail, email); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	code, err := s.store.Issue(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendOTP(ctx, email, code, s.store.TTL()); err != nil {
		s.log.Error("send otp email failed", "email", email, "error", err)
		if derr := s.store.Discard(ctx, email); derr != nil {
			s.log.Warn("discard otp failed", "email", email, "error", derr)
		}
		return nil, fmt.Errorf("%w: %v", ErrOTPSendFailed, err)
	}

	return &dto.RequestOTPResponse{ExpiresIn: otp.RetryAfterSeconds(s.store.TTL())}, nil
}

// VerifyOTP 校验验证码，成功后标记邮箱已验证
func (s *VerificationService) VerifyOTP(ctx context.Context, callerEmail, email, code string) (*dto.VerificationStatusResponse, error) {
	email = normalizeEmail(email)
	if err := requireSelfOrAdmin(s.userRepo, callerEmail, email); err != nil {
		return nil, err
	}

	if err := s.store.Verify(ctx, email, code); err != nil {
		return nil, err
	}

	now := s.now()
	err := s.userRepo.UpdateFields(email, map[string]interface{}{
		"is_email_verified": true,
		"email_verified_at": now,
	})
	if err != nil {
		return nil, err
	}

	return &dto.VerificationStatusResponse{
		Email:           email,
		IsEmailVerified: true,
		EmailVerifiedAt: formatTime(&now),
	}, nil
}

// Status 查询邮箱验证状态
func (s *VerificationService) Status(callerEmail, email string) (*dto.VerificationStatusResponse, error) {
	email = normalizeEmail(email)
	if err := requireSelfOrAdmin(s.userRepo, callerEmail, email); err != nil {
		return nil, err
	}

	user, err := lookupUser(s.userRepo, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return &dto.VerificationStatusResponse{
		Email:           user.Email,
		IsEmailVerified: user.IsEmailVerified,
		EmailVerifiedAt: formatTime(user.EmailVerifiedAt),
	}, nil
}
