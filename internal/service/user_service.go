package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/echonow/echonow_server/config"
	"github.com/echonow/echonow_server/internal/model"
	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/policy"
	"github.com/echonow/echonow_server/internal/repository"
)

var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrEmailRequired       = errors.New("邮箱不能为空")
	ErrInvalidPremiumTaken = errors.New("会员开通时间格式错误")
	ErrPremiumTakenSkew    = errors.New("会员开通时间与服务器时间相差过大")
)

// premiumTakenTolerance 客户端上报的开通时间允许的时钟偏差
const premiumTakenTolerance = 5 * time.Minute

type UserService struct {
	userRepo  *repository.UserRepository
	durations map[string]time.Duration
	now       func() time.Time
}

func NewUserService(userRepo *repository.UserRepository, cfg *config.Config) *UserService {
	return &UserService{
		userRepo:  userRepo,
		durations: cfg.Subscription.Durations(),
		now:       time.Now,
	}
}

// Upsert 登录后同步用户；已存在的用户先清理过期会员，再应用本次购买
func (s *UserService) Upsert(callerEmail string, req *dto.UpsertUserRequest) (*dto.UpsertUserResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if err := requireSelfOrAdmin(s.userRepo, callerEmail, email); err != nil {
		return nil, err
	}

	now := s.now()
	grant, err := s.grantFromRequest(req, now)
	if err != nil {
		return nil, err
	}

	user, err := lookupUser(s.userRepo, email)
	if err != nil {
		return nil, err
	}

	if user != nil {
		premium, changed := policy.ReconcileExpiry(user.Premium, now)
		user.Premium = premium
		if grant != nil {
			user.Premium = *grant
			changed = true
		}
		if changed {
			if err := s.userRepo.Update(user); err != nil {
				return nil, err
			}
		}
		return &dto.UpsertUserResponse{Created: false, User: buildUserInfo(user, now)}, nil
	}

	user = &model.User{
		Email: email,
		Name:  req.Name,
		Photo: req.Photo,
		Role:  model.RoleUser,
	}
	if grant != nil {
		user.Premium = *grant
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	return &dto.UpsertUserResponse{Created: true, User: buildUserInfo(user, now)}, nil
}

// grantFromRequest 开通时间以服务器时间为准，客户端时间只做偏差校验
func (s *UserService) grantFromRequest(req *dto.UpsertUserRequest, now time.Time) (*model.Premium, error) {
	if req.PremiumTaken == nil || req.Duration == nil || *req.PremiumTaken == "" || *req.Duration == "" {
		return nil, nil
	}
	takenAt, err := time.Parse(time.RFC3339, *req.PremiumTaken)
	if err != nil {
		return nil, ErrInvalidPremiumTaken
	}
	if skew := takenAt.Sub(now); skew > premiumTakenTolerance || skew < -premiumTakenTolerance {
		return nil, ErrPremiumTakenSkew
	}
	grant, err := policy.GrantPremium(now, now, *req.Duration, s.durations)
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// GetProfile 获取用户详情，缺失的角色补为 user 并写回
func (s *UserService) GetProfile(callerEmail, email string) (*dto.UserInfo, error) {
	email = normalizeEmail(email)
	if err := requireSelfOrAdmin(s.userRepo, callerEmail, email); err != nil {
		return nil, err
	}

	user, err := s.getUser(email)
	if err != nil {
		return nil, err
	}

	if user.Role == "" {
		user.Role = model.RoleUser
		if err := s.userRepo.UpdateFields(email, map[string]interface{}{"role": model.RoleUser}); err != nil {
			return nil, err
		}
	}

	return buildUserInfo(user, s.now()), nil
}

// UpdateProfile 更新昵称和头像，顺带清理过期会员
func (s *UserService) UpdateProfile(callerEmail, email string, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	email = normalizeEmail(email)
	if err := requireSelfOrAdmin(s.userRepo, callerEmail, email); err != nil {
		return nil, err
	}

	user, err := s.getUser(email)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Photo != nil {
		user.Photo = *req.Photo
	}

	now := s.now()
	user.Premium, _ = policy.ReconcileExpiry(user.Premium, now)

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	return buildUserInfo(user, now), nil
}

// MakeAdmin 设为管理员
func (s *UserService) MakeAdmin(email string) (*dto.UserInfo, error) {
	email = normalizeEmail(email)
	user, err := s.getUser(email)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateFields(email, map[string]interface{}{"role": model.RoleAdmin}); err != nil {
		return nil, err
	}
	user.Role = model.RoleAdmin

	return buildUserInfo(user, s.now()), nil
}

// GetRole 查询角色
func (s *UserService) GetRole(callerEmail, email string) (*dto.RoleResponse, error) {
	email = normalizeEmail(email)
	if err := requireSelfOrAdmin(s.userRepo, callerEmail, email); err != nil {
		return nil, err
	}

	user, err := s.getUser(email)
	if err != nil {
		return nil, err
	}

	role := user.Role
	if role == "" {
		role = model.RoleUser
	}
	return &dto.RoleResponse{Email: email, Role: role}, nil
}

// RoleOf 供鉴权中间件使用
func (s *UserService) RoleOf(email string) (string, error) {
	user, err := s.getUser(normalizeEmail(email))
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// ListAll 后台用户列表
func (s *UserService) ListAll() (*dto.AllUsersResponse, error) {
	now := s.now()

	users, err := s.userRepo.List()
	if err != nil {
		return nil, err
	}
	premium, err := s.userRepo.CountPremiumAt(now)
	if err != nil {
		return nil, err
	}

	infos := make([]*dto.UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, buildUserInfo(u, now))
	}

	return &dto.AllUsersResponse{
		TotalUsers:   int64(len(users)),
		PremiumUsers: premium,
		Users:        infos,
	}, nil
}

// CountInfo 公开统计
func (s *UserService) CountInfo() (*dto.UserCountResponse, error) {
	total, err := s.userRepo.Count()
	if err != nil {
		return nil, err
	}
	premium, err := s.userRepo.CountPremiumAt(s.now())
	if err != nil {
		return nil, err
	}
	return &dto.UserCountResponse{
		TotalUsers:   total,
		PremiumUsers: premium,
		NormalUsers:  total - premium,
	}, nil
}

// SweepExpiredPremium 批量清理到期会员，由定时任务调用
func (s *UserService) SweepExpiredPremium(now time.Time) (int64, error) {
	return s.userRepo.ClearExpiredPremium(now)
}

func (s *UserService) getUser(email string) (*model.User, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func buildUserInfo(user *model.User, now time.Time) *dto.UserInfo {
	active := policy.Active(user.Premium, now)
	info := &dto.UserInfo{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		Photo:           user.Photo,
		Role:            user.Role,
		IsPremium:       active,
		IsEmailVerified: user.IsEmailVerified,
		EmailVerifiedAt: formatTime(user.EmailVerifiedAt),
	}
	if info.Role == "" {
		info.Role = model.RoleUser
	}
	if active {
		info.PremiumTaken = formatTime(user.PremiumTaken)
		info.PremiumExpiresAt = formatTime(user.PremiumExpiresAt)
	}
	if !user.CreatedAt.IsZero() {
		info.CreatedAt = user.CreatedAt.UTC().Format(time.RFC3339)
	}
	return info
}
