package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/echonow/echonow_server/config"
	"github.com/echonow/echonow_server/internal/model"
	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/pkg/jwt"
	"github.com/echonow/echonow_server/internal/pkg/oauth"
	"github.com/echonow/echonow_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrGithubDisabled     = errors.New("未启用 GitHub 登录")
	ErrGithubEmailMissing = errors.New("GitHub 账号没有可用的已验证邮箱")
	ErrGithubFailed       = errors.New("GitHub 登录失败")
)

// GithubProvider GitHub OAuth 客户端
type GithubProvider interface {
	Enabled() bool
	GetAuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	GetUser(ctx context.Context, token *oauth2.Token) (*oauth.GithubUser, error)
}

// StateStore OAuth state 存储
type StateStore interface {
	GenerateState(ctx context.Context, redirectURI string) (string, error)
	ValidateState(ctx context.Context, state string) (string, error)
}

type AuthService struct {
	credRepo *repository.CredentialRepository
	userRepo *repository.UserRepository
	github   GithubProvider
	states   StateStore
	cfg      *config.Config
	now      func() time.Time
}

func NewAuthService(
	credRepo *repository.CredentialRepository,
	userRepo *repository.UserRepository,
	github GithubProvider,
	states StateStore,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		credRepo: credRepo,
		userRepo: userRepo,
		github:   github,
		states:   states,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Register 邮箱密码注册，同时创建用户资料
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.LoginResponse, error) {
	email := normalizeEmail(req.Email)

	exists, err := s.credRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hash := string(hashed)

	if err := s.credRepo.Create(&model.Credential{Email: email, PasswordHash: &hash}); err != nil {
		return nil, err
	}

	user, err := s.ensureProfile(email, req.Name, req.Photo)
	if err != nil {
		return nil, err
	}

	return s.issue(user)
}

// Login 邮箱密码登录
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	email := normalizeEmail(req.Email)

	cred, err := s.credRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// GitHub 用户没有密码
	if cred.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*cred.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.ensureProfile(email, "", "")
	if err != nil {
		return nil, err
	}

	return s.issue(user)
}

// GithubAuthURL 生成授权地址，redirect 为登录完成后的前端地址
func (s *AuthService) GithubAuthURL(ctx context.Context, redirect string) (string, error) {
	if s.github == nil || !s.github.Enabled() {
		return "", ErrGithubDisabled
	}
	if redirect == "" {
		redirect = s.cfg.OAuth.Github.FrontendURL
	}

	state, err := s.states.GenerateState(ctx, redirect)
	if err != nil {
		return "", err
	}
	return s.github.GetAuthURL(state), nil
}

// GithubCallback 处理回调，返回登录结果和前端跳转地址
func (s *AuthService) GithubCallback(ctx context.Context, code, state string) (*dto.LoginResponse, string, error) {
	if s.github == nil || !s.github.Enabled() {
		return nil, "", ErrGithubDisabled
	}

	redirect, err := s.states.ValidateState(ctx, state)
	if err != nil {
		return nil, "", err
	}

	token, err := s.github.Exchange(ctx, code)
	if err != nil {
		return nil, redirect, fmt.Errorf("%w: exchange code: %v", ErrGithubFailed, err)
	}

	ghUser, err := s.github.GetUser(ctx, token)
	if err != nil {
		return nil, redirect, fmt.Errorf("%w: get user: %v", ErrGithubFailed, err)
	}
	if ghUser.Email == "" {
		return nil, redirect, ErrGithubEmailMissing
	}

	githubID := strconv.FormatInt(ghUser.ID, 10)
	email := normalizeEmail(ghUser.Email)

	if err := s.linkGithub(githubID, email); err != nil {
		return nil, redirect, err
	}

	user, err := s.ensureProfile(email, ghUser.DisplayName(), ghUser.AvatarURL)
	if err != nil {
		return nil, redirect, err
	}

	resp, err := s.issue(user)
	return resp, redirect, err
}

// linkGithub 已有同邮箱凭证时绑定 GitHub ID，否则新建
func (s *AuthService) linkGithub(githubID, email string) error {
	_, err := s.credRepo.GetByGithubID(githubID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	cred, err := s.credRepo.GetByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if cred != nil {
		cred.GithubID = &githubID
		return s.credRepo.Update(cred)
	}

	return s.credRepo.Create(&model.Credential{Email: email, GithubID: &githubID})
}

// ensureProfile 用户资料不存在时创建
func (s *AuthService) ensureProfile(email, name, photo string) (*model.User, error) {
	user, err := lookupUser(s.userRepo, email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user = &model.User{Email: email, Name: name, Photo: photo, Role: model.RoleUser}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*dto.LoginResponse, error) {
	token, err := jwt.GenerateToken(user.Email, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{Token: token, User: buildUserInfo(user, s.now())}, nil
}
