package service

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/echonow/echonow_server/internal/model"
	"github.com/echonow/echonow_server/internal/policy"
	"github.com/echonow/echonow_server/internal/repository"
)

var ErrForbidden = errors.New("无权执行此操作")

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// lookupUser 用户不存在时返回 nil, nil
func lookupUser(repo *repository.UserRepository, email string) (*model.User, error) {
	if email == "" {
		return nil, nil
	}
	user, err := repo.GetByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return user, err
}

// requireSelfOrAdmin 只能操作自己的数据，管理员除外
func requireSelfOrAdmin(repo *repository.UserRepository, caller, target string) error {
	if caller != "" && caller == target {
		return nil
	}
	user, err := lookupUser(repo, caller)
	if err != nil {
		return err
	}
	if !user.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// redactPremium 当前查看者无权阅读的会员文章清空正文，列表里只保留摘要信息
func redactPremium(repo *repository.UserRepository, viewerEmail string, now time.Time, articles []*model.Article) error {
	var viewer *model.User
	resolved := false
	for _, a := range articles {
		if !a.IsPremium {
			continue
		}
		if !resolved {
			v, err := lookupUser(repo, viewerEmail)
			if err != nil {
				return err
			}
			if v == nil && viewerEmail != "" {
				v = &model.User{Email: viewerEmail}
			}
			viewer, resolved = v, true
		}
		if !policy.CanReadPremium(viewer, a.AuthorEmail, now) {
			a.Description = ""
		}
	}
	return nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
