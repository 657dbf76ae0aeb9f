package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/echonow/echonow_server/internal/model"
)

var seq int64

func next() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := next()
	user := &model.User{
		Email: fmt.Sprintf("user_%d@example.com", n),
		Name:  fmt.Sprintf("Test User %d", n),
		Role:  model.RoleUser,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithName 设置显示名
func WithName(name string) func(*model.User) {
	return func(u *model.User) {
		u.Name = name
	}
}

// WithRole 设置角色，空字符串模拟旧数据
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// WithPremiumUntil 设置会员到期时间，过去的时间表示存储值已过期但未修正
func WithPremiumUntil(expiresAt time.Time) func(*model.User) {
	return func(u *model.User) {
		taken := expiresAt.Add(-24 * time.Hour)
		u.IsPremium = true
		u.PremiumTaken = &taken
		u.PremiumExpiresAt = &expiresAt
	}
}

// TestArticle 创建测试文章
func TestArticle(t *testing.T, db *gorm.DB, authorEmail string, opts ...func(*model.Article)) *model.Article {
	t.Helper()

	n := next()
	article := &model.Article{
		Title:       fmt.Sprintf("Test Article %d", n),
		Description: "body",
		Tags:        model.StringArray{"news"},
		Publisher:   "Daily Echo",
		AuthorName:  "Author",
		AuthorEmail: authorEmail,
		Status:      model.StatusPending,
		PostedAt:    time.Now().Add(time.Duration(n) * time.Millisecond),
	}

	for _, opt := range opts {
		opt(article)
	}

	if err := db.Create(article).Error; err != nil {
		t.Fatalf("Failed to create test article: %v", err)
	}

	return article
}

// WithTitle 设置标题
func WithTitle(title string) func(*model.Article) {
	return func(a *model.Article) {
		a.Title = title
	}
}

// WithStatus 设置审核状态
func WithStatus(status string) func(*model.Article) {
	return func(a *model.Article) {
		a.Status = status
	}
}

// WithDeclineReason 设置为已拒绝并带原因
func WithDeclineReason(reason string) func(*model.Article) {
	return func(a *model.Article) {
		a.Status = model.StatusDeclined
		a.DeclineReason = &reason
	}
}

// WithArticlePremium 设置为会员文章
func WithArticlePremium() func(*model.Article) {
	return func(a *model.Article) {
		a.IsPremium = true
	}
}

// WithTags 设置标签
func WithTags(tags ...string) func(*model.Article) {
	return func(a *model.Article) {
		a.Tags = tags
	}
}

// WithPublisher 设置出版方
func WithPublisher(name string) func(*model.Article) {
	return func(a *model.Article) {
		a.Publisher = name
	}
}

// WithType 设置推荐类型
func WithType(typ string) func(*model.Article) {
	return func(a *model.Article) {
		a.Type = typ
	}
}

// WithPostedAt 设置发布时间
func WithPostedAt(at time.Time) func(*model.Article) {
	return func(a *model.Article) {
		a.PostedAt = at
	}
}

// TestPublisher 创建测试出版方
func TestPublisher(t *testing.T, db *gorm.DB, name string) *model.Publisher {
	t.Helper()

	p := &model.Publisher{
		Name:     name,
		Logo:     "https://img.example.com/" + name + ".png",
		PostedAt: time.Now().Add(time.Duration(next()) * time.Millisecond),
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to create test publisher: %v", err)
	}
	return p
}
