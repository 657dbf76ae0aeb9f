package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/echonow/echonow_server/internal/model"
	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/pkg/logger"
	"github.com/echonow/echonow_server/internal/pkg/pubsub"
	"github.com/echonow/echonow_server/internal/policy"
	"github.com/echonow/echonow_server/internal/repository"
)

var (
	ErrArticleNotFound      = errors.New("文章不存在")
	ErrTitleRequired        = errors.New("文章标题不能为空")
	ErrInvalidPostedAt      = errors.New("发布时间格式错误")
	ErrQuotaExceeded        = errors.New("非会员用户只能发布一篇文章，请开通会员")
	ErrPremiumLoginRequired = errors.New("会员文章需要登录后查看")
	ErrPremiumRequired      = errors.New("会员文章仅对有效会员开放")
)

const (
	trendingLimit   = 4
	specialLimit    = 10
	topFashionLimit = 10
	fashionTag      = "fashion"
)

// ModerationNotifier 审核结果通知
type ModerationNotifier interface {
	PublishModeration(ctx context.Context, ev *pubsub.ModerationEvent) error
}

type ArticleService struct {
	articleRepo *repository.ArticleRepository
	userRepo    *repository.UserRepository
	notifier    ModerationNotifier
	log         *logger.Logger
	now         func() time.Time
}

func NewArticleService(
	articleRepo *repository.ArticleRepository,
	userRepo *repository.UserRepository,
	notifier ModerationNotifier,
	log *logger.Logger,
) *ArticleService {
	if log == nil {
		log = logger.Nop()
	}
	return &ArticleService{
		articleRepo: articleRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		log:         log,
		now:         time.Now,
	}
}

// Create 创建文章，新文章一律待审核
func (s *ArticleService) Create(callerEmail string, req *dto.CreateArticleRequest) (*dto.CreateArticleResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	authorEmail := normalizeEmail(req.AuthorEmail)
	if authorEmail == "" {
		authorEmail = callerEmail
	}
	if err := requireSelfOrAdmin(s.userRepo, callerEmail, authorEmail); err != nil {
		return nil, err
	}

	now := s.now()
	postedAt := now
	if req.PostedAt != nil && *req.PostedAt != "" {
		t, err := time.Parse(time.RFC3339, *req.PostedAt)
		if err != nil {
			return nil, ErrInvalidPostedAt
		}
		postedAt = t
	}

	author, err := lookupUser(s.userRepo, authorEmail)
	if err != nil {
		return nil, err
	}

	// 先查后插，并发时可能多出一篇，可以接受
	existing, err := s.articleRepo.CountByAuthor(authorEmail)
	if err != nil {
		return nil, err
	}
	authorPremium := author != nil && policy.Active(author.Premium, now)
	if policy.ViolatesQuota(existing, authorPremium) {
		return nil, ErrQuotaExceeded
	}

	article := &model.Article{
		Title:       title,
		Description: req.Description,
		Image:       req.Image,
		Tags:        cleanTags(req.Tags),
		Publisher:   req.Publisher,
		Type:        req.Type,
		AuthorName:  req.AuthorName,
		AuthorEmail: authorEmail,
		AuthorPhoto: req.AuthorPhoto,
		Status:      model.StatusPending,
		PostedAt:    postedAt,
	}
	if author != nil {
		if article.AuthorName == "" {
			article.AuthorName = author.Name
		}
		if article.AuthorPhoto == "" {
			article.AuthorPhoto = author.Photo
		}
	}

	if err := s.articleRepo.Create(article); err != nil {
		return nil, err
	}

	return &dto.CreateArticleResponse{InsertedID: article.ID}, nil
}

// List 公开列表，只返回已通过的文章
func (s *ArticleService) List(viewerEmail string, q *dto.ListArticlesQuery) ([]*model.Article, int64, error) {
	f := repository.ArticleFilter{
		Status:    model.StatusApproved,
		Search:    strings.TrimSpace(q.Search),
		Publisher: strings.TrimSpace(q.Publisher),
		Tags:      splitTags(q.Tags),
	}
	items, total, err := s.articleRepo.List(f, q.Page, q.Limit)
	if err != nil {
		return nil, 0, err
	}
	if err := redactPremium(s.userRepo, viewerEmail, s.now(), items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListPremium 会员文章列表，仅有效会员和管理员可看
func (s *ArticleService) ListPremium(viewerEmail string, page, limit int) ([]*model.Article, int64, error) {
	if viewerEmail == "" {
		return nil, 0, ErrPremiumLoginRequired
	}
	viewer, err := lookupUser(s.userRepo, viewerEmail)
	if err != nil {
		return nil, 0, err
	}
	if !viewer.IsAdmin() && (viewer == nil || !policy.Active(viewer.Premium, s.now())) {
		return nil, 0, ErrPremiumRequired
	}

	f := repository.ArticleFilter{Status: model.StatusApproved, PremiumOnly: true}
	return s.articleRepo.List(f, page, limit)
}

// ListForAdmin 后台列表，按 pending、approved、declined 排序
func (s *ArticleService) ListForAdmin() (*dto.AdminArticlesResponse, error) {
	articles, err := s.articleRepo.ListForModeration()
	if err != nil {
		return nil, err
	}
	approved, err := s.articleRepo.CountByStatus(model.StatusApproved)
	if err != nil {
		return nil, err
	}
	return &dto.AdminArticlesResponse{TotalApproved: approved, Articles: articles}, nil
}

// ListByAuthor 某作者的全部文章，含未通过的
func (s *ArticleService) ListByAuthor(callerEmail, authorEmail string) ([]*model.Article, error) {
	authorEmail = normalizeEmail(authorEmail)
	if authorEmail == "" {
		return nil, ErrEmailRequired
	}
	if err := requireSelfOrAdmin(s.userRepo, callerEmail, authorEmail); err != nil {
		return nil, err
	}
	return s.articleRepo.Latest(repository.ArticleFilter{AuthorEmail: authorEmail}, 0)
}

// Trending 首页热门
func (s *ArticleService) Trending(viewerEmail string) ([]*model.Article, error) {
	return s.feed(viewerEmail, repository.ArticleFilter{
		Status: model.StatusApproved,
		Types:  []string{model.TypeTrending},
	}, trendingLimit)
}

// Special 首页专题，hot 和 trending 都算
func (s *ArticleService) Special(viewerEmail string) ([]*model.Article, error) {
	return s.feed(viewerEmail, repository.ArticleFilter{
		Status: model.StatusApproved,
		Types:  []string{model.TypeHot, model.TypeTrending},
	}, specialLimit)
}

// TopFashion 时尚标签
func (s *ArticleService) TopFashion(viewerEmail string) ([]*model.Article, error) {
	return s.feed(viewerEmail, repository.ArticleFilter{
		Status: model.StatusApproved,
		Tags:   []string{fashionTag},
	}, topFashionLimit)
}

// BannerTrending 轮播图，不限数量
func (s *ArticleService) BannerTrending(viewerEmail string) ([]*model.Article, error) {
	return s.feed(viewerEmail, repository.ArticleFilter{
		Status: model.StatusApproved,
		Types:  []string{model.TypeTrending},
	}, 0)
}

func (s *ArticleService) feed(viewerEmail string, f repository.ArticleFilter, n int) ([]*model.Article, error) {
	items, err := s.articleRepo.Latest(f, n)
	if err != nil {
		return nil, err
	}
	if err := redactPremium(s.userRepo, viewerEmail, s.now(), items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get 获取文章；会员文章要求登录且为有效会员，管理员和作者本人除外
func (s *ArticleService) Get(viewerEmail, id string) (*model.Article, error) {
	article, err := s.getArticle(id)
	if err != nil {
		return nil, err
	}
	if !article.IsPremium {
		return article, nil
	}

	if viewerEmail == "" {
		return nil, ErrPremiumLoginRequired
	}
	viewer, err := lookupUser(s.userRepo, viewerEmail)
	if err != nil {
		return nil, err
	}
	if viewer == nil {
		viewer = &model.User{Email: viewerEmail}
	}
	if !policy.CanReadPremium(viewer, article.AuthorEmail, s.now()) {
		return nil, ErrPremiumRequired
	}
	return article, nil
}

// IncrementViews 浏览数 +1
func (s *ArticleService) IncrementViews(id string) (*dto.ViewCountResponse, error) {
	rows, err := s.articleRepo.IncrementViewCount(id)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrArticleNotFound
	}
	return &dto.ViewCountResponse{ModifiedCount: rows}, nil
}

// Update 部分更新；作者只能改内容，审核相关字段仅管理员可改
func (s *ArticleService) Update(ctx context.Context, callerEmail, id string, req *dto.UpdateArticleRequest) (*model.Article, error) {
	article, err := s.getArticle(id)
	if err != nil {
		return nil, err
	}

	caller, err := lookupUser(s.userRepo, callerEmail)
	if err != nil {
		return nil, err
	}
	isAdmin := caller.IsAdmin()
	isOwner := callerEmail != "" && article.AuthorEmail == callerEmail
	if !isAdmin && (!isOwner || req.HasModeration()) {
		return nil, ErrForbidden
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Image != nil {
		fields["image"] = *req.Image
	}
	if req.Tags != nil {
		fields["tags"] = cleanTags(*req.Tags)
	}
	if req.Publisher != nil {
		fields["publisher"] = *req.Publisher
	}
	if req.Type != nil {
		fields["type"] = *req.Type
	}
	if req.IsPremium != nil {
		fields["is_premium"] = *req.IsPremium
	}

	statusChanged := false
	if req.Status != nil || req.DeclineReason != nil {
		target := model.StatusDeclined
		if req.Status != nil {
			target = *req.Status
		}
		m, err := policy.Moderate(article.Status, target, req.DeclineReason)
		if err != nil {
			return nil, err
		}
		fields["status"] = m.Status
		if m.DeclineReason != nil {
			fields["decline_reason"] = *m.DeclineReason
		} else {
			fields["decline_reason"] = gorm.Expr("NULL")
		}
		statusChanged = m.Status != article.Status || !sameReason(m.DeclineReason, article.DeclineReason)
	}

	if len(fields) == 0 {
		return article, nil
	}

	if err := s.articleRepo.UpdateFields(id, fields); err != nil {
		return nil, err
	}

	updated, err := s.getArticle(id)
	if err != nil {
		return nil, err
	}

	if statusChanged {
		s.notify(ctx, updated)
	}

	return updated, nil
}

// Delete 物理删除，管理员或作者本人
func (s *ArticleService) Delete(callerEmail, id string) error {
	article, err := s.getArticle(id)
	if err != nil {
		return err
	}

	if article.AuthorEmail != callerEmail {
		caller, err := lookupUser(s.userRepo, callerEmail)
		if err != nil {
			return err
		}
		if !caller.IsAdmin() {
			return ErrForbidden
		}
	}

	rows, err := s.articleRepo.Delete(id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrArticleNotFound
	}
	return nil
}

// notify 推送失败只记录日志，不影响审核结果
func (s *ArticleService) notify(ctx context.Context, article *model.Article) {
	if s.notifier == nil {
		return
	}
	ev := &pubsub.ModerationEvent{
		ArticleID:     article.ID,
		Title:         article.Title,
		AuthorEmail:   article.AuthorEmail,
		Status:        article.Status,
		DeclineReason: article.DeclineReason,
		IsPremium:     article.IsPremium,
		At:            s.now(),
	}
	if err := s.notifier.PublishModeration(ctx, ev); err != nil {
		s.log.Warn("publish moderation event failed", "article_id", article.ID, "error", err)
	}
}

func (s *ArticleService) getArticle(id string) (*model.Article, error) {
	article, err := s.articleRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	return article, nil
}

func sameReason(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return cleanTags(strings.Split(raw, ","))
}

// cleanTags 去空白、去重，保持原顺序
func cleanTags(tags []string) model.StringArray {
	out := make(model.StringArray, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
