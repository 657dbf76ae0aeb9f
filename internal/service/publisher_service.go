package service

import (
	"errors"
	"strings"
	"time"

	"github.com/echonow/echonow_server/internal/model"
	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/repository"
)

var (
	ErrPublisherNameRequired = errors.New("出版方名称不能为空")
	ErrPublisherExists       = errors.New("出版方已存在")
)

const (
	recentPublishers      = 3
	articlesPerPublisher  = 4
	noArticlesPlaceholder = "No articles available"
)

type PublisherService struct {
	publisherRepo *repository.PublisherRepository
	articleRepo   *repository.ArticleRepository
	userRepo      *repository.UserRepository
	now           func() time.Time
}

func NewPublisherService(
	publisherRepo *repository.PublisherRepository,
	articleRepo *repository.ArticleRepository,
	userRepo *repository.UserRepository,
) *PublisherService {
	return &PublisherService{
		publisherRepo: publisherRepo,
		articleRepo:   articleRepo,
		userRepo:      userRepo,
		now:           time.Now,
	}
}

// Create 创建出版方，名称唯一
func (s *PublisherService) Create(req *dto.CreatePublisherRequest) (*model.Publisher, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrPublisherNameRequired
	}

	exists, err := s.publisherRepo.ExistsByName(name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrPublisherExists
	}

	p := &model.Publisher{
		Name:     name,
		Logo:     strings.TrimSpace(req.Logo),
		PostedAt: s.now(),
	}
	if err := s.publisherRepo.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Overview 后台概览：总数、最近 3 个、全部
func (s *PublisherService) Overview() (*dto.PublisherOverview, error) {
	count, err := s.publisherRepo.Count()
	if err != nil {
		return nil, err
	}
	all, err := s.publisherRepo.List(0)
	if err != nil {
		return nil, err
	}

	recent := all
	if len(recent) > recentPublishers {
		recent = recent[:recentPublishers]
	}

	return &dto.PublisherOverview{Count: count, Recent: recent, All: all}, nil
}

// Stats 各出版方已通过文章数
func (s *PublisherService) Stats() ([]repository.PublisherCount, error) {
	counts, err := s.articleRepo.CountApprovedByPublisher()
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []repository.PublisherCount{}
	}
	return counts, nil
}

// WithArticles 每个出版方最新的已通过文章；matchedArticles 与 publishers 一一对应，
// 没有文章时用占位文章。会员文章按查看者身份决定是否清空正文
func (s *PublisherService) WithArticles(viewerEmail string) (*dto.PublishersWithArticlesResponse, error) {
	publishers, err := s.publisherRepo.List(0)
	if err != nil {
		return nil, err
	}

	resp := &dto.PublishersWithArticlesResponse{
		Publishers:      make([]*dto.PublisherWithArticles, 0, len(publishers)),
		MatchedArticles: make([]*model.Article, 0, len(publishers)),
	}

	now := s.now()
	for _, p := range publishers {
		articles, err := s.articleRepo.Latest(repository.ArticleFilter{
			Status:    model.StatusApproved,
			Publisher: p.Name,
		}, articlesPerPublisher)
		if err != nil {
			return nil, err
		}
		if articles == nil {
			articles = []*model.Article{}
		}
		if err := redactPremium(s.userRepo, viewerEmail, now, articles); err != nil {
			return nil, err
		}

		resp.Publishers = append(resp.Publishers, &dto.PublisherWithArticles{Publisher: p, Articles: articles})

		if len(articles) > 0 {
			resp.MatchedArticles = append(resp.MatchedArticles, articles[0])
		} else {
			resp.MatchedArticles = append(resp.MatchedArticles, &model.Article{Title: noArticlesPlaceholder, Tags: model.StringArray{}})
		}
	}

	return resp, nil
}
