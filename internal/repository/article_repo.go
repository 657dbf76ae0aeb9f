package repository

import (
	"encoding/json"
	"strings"

	"gorm.io/gorm"

	"github.com/echonow/echonow_server/internal/model"
)

// ArticleFilter 列表过滤条件，零值字段不参与过滤
type ArticleFilter struct {
	Search      string
	Publisher   string
	Tags        []string
	Status      string
	AuthorEmail string
	Types       []string
	PremiumOnly bool
}

// PublisherCount 出版方文章数
type PublisherCount struct {
	Publisher string `json:"publisher"`
	Count     int64  `json:"count"`
}

type ArticleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) Create(article *model.Article) error {
	return r.db.Create(article).Error
}

func (r *ArticleRepository) GetByID(id string) (*model.Article, error) {
	var article model.Article
	err := r.db.Where("id = ?", id).First(&article).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// UpdateFields 部分更新，map 中的 nil 会写成 NULL
func (r *ArticleRepository) UpdateFields(id string, fields map[string]interface{}) error {
	return r.db.Model(&model.Article{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 物理删除，返回受影响行数
func (r *ArticleRepository) Delete(id string) (int64, error) {
	result := r.db.Where("id = ?", id).Delete(&model.Article{})
	return result.RowsAffected, result.Error
}

// CountByAuthor 作者已有文章数
func (r *ArticleRepository) CountByAuthor(email string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Article{}).Where("author_email = ?", email).Count(&count).Error
	return count, err
}

func (r *ArticleRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Article{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *ArticleRepository) applyFilter(query *gorm.DB, f ArticleFilter) *gorm.DB {
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		query = query.Where("LOWER(title) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(f.Search))+"%")
	}
	if f.Publisher != "" {
		query = query.Where("publisher = ?", f.Publisher)
	}
	if f.AuthorEmail != "" {
		query = query.Where("author_email = ?", f.AuthorEmail)
	}
	if len(f.Types) > 0 {
		query = query.Where("type IN ?", f.Types)
	}
	if f.PremiumOnly {
		query = query.Where("is_premium = ?", true)
	}

	// 标签以 JSON 文本存储，按编码后的完整元素匹配，任一标签命中即可
	var tagCond *gorm.DB
	for _, tag := range f.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		encoded, err := json.Marshal(tag)
		if err != nil {
			continue
		}
		pattern := "%" + escapeLike(string(encoded)) + "%"
		if tagCond == nil {
			tagCond = r.db.Where("tags LIKE ? ESCAPE '!'", pattern)
		} else {
			tagCond = tagCond.Or("tags LIKE ? ESCAPE '!'", pattern)
		}
	}
	if tagCond != nil {
		query = query.Where(tagCond)
	}
	return query
}

// escapeLike 转义 LIKE 通配符，配合 ESCAPE '!' 使用。
// 不用反斜杠，JSON 文本里本身就有反斜杠，MySQL 字符串字面量也会处理它
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// List 按条件分页查询，最新发布在前
func (r *ArticleRepository) List(f ArticleFilter, page, limit int) ([]*model.Article, int64, error) {
	var articles []*model.Article
	var total int64

	query := r.applyFilter(r.db.Model(&model.Article{}), f)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("posted_at DESC").Offset(offset).Limit(limit).Find(&articles).Error; err != nil {
		return nil, 0, err
	}

	return articles, total, nil
}

// Latest 不分页取最新 n 条，n <= 0 表示不限
func (r *ArticleRepository) Latest(f ArticleFilter, n int) ([]*model.Article, error) {
	var articles []*model.Article
	query := r.applyFilter(r.db.Model(&model.Article{}), f).Order("posted_at DESC")
	if n > 0 {
		query = query.Limit(n)
	}
	err := query.Find(&articles).Error
	return articles, err
}

// ListForModeration 全部文章，pending、approved、declined 依次排列
func (r *ArticleRepository) ListForModeration() ([]*model.Article, error) {
	var articles []*model.Article
	err := r.db.Order(gorm.Expr(
		"CASE status WHEN ? THEN 1 WHEN ? THEN 2 WHEN ? THEN 3 ELSE 4 END",
		model.StatusPending, model.StatusApproved, model.StatusDeclined,
	)).Order("posted_at DESC").Find(&articles).Error
	return articles, err
}

// IncrementViewCount 原子递增浏览数，返回受影响行数
func (r *ArticleRepository) IncrementViewCount(id string) (int64, error) {
	result := r.db.Model(&model.Article{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	return result.RowsAffected, result.Error
}

// CountApprovedByPublisher 各出版方已通过文章数
func (r *ArticleRepository) CountApprovedByPublisher() ([]PublisherCount, error) {
	var counts []PublisherCount
	err := r.db.Model(&model.Article{}).
		Select("publisher, COUNT(*) AS count").
		Where("status = ?", model.StatusApproved).
		Group("publisher").
		Order("count DESC").
		Scan(&counts).Error
	return counts, err
}
