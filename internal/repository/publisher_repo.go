package repository

import (
	"gorm.io/gorm"

	"github.com/echonow/echonow_server/internal/model"
)

type PublisherRepository struct {
	db *gorm.DB
}

func NewPublisherRepository(db *gorm.DB) *PublisherRepository {
	return &PublisherRepository{db: db}
}

func (r *PublisherRepository) Create(p *model.Publisher) error {
	return r.db.Create(p).Error
}

func (r *PublisherRepository) ExistsByName(name string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Publisher{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// List 按发布时间倒序，limit <= 0 表示全部
func (r *PublisherRepository) List(limit int) ([]*model.Publisher, error) {
	var publishers []*model.Publisher
	query := r.db.Order("posted_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&publishers).Error
	return publishers, err
}

func (r *PublisherRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Publisher{}).Count(&count).Error
	return count, err
}
