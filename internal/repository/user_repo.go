package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/echonow/echonow_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(user *model.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepository) UpdateFields(email string, fields map[string]interface{}) error {
	return r.db.Model(&model.User{}).Where("email = ?", email).Updates(fields).Error
}

// ExistsByEmail 用户是否存在
func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// List 所有用户，新注册在前
func (r *UserRepository) List() ([]*model.User, error) {
	var users []*model.User
	err := r.db.Order("created_at DESC").Find(&users).Error
	return users, err
}

func (r *UserRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).Count(&count).Error
	return count, err
}

// CountPremiumAt 统计 at 时刻仍有效的会员
func (r *UserRepository) CountPremiumAt(at time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).
		Where("is_premium = ? AND premium_expires_at > ?", true, at).
		Count(&count).Error
	return count, err
}

// ListExpiredPremium 会员已到期但字段尚未清理的用户
func (r *UserRepository) ListExpiredPremium(at time.Time) ([]*model.User, error) {
	var users []*model.User
	err := r.expired(at).Find(&users).Error
	return users, err
}

// ClearExpiredPremium 批量清理到期会员，返回受影响行数
func (r *UserRepository) ClearExpiredPremium(at time.Time) (int64, error) {
	result := r.expired(at).Model(&model.User{}).Updates(map[string]interface{}{
		"is_premium":         false,
		"premium_taken":      nil,
		"premium_expires_at": nil,
	})
	return result.RowsAffected, result.Error
}

func (r *UserRepository) expired(at time.Time) *gorm.DB {
	return r.db.Where("premium_expires_at IS NOT NULL AND premium_expires_at <= ?", at)
}

// BackfillRoles 为没有角色的旧数据补上默认角色
func (r *UserRepository) BackfillRoles() (int64, error) {
	result := r.db.Model(&model.User{}).
		Where("role = ? OR role IS NULL", "").
		Update("role", model.RoleUser)
	return result.RowsAffected, result.Error
}

// CountMissingRole 没有角色的用户数
func (r *UserRepository) CountMissingRole() (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("role = ? OR role IS NULL", "").Count(&count).Error
	return count, err
}
