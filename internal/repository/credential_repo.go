package repository

import (
	"gorm.io/gorm"

	"github.com/echonow/echonow_server/internal/model"
)

type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Create(c *model.Credential) error {
	return r.db.Create(c).Error
}

func (r *CredentialRepository) GetByEmail(email string) (*model.Credential, error) {
	var c model.Credential
	if err := r.db.Where("email = ?", email).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CredentialRepository) GetByGithubID(githubID string) (*model.Credential, error) {
	var c model.Credential
	if err := r.db.Where("github_id = ?", githubID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CredentialRepository) Update(c *model.Credential) error {
	return r.db.Save(c).Error
}

func (r *CredentialRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Credential{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}
