package model

import (
	"time"
)

// Credential 身份认证信息，与用户资料分开存放
type Credential struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash *string   `gorm:"size:255" json:"-"`
	GithubID     *string   `gorm:"column:github_id;size:50;uniqueIndex" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Credential) TableName() string {
	return "credentials"
}
