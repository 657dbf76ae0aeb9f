package model

import (
	"time"
)

// 用户角色
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Premium 会员权益字段，IsPremium 只是最近一次写入时的结果，
// 读取时以 PremiumExpiresAt 为准
type Premium struct {
	IsPremium        bool       `gorm:"not null;default:false;index" json:"isPremium"`
	PremiumTaken     *time.Time `json:"premiumTaken"`
	PremiumExpiresAt *time.Time `gorm:"index" json:"premiumExpiresAt"`
}

type User struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	Email           string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name            string     `gorm:"size:100" json:"name"`
	Photo           string     `gorm:"size:500" json:"photo"`
	Role            string     `gorm:"size:20" json:"role"`
	IsEmailVerified bool       `gorm:"not null;default:false" json:"isEmailVerified"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt"`
	Premium         `gorm:"embedded"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
