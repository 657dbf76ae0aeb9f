package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 文章审核状态
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

// 文章类型，用于首页推荐位
const (
	TypeTrending = "trending"
	TypeHot      = "hot"
)

// StringArray 以 JSON 文本存储的字符串数组
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = StringArray{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return nil
	}
}

type Article struct {
	ID            string      `gorm:"primaryKey;size:36" json:"id"`
	Title         string      `gorm:"size:300;not null" json:"title"`
	Description   string      `gorm:"type:text" json:"description"`
	Image         string      `gorm:"size:500" json:"image"`
	Tags          StringArray `gorm:"type:text" json:"tags"`
	Publisher     string      `gorm:"size:100;index" json:"publisher"`
	Type          string      `gorm:"size:20;index" json:"type,omitempty"`
	AuthorName    string      `gorm:"size:100" json:"authorName"`
	AuthorEmail   string      `gorm:"size:255;not null;index" json:"authorEmail"`
	AuthorPhoto   string      `gorm:"size:500" json:"authorPhoto"`
	ViewCount     int64       `gorm:"not null;default:0" json:"viewCount"`
	IsPremium     bool        `gorm:"not null;default:false;index" json:"isPremium"`
	Status        string      `gorm:"size:20;not null;default:pending;index" json:"status"`
	DeclineReason *string     `gorm:"type:text" json:"declineReason"`
	PostedAt      time.Time   `gorm:"index" json:"postedAt"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

func (Article) TableName() string {
	return "articles"
}

// BeforeCreate 生成 uuid 主键
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
