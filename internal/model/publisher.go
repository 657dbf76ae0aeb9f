package model

import (
	"time"
)

type Publisher struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Logo      string    `gorm:"size:500" json:"logo"`
	PostedAt  time.Time `gorm:"index" json:"postedAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Publisher) TableName() string {
	return "publishers"
}
