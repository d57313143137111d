package models

import (
	"time"
)

// Post 只保留评论区需要的文章字段，文章编辑不在本服务内
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"uniqueIndex;size:200;not null" json:"slug"`
	Title     string    `gorm:"not null" json:"title"`
	AuthorID  string    `gorm:"size:64;index" json:"author_id"` // 文章作者，接收评论通知
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
