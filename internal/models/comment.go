package models

import (
	"time"
)

type Comment struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	PostSlug   string    `gorm:"size:200;not null;index" json:"post_slug"`
	UserID     string    `gorm:"size:64;not null;index" json:"user_id"`
	UserName   string    `gorm:"size:100;not null" json:"user_name"`
	UserAvatar *string   `json:"user_avatar"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsAdmin    bool      `gorm:"default:false" json:"is_admin"` // 发表时的管理员身份快照
	ParentID   *int64    `gorm:"index" json:"parent_id"`        // Nullable for top-level comments
	Parent     *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	// No UpdatedAt: comments are never edited.
}
