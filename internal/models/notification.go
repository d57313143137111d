package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         string    `gorm:"size:64;not null;index" json:"user_id"` // Receiver (post owner)
	PostSlug       string    `gorm:"size:200;not null" json:"post_slug"`
	PostTitle      string    `gorm:"not null" json:"post_title"`
	CommentID      int64     `gorm:"not null;index" json:"comment_id"`
	CommentContent string    `gorm:"type:text" json:"comment_content"`
	CommenterName  string    `gorm:"size:100" json:"commenter_name"`
	IsRead         bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
