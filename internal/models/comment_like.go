package models

import (
	"time"
)

// CommentLike 评论点赞 - 每个用户对每条评论最多一条记录
type CommentLike struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	CommentID int64     `gorm:"not null;index;uniqueIndex:idx_comment_like_user" json:"comment_id"`
	Comment   Comment   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    string    `gorm:"size:64;not null;index;uniqueIndex:idx_comment_like_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}
