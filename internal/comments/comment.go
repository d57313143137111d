// Package comments holds the comment section of one article as seen by one
// viewer: the reply tree rebuilt from flat rows, optimistic like toggles and
// the create/reply/delete mutations that patch the tree in place.
package comments

import (
	"html/template"

	"yyblog/internal/models"
)

// Comment is a stored comment decorated with its like aggregate and replies.
type Comment struct {
	models.Comment
	LikeCount int        `json:"like_count"`
	LikedByMe bool       `json:"liked_by_me"`
	Replies   []*Comment `json:"replies"`

	// 以下字段只在快照中填充，用于展示
	ReplyTo     string        `json:"reply_to,omitempty"`
	Indent      int           `json:"indent"`
	ContentHTML template.HTML `json:"content_html,omitempty"`
}

// IsReply reports whether c has a parent reference.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// Article identifies the post a thread belongs to.
type Article struct {
	Slug    string
	Title   string
	OwnerID string
}

// Session is the signed-in identity as resolved by the auth layer.
type Session struct {
	UserID         string  `json:"user_id"`
	UserName       string  `json:"user_name"`
	Avatar         *string `json:"avatar"`
	Email          string  `json:"email"`
	GitHubUsername string  `json:"github_username,omitempty"`
}

// AdminFunc decides whether a session may perform admin-only actions.
type AdminFunc func(s *Session) bool

func decorate(row models.Comment) *Comment {
	return &Comment{
		Comment: row,
		Replies: []*Comment{},
	}
}
