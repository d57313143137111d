package comments

import (
	"context"

	"yyblog/internal/models"
)

// Store is the relational data store behind the comment section.
type Store interface {
	// ListComments returns every comment of a post ordered by created_at ascending.
	ListComments(ctx context.Context, postSlug string) ([]models.Comment, error)
	// CountLikes returns like counts keyed by comment id; ids without likes may be absent.
	CountLikes(ctx context.Context, commentIDs []int64) (map[int64]int, error)
	// LikedBy returns the subset of commentIDs the user has liked.
	LikedBy(ctx context.Context, userID string, commentIDs []int64) (map[int64]bool, error)
	// InsertComment stores c and fills in its ID and CreatedAt.
	InsertComment(ctx context.Context, c *models.Comment) error
	// DeleteComment removes the comment and, transitively, every reply under it.
	DeleteComment(ctx context.Context, commentID int64) error

	LikeExists(ctx context.Context, commentID int64, userID string) (bool, error)
	// InsertLike returns ErrDuplicateLike when the pair already exists.
	InsertLike(ctx context.Context, commentID int64, userID string) error
	// DeleteLike is idempotent.
	DeleteLike(ctx context.Context, commentID int64, userID string) error
}

// NewCommentNotice is what the post owner is told about a new comment.
type NewCommentNotice struct {
	PostSlug      string
	PostTitle     string
	CommentID     int64
	Content       string
	CommenterName string
	PostOwnerID   string
}

// Notifier persists owner notifications. Calls are best-effort.
type Notifier interface {
	NotifyComment(ctx context.Context, n NewCommentNotice) error
}
