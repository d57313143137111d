package services

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"yyblog/internal/comments"
	"yyblog/internal/models"
)

// CommentStore is the gorm implementation of comments.Store.
type CommentStore struct {
	db *gorm.DB
}

func NewCommentStore(db *gorm.DB) *CommentStore {
	return &CommentStore{db: db}
}

var _ comments.Store = (*CommentStore)(nil)

// storeError keeps the message and detail Postgres reported.
func storeError(op string, err error) error {
	se := &comments.StoreError{Op: op, Message: err.Error(), Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		se.Message = pgErr.Message
		se.Detail = pgErr.Detail
	}
	return se
}

func (s *CommentStore) ListComments(ctx context.Context, postSlug string) ([]models.Comment, error) {
	var rows []models.Comment
	err := s.db.WithContext(ctx).
		Where("post_slug = ?", postSlug).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, storeError("list comments", err)
	}
	return rows, nil
}

func (s *CommentStore) CountLikes(ctx context.Context, commentIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(commentIDs))
	if len(commentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CommentID int64
		Total     int
	}
	err := s.db.WithContext(ctx).Model(&models.CommentLike{}).
		Select("comment_id, COUNT(*) AS total").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, storeError("count likes", err)
	}
	for _, r := range rows {
		counts[r.CommentID] = r.Total
	}
	return counts, nil
}

func (s *CommentStore) LikedBy(ctx context.Context, userID string, commentIDs []int64) (map[int64]bool, error) {
	liked := make(map[int64]bool)
	if userID == "" || len(commentIDs) == 0 {
		return liked, nil
	}

	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Pluck("comment_id", &ids).Error
	if err != nil {
		return nil, storeError("load liked comments", err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (s *CommentStore) InsertComment(ctx context.Context, c *models.Comment) error {
	tx := s.db.WithContext(ctx)
	if c.ParentID != nil {
		var n int64
		err := tx.Model(&models.Comment{}).
			Where("id = ? AND post_slug = ?", *c.ParentID, c.PostSlug).
			Count(&n).Error
		if err != nil {
			return storeError("check parent comment", err)
		}
		if n == 0 {
			return comments.ErrParentNotFound
		}
	}

	if err := tx.Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return comments.ErrParentNotFound
		}
		return storeError("insert comment", err)
	}
	return nil
}

// DeleteComment removes the comment, every reply below it and their likes in
// one transaction. Deleting a comment that is already gone is not an error.
func (s *CommentStore) DeleteComment(ctx context.Context, commentID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doomed := []int64{commentID}
		frontier := []int64{commentID}
		seen := map[int64]bool{commentID: true}
		for len(frontier) > 0 {
			var children []int64
			if err := tx.Model(&models.Comment{}).
				Where("parent_id IN ?", frontier).
				Pluck("id", &children).Error; err != nil {
				return err
			}
			frontier = frontier[:0]
			for _, id := range children {
				if !seen[id] {
					seen[id] = true
					doomed = append(doomed, id)
					frontier = append(frontier, id)
				}
			}
		}

		if err := tx.Where("comment_id IN ?", doomed).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", doomed).Delete(&models.Comment{}).Error
	})
	if err != nil {
		return storeError("delete comment", err)
	}
	log.Printf("Comment %d deleted with its replies", commentID)
	return nil
}

func (s *CommentStore) LikeExists(ctx context.Context, commentID int64, userID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.CommentLike{}).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Count(&n).Error
	if err != nil {
		return false, storeError("check like", err)
	}
	return n > 0, nil
}

func (s *CommentStore) InsertLike(ctx context.Context, commentID int64, userID string) error {
	like := models.CommentLike{CommentID: commentID, UserID: userID}
	err := s.db.WithContext(ctx).Omit("Comment").Create(&like).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return comments.ErrDuplicateLike
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return comments.ErrCommentNotFound
	default:
		return storeError("insert like", err)
	}
}

func (s *CommentStore) DeleteLike(ctx context.Context, commentID int64, userID string) error {
	err := s.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&models.CommentLike{}).Error
	if err != nil {
		return storeError("delete like", err)
	}
	return nil
}
