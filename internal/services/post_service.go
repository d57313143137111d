package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"yyblog/internal/comments"
	"yyblog/internal/models"
)

type PostService struct {
	db *gorm.DB
}

func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// GetArticle resolves the article a comment section belongs to. Articles are
// published outside this service, so an unknown slug still gets a section; it
// just has no owner to notify.
func (s *PostService) GetArticle(ctx context.Context, slug string) (comments.Article, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return comments.Article{Slug: slug, Title: slug}, nil
	}
	if err != nil {
		return comments.Article{}, fmt.Errorf("load post %s: %w", slug, err)
	}
	return comments.Article{Slug: post.Slug, Title: post.Title, OwnerID: post.AuthorID}, nil
}
