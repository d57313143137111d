package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"yyblog/internal/auth"
	"yyblog/internal/comments"
	"yyblog/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *UserService) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// GitHubProfile is the subset of the GitHub user API the login flow needs.
type GitHubProfile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// UpsertGitHubUser creates the user on first login and refreshes the profile
// fields on later ones.
func (s *UserService) UpsertGitHubUser(ctx context.Context, p GitHubProfile) (*models.User, error) {
	name := p.Name
	if name == "" {
		name = p.Login
	}
	var avatar *string
	if p.AvatarURL != "" {
		avatar = &p.AvatarURL
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("github_id = ?", p.ID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{
				Name:           name,
				Email:          p.Email,
				Avatar:         avatar,
				GitHubID:       p.ID,
				GitHubUsername: p.Login,
			}
			return tx.Create(&user).Error
		}
		if err != nil {
			return err
		}

		user.Name = name
		user.Avatar = avatar
		user.GitHubUsername = p.Login
		if p.Email != "" {
			user.Email = p.Email
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert github user %s: %w", p.Login, err)
	}
	return &user, nil
}

// SessionFor converts a stored user into the identity the comment core uses.
func SessionFor(u *models.User) *comments.Session {
	return &comments.Session{
		UserID:         u.ID,
		UserName:       u.Name,
		Avatar:         u.Avatar,
		Email:          u.Email,
		GitHubUsername: u.GitHubUsername,
	}
}

// EnsurePasswordUser creates or updates an e-mail account with the given
// password. It is used to bootstrap the allow-listed admin logins.
func (s *UserService) EnsurePasswordUser(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		user = &models.User{Name: strings.Split(email, "@")[0], Email: email, Password: hash}
		if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
			return nil, fmt.Errorf("create user %s: %w", email, err)
		}
		return user, nil
	case err != nil:
		return nil, err
	}

	user.Password = hash
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, fmt.Errorf("update password of %s: %w", email, err)
	}
	return user, nil
}
