package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Email          string    `gorm:"index" json:"email"`
	Password       string    `json:"-"` // Hash, empty for GitHub-only accounts
	Avatar         *string   `json:"avatar"`
	GitHubID       int64     `gorm:"column:github_id;index" json:"github_id"`
	GitHubUsername string    `gorm:"column:github_username;size:100;index" json:"github_username"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
