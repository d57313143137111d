package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"yyblog/internal/comments"
	"yyblog/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

const notificationListLimit = 50

// NotificationService stores comment notifications for post owners and can
// copy them to an e-mail address.
type NotificationService struct {
	db          *gorm.DB
	mail        *MailService
	notifyEmail string
	siteURL     string
}

func NewNotificationService(db *gorm.DB, mail *MailService, notifyEmail, siteURL string) *NotificationService {
	return &NotificationService{db: db, mail: mail, notifyEmail: notifyEmail, siteURL: siteURL}
}

var _ comments.Notifier = (*NotificationService)(nil)

// NotifyComment records a notification for the post owner.
func (s *NotificationService) NotifyComment(ctx context.Context, n comments.NewCommentNotice) error {
	notification := models.Notification{
		UserID:         n.PostOwnerID,
		PostSlug:       n.PostSlug,
		PostTitle:      n.PostTitle,
		CommentID:      n.CommentID,
		CommentContent: n.Content,
		CommenterName:  n.CommenterName,
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if s.mail != nil && s.notifyEmail != "" {
		link := fmt.Sprintf("%s/posts/%s#comment-%d", s.siteURL, n.PostSlug, n.CommentID)
		s.mail.SendCommentNotification(s.notifyEmail, n.CommenterName, n.PostTitle, n.Content, link)
	}
	return nil
}

// List returns the latest notifications of a user, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(notificationListLimit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification of the user as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return fmt.Errorf("delete notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
