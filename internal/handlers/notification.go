package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"yyblog/internal/middleware"
	"yyblog/internal/models"
	"yyblog/internal/services"
)

// NotificationStore is the part of services.NotificationService the
// handlers use.
type NotificationStore interface {
	List(ctx context.Context, userID string) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID, id string) error
}

type NotificationHandler struct {
	notifications NotificationStore
}

func NewNotificationHandler(notifications NotificationStore) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentSession(c)
	list, err := h.notifications.List(c.Request.Context(), user.UserID)
	if err != nil {
		log.Printf("Error listing notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取通知失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	user := middleware.CurrentSession(c)
	count, err := h.notifications.UnreadCount(c.Request.Context(), user.UserID)
	if err != nil {
		log.Printf("Error counting notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取未读数失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	user := middleware.CurrentSession(c)
	err := h.notifications.MarkRead(c.Request.Context(), user.UserID, c.Param("id"))
	h.respond(c, err)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user := middleware.CurrentSession(c)
	err := h.notifications.MarkAllRead(c.Request.Context(), user.UserID)
	h.respond(c, err)
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	user := middleware.CurrentSession(c)
	err := h.notifications.Delete(c.Request.Context(), user.UserID, c.Param("id"))
	h.respond(c, err)
}

func (h *NotificationHandler) respond(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case errors.Is(err, services.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "通知不存在"})
	default:
		log.Printf("Error updating notification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "操作失败"})
	}
}
