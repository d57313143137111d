package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yyblog/internal/handlers"
	"yyblog/internal/middleware"
)

type Handlers struct {
	Comments      *handlers.CommentHandler
	Notifications *handlers.NotificationHandler
	Auth          *handlers.AuthHandler
}

// RegisterRoutes mounts every route. LoadSession must already be installed on r.
func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 登录 (Auth)
	r.POST("/auth/login", h.Auth.Login)                   // 管理员邮箱登录
	r.GET("/auth/logout", h.Auth.Logout)                  // 退出登录
	r.GET("/auth/github", h.Auth.GitHubLogin)             // 发起 GitHub 登录
	r.GET("/auth/github/callback", h.Auth.GitHubCallback) // GitHub 回调
	r.GET("/api/me", h.Auth.Me)                           // 当前用户

	// 评论区 (Comments)，未登录时由评论核心返回 401/403
	posts := r.Group("/api/posts/:slug/comments")
	{
		posts.GET("", h.Comments.List)               // 加载评论树
		posts.POST("", h.Comments.Create)            // 发表评论
		posts.POST("/:id/replies", h.Comments.Reply) // 回复评论
		posts.POST("/:id/like", h.Comments.Like)     // 点赞/取消点赞
		posts.DELETE("/:id", h.Comments.Delete)      // 删除评论 (管理员)
	}

	// 通知 (Notifications)
	notifications := r.Group("/api/notifications")
	notifications.Use(middleware.AuthRequired())
	{
		notifications.GET("", h.Notifications.List)
		notifications.GET("/unread-count", h.Notifications.UnreadCount)
		notifications.POST("/read-all", h.Notifications.ReadAll)
		notifications.POST("/:id/read", h.Notifications.Read)
		notifications.DELETE("/:id", h.Notifications.Delete)
	}
}
