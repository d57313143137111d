package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"yyblog/internal/auth"
	"yyblog/internal/comments"
	"yyblog/internal/config"
	"yyblog/internal/db"
	"yyblog/internal/handlers"
	"yyblog/internal/middleware"
	"yyblog/internal/router"
	"yyblog/internal/services"
	"yyblog/internal/utils"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()

	// Initialize Database
	gdb := db.Init(cfg.DatabaseURL)

	commentStore := services.NewCommentStore(gdb)
	notificationService := services.NewNotificationService(gdb, services.NewMailService(cfg), cfg.NotifyEmail, cfg.SiteURL)
	postService := services.NewPostService(gdb)
	userService := services.NewUserService(gdb)

	// 初始化管理员账号密码
	if cfg.AdminBootstrapPassword != "" {
		for _, email := range cfg.AdminEmails {
			if _, err := userService.EnsurePasswordUser(context.Background(), email, cfg.AdminBootstrapPassword); err != nil {
				log.Printf("Failed to bootstrap admin %s: %v", email, err)
			}
		}
	}

	allowList := auth.NewAllowList(cfg.AdminEmails, cfg.AdminGitHubUsers)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL)
	if !tokens.Enabled() {
		log.Println("AUTH_JWT_SECRET not set, bearer tokens disabled")
	}

	var githubConfig *oauth2.Config
	if cfg.GitHubEnabled() {
		githubConfig = handlers.NewGitHubOAuthConfig(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.SiteURL)
	}

	r := gin.Default()

	// Setup Sessions
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 30 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("yyblog_session", store))

	lookup := func(ctx context.Context, userID string) (*comments.Session, error) {
		user, err := userService.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return services.SessionFor(user), nil
	}
	r.Use(middleware.LoadSession(lookup, tokens))

	threads := utils.NewTTLCache[*comments.Thread](cfg.ThreadCacheSize, cfg.ThreadCacheTTL)

	router.RegisterRoutes(r, router.Handlers{
		Comments:      handlers.NewCommentHandler(commentStore, notificationService, postService, allowList.IsAdmin, threads),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Auth: handlers.NewAuthHandler(handlers.AuthOptions{
			Users:            userService,
			AllowList:        allowList,
			Tokens:           tokens,
			EnableEmailLogin: cfg.EnableEmailLogin,
			GitHub:           githubConfig,
			SiteURL:          cfg.SiteURL,
		}),
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("YYBlog comment server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Close()
	}
}
