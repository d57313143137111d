package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"yyblog/internal/auth"
	"yyblog/internal/comments"
	"yyblog/internal/middleware"
	"yyblog/internal/models"
	"yyblog/internal/services"
)

// UserStore is the part of services.UserService the auth handlers use.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertGitHubUser(ctx context.Context, p services.GitHubProfile) (*models.User, error)
}

type AuthOptions struct {
	Users            UserStore
	AllowList        *auth.AllowList
	Tokens           *auth.TokenIssuer
	EnableEmailLogin bool
	// GitHub 为 nil 时禁用 GitHub 登录
	GitHub    *oauth2.Config
	GitHubAPI string
	SiteURL   string
}

type AuthHandler struct {
	users            UserStore
	allowList        *auth.AllowList
	tokens           *auth.TokenIssuer
	enableEmailLogin bool
	github           *oauth2.Config
	githubAPI        string
	siteURL          string
}

func NewAuthHandler(opts AuthOptions) *AuthHandler {
	api := opts.GitHubAPI
	if api == "" {
		api = "https://api.github.com"
	}
	return &AuthHandler{
		users:            opts.Users,
		allowList:        opts.AllowList,
		tokens:           opts.Tokens,
		enableEmailLogin: opts.EnableEmailLogin,
		github:           opts.GitHub,
		githubAPI:        api,
		siteURL:          opts.SiteURL,
	}
}

type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Login 邮箱密码登录，仅限白名单中的管理员邮箱
func (h *AuthHandler) Login(c *gin.Context) {
	if !h.enableEmailLogin {
		c.JSON(http.StatusNotFound, gin.H{"error": "邮箱登录未开启"})
		return
	}

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请输入邮箱和密码"})
		return
	}
	if !h.allowList.EmailAllowed(req.Email) {
		c.JSON(http.StatusForbidden, gin.H{"error": "该邮箱未被授权登录"})
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, services.ErrUserNotFound) {
			log.Printf("Error loading user %s: %v", req.Email, err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "邮箱或密码错误"})
		return
	}
	if user.Password == "" || !auth.CheckPasswordHash(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "邮箱或密码错误"})
		return
	}

	h.signIn(c, user)
	c.JSON(http.StatusOK, h.sessionBody(c, services.SessionFor(user), true))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		log.Printf("Error clearing session: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me 返回当前登录用户及管理员状态
func (h *AuthHandler) Me(c *gin.Context) {
	s := middleware.CurrentSession(c)
	if s == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil, "is_admin": false})
		return
	}
	c.JSON(http.StatusOK, h.sessionBody(c, s, false))
}

func (h *AuthHandler) signIn(c *gin.Context, user *models.User) {
	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		log.Printf("Error saving session for %s: %v", user.ID, err)
	}
}

func (h *AuthHandler) sessionBody(c *gin.Context, s *comments.Session, withToken bool) gin.H {
	body := gin.H{
		"user":     s,
		"is_admin": h.allowList.IsAdmin(s),
	}
	if withToken && h.tokens.Enabled() {
		token, err := h.tokens.Issue(s)
		if err != nil {
			log.Printf("Error issuing token for %s: %v", s.UserID, err)
		} else {
			body["access_token"] = token
		}
	}
	return body
}
