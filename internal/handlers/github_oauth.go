package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"yyblog/internal/services"
)

// NewGitHubOAuthConfig 构建 GitHub OAuth 配置
func NewGitHubOAuthConfig(clientID, clientSecret, siteURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  siteURL + "/auth/github/callback",
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}
}

// generateStateToken 生成随机 state token
func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GitHubLogin 发起 GitHub OAuth 登录
func (h *AuthHandler) GitHubLogin(c *gin.Context) {
	if h.github == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "GitHub 登录未开启"})
		return
	}

	state, err := generateStateToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成状态令牌失败"})
		return
	}

	// 将 state 存储到 session 中,用于验证回调
	session := sessions.Default(c)
	session.Set("oauth_state", state)
	if next := c.Query("next"); len(next) > 0 && next[0] == '/' {
		session.Set("oauth_next", next)
	}
	session.Save()

	c.Redirect(http.StatusTemporaryRedirect, h.github.AuthCodeURL(state))
}

// GitHubCallback 处理 GitHub OAuth 回调
func (h *AuthHandler) GitHubCallback(c *gin.Context) {
	if h.github == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "GitHub 登录未开启"})
		return
	}

	session := sessions.Default(c)
	savedState, _ := session.Get("oauth_state").(string)
	next, _ := session.Get("oauth_next").(string)

	// 验证 state 参数
	if savedState == "" || c.Query("state") != savedState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的状态参数"})
		return
	}

	session.Delete("oauth_state")
	session.Delete("oauth_next")
	session.Save()

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未获取到授权码"})
		return
	}

	ctx := c.Request.Context()
	token, err := h.github.Exchange(ctx, code)
	if err != nil {
		log.Printf("GitHub token exchange failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "获取访问令牌失败"})
		return
	}

	profile, err := h.fetchGitHubProfile(c, token)
	if err != nil {
		log.Printf("GitHub user lookup failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "获取用户信息失败"})
		return
	}

	user, err := h.users.UpsertGitHubUser(ctx, *profile)
	if err != nil {
		log.Printf("Error saving GitHub user %s: %v", profile.Login, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "登录失败"})
		return
	}

	h.signIn(c, user)
	if next == "" {
		next = "/"
	}
	c.Redirect(http.StatusFound, h.siteURL+next)
}

// fetchGitHubProfile 获取 GitHub 用户信息
func (h *AuthHandler) fetchGitHubProfile(c *gin.Context, token *oauth2.Token) (*services.GitHubProfile, error) {
	client := h.github.Client(c.Request.Context(), token)
	resp, err := client.Get(h.githubAPI + "/user")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("获取用户信息失败: %d", resp.StatusCode)
	}

	var profile services.GitHubProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	if profile.ID == 0 || profile.Login == "" {
		return nil, fmt.Errorf("incomplete GitHub profile")
	}
	return &profile, nil
}
