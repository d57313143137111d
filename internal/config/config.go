package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	SessionSecret string
	SiteURL       string
	JWTSecret     string
	AccessTTL     time.Duration

	// 管理员白名单
	AdminEmails      []string
	AdminGitHubUsers []string
	// 非空时启动时为白名单邮箱创建密码账号
	AdminBootstrapPassword string

	EnableEmailLogin   bool
	EnableGitHubLogin  bool
	GitHubClientID     string
	GitHubClientSecret string

	ThreadCacheSize int
	ThreadCacheTTL  time.Duration

	// SMTP - 未配置时不发送邮件
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	NotifyEmail  string
}

// LoadEnv loads .env if present. A missing file is not an error.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
}

func Load() Config {
	return Config{
		Port:          getenv("PORT", "8080"),
		DatabaseURL:   getenv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=yyblog port=5432 sslmode=disable TimeZone=Asia/Shanghai"),
		SessionSecret: getenv("SESSION_SECRET", "yyblog-dev-secret"),
		SiteURL:       strings.TrimRight(getenv("SITE_URL", "http://localhost:8080"), "/"),
		JWTSecret:     getenv("AUTH_JWT_SECRET", ""),
		AccessTTL:     time.Duration(getenvInt("AUTH_ACCESS_TTL_SECONDS", 7*24*3600)) * time.Second,

		AdminEmails:      getenvList("ADMIN_EMAILS"),
		AdminGitHubUsers: getenvList("ADMIN_GITHUB_USERS"),

		AdminBootstrapPassword: getenv("ADMIN_BOOTSTRAP_PASSWORD", ""),

		EnableEmailLogin:   getenvBool("ENABLE_EMAIL_LOGIN", true),
		EnableGitHubLogin:  getenvBool("ENABLE_GITHUB_LOGIN", true),
		GitHubClientID:     getenv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getenv("GITHUB_CLIENT_SECRET", ""),

		ThreadCacheSize: getenvInt("THREAD_CACHE_SIZE", 500),
		ThreadCacheTTL:  time.Duration(getenvInt("THREAD_CACHE_TTL_SECONDS", 600)) * time.Second,

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenvInt("SMTP_PORT", 465),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		NotifyEmail:  getenv("NOTIFY_EMAIL", ""),
	}
}

// GitHubEnabled reports whether GitHub login is switched on and has credentials.
func (c Config) GitHubEnabled() bool {
	return c.EnableGitHubLogin && c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getenvList splits a comma separated variable, dropping blanks.
func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
