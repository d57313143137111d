package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"yyblog/internal/auth"
	"yyblog/internal/comments"
)

const SessionKey = "session"

// SessionUserKey is the cookie session field holding the signed-in user's id.
const SessionUserKey = "user_id"

// UserLookup resolves a stored user id to a session identity.
type UserLookup func(ctx context.Context, userID string) (*comments.Session, error)

// LoadSession resolves the viewer from a bearer token or the cookie session
// and stores it under SessionKey. Anonymous requests pass through.
func LoadSession(lookup UserLookup, tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c.GetHeader("Authorization")); token != "" {
			claims, err := tokens.Parse(token)
			if err == nil {
				c.Set(SessionKey, claims.Session())
			}
			c.Next()
			return
		}

		session := sessions.Default(c)
		if userID, ok := session.Get(SessionUserKey).(string); ok && userID != "" {
			s, err := lookup(c.Request.Context(), userID)
			if err != nil {
				log.Printf("Error loading session user %s: %v", userID, err)
			} else {
				c.Set(SessionKey, s)
			}
		}
		c.Next()
	}
}

// AuthRequired rejects anonymous requests with 401.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
			return
		}
		c.Next()
	}
}

// CurrentSession returns the viewer resolved by LoadSession, or nil.
func CurrentSession(c *gin.Context) *comments.Session {
	if v, ok := c.Get(SessionKey); ok {
		if s, ok := v.(*comments.Session); ok {
			return s
		}
	}
	return nil
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
