package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"yyblog/internal/comments"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// UserMetadata mirrors the user_metadata object hosted auth providers put in
// their access tokens.
type UserMetadata struct {
	UserName          string `json:"user_name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	FullName          string `json:"full_name,omitempty"`
	AvatarURL         string `json:"avatar_url,omitempty"`
}

type Claims struct {
	Email        string       `json:"email,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// Session converts token claims into the identity used by the comment core.
func (c Claims) Session() *comments.Session {
	s := &comments.Session{
		UserID: c.Subject,
		Email:  c.Email,
	}
	s.GitHubUsername = c.UserMetadata.UserName
	if s.GitHubUsername == "" {
		s.GitHubUsername = c.UserMetadata.PreferredUsername
	}

	switch {
	case c.UserMetadata.FullName != "":
		s.UserName = c.UserMetadata.FullName
	case s.GitHubUsername != "":
		s.UserName = s.GitHubUsername
	default:
		s.UserName = c.Email
	}
	if c.UserMetadata.AvatarURL != "" {
		avatar := c.UserMetadata.AvatarURL
		s.Avatar = &avatar
	}
	return s
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Enabled reports whether a signing secret is configured.
func (ti *TokenIssuer) Enabled() bool {
	return ti != nil && len(ti.secret) > 0
}

// Issue returns a signed token for the session.
func (ti *TokenIssuer) Issue(s *comments.Session) (string, error) {
	if !ti.Enabled() {
		return "", errors.New("token secret is not configured")
	}
	now := time.Now()
	claims := Claims{
		Email: s.Email,
		UserMetadata: UserMetadata{
			UserName: s.GitHubUsername,
			FullName: s.UserName,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	if s.Avatar != nil {
		claims.UserMetadata.AvatarURL = *s.Avatar
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token and returns its claims.
func (ti *TokenIssuer) Parse(token string) (Claims, error) {
	if !ti.Enabled() {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
