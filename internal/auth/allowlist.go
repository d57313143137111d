package auth

import (
	"strings"

	"yyblog/internal/comments"
)

// AllowList is the set of identities allowed to administer comments.
// Matching is case-insensitive.
type AllowList struct {
	emails      map[string]bool
	githubUsers map[string]bool
}

func NewAllowList(emails, githubUsers []string) *AllowList {
	a := &AllowList{
		emails:      make(map[string]bool, len(emails)),
		githubUsers: make(map[string]bool, len(githubUsers)),
	}
	for _, e := range emails {
		if e = normalize(e); e != "" {
			a.emails[e] = true
		}
	}
	for _, u := range githubUsers {
		if u = normalize(u); u != "" {
			a.githubUsers[u] = true
		}
	}
	return a
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (a *AllowList) EmailAllowed(email string) bool {
	email = normalize(email)
	return email != "" && a.emails[email]
}

func (a *AllowList) GitHubUserAllowed(username string) bool {
	username = normalize(username)
	return username != "" && a.githubUsers[username]
}

// IsAdmin matches a session by e-mail or GitHub username. It has the
// comments.AdminFunc signature.
func (a *AllowList) IsAdmin(s *comments.Session) bool {
	if a == nil || s == nil {
		return false
	}
	return a.EmailAllowed(s.Email) || a.GitHubUserAllowed(s.GitHubUsername)
}
