package service

import (
	"strings"

	"github.com/marketsquare/auth-service/internal/core/domain"
)

// RoleResolver derives an account role from a static admin allow-list
// and a requested-role hint. Pure: no I/O beyond the configured lists.
type RoleResolver struct {
	adminEmails  map[string]struct{}
	adminDomains []string
}

func NewRoleResolver(adminEmails, adminDomains []string) *RoleResolver {
	emails := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			emails[e] = struct{}{}
		}
	}
	domains := make([]string, 0, len(adminDomains))
	for _, d := range adminDomains {
		d = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(d, "@")))
		if d != "" {
			domains = append(domains, d)
		}
	}
	return &RoleResolver{adminEmails: emails, adminDomains: domains}
}

// Resolve applies the precedence order: admin allow-list or domain
// match, then a "seller" hint, then the default user role.
func (r *RoleResolver) Resolve(email, requestedRole string) string {
	if r.IsAdmin(email) {
		return domain.RoleAdmin
	}
	if requestedRole == domain.RoleSeller {
		return domain.RoleSeller
	}
	return domain.RoleUser
}

// IsAdmin reports whether email matches the allow-list or an admin domain.
func (r *RoleResolver) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	if _, ok := r.adminEmails[email]; ok {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	host := email[at+1:]
	for _, d := range r.adminDomains {
		if host == d {
			return true
		}
	}
	return false
}
