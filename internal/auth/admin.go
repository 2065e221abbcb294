package auth

import (
	"context"
	"log/slog"
	"strings"
)

// AdminFlagStore answers the profile-level admin flag. Missing rows read as
// false rather than erroring.
type AdminFlagStore interface {
	IsAdmin(ctx context.Context, id string) (bool, error)
}

// AdminResolver decides whether a session is privileged. Resolution is
// fail-closed: any failure along the way reads as not-admin.
type AdminResolver struct {
	sessions Sessions
	profiles AdminFlagStore
	emails   map[string]bool
	log      *slog.Logger
}

// NewAdminResolver builds a resolver. emails is the configured privileged
// list; matching sessions are admin regardless of the profile flag, which
// keeps one operator reachable while the profiles schema is mid-migration.
func NewAdminResolver(sessions Sessions, profiles AdminFlagStore, emails []string, log *slog.Logger) *AdminResolver {
	set := make(map[string]bool, len(emails))
	for _, e := range emails {
		set[strings.ToLower(e)] = true
	}
	return &AdminResolver{sessions: sessions, profiles: profiles, emails: set, log: log}
}

// IsAdmin reports whether the session behind sid is privileged.
func (r *AdminResolver) IsAdmin(ctx context.Context, sid string) bool {
	sess, err := r.sessions.Get(ctx, sid)
	if err != nil {
		r.log.Warn("admin check: session lookup failed", "error", err)
		return false
	}
	if sess == nil {
		return false
	}

	// Configured fast path: bypasses the profile flag entirely.
	if r.emails[strings.ToLower(sess.Email)] {
		return true
	}

	isAdmin, err := r.profiles.IsAdmin(ctx, sess.UserID)
	if err != nil {
		r.log.Warn("admin check: profile flag lookup failed", "user_id", sess.UserID, "error", err)
		return false
	}
	return isAdmin
}
