package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arjun/nft-marketplace/backend/internal/models"
)

func newTestResolver(ps *fakeProfileStore, ss *fakeSessions, emails []string) *AdminResolver {
	return NewAdminResolver(ss, ps, emails, slog.New(slog.DiscardHandler))
}

func TestIsAdmin_NoSession(t *testing.T) {
	r := newTestResolver(newFakeProfileStore(), newFakeSessions(), []string{"admin@x.com"})
	assert.False(t, r.IsAdmin(context.Background(), "missing-sid"))
}

func TestIsAdmin_PrivilegedEmailBypassesProfileFlag(t *testing.T) {
	ps := newFakeProfileStore()
	ps.profiles["u1"] = &models.Profile{ID: "u1", IsAdmin: false}
	ss := newFakeSessions()
	ss.sessions["sid-1"] = models.Session{UserID: "u1", Email: "Admin@X.com"}

	r := newTestResolver(ps, ss, []string{"admin@x.com"})
	assert.True(t, r.IsAdmin(context.Background(), "sid-1"),
		"configured email grants admin even with is_admin=false")

	// Also true with no profile row at all.
	ss.sessions["sid-2"] = models.Session{UserID: "u2", Email: "admin@x.com"}
	assert.True(t, r.IsAdmin(context.Background(), "sid-2"))
}

func TestIsAdmin_ProfileFlagFallback(t *testing.T) {
	ps := newFakeProfileStore()
	ps.profiles["u1"] = &models.Profile{ID: "u1", IsAdmin: true}
	ps.profiles["u2"] = &models.Profile{ID: "u2", IsAdmin: false}
	ss := newFakeSessions()
	ss.sessions["sid-1"] = models.Session{UserID: "u1", Email: "a@b.com"}
	ss.sessions["sid-2"] = models.Session{UserID: "u2", Email: "c@d.com"}
	ss.sessions["sid-3"] = models.Session{UserID: "u3", Email: "e@f.com"}

	r := newTestResolver(ps, ss, nil)
	assert.True(t, r.IsAdmin(context.Background(), "sid-1"))
	assert.False(t, r.IsAdmin(context.Background(), "sid-2"))
	assert.False(t, r.IsAdmin(context.Background(), "sid-3"), "missing row reads as false")
}

func TestIsAdmin_FailsClosed(t *testing.T) {
	ps := newFakeProfileStore()
	ps.profileErr = errors.New("connection refused")
	ss := newFakeSessions()
	ss.sessions["sid-1"] = models.Session{UserID: "u1", Email: "a@b.com"}

	r := newTestResolver(ps, ss, nil)
	assert.False(t, r.IsAdmin(context.Background(), "sid-1"))
}
