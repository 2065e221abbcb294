// Package auth implements the authentication orchestrator: credential
// validation, rate limiting, session establishment, and lazy profile
// provisioning over the profile store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/arjun/nft-marketplace/backend/internal/apperr"
	"github.com/arjun/nft-marketplace/backend/internal/models"
	"github.com/arjun/nft-marketplace/backend/internal/ratelimit"
	"github.com/arjun/nft-marketplace/backend/internal/store"
	"github.com/arjun/nft-marketplace/backend/internal/validate"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
// alike, to avoid account enumeration.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ProfileStore defines the persistence operations the orchestrator needs.
type ProfileStore interface {
	CreateAccount(ctx context.Context, email, passwordHash string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	UpsertProfile(ctx context.Context, id, email, username string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error)
}

// Sessions defines the session operations the orchestrator needs.
type Sessions interface {
	Create(ctx context.Context, sess models.Session) (string, error)
	Get(ctx context.Context, sid string) (*models.Session, error)
	Refresh(ctx context.Context, sid string) error
	Delete(ctx context.Context, sid string) error
}

// Service orchestrates sign-in, sign-up, sign-out, and profile lifecycle.
// Mutating operations are serialized by a mutex rather than a UI-level
// loading-flag convention.
type Service struct {
	mu       sync.Mutex
	profiles ProfileStore
	sessions Sessions
	limiter  *ratelimit.Limiter
	log      *slog.Logger
}

func NewService(profiles ProfileStore, sessions Sessions, limiter *ratelimit.Limiter, log *slog.Logger) *Service {
	return &Service{profiles: profiles, sessions: sessions, limiter: limiter, log: log}
}

// SignIn verifies credentials and establishes a session. The returned profile
// may be nil if provisioning is still lagging; LoadProfile will repair it on
// a later call.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fields []string
	if !validate.Email(email) {
		fields = append(fields, "invalid email address")
	}
	if password == "" {
		fields = append(fields, "password is required")
	}
	if len(fields) > 0 {
		return "", nil, apperr.Validation(fields...)
	}

	email = normalizeEmail(email)
	if !s.limiter.Allow("signin_" + email) {
		return "", nil, &apperr.RateLimitError{RetryAfter: s.limiter.RetryAfter("signin_" + email)}
	}

	account, err := s.profiles.GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, apperr.Store("sign in", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	sess := models.Session{UserID: account.ID, Email: account.Email}
	sid, err := s.sessions.Create(ctx, sess)
	if err != nil {
		return "", nil, apperr.Store("create session", err)
	}

	return sid, s.LoadProfile(ctx, sess), nil
}

// SignUp validates all fields, creates the account, provisions the profile
// through the idempotent upsert, and establishes a session. A failed profile
// upsert is logged but does not fail the signup; the account exists and
// LoadProfile self-heals on the next session load.
func (s *Service) SignUp(ctx context.Context, email, password, username string) (string, *models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fields []string
	if !validate.Email(email) {
		fields = append(fields, "invalid email address")
	}
	if res := validate.Password(password); !res.Valid {
		fields = append(fields, res.Errors...)
	}
	if res := validate.Username(username); !res.Valid {
		fields = append(fields, res.Errors...)
	}
	if len(fields) > 0 {
		return "", nil, apperr.Validation(fields...)
	}

	email = normalizeEmail(email)
	username = validate.Sanitize(username)
	if !s.limiter.Allow("signup_" + email) {
		return "", nil, &apperr.RateLimitError{RetryAfter: s.limiter.RetryAfter("signup_" + email)}
	}

	taken, err := s.profiles.UsernameTaken(ctx, username)
	if err != nil {
		return "", nil, apperr.Store("check username", err)
	}
	if taken {
		return "", nil, &apperr.ConflictError{Resource: "username"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, apperr.Store("hash password", err)
	}

	account, err := s.profiles.CreateAccount(ctx, email, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return "", nil, &apperr.ConflictError{Resource: "email"}
	}
	if err != nil {
		return "", nil, apperr.Store("create account", err)
	}

	profile, err := s.profiles.UpsertProfile(ctx, account.ID, email, username)
	if err != nil {
		s.log.Warn("profile provisioning failed after signup, will self-heal on next load",
			"user_id", account.ID, "error", err)
		profile = nil
	}

	sid, err := s.sessions.Create(ctx, models.Session{UserID: account.ID, Email: email})
	if err != nil {
		return "", nil, apperr.Store("create session", err)
	}
	return sid, profile, nil
}

// SignOut destroys the session. The caller's local state must be cleared
// regardless, so a store failure is logged and swallowed.
func (s *Service) SignOut(ctx context.Context, sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(ctx, sid); err != nil {
		s.log.Warn("session delete failed during sign-out", "error", err)
	}
}

// LoadProfile fetches the session's profile, creating it if absent. Errors
// are logged and swallowed; a nil return tells the caller to render a
// "set up your profile" affordance instead of crashing.
func (s *Service) LoadProfile(ctx context.Context, sess models.Session) *models.Profile {
	profile, err := s.profiles.GetProfile(ctx, sess.UserID)
	if err == nil {
		return profile
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.log.Warn("profile load failed", "user_id", sess.UserID, "error", err)
		return nil
	}

	// Missing row: provision from the email seed, falling back to a
	// user-id-suffixed name when the seed is taken.
	seed := usernameSeed(sess.Email)
	profile, err = s.profiles.UpsertProfile(ctx, sess.UserID, sess.Email, seed)
	if errors.Is(err, store.ErrDuplicate) {
		profile, err = s.profiles.UpsertProfile(ctx, sess.UserID, sess.Email, suffixed(seed, sess.UserID))
	}
	if err != nil {
		s.log.Warn("profile self-heal failed", "user_id", sess.UserID, "error", err)
		return nil
	}
	return profile
}

// UpdateProfile applies a partial edit. Unlike the other paths this one
// propagates failures; callers render an inline field error.
func (s *Service) UpdateProfile(ctx context.Context, sess models.Session, upd models.ProfileUpdate) (*models.Profile, error) {
	if upd.Username != nil {
		if res := validate.Username(*upd.Username); !res.Valid {
			return nil, apperr.Validation(res.Errors...)
		}
		clean := validate.Sanitize(*upd.Username)
		upd.Username = &clean
	}

	profile, err := s.profiles.UpdateProfile(ctx, sess.UserID, upd)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, &apperr.ConflictError{Resource: "username"}
	}
	if errors.Is(err, store.ErrNotFound) {
		// Account without a profile row: heal, then retry once.
		if p := s.LoadProfile(ctx, sess); p != nil {
			profile, err = s.profiles.UpdateProfile(ctx, sess.UserID, upd)
		}
	}
	if err != nil {
		return nil, apperr.Store("update profile", err)
	}
	return profile, nil
}

// RefreshSession re-derives the session and profile for sid. Idempotent;
// used after external auth events. A nil session means signed out.
func (s *Service) RefreshSession(ctx context.Context, sid string) (*models.Session, *models.Profile, error) {
	sess, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, nil, apperr.Store("refresh session", err)
	}
	if sess == nil {
		return nil, nil, nil
	}
	if err := s.sessions.Refresh(ctx, sid); err != nil {
		s.log.Warn("session ttl refresh failed", "error", err)
	}
	return sess, s.LoadProfile(ctx, *sess), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(validate.Sanitize(email))
}

// usernameSeed derives a valid username from the email local part.
func usernameSeed(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	seed := b.String()
	if len(seed) > validate.UsernameMaxLen {
		seed = seed[:validate.UsernameMaxLen]
	}
	for len(seed) < validate.UsernameMinLen {
		seed += "0"
	}
	return seed
}

func suffixed(seed, userID string) string {
	tail := strings.ReplaceAll(userID, "-", "")
	if len(tail) > 6 {
		tail = tail[:6]
	}
	base := seed
	if len(base)+1+len(tail) > validate.UsernameMaxLen {
		base = base[:validate.UsernameMaxLen-1-len(tail)]
	}
	return fmt.Sprintf("%s_%s", base, tail)
}
