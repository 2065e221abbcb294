package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/arjun/nft-marketplace/backend/internal/models"
)

const SessionCookie = "session_id"

// SessionStore wraps Redis for session management. The stored value carries
// both the user id and the email so the admin fast path can be answered
// without a profile read.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

// Create stores a new session and returns its id.
func (s *SessionStore) Create(ctx context.Context, sess models.Session) (string, error) {
	sid := uuid.New().String()
	err := s.rdb.Set(ctx, "session:"+sid, sess.UserID+"|"+sess.Email, s.ttl).Err()
	return sid, err
}

// Get returns the session for sid, or nil if not found / expired.
func (s *SessionStore) Get(ctx context.Context, sid string) (*models.Session, error) {
	val, err := s.rdb.Get(ctx, "session:"+sid).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	userID, email, _ := strings.Cut(val, "|")
	return &models.Session{UserID: userID, Email: email}, nil
}

// Refresh extends the session TTL, pushing expiry out from now.
func (s *SessionStore) Refresh(ctx context.Context, sid string) error {
	return s.rdb.Expire(ctx, "session:"+sid, s.ttl).Err()
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, "session:"+sid).Err()
}
