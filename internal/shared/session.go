package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenBytes = 32

// Session binds an opaque bearer token to a user until ExpiresAt.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore keeps bearer-token sessions in Redis. Keys expire with the
// session so an expired token is simply absent.
type SessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type sessionPayload struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, prefix string, ttl time.Duration) *SessionStore {
	if prefix == "" {
		prefix = "session:"
	}
	return &SessionStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Create issues a fresh token for userID.
func (s *SessionStore) Create(ctx context.Context, userID string) (Session, error) {
	token, err := generateToken()
	if err != nil {
		return Session{}, fmt.Errorf("shared: generate session token: %w", err)
	}
	now := s.now().UTC()
	sess := Session{Token: token, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(s.ttl)}
	data, err := json.Marshal(sessionPayload{UserID: userID, CreatedAt: sess.CreatedAt, ExpiresAt: sess.ExpiresAt})
	if err != nil {
		return Session{}, err
	}
	if err := s.client.Set(ctx, s.key(token), data, s.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("shared: store session: %w", err)
	}
	return sess, nil
}

// Get returns the live session for token or ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNotFound
	}
	payload, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("shared: load session: %w", err)
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return Session{}, fmt.Errorf("shared: decode session: %w", err)
	}
	// Redis TTL granularity can lag the recorded expiry slightly.
	if !stored.ExpiresAt.IsZero() && !s.now().Before(stored.ExpiresAt) {
		return Session{}, ErrNotFound
	}
	return Session{Token: token, UserID: stored.UserID, CreatedAt: stored.CreatedAt, ExpiresAt: stored.ExpiresAt}, nil
}

// Delete removes the session. Deleting an unknown token is not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("shared: delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(token string) string {
	return s.prefix + token
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
