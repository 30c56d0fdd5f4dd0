package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/adsuite/backoffice/internal/shared"
)

// SessionBackend is the session store used to issue and resolve bearer tokens.
type SessionBackend interface {
	Create(ctx context.Context, userID string) (shared.Session, error)
	Get(ctx context.Context, token string) (shared.Session, error)
	Delete(ctx context.Context, token string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions SessionBackend
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions SessionBackend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, sessions: sessions, logger: logger, now: time.Now}
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a session token.
func (s *Service) Login(ctx context.Context, username, password, ip, ua string) (LoginResult, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}
	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	rec := SessionRecord{
		ID:        SessionRecordID(sess.Token),
		UserID:    user.ID,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
		IP:        ip,
		UserAgent: ua,
	}
	if err := s.repo.CreateSession(ctx, rec); err != nil {
		s.logger.Warn("register session", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	return LoginResult{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: user.Principal()}, nil
}

// Logout removes the session and its audit row.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, SessionRecordID(token)); err != nil {
		s.logger.Warn("remove session", slog.Any("error", err))
	}
	return nil
}

// Resolve maps a bearer token to a principal. A missing token, an unknown or
// expired session, and a session whose user is gone or disabled all return
// shared.ErrUnauthenticated. Store failures are returned wrapped.
func (s *Service) Resolve(ctx context.Context, token string) (shared.Principal, error) {
	if token == "" {
		return shared.Principal{}, shared.ErrUnauthenticated
	}
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Principal{}, shared.ErrUnauthenticated
		}
		return shared.Principal{}, fmt.Errorf("auth: resolve session: %w", err)
	}
	user, err := s.repo.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Principal{}, shared.ErrUnauthenticated
		}
		return shared.Principal{}, fmt.Errorf("auth: load user: %w", err)
	}
	if !user.IsActive || !user.Role.Valid() {
		return shared.Principal{}, shared.ErrUnauthenticated
	}
	return user.Principal(), nil
}

// PurgeExpiredSessions drops audit rows that expired before now.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpiredSessions(ctx, s.now())
}

// SessionRecordID derives the audit row id from a token so the raw token is never stored.
func SessionRecordID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
