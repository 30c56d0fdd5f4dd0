package auth

import (
	"time"

	"github.com/adsuite/backoffice/internal/shared"
)

// User represents an account as seen by authentication.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	FullName     string
	Role         shared.Role
	ClientID     *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal projects the audited request identity. ClientID is left out on purpose.
func (u User) Principal() shared.Principal {
	return shared.Principal{ID: u.ID, Username: u.Username, Role: u.Role}
}

// SessionRecord is the audit row written next to the Redis session.
type SessionRecord struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      shared.Principal `json:"user"`
}
