package domain

import "time"

// MaxRefreshTokens bounds the number of concurrently valid refresh tokens
// per user. The oldest hash is evicted once the list would exceed this.
const MaxRefreshTokens = 10

// User is an account managed by the persistence collaborator. A user is
// either local (password based) or federated (carries an ExternalID and no
// usable password); the two are never merged implicitly.
type User struct {
	ID                 int64
	ExternalID         *int64
	Email              string
	Name               string
	PasswordHash       string
	IsEmailConfirmed   bool
	RefreshTokenHashes []string
	TokenVersion       int64
	RegisteredAt       time.Time
}

// IsFederated reports whether the account originates from the OAuth provider.
func (u User) IsFederated() bool {
	return u.ExternalID != nil
}

// Sanitized returns a copy safe to hand to the transport layer.
func (u User) Sanitized() User {
	copy := u
	copy.PasswordHash = ""
	copy.RefreshTokenHashes = nil
	return copy
}
