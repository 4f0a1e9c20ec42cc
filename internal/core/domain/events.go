package domain

import "time"

// UserRegisteredEvent is emitted after a new account row is created.
type UserRegisteredEvent struct {
	UserID       int64     `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Federated    bool      `json:"federated"`
	RegisteredAt time.Time `json:"registered_at"`
}

// EmailConfirmedEvent is emitted when a verification token flips the
// confirmation flag.
type EmailConfirmedEvent struct {
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// SessionRevokedEvent is emitted when a refresh token is invalidated on
// logout.
type SessionRevokedEvent struct {
	UserID    int64     `json:"user_id"`
	RevokedAt time.Time `json:"revoked_at"`
	Reason    string    `json:"reason"`
}
