package usecase

import "errors"

var (
	// ErrInvalidCredentials covers unknown email, password mismatch, and
	// password login against a federated account. The three cases are
	// indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a refresh token that is valid as a JWT but
	// absent from the user's stored session list.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserNotFound indicates the requested account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyConfirmed indicates the email address was confirmed earlier.
	ErrAlreadyConfirmed = errors.New("email already confirmed")
	// ErrFederation indicates the identity provider rejected or failed the
	// exchange; no local state was touched.
	ErrFederation = errors.New("identity provider exchange failed")
	// ErrAccountConflict indicates the provider profile's email already
	// belongs to a password account. Accounts are never merged.
	ErrAccountConflict = errors.New("email already registered with a password account")
)
