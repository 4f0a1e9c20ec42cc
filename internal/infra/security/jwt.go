package security

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Cookie names carried by authenticated clients.
const (
	AccessCookieName  = "Authentication"
	RefreshCookieName = "Refresh"
)

var (
	// ErrTokenExpired indicates the token's TTL elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates a malformed token or signature failure.
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenConfig holds the three signing secrets and their TTLs. Access,
// refresh, and verification tokens are signed with distinct keys so a token
// of one kind can never be replayed as another.
type TokenConfig struct {
	AccessSecret       string
	RefreshSecret      string
	VerificationSecret string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	VerificationTTL    time.Duration
}

// SessionClaims is the payload embedded in access and refresh tokens.
type SessionClaims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// VerificationClaims is the payload of email-verification tokens. It
// deliberately carries no user id.
type VerificationClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenPair bundles everything produced for one authentication event.
// Only the refresh token's hash ever reaches storage.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessCookie     string
	RefreshCookie    string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenIssuer mints and parses the service's HS256 tokens. It is a pure
// function of configuration and the clock; it never touches storage.
type TokenIssuer struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenIssuer validates the configuration and builds an issuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" || cfg.VerificationSecret == "" {
		return nil, fmt.Errorf("token issuer: all three signing secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret ||
		cfg.AccessSecret == cfg.VerificationSecret ||
		cfg.RefreshSecret == cfg.VerificationSecret {
		return nil, fmt.Errorf("token issuer: signing secrets must be distinct")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.VerificationTTL <= 0 {
		return nil, fmt.Errorf("token issuer: all TTLs must be positive")
	}

	return &TokenIssuer{cfg: cfg, now: time.Now}, nil
}

// WithClock injects a custom clock, primarily for tests.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	if now != nil {
		t.now = now
	}
	return t
}

func (t *TokenIssuer) signSession(userID int64, secret string, ttl time.Duration) (string, time.Time, error) {
	now := t.now().UTC()
	expiresAt := now.Add(ttl)

	// A jti keeps two tokens minted within the same second distinct.
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// IssueAccess mints an access token and returns its absolute expiry.
func (t *TokenIssuer) IssueAccess(userID int64) (string, time.Time, error) {
	return t.signSession(userID, t.cfg.AccessSecret, t.cfg.AccessTTL)
}

// IssueRefresh mints a refresh token and returns its absolute expiry.
func (t *TokenIssuer) IssueRefresh(userID int64) (string, time.Time, error) {
	return t.signSession(userID, t.cfg.RefreshSecret, t.cfg.RefreshTTL)
}

// IssueVerification mints a short-lived email-verification token.
func (t *TokenIssuer) IssueVerification(email string) (string, error) {
	now := t.now().UTC()

	claims := VerificationClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.VerificationTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.VerificationSecret))
	if err != nil {
		return "", fmt.Errorf("sign verification token: %w", err)
	}

	return signed, nil
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}
}

func mapParseError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}

func (t *TokenIssuer) parseSession(token, secret string) (int64, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, keyFunc(secret))
	if err != nil {
		return 0, mapParseError(err)
	}
	if !parsed.Valid || claims.UserID <= 0 {
		return 0, ErrTokenInvalid
	}
	return claims.UserID, nil
}

// ParseAccess validates an access token and returns the embedded user id.
func (t *TokenIssuer) ParseAccess(token string) (int64, error) {
	return t.parseSession(token, t.cfg.AccessSecret)
}

// ParseRefresh validates a refresh token's signature and TTL. Membership in
// the stored hash list is checked separately by the refresh-token store.
func (t *TokenIssuer) ParseRefresh(token string) (int64, error) {
	return t.parseSession(token, t.cfg.RefreshSecret)
}

// ParseVerification validates a verification token and returns the email.
func (t *TokenIssuer) ParseVerification(token string) (string, error) {
	claims := &VerificationClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, keyFunc(t.cfg.VerificationSecret))
	if err != nil {
		return "", mapParseError(err)
	}
	if !parsed.Valid || claims.Email == "" {
		return "", ErrTokenInvalid
	}
	return claims.Email, nil
}

// CookieFor renders an HttpOnly cookie directive for the supplied token.
func (t *TokenIssuer) CookieFor(name, token string, expires time.Time) string {
	return fmt.Sprintf("%s=%s; HttpOnly; Path=/; Expires=%s", name, token, expires.UTC().Format(http.TimeFormat))
}

// GeneratePair mints a fresh access+refresh pair with both cookie
// directives and absolute expiries.
func (t *TokenIssuer) GeneratePair(userID int64) (*TokenPair, error) {
	access, accessExpiry, err := t.IssueAccess(userID)
	if err != nil {
		return nil, err
	}

	refresh, refreshExpiry, err := t.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessCookie:     t.CookieFor(AccessCookieName, access, accessExpiry),
		RefreshCookie:    t.CookieFor(RefreshCookieName, refresh, refreshExpiry),
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// LogoutCookies returns directives clearing both cookies on the client.
func (t *TokenIssuer) LogoutCookies() []string {
	return []string{
		fmt.Sprintf("%s=; HttpOnly; Path=/; Max-Age=0", AccessCookieName),
		fmt.Sprintf("%s=; HttpOnly; Path=/; Max-Age=0", RefreshCookieName),
	}
}
