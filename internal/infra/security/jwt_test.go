package security

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func testConfig() TokenConfig {
	return TokenConfig{
		AccessSecret:       "access-secret",
		RefreshSecret:      "refresh-secret",
		VerificationSecret: "verification-secret",
		AccessTTL:          15 * time.Minute,
		RefreshTTL:         168 * time.Hour,
		VerificationTTL:    24 * time.Hour,
	}
}

func newIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(testConfig())
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return issuer
}

func TestNewTokenIssuerValidatesConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TokenConfig)
	}{
		{"missing access secret", func(c *TokenConfig) { c.AccessSecret = "" }},
		{"missing refresh secret", func(c *TokenConfig) { c.RefreshSecret = "" }},
		{"missing verification secret", func(c *TokenConfig) { c.VerificationSecret = "" }},
		{"access equals refresh", func(c *TokenConfig) { c.RefreshSecret = c.AccessSecret }},
		{"refresh equals verification", func(c *TokenConfig) { c.VerificationSecret = c.RefreshSecret }},
		{"zero access ttl", func(c *TokenConfig) { c.AccessTTL = 0 }},
		{"negative refresh ttl", func(c *TokenConfig) { c.RefreshTTL = -time.Minute }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := NewTokenIssuer(cfg); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}

func TestGeneratePairRoundTrip(t *testing.T) {
	issuer := newIssuer(t)

	pair, err := issuer.GeneratePair(42)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}

	userID, err := issuer.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if userID != 42 {
		t.Fatalf("access token carries user %d, want 42", userID)
	}

	userID, err = issuer.ParseRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ParseRefresh: %v", err)
	}
	if userID != 42 {
		t.Fatalf("refresh token carries user %d, want 42", userID)
	}

	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Fatal("refresh expiry should outlive access expiry")
	}
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	issuer := newIssuer(t)

	pair, err := issuer.GeneratePair(7)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}

	if _, err := issuer.ParseAccess(pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh token accepted as access token: %v", err)
	}
	if _, err := issuer.ParseRefresh(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("access token accepted as refresh token: %v", err)
	}

	verification, err := issuer.IssueVerification("alice@example.com")
	if err != nil {
		t.Fatalf("IssueVerification: %v", err)
	}
	if _, err := issuer.ParseAccess(verification); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("verification token accepted as access token: %v", err)
	}
}

func TestExpiredTokenMapsToErrTokenExpired(t *testing.T) {
	issuer := newIssuer(t)
	issuer.WithClock(func() time.Time { return time.Now().Add(-200 * time.Hour) })

	pair, err := issuer.GeneratePair(9)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}

	if _, err := issuer.ParseAccess(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired for access, got %v", err)
	}
	if _, err := issuer.ParseRefresh(pair.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired for refresh, got %v", err)
	}
}

func TestGarbageTokenMapsToErrTokenInvalid(t *testing.T) {
	issuer := newIssuer(t)

	if _, err := issuer.ParseAccess("not.a.jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if _, err := issuer.ParseVerification(""); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerificationTokenCarriesEmail(t *testing.T) {
	issuer := newIssuer(t)

	token, err := issuer.IssueVerification("alice@example.com")
	if err != nil {
		t.Fatalf("IssueVerification: %v", err)
	}

	email, err := issuer.ParseVerification(token)
	if err != nil {
		t.Fatalf("ParseVerification: %v", err)
	}
	if email != "alice@example.com" {
		t.Fatalf("verification token carries %q", email)
	}
}

func TestCookieDirectiveFormat(t *testing.T) {
	issuer := newIssuer(t)
	expires := time.Date(2026, time.March, 1, 12, 30, 0, 0, time.UTC)

	cookie := issuer.CookieFor(AccessCookieName, "the-token", expires)
	want := fmt.Sprintf("Authentication=the-token; HttpOnly; Path=/; Expires=%s", expires.Format(http.TimeFormat))
	if cookie != want {
		t.Fatalf("cookie directive mismatch:\n got %q\nwant %q", cookie, want)
	}

	pair, err := issuer.GeneratePair(3)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}
	if !strings.HasPrefix(pair.RefreshCookie, "Refresh=") ||
		!strings.Contains(pair.RefreshCookie, "; HttpOnly; Path=/; Expires=") {
		t.Fatalf("malformed refresh cookie: %q", pair.RefreshCookie)
	}
}

func TestLogoutCookiesExpireImmediately(t *testing.T) {
	issuer := newIssuer(t)

	cookies := issuer.LogoutCookies()
	if len(cookies) != 2 {
		t.Fatalf("expected two logout directives, got %d", len(cookies))
	}
	if cookies[0] != "Authentication=; HttpOnly; Path=/; Max-Age=0" {
		t.Fatalf("unexpected access logout directive %q", cookies[0])
	}
	if cookies[1] != "Refresh=; HttpOnly; Path=/; Max-Age=0" {
		t.Fatalf("unexpected refresh logout directive %q", cookies[1])
	}
}

func TestSessionTokensAreUnique(t *testing.T) {
	issuer := newIssuer(t)

	first, err := issuer.GeneratePair(1)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}
	second, err := issuer.GeneratePair(1)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}

	if first.RefreshToken == second.RefreshToken {
		t.Fatal("two refresh tokens for the same user must differ")
	}
}
