package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/infra/security"
	"github.com/CyberDuck79/fullstack-template/internal/repository"
	"github.com/CyberDuck79/fullstack-template/internal/usecase"
)

type stubUserRepo struct {
	users map[int64]*domain.User
}

func (r *stubUserRepo) Create(context.Context, domain.User) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *stubUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) GetByExternalID(context.Context, int64) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) Update(context.Context, int64, string, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) SetEmailConfirmed(context.Context, int64) error {
	return repository.ErrNotFound
}

func (r *stubUserRepo) UpdateRefreshTokens(_ context.Context, id int64, hashes []string, _ int64) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.RefreshTokenHashes = hashes
	user.TokenVersion++
	return nil
}

func newMiddlewareIssuer(t *testing.T) *security.TokenIssuer {
	t.Helper()

	issuer, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:       "access-secret",
		RefreshSecret:      "refresh-secret",
		VerificationSecret: "verification-secret",
		AccessTTL:          time.Minute,
		RefreshTTL:         time.Hour,
		VerificationTTL:    time.Minute,
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return issuer
}

func performRequest(handler gin.HandlerFunc, mutate func(*http.Request)) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/protected", nil)
	if mutate != nil {
		mutate(c.Request)
	}

	handler(c)
	return w, c
}

func TestRequireAuthMissingToken(t *testing.T) {
	issuer := newMiddlewareIssuer(t)

	w, _ := performRequest(RequireAuth(issuer), nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuthBearerHeader(t *testing.T) {
	issuer := newMiddlewareIssuer(t)

	pair, err := issuer.GeneratePair(42)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}

	w, c := performRequest(RequireAuth(issuer), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", w.Code)
	}
	if id, ok := GetUserID(c); !ok || id != 42 {
		t.Fatalf("user id not propagated: %d %v", id, ok)
	}
}

func TestRequireAuthCookie(t *testing.T) {
	issuer := newMiddlewareIssuer(t)

	pair, err := issuer.GeneratePair(42)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}

	w, c := performRequest(RequireAuth(issuer), func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: security.AccessCookieName, Value: pair.AccessToken})
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", w.Code)
	}
	if id, _ := GetUserID(c); id != 42 {
		t.Fatalf("user id not propagated: %d", id)
	}
}

func TestRequireAuthExpiredToken(t *testing.T) {
	issuer := newMiddlewareIssuer(t)
	issuer.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })

	pair, err := issuer.GeneratePair(42)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}

	w, _ := performRequest(RequireAuth(issuer), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", w.Code)
	}
}

func TestRequireAuthRejectsRefreshToken(t *testing.T) {
	issuer := newMiddlewareIssuer(t)

	pair, err := issuer.GeneratePair(42)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}

	w, _ := performRequest(RequireAuth(issuer), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token must not pass the access guard, got %d", w.Code)
	}
}

func TestRequireRefreshValidatesMembership(t *testing.T) {
	issuer := newMiddlewareIssuer(t)
	repo := &stubUserRepo{users: map[int64]*domain.User{
		42: {ID: 42, Email: "alice@example.com", TokenVersion: 0, RefreshTokenHashes: []string{}},
	}}
	store := usecase.NewRefreshTokenStore(repo, security.NewHashPool(2))

	pair, err := issuer.GeneratePair(42)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}
	if err := store.Append(context.Background(), 42, pair.RefreshToken); err != nil {
		t.Fatalf("Append: %v", err)
	}

	handler := RequireRefresh(issuer, repo, store)

	w, c := performRequest(handler, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: security.RefreshCookieName, Value: pair.RefreshToken})
	})
	if w.Code != http.StatusOK {
		t.Fatalf("stored token should pass, got %d: %s", w.Code, w.Body.String())
	}
	if token, ok := GetRefreshToken(c); !ok || token != pair.RefreshToken {
		t.Fatal("raw refresh token not propagated")
	}

	// A second pair signed correctly but never stored must be rejected.
	stranger, err := issuer.GeneratePair(42)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}
	w, _ = performRequest(handler, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: security.RefreshCookieName, Value: stranger.RefreshToken})
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unstored token should be rejected, got %d", w.Code)
	}
}

func TestRequireRefreshAcceptsBearerFallback(t *testing.T) {
	issuer := newMiddlewareIssuer(t)
	repo := &stubUserRepo{users: map[int64]*domain.User{
		42: {ID: 42, RefreshTokenHashes: []string{}},
	}}
	store := usecase.NewRefreshTokenStore(repo, security.NewHashPool(2))

	pair, err := issuer.GeneratePair(42)
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}
	if err := store.Append(context.Background(), 42, pair.RefreshToken); err != nil {
		t.Fatalf("Append: %v", err)
	}

	w, _ := performRequest(RequireRefresh(issuer, repo, store), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("bearer refresh token should pass, got %d", w.Code)
	}
}

func TestRequireConfirmedEmail(t *testing.T) {
	repo := &stubUserRepo{users: map[int64]*domain.User{
		1: {ID: 1, IsEmailConfirmed: true},
		2: {ID: 2, IsEmailConfirmed: false},
	}}
	handler := RequireConfirmedEmail(repo)

	run := func(userID int64) int {
		gin.SetMode(gin.TestMode)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/users/me", nil)
		c.Set(UserIDKey, userID)
		handler(c)
		return w.Code
	}

	if code := run(1); code != http.StatusOK {
		t.Fatalf("confirmed user should pass, got %d", code)
	}
	if code := run(2); code != http.StatusForbidden {
		t.Fatalf("unconfirmed user should get 403, got %d", code)
	}
}
