package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/infra/security"
)

type federationFixture struct {
	svc      *FederationService
	users    *memoryUserRepo
	provider *stubProvider
	events   *recordingPublisher
}

func newFederationFixture(t *testing.T) *federationFixture {
	t.Helper()

	users := newMemoryUserRepo()
	provider := &stubProvider{
		profile: domain.ProviderProfile{ExternalID: 4242, Email: "alice@provider.example", Name: "alice"},
	}
	events := &recordingPublisher{}
	store := NewRefreshTokenStore(users, security.NewHashPool(4))
	svc := NewFederationService(users, provider, newTestIssuer(t), store, events, zaptest.NewLogger(t))

	return &federationFixture{svc: svc, users: users, provider: provider, events: events}
}

func TestFederatedFirstLoginCreatesConfirmedUser(t *testing.T) {
	f := newFederationFixture(t)

	user, pair, err := f.svc.LoginWithCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("LoginWithCode: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}

	stored, err := f.users.GetByExternalID(context.Background(), 4242)
	if err != nil {
		t.Fatalf("federated user missing: %v", err)
	}
	if stored.ID != user.ID {
		t.Fatalf("returned user %d, stored %d", user.ID, stored.ID)
	}
	if !stored.IsEmailConfirmed {
		t.Fatal("provider-verified accounts must start confirmed")
	}
	if stored.PasswordHash != "" {
		t.Fatal("federated accounts carry no password hash")
	}
	if len(stored.RefreshTokenHashes) != 1 {
		t.Fatalf("expected one stored session, got %d", len(stored.RefreshTokenHashes))
	}

	if len(f.events.registered) != 1 || !f.events.registered[0].Federated {
		t.Fatalf("expected one federated registration event, got %+v", f.events.registered)
	}
}

func TestFederatedSecondLoginReusesAccount(t *testing.T) {
	f := newFederationFixture(t)

	first, _, err := f.svc.LoginWithCode(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, _, err := f.svc.LoginWithCode(context.Background(), "code-2")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("logins resolved to different accounts: %d vs %d", first.ID, second.ID)
	}
	if len(f.events.registered) != 1 {
		t.Fatalf("only the first login registers, got %d events", len(f.events.registered))
	}
}

func TestFederatedLoginRejectsEmailCollision(t *testing.T) {
	f := newFederationFixture(t)

	if _, err := f.users.Create(context.Background(), domain.User{
		Email:        "alice@provider.example",
		Name:         "local-alice",
		PasswordHash: "some-hash",
	}); err != nil {
		t.Fatalf("create password user: %v", err)
	}

	_, _, err := f.svc.LoginWithCode(context.Background(), "auth-code")
	if !errors.Is(err, ErrAccountConflict) {
		t.Fatalf("expected ErrAccountConflict, got %v", err)
	}

	// The colliding login must not have created a federated account.
	if _, err := f.users.GetByExternalID(context.Background(), 4242); err == nil {
		t.Fatal("federated account created despite conflict")
	}
}

func TestFederatedLoginProviderFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*stubProvider)
	}{
		{"exchange fails", func(p *stubProvider) { p.exchangeErr = errors.New("provider timeout") }},
		{"profile fetch fails", func(p *stubProvider) { p.profileErr = errors.New("provider 500") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFederationFixture(t)
			tc.mutate(f.provider)

			_, _, err := f.svc.LoginWithCode(context.Background(), "auth-code")
			if !errors.Is(err, ErrFederation) {
				t.Fatalf("expected ErrFederation, got %v", err)
			}

			// No partial account may exist after a failed exchange.
			if _, err := f.users.GetByEmail(context.Background(), "alice@provider.example"); err == nil {
				t.Fatal("partial user created despite provider failure")
			}
		})
	}
}
