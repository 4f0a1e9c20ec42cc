package port

import (
	"context"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
)

// ProfileProvider talks to the OAuth provider: it exchanges an
// authorization code for a provider access token and fetches the profile
// the token belongs to. Both calls are network bound and carry the
// configured timeout.
type ProfileProvider interface {
	Exchange(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*domain.ProviderProfile, error)
}
