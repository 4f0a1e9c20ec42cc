package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/core/port"
	"github.com/CyberDuck79/fullstack-template/internal/infra/config"
)

const defaultTimeout = 10 * time.Second

// Client exchanges authorization codes against the identity provider and
// fetches the owner's profile. Every outbound call is bounded by the
// configured timeout so a slow provider cannot hold a request open.
type Client struct {
	oauth      oauth2.Config
	profileURL string
	timeout    time.Duration
	httpClient *http.Client
}

var _ port.ProfileProvider = (*Client)(nil)

// NewClient constructs a provider client from configuration.
func NewClient(cfg config.OAuthSettings) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: cfg.ProfileURL,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Exchange trades an authorization code for the provider access token.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("exchange authorization code: provider returned empty access token")
	}

	return token.AccessToken, nil
}

type providerProfile struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Login string `json:"login"`
}

// FetchProfile retrieves the token owner's identity from the provider.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*domain.ProviderProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch provider profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch provider profile: unexpected status %d", resp.StatusCode)
	}

	var profile providerProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode provider profile: %w", err)
	}
	if profile.ID == 0 || profile.Email == "" {
		return nil, fmt.Errorf("decode provider profile: missing id or email")
	}

	return &domain.ProviderProfile{
		ExternalID: profile.ID,
		Email:      profile.Email,
		Name:       profile.Login,
	}, nil
}
