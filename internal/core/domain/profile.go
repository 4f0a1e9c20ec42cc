package domain

// ProviderProfile is the identity returned by the OAuth provider's profile
// endpoint after a successful code exchange.
type ProviderProfile struct {
	ExternalID int64
	Email      string
	Name       string
}
