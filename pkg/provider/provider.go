package provider

import (
	"context"
	"errors"

	"github.com/go-chi/chi/v5"

	"github.com/akarpenko/backplane/pkg/userstore"
)

var (
	ErrNotRegistered       = errors.New("provider: no provider registered under that name")
	ErrAlreadyRegistered   = errors.New("provider: provider name already registered")
	ErrMissingCredential   = errors.New("provider: missing refresh credential")
	ErrEmptyProviderName   = errors.New("provider: provider name must not be empty")
	ErrNoRefreshedToken    = errors.New("provider: provider returned no access token")
	ErrInvalidState        = errors.New("provider: invalid or expired oauth state")
	ErrInvalidCode         = errors.New("provider: invalid authorization code")
	ErrNoPrimaryEmail      = errors.New("provider: no primary email from provider")
	ErrUnverifiedEmail     = errors.New("provider: email not verified by provider")
	ErrMissingClientConfig = errors.New("provider: missing oauth client configuration")
)

// TokenIssuer is the slice of the Authenticator a provider needs at the end
// of a successful handshake: minting the session token for the user it just
// authenticated.
type TokenIssuer interface {
	CreateAuthToken(ctx context.Context, user *userstore.User) (string, error)
}

// Provider is one pluggable identity-provider adapter. Implementations wire
// their own login and callback routes in Initialize and know how to exchange
// the user's stored refresh credential for a fresh provider access token.
type Provider interface {
	Name() string
	Initialize(r chi.Router, issuer TokenIssuer)

	// RefreshToken exchanges the stored refresh credential for a new provider
	// access token. It returns an error when the upstream provider rejects
	// the credential or the call fails.
	RefreshToken(ctx context.Context, refreshCredential string) (string, error)
}
