package provider_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpenko/backplane/pkg/provider"
)

func googleConfig() provider.GoogleConfig {
	return provider.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://example.com/users/google/callback",
	}
}

func TestNewGoogle(t *testing.T) {
	t.Parallel()

	t.Run("with full config", func(t *testing.T) {
		g, err := provider.NewGoogle(googleConfig(), nil, nil)
		require.NoError(t, err)
		require.NotNil(t, g)
		assert.Equal(t, provider.ProviderGoogle, g.Name())
	})

	t.Run("missing client settings", func(t *testing.T) {
		for _, mutate := range []func(*provider.GoogleConfig){
			func(c *provider.GoogleConfig) { c.ClientID = "" },
			func(c *provider.GoogleConfig) { c.ClientSecret = "" },
			func(c *provider.GoogleConfig) { c.RedirectURL = "" },
		} {
			cfg := googleConfig()
			mutate(&cfg)
			_, err := provider.NewGoogle(cfg, nil, nil)
			require.ErrorIs(t, err, provider.ErrMissingClientConfig)
		}
	})
}

func TestGoogleLoginRedirect(t *testing.T) {
	t.Parallel()

	g, err := provider.NewGoogle(googleConfig(), nil, nil)
	require.NoError(t, err)

	router := chi.NewRouter()
	g.Initialize(router, stubIssuer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/google", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	assert.Equal(t, "accounts.google.com", location.Host)
	q := location.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.NotEmpty(t, q.Get("state"))
	// Offline access with forced consent, so every login yields a refresh
	// credential.
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
}

func TestGoogleCallbackRejectsBadState(t *testing.T) {
	t.Parallel()

	g, err := provider.NewGoogle(googleConfig(), nil, nil)
	require.NoError(t, err)

	router := chi.NewRouter()
	g.Initialize(router, stubIssuer{})

	t.Run("state never issued", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/google/callback?state=forged&code=abc", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing state", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/google/callback?code=abc", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGoogleRefreshToken(t *testing.T) {
	t.Parallel()

	g, err := provider.NewGoogle(googleConfig(), nil, nil)
	require.NoError(t, err)

	t.Run("empty credential", func(t *testing.T) {
		_, err := g.RefreshToken(t.Context(), "")
		require.ErrorIs(t, err, provider.ErrMissingCredential)
	})
}
