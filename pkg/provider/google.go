package provider

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/akarpenko/backplane/pkg/logger"
	"github.com/akarpenko/backplane/pkg/userstore"
)

// ProviderGoogle is the registry name of the Google adapter.
const ProviderGoogle = "google"

// GoogleConfig holds configuration for the Google identity provider.
type GoogleConfig struct {
	ClientID     string        `env:"GOOGLE_OAUTH_CLIENT_ID,required"`
	ClientSecret string        `env:"GOOGLE_OAUTH_CLIENT_SECRET,required"`
	RedirectURL  string        `env:"GOOGLE_OAUTH_REDIRECT_URL,required"`
	Scopes       []string      `env:"GOOGLE_OAUTH_SCOPES" envSeparator:"," envDefault:"https://www.googleapis.com/auth/userinfo.email,https://www.googleapis.com/auth/userinfo.profile"`
	StateTTL     time.Duration `env:"GOOGLE_OAUTH_STATE_TTL" envDefault:"10m"`
	VerifiedOnly bool          `env:"GOOGLE_OAUTH_VERIFIED_ONLY" envDefault:"true"`
}

// Google authenticates users against Google OAuth and refreshes their
// provider access tokens from the stored refresh credential.
type Google struct {
	conf         *oauth2.Config
	store        userstore.Store
	states       *stateStore
	log          *slog.Logger
	verifiedOnly bool
	httpClient   *http.Client
}

// NewGoogle creates the Google provider adapter.
func NewGoogle(cfg GoogleConfig, store userstore.Store, log *slog.Logger) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, ErrMissingClientConfig
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Google{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		store:        store,
		states:       newStateStore(cfg.StateTTL),
		log:          log.With(logger.Component("google_provider")),
		verifiedOnly: cfg.VerifiedOnly,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Name implements Provider.
func (g *Google) Name() string { return ProviderGoogle }

// Initialize wires the login and callback routes under the given router.
func (g *Google) Initialize(r chi.Router, issuer TokenIssuer) {
	r.Get("/google", g.handleLogin)
	r.Get("/google/callback", g.handleCallback(issuer))
}

// handleLogin redirects the client to the Google consent screen. Offline
// access with forced consent is requested so a refresh credential is issued
// on every login, not just the first one.
func (g *Google) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		g.log.ErrorContext(r.Context(), "failed to generate oauth state", logger.Error(err))
		http.Error(w, "failed to start login", http.StatusInternalServerError)
		return
	}
	g.states.put(state)

	url := g.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	http.Redirect(w, r, url, http.StatusFound)
}

func (g *Google) handleCallback(issuer TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// State is one-time use; replaying a callback URL fails here.
		if !g.states.consume(r.URL.Query().Get("state")) {
			g.log.WarnContext(ctx, "oauth callback with invalid state")
			http.Error(w, ErrInvalidState.Error(), http.StatusUnauthorized)
			return
		}

		tok, err := g.conf.Exchange(ctx, r.URL.Query().Get("code"))
		if err != nil {
			g.log.WarnContext(ctx, "oauth code exchange failed", logger.Error(err))
			http.Error(w, ErrInvalidCode.Error(), http.StatusUnauthorized)
			return
		}

		profile, err := g.fetchProfile(ctx, tok.AccessToken)
		if err != nil {
			g.log.ErrorContext(ctx, "failed to fetch google profile", logger.Error(err))
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		if profile.Email == "" {
			http.Error(w, ErrNoPrimaryEmail.Error(), http.StatusUnauthorized)
			return
		}
		if g.verifiedOnly && !profile.VerifiedEmail {
			http.Error(w, ErrUnverifiedEmail.Error(), http.StatusUnauthorized)
			return
		}

		user, err := g.store.FindOrCreate(ctx, userstore.NewUser{
			Provider:            ProviderGoogle,
			ProviderID:          profile.ID,
			Email:               profile.Email,
			Name:                profile.Name,
			RefreshCredential:   tok.RefreshToken,
			ProviderAccessToken: tok.AccessToken,
			Verified:            profile.VerifiedEmail,
		})
		if err != nil {
			g.log.ErrorContext(ctx, "failed to upsert user after handshake", logger.Error(err))
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}

		bearer, err := issuer.CreateAuthToken(ctx, user)
		if err != nil {
			g.log.ErrorContext(ctx, "failed to mint session token",
				logger.UserID(user.ID), logger.Error(err))
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}

		g.log.InfoContext(ctx, "user logged in", logger.UserID(user.ID))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": bearer})
	}
}

// RefreshToken exchanges the stored refresh credential for a new access
// token via the oauth2 token source.
func (g *Google) RefreshToken(ctx context.Context, refreshCredential string) (string, error) {
	if refreshCredential == "" {
		return "", ErrMissingCredential
	}

	ts := g.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshCredential})
	tok, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("google token refresh: %w", err)
	}
	if tok.AccessToken == "" {
		return "", ErrNoRefreshedToken
	}
	return tok.AccessToken, nil
}

type googleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (g *Google) fetchProfile(ctx context.Context, accessToken string) (*googleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google api returned status %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Compile-time interface assertion
var _ Provider = (*Google)(nil)
