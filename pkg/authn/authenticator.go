package authn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/akarpenko/backplane/pkg/logger"
	"github.com/akarpenko/backplane/pkg/provider"
	"github.com/akarpenko/backplane/pkg/token"
	"github.com/akarpenko/backplane/pkg/userstore"
)

// ErrMissingSecret is returned when the authenticator is constructed without
// a signing secret.
var ErrMissingSecret = errors.New("authn: missing signing secret")

// QueryTokenParam is the query parameter checked for a bearer token when no
// Authorization header is present. It exists for the one-time-token handoff,
// where a popup passes its credential to the opener via URL.
const QueryTokenParam = "auth_token"

// Authenticator is the request-authentication state machine. It extracts a
// bearer token from each inbound request, validates it through the codec,
// transparently refreshes expired sessions through the provider registry,
// and persists the resulting session state.
type Authenticator struct {
	codec           *token.Codec
	store           userstore.Store
	registry        *provider.Registry
	log             *slog.Logger
	tokenLifetime   time.Duration
	oneTimeLifetime time.Duration
}

// New builds an Authenticator from config and collaborators. Construction
// fails without a signing secret; a malformed token lifetime only logs a
// warning and keeps the default.
func New(cfg Config, store userstore.Store, registry *provider.Registry, log *slog.Logger) (*Authenticator, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log = log.With(logger.Component("authenticator"))

	if cfg.Secret == "" {
		log.Error("no jwt secret found in config")
		return nil, ErrMissingSecret
	}
	codec, err := token.NewFromString(cfg.Secret)
	if err != nil {
		return nil, err
	}

	lifetime := DefaultTokenLifetime
	if cfg.TokenLifetime != "" {
		seconds, err := strconv.Atoi(cfg.TokenLifetime)
		if err != nil || seconds < 0 {
			log.Warn("invalid token lifetime in config, keeping default",
				slog.String("value", cfg.TokenLifetime),
				logger.Duration(lifetime))
		} else {
			lifetime = time.Duration(seconds) * time.Second
		}
	}

	oneTimeLifetime := cfg.OneTimeTokenLifetime
	if oneTimeLifetime == 0 {
		oneTimeLifetime = DefaultOneTimeTokenLifetime
	}

	return &Authenticator{
		codec:           codec,
		store:           store,
		registry:        registry,
		log:             log,
		tokenLifetime:   lifetime,
		oneTimeLifetime: oneTimeLifetime,
	}, nil
}

// CreateAuthToken mints a fresh bearer token for the user, rotates the
// session id, and persists it. Every token issued before this call becomes
// outdated. Used at the end of a successful OAuth handshake.
func (a *Authenticator) CreateAuthToken(ctx context.Context, user *userstore.User) (string, error) {
	bearer, sessionID, err := a.codec.Mint(user, token.WithLifetime(a.tokenLifetime))
	if err != nil {
		return "", err
	}

	if _, err := a.store.Update(ctx, user.ID, userstore.Patch{
		SessionID:    userstore.String(sessionID),
		LastActiveAt: userstore.Time(time.Now()),
	}); err != nil {
		return "", fmt.Errorf("persist rotated session: %w", err)
	}

	a.log.InfoContext(ctx, "session token issued", logger.UserID(user.ID))
	return bearer, nil
}

// CreateOneTimeToken mints a short-lived token that preserves the user's
// current session id and is flagged single-use. Nothing is persisted: the
// existing session stays authoritative, so two successive calls leave the
// user record untouched. A zero lifetime falls back to the default.
func (a *Authenticator) CreateOneTimeToken(user *userstore.User, lifetime time.Duration) (string, error) {
	if lifetime == 0 {
		lifetime = a.oneTimeLifetime
	}
	bearer, _, err := a.codec.Mint(user,
		token.WithLifetime(lifetime),
		token.WithPreservedSession(),
		token.WithOneTime(),
	)
	return bearer, err
}

// authenticate runs the per-request state machine and returns the
// authenticated user plus a replacement bearer token when the presented one
// was expired and successfully refreshed.
func (a *Authenticator) authenticate(ctx context.Context, bearer string) (*userstore.User, string, error) {
	// Unverified decode first: a later signature failure can then still be
	// attributed to the user the token claims, for reset purposes.
	claims, err := a.codec.DecodeUnverified(bearer)
	if err != nil {
		return nil, "", err
	}
	if err := claims.Validate(); err != nil {
		return nil, "", err
	}

	user, err := a.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, "", token.NewError(token.KindInvalidToken, nil, "user specified in token not found")
		}
		return nil, "", fmt.Errorf("load user for token: %w", err)
	}

	// Single-session check before cryptographic validation: a token from a
	// superseded session is rejected no matter what else it looks like.
	if err := token.AssertSessionMatches(claims, user); err != nil {
		return nil, "", err
	}

	if _, err = a.codec.Parse(bearer); err == nil {
		// Best-effort activity tracking; a failed write must not block the
		// request.
		if _, uerr := a.store.Update(ctx, user.ID, userstore.Patch{
			LastActiveAt: userstore.Time(time.Now()),
		}); uerr != nil {
			a.log.WarnContext(ctx, "failed to update last activity",
				logger.UserID(user.ID), logger.Error(uerr))
		}
		return user, "", nil
	}

	te, classified := token.AsError(err)
	if !classified {
		return nil, "", err
	}

	switch te.Kind {
	case token.KindExpiredToken:
		if claims.OneTime {
			// One-time tokens are never refreshed, and the main session
			// stays intact: no user attached, so no reset follows.
			return nil, "", token.NewError(token.KindInvalidToken, nil, "one-time token expired")
		}
		return a.refresh(ctx, user)
	default:
		// Valid-looking token with a bad signature alongside a live
		// session: security anomaly. Attach the user so the session gets
		// reset downstream.
		a.log.WarnContext(ctx, "token signature validation failed",
			logger.UserID(user.ID),
			logger.EventType("security.token_tampering"))
		te.User = user
		return nil, "", te
	}
}

// refresh exchanges the user's refresh credential for a new provider access
// token, mints a replacement bearer token under a rotated session id, and
// persists the new session state.
func (a *Authenticator) refresh(ctx context.Context, user *userstore.User) (*userstore.User, string, error) {
	p, ok := a.registry.Get(user.Provider)
	if !ok {
		return nil, "", token.NewError(token.KindRefreshFailed, user,
			"no provider registered under "+strconv.Quote(user.Provider))
	}

	newAccessToken, err := p.RefreshToken(ctx, user.RefreshCredential)
	if err != nil {
		return nil, "", token.NewError(token.KindRefreshFailed, user,
			"provider refresh failed: "+err.Error())
	}
	if newAccessToken == "" {
		// Should not happen: a non-failing refresh returned nothing.
		a.log.WarnContext(ctx, "provider refresh returned empty access token",
			logger.UserID(user.ID), slog.String("provider", user.Provider))
		return nil, "", token.NewError(token.KindRefreshFailed, user,
			"provider refresh returned no token")
	}

	bearer, sessionID, err := a.codec.Mint(user, token.WithLifetime(a.tokenLifetime))
	if err != nil {
		return nil, "", err
	}

	updated, err := a.store.Update(ctx, user.ID, userstore.Patch{
		ProviderAccessToken: userstore.String(newAccessToken),
		SessionID:           userstore.String(sessionID),
		LastActiveAt:        userstore.Time(time.Now()),
	})
	if err != nil {
		return nil, "", fmt.Errorf("persist refreshed session: %w", err)
	}

	a.log.InfoContext(ctx, "session refreshed", logger.UserID(updated.ID))
	return updated, bearer, nil
}

// resetSession clears the user's session fields so that neither the bearer
// token nor the refresh credential can be used again.
func (a *Authenticator) resetSession(ctx context.Context, user *userstore.User) error {
	_, err := a.store.Update(ctx, user.ID, userstore.ResetPatch())
	return err
}
