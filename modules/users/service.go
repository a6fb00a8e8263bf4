// Package users is the user-facing microservice: identity-provider login
// routes, the authenticated profile endpoint, and the one-time-token handoff
// used to bridge authentication across an origin boundary.
package users

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akarpenko/backplane/core"
	"github.com/akarpenko/backplane/pkg/authn"
	"github.com/akarpenko/backplane/pkg/logger"
	"github.com/akarpenko/backplane/pkg/provider"
	"github.com/akarpenko/backplane/pkg/userstore"
)

// Service implements core.Microservice for user authentication.
type Service struct {
	store    userstore.Store
	registry *provider.Registry
	auth     *authn.Authenticator
	log      *slog.Logger
}

// New wires the users microservice from its collaborators.
func New(store userstore.Store, registry *provider.Registry, auth *authn.Authenticator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:    store,
		registry: registry,
		auth:     auth,
		log:      log.With(logger.Component("users")),
	}
}

func (s *Service) Name() string        { return "users" }
func (s *Service) RoutePrefix() string { return "/users" }

// Register wires the service routes: provider handshakes and the about
// endpoint are public, everything else sits behind the authenticator.
func (s *Service) Register(r chi.Router) {
	s.registry.Initialize(r, s.auth)
	r.Get("/about", s.handleAbout)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware())
		r.Get("/me", s.handleMe)
		r.Post("/token/handoff", s.handleHandoff)
	})
}

// profileResponse is the public projection of a user record. Credentials and
// session state never leave the service.
type profileResponse struct {
	ID           string    `json:"id"`
	Provider     string    `json:"provider"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Verified     bool      `json:"verified"`
	LastActiveAt time.Time `json:"last_active_at"`
}

func (s *Service) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := authn.UserFromContext(r.Context())
	if !ok {
		// The middleware guarantees a user; reaching this is a wiring bug.
		s.log.ErrorContext(r.Context(), "authenticated route without user in context")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": authn.PublicServerError})
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:           user.ID,
		Provider:     user.Provider,
		Email:        user.Email,
		Name:         user.Name,
		Verified:     user.Verified,
		LastActiveAt: user.LastActiveAt,
	})
}

// handleHandoff issues a short-lived one-time token for the authenticated
// user. The main session is untouched: the token preserves the current
// session id and expires on its own.
func (s *Service) handleHandoff(w http.ResponseWriter, r *http.Request) {
	user, ok := authn.UserFromContext(r.Context())
	if !ok {
		s.log.ErrorContext(r.Context(), "authenticated route without user in context")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": authn.PublicServerError})
		return
	}

	bearer, err := s.auth.CreateOneTimeToken(user, 0)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to mint one-time token",
			logger.UserID(user.ID), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": authn.PublicServerError})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": bearer})
}

func (s *Service) handleAbout(w http.ResponseWriter, r *http.Request) {
	providers := make([]string, 0)
	for _, p := range s.registry.List() {
		providers = append(providers, p.Name())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   s.Name(),
		"providers": providers,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var _ core.Microservice = (*Service)(nil)
