package authn

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/akarpenko/backplane/pkg/logger"
	"github.com/akarpenko/backplane/pkg/token"
)

// PublicServerError is the only text an unclassified failure exposes to the
// caller; internals stay in the logs.
const PublicServerError = "Something went wrong during authentication. Please log out and log back in."

// Middleware returns the request-authentication middleware. It either calls
// next with the authenticated user attached to the request context,
// optionally setting an Authorization response header carrying a rotated
// bearer token, or terminates the response with 401 or 500.
func (a *Authenticator) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer, err := extractToken(r)
			if err != nil {
				a.fail(w, r, err)
				return
			}

			user, refreshed, err := a.authenticate(r.Context(), bearer)
			if err != nil {
				a.fail(w, r, err)
				return
			}

			if refreshed != "" {
				// Surface the rotated token so the client can adopt it for
				// subsequent calls; the presented one is now outdated.
				w.Header().Set("Authorization", "Bearer "+refreshed)
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// extractToken reads the bearer token from the Authorization header, or from
// the handoff query parameter when no header is present.
func extractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", token.NewError(token.KindNoToken, nil, "malformed authorization header")
		}
		return parts[1], nil
	}

	if bearer := r.URL.Query().Get(QueryTokenParam); bearer != "" {
		return bearer, nil
	}

	return "", token.NewError(token.KindNoToken, nil, "no bearer token provided, cannot authenticate request")
}

// fail resolves an authentication error into an HTTP response. Classified
// errors become a 401 with their safe public message, after a best-effort
// reset of any implicated user's session. Anything unclassified is logged in
// full and surfaces only as a generic 500.
func (a *Authenticator) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	te, classified := token.AsError(err)
	if !classified {
		a.log.ErrorContext(ctx, "unhandled error during authentication", logger.Error(err))
		writeMessage(w, http.StatusInternalServerError, PublicServerError)
		return
	}

	if te.User != nil {
		// The caller still sees the original failure even when the reset
		// itself goes wrong; that only gets logged.
		if rerr := a.resetSession(ctx, te.User); rerr != nil {
			a.log.ErrorContext(ctx, "failed to reset user session",
				logger.UserID(te.User.ID), logger.Error(rerr))
		}
	}

	a.log.ErrorContext(ctx, "authentication failed",
		slog.String("reason", te.Kind.String()),
		slog.String("diagnostic", te.Diagnostic))
	writeMessage(w, http.StatusUnauthorized, te.Public)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
