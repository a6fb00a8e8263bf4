package token

import (
	"errors"
	"fmt"

	"github.com/akarpenko/backplane/pkg/userstore"
)

// Kind classifies an authentication failure. The distinction between
// KindExpiredToken and KindInvalidToken is load-bearing: expiry is the only
// condition that may trigger a provider refresh, while a signature failure
// on a well-formed token is treated as tampering.
type Kind int

const (
	KindNoToken Kind = iota
	KindInvalidToken
	KindExpiredToken
	KindOutdatedToken
	KindRefreshFailed
)

func (k Kind) String() string {
	switch k {
	case KindNoToken:
		return "no_token"
	case KindInvalidToken:
		return "invalid_token"
	case KindExpiredToken:
		return "expired_token"
	case KindOutdatedToken:
		return "outdated_token"
	case KindRefreshFailed:
		return "refresh_failed"
	default:
		return "unknown"
	}
}

// Public messages returned to clients on a 401. Diagnostic detail never
// crosses the trust boundary; these are the only texts a caller sees.
var publicText = map[Kind]string{
	KindNoToken:       "Authentication required.",
	KindInvalidToken:  "Invalid authentication token.",
	KindExpiredToken:  "Your session has expired, please log in again.",
	KindOutdatedToken: "Your session is no longer valid, please log in again.",
	KindRefreshFailed: "Could not renew your session, please log in again.",
}

// PublicText returns the user-facing message for an error kind.
func PublicText(k Kind) string {
	if msg, ok := publicText[k]; ok {
		return msg
	}
	return publicText[KindInvalidToken]
}

// Error is a classified authentication failure. It optionally carries the
// implicated user so the caller can decide whether session state must be
// reset, and keeps the user-facing message separate from the diagnostic one.
type Error struct {
	Kind       Kind
	User       *userstore.User
	Public     string
	Diagnostic string
}

// NewError builds a classified error with the default public message for its
// kind. diagnostic is internal-only detail for logs.
func NewError(kind Kind, user *userstore.User, diagnostic string) *Error {
	return &Error{
		Kind:       kind,
		User:       user,
		Public:     PublicText(kind),
		Diagnostic: diagnostic,
	}
}

func (e *Error) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("token: %s: %s", e.Kind, e.Diagnostic)
	}
	return fmt.Sprintf("token: %s", e.Kind)
}

// AsError extracts a classified error from err, if there is one.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsKind reports whether err is a classified error of the given kind.
func IsKind(err error, kind Kind) bool {
	te, ok := AsError(err)
	return ok && te.Kind == kind
}

// ErrMissingSecret is returned when a codec is constructed without a signing
// secret.
var ErrMissingSecret = errors.New("token: missing signing secret")
