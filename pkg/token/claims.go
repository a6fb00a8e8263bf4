package token

import (
	"time"

	"github.com/akarpenko/backplane/pkg/userstore"
)

// Claims is the payload of a bearer token. Reserved claim names follow
// RFC 7519 where one exists: sub for the authenticated user id, exp for the
// absolute expiry, jti for the session id mirrored on the user record.
type Claims struct {
	Subject   string `json:"sub"`
	ExpiresAt int64  `json:"exp"`
	SessionID string `json:"jti"`
	OneTime   bool   `json:"otu,omitempty"`
}

// Reserved claim names that mint options may not override.
var reservedClaims = map[string]struct{}{
	"sub": {},
	"exp": {},
	"jti": {},
	"otu": {},
}

// Validate checks the structural shape of decoded claims. It does not touch
// expiry or signatures; callers run it on unverified payloads before a user
// lookup.
func (c Claims) Validate() error {
	if c.Subject == "" {
		return NewError(KindInvalidToken, nil, "missing sub claim")
	}
	if c.SessionID == "" {
		return NewError(KindInvalidToken, nil, "missing jti claim")
	}
	return nil
}

// Expired reports whether the expiry has passed. A zero exp never expires.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt > 0 && now.Unix() > c.ExpiresAt
}

// AssertSessionMatches fails with an outdated-token error when the claims
// were issued under a session id the user no longer holds. This is the
// single-session check: rotating the user's session id invalidates every
// previously issued token, including stolen-but-superseded ones.
func AssertSessionMatches(c Claims, user *userstore.User) error {
	if user == nil || c.SessionID != user.SessionID {
		return NewError(KindOutdatedToken, user, "token session id does not match current session")
	}
	return nil
}
