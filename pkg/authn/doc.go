// Package authn orchestrates request authentication.
//
// The Authenticator sits in front of protected routes as middleware. Per
// request it extracts a bearer token, decodes and validates it through the
// token codec, checks the single-session invariant against the user record,
// and on expiry transparently refreshes the session through the identity
// provider that originally authenticated the user. Unrecoverable failures
// reset the user's session state so a compromised or stale credential cannot
// be reused.
//
// Concurrent requests for the same user are not mutually excluded. Two
// expired-token requests may both refresh; the store's last write wins and
// the loser's token turns outdated on its next use. This is an accepted
// race, not a bug.
package authn
