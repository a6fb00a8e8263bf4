// Package userstore persists user accounts and their session state.
//
// The authentication core only ever touches a handful of fields on the user
// record: the session id mirrored in issued bearer tokens, the provider
// tokens obtained from the identity provider, and the last-activity
// timestamp. Updates go through a field-mask Patch so a session reset can
// write empty values without clobbering profile data.
//
// The MongoDB implementation encrypts refresh credentials at rest with
// AES-256-GCM under an HKDF-derived compound key.
package userstore
