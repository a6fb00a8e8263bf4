// Package token implements the bearer token codec: minting, decoding, and
// cryptographic validation of the self-contained HS256 credentials issued to
// authenticated users, plus the classified error taxonomy shared by the
// authentication core.
//
// A token's jti claim mirrors the session id stored on the user record.
// At most one bearer token is valid per user at any time; minting with a
// fresh session id invalidates everything issued before it.
package token
