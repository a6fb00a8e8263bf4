package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akarpenko/backplane/pkg/userstore"
)

// JWT header constants required by RFC 7519
const (
	HeaderType      = "JWT"
	HeaderAlgorithm = "HS256"
)

// DefaultLifetime is the bearer token lifetime used when no option overrides it.
const DefaultLifetime = time.Hour

// Header represents the JWT header as defined in RFC 7515
type Header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

// Codec mints and validates self-contained bearer tokens signed with
// HMAC-SHA256. It owns no state beyond the signing secret.
type Codec struct {
	secret []byte
}

// New creates a codec with the provided signing secret.
// The secret should be at least 32 bytes for adequate security with HMAC-SHA256.
func New(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	return &Codec{secret: secret}, nil
}

// NewFromString creates a codec from a string signing secret.
func NewFromString(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Codec{secret: []byte(secret)}, nil
}

type mintOptions struct {
	lifetime        time.Duration
	preserveSession bool
	oneTime         bool
	extra           map[string]any
}

// MintOption configures a single Mint call.
type MintOption func(*mintOptions)

// WithLifetime overrides the default token lifetime. Negative values are
// allowed and produce an already-expired token.
func WithLifetime(d time.Duration) MintOption {
	return func(o *mintOptions) { o.lifetime = d }
}

// WithPreservedSession keeps the user's current session id instead of
// generating a fresh one. Only the one-time-token flow uses this: a
// short-lived parallel credential must not invalidate the main session.
func WithPreservedSession() MintOption {
	return func(o *mintOptions) { o.preserveSession = true }
}

// WithOneTime marks the token as single-handoff: it must never be refreshed.
func WithOneTime() MintOption {
	return func(o *mintOptions) { o.oneTime = true }
}

// WithExtraClaims adds custom claims to the payload. Reserved claim names
// (sub, exp, jti, otu) are ignored.
func WithExtraClaims(extra map[string]any) MintOption {
	return func(o *mintOptions) { o.extra = extra }
}

// Mint signs a bearer token for the user and returns it together with the
// session id embedded in it, so the caller can persist the rotation.
func (c *Codec) Mint(user *userstore.User, opts ...MintOption) (string, string, error) {
	if user == nil || user.ID == "" {
		return "", "", NewError(KindInvalidToken, nil, "cannot mint token without a user id")
	}

	o := mintOptions{lifetime: DefaultLifetime}
	for _, opt := range opts {
		opt(&o)
	}

	sessionID := user.SessionID
	if !o.preserveSession {
		sessionID = uuid.New().String()
	}

	payload := map[string]any{
		"sub": user.ID,
		"exp": time.Now().Add(o.lifetime).Unix(),
		"jti": sessionID,
	}
	if o.oneTime {
		payload["otu"] = true
	}
	for k, v := range o.extra {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		payload[k] = v
	}

	header := Header{Type: HeaderType, Algorithm: HeaderAlgorithm}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", "", NewError(KindInvalidToken, nil, "marshal header: "+err.Error())
	}
	claimsJSON, err := json.Marshal(payload)
	if err != nil {
		return "", "", NewError(KindInvalidToken, nil, "marshal claims: "+err.Error())
	}

	signing := base64URLEncode(headerJSON) + "." + base64URLEncode(claimsJSON)
	return signing + "." + c.sign(signing), sessionID, nil
}

// Parse verifies the token signature and expiry and returns the claims.
// A valid signature with a past expiry fails with an expired-token error and
// still returns the decoded claims, since expiry is the recoverable case the
// caller may follow with a refresh. Every other verification failure is an
// invalid-token error.
func (c *Codec) Parse(tokenString string) (Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return Claims{}, NewError(KindInvalidToken, nil, "malformed token: expected three segments")
	}

	// Verify signature before decoding anything, using a constant-time
	// comparison to prevent timing attacks.
	signing := parts[0] + "." + parts[1]
	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(c.sign(signing))) != 1 {
		return Claims{}, NewError(KindInvalidToken, nil, "signature mismatch")
	}

	headerJSON, err := base64URLDecode(parts[0])
	if err != nil {
		return Claims{}, NewError(KindInvalidToken, nil, "decode header: "+err.Error())
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Claims{}, NewError(KindInvalidToken, nil, "unmarshal header: "+err.Error())
	}
	// Reject tokens using unexpected algorithms to prevent algorithm
	// confusion attacks.
	if header.Algorithm != HeaderAlgorithm {
		return Claims{}, NewError(KindInvalidToken, nil, "unexpected signing algorithm "+header.Algorithm)
	}

	claims, err := decodeClaims(parts[1])
	if err != nil {
		return Claims{}, err
	}

	if claims.Expired(time.Now()) {
		return claims, NewError(KindExpiredToken, nil, "token expired")
	}
	return claims, nil
}

// DecodeUnverified decodes the payload without checking the signature.
// It exists so a failing token can still be attributed to the user it claims
// to authenticate; callers must treat the result as untrusted until Parse
// succeeds.
func (c *Codec) DecodeUnverified(tokenString string) (Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return Claims{}, NewError(KindInvalidToken, nil, "malformed token: expected three segments")
	}
	return decodeClaims(parts[1])
}

func decodeClaims(encoded string) (Claims, error) {
	claimsJSON, err := base64URLDecode(encoded)
	if err != nil {
		return Claims{}, NewError(KindInvalidToken, nil, "decode claims: "+err.Error())
	}
	var claims Claims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return Claims{}, NewError(KindInvalidToken, nil, "unmarshal claims: "+err.Error())
	}
	return claims, nil
}

// sign creates an HMAC-SHA256 signature for the given payload.
func (c *Codec) sign(payload string) string {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(payload))
	return base64URLEncode(h.Sum(nil))
}

// base64URLEncode encodes data using base64url encoding without padding,
// as required by RFC 7515.
func base64URLEncode(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

// base64URLDecode decodes base64url-encoded data, restoring padding as needed.
func base64URLDecode(s string) ([]byte, error) {
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}
