package token_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpenko/backplane/pkg/token"
	"github.com/akarpenko/backplane/pkg/userstore"
)

func testUser() *userstore.User {
	return &userstore.User{
		ID:        "u-1",
		Provider:  "google",
		SessionID: "s-1",
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("with valid secret", func(t *testing.T) {
		codec, err := token.New([]byte("secret"))
		require.NoError(t, err)
		require.NotNil(t, codec)
	})

	t.Run("with empty secret", func(t *testing.T) {
		codec, err := token.New(nil)
		require.ErrorIs(t, err, token.ErrMissingSecret)
		require.Nil(t, codec)
	})

	t.Run("from empty string", func(t *testing.T) {
		codec, err := token.NewFromString("")
		require.ErrorIs(t, err, token.ErrMissingSecret)
		require.Nil(t, codec)
	})
}

func TestMint(t *testing.T) {
	t.Parallel()
	codec, err := token.NewFromString("secret")
	require.NoError(t, err)

	t.Run("returns token and fresh session id", func(t *testing.T) {
		bearer, sessionID, err := codec.Mint(testUser())
		require.NoError(t, err)
		require.NotEmpty(t, bearer)
		require.NotEmpty(t, sessionID)
		assert.NotEqual(t, "s-1", sessionID)
		assert.Len(t, strings.Split(bearer, "."), 3)

		claims, err := codec.Parse(bearer)
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.Subject)
		assert.Equal(t, sessionID, claims.SessionID)
		assert.False(t, claims.OneTime)
	})

	t.Run("preserved session keeps the user's session id", func(t *testing.T) {
		bearer, sessionID, err := codec.Mint(testUser(), token.WithPreservedSession())
		require.NoError(t, err)
		require.Equal(t, "s-1", sessionID)

		claims, err := codec.Parse(bearer)
		require.NoError(t, err)
		assert.Equal(t, "s-1", claims.SessionID)
	})

	t.Run("one-time flag is carried in the payload", func(t *testing.T) {
		bearer, _, err := codec.Mint(testUser(), token.WithOneTime())
		require.NoError(t, err)

		claims, err := codec.Parse(bearer)
		require.NoError(t, err)
		assert.True(t, claims.OneTime)
	})

	t.Run("extra claims cannot override reserved names", func(t *testing.T) {
		bearer, _, err := codec.Mint(testUser(), token.WithExtraClaims(map[string]any{
			"sub":   "someone-else",
			"scope": "extension",
		}))
		require.NoError(t, err)

		claims, err := codec.Parse(bearer)
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.Subject)

		payload := decodePayload(t, bearer)
		assert.Equal(t, "extension", payload["scope"])
	})

	t.Run("expiry honors the configured lifetime", func(t *testing.T) {
		bearer, _, err := codec.Mint(testUser(), token.WithLifetime(30*time.Minute))
		require.NoError(t, err)

		claims, err := codec.Parse(bearer)
		require.NoError(t, err)
		assert.InDelta(t, time.Now().Add(30*time.Minute).Unix(), claims.ExpiresAt, 5)
	})

	t.Run("negative lifetime mints an already expired token", func(t *testing.T) {
		bearer, _, err := codec.Mint(testUser(), token.WithLifetime(-10*time.Second))
		require.NoError(t, err)

		_, err = codec.Parse(bearer)
		require.True(t, token.IsKind(err, token.KindExpiredToken))
	})

	t.Run("without user id", func(t *testing.T) {
		_, _, err := codec.Mint(&userstore.User{})
		require.True(t, token.IsKind(err, token.KindInvalidToken))

		_, _, err = codec.Mint(nil)
		require.True(t, token.IsKind(err, token.KindInvalidToken))
	})
}

func TestParse(t *testing.T) {
	t.Parallel()
	codec, err := token.NewFromString("secret")
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		bearer, sessionID, err := codec.Mint(testUser())
		require.NoError(t, err)

		claims, err := codec.Parse(bearer)
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.Subject)
		assert.Equal(t, sessionID, claims.SessionID)
	})

	t.Run("wrong secret fails as invalid regardless of payload", func(t *testing.T) {
		other, err := token.NewFromString("another-secret")
		require.NoError(t, err)
		bearer, _, err := other.Mint(testUser())
		require.NoError(t, err)

		_, err = codec.Parse(bearer)
		require.True(t, token.IsKind(err, token.KindInvalidToken))
	})

	t.Run("expired token with valid signature fails as expired", func(t *testing.T) {
		bearer, _, err := codec.Mint(testUser(), token.WithLifetime(-time.Minute))
		require.NoError(t, err)

		claims, err := codec.Parse(bearer)
		require.True(t, token.IsKind(err, token.KindExpiredToken))
		// Claims are still returned so the caller can drive a refresh.
		assert.Equal(t, "u-1", claims.Subject)
	})

	t.Run("expired token with wrong secret fails as invalid, not expired", func(t *testing.T) {
		other, err := token.NewFromString("another-secret")
		require.NoError(t, err)
		bearer, _, err := other.Mint(testUser(), token.WithLifetime(-time.Minute))
		require.NoError(t, err)

		_, err = codec.Parse(bearer)
		require.True(t, token.IsKind(err, token.KindInvalidToken))
	})

	t.Run("malformed token", func(t *testing.T) {
		for _, tc := range []string{"", "a", "a.b", "a.b.c.d"} {
			_, err := codec.Parse(tc)
			require.True(t, token.IsKind(err, token.KindInvalidToken), "token %q", tc)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		bearer, _, err := codec.Mint(testUser())
		require.NoError(t, err)

		parts := strings.Split(bearer, ".")
		forged := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-2","exp":99999999999,"jti":"s-1"}`))
		_, err = codec.Parse(parts[0] + "." + forged + "." + parts[2])
		require.True(t, token.IsKind(err, token.KindInvalidToken))
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		bearer, _, err := codec.Mint(testUser())
		require.NoError(t, err)
		parts := strings.Split(bearer, ".")

		header := base64.RawURLEncoding.EncodeToString([]byte(`{"typ":"JWT","alg":"none"}`))
		_, err = codec.Parse(header + "." + parts[1] + "." + parts[2])
		require.True(t, token.IsKind(err, token.KindInvalidToken))
	})
}

func TestDecodeUnverified(t *testing.T) {
	t.Parallel()
	codec, err := token.NewFromString("secret")
	require.NoError(t, err)

	t.Run("decodes without signature check", func(t *testing.T) {
		other, err := token.NewFromString("another-secret")
		require.NoError(t, err)
		bearer, sessionID, err := other.Mint(testUser())
		require.NoError(t, err)

		claims, err := codec.DecodeUnverified(bearer)
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.Subject)
		assert.Equal(t, sessionID, claims.SessionID)
	})

	t.Run("fails on malformed input", func(t *testing.T) {
		_, err := codec.DecodeUnverified("not-a-token")
		require.True(t, token.IsKind(err, token.KindInvalidToken))

		_, err = codec.DecodeUnverified("a.!!!.c")
		require.True(t, token.IsKind(err, token.KindInvalidToken))
	})
}

func TestClaimsValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid shape", func(t *testing.T) {
		c := token.Claims{Subject: "u-1", SessionID: "s-1"}
		require.NoError(t, c.Validate())
	})

	t.Run("missing subject", func(t *testing.T) {
		c := token.Claims{SessionID: "s-1"}
		require.True(t, token.IsKind(c.Validate(), token.KindInvalidToken))
	})

	t.Run("missing session id", func(t *testing.T) {
		c := token.Claims{Subject: "u-1"}
		require.True(t, token.IsKind(c.Validate(), token.KindInvalidToken))
	})
}

func TestAssertSessionMatches(t *testing.T) {
	t.Parallel()

	t.Run("matching session", func(t *testing.T) {
		err := token.AssertSessionMatches(token.Claims{SessionID: "s-1"}, testUser())
		require.NoError(t, err)
	})

	t.Run("superseded session carries the user", func(t *testing.T) {
		user := testUser()
		err := token.AssertSessionMatches(token.Claims{SessionID: "old"}, user)
		te, ok := token.AsError(err)
		require.True(t, ok)
		assert.Equal(t, token.KindOutdatedToken, te.Kind)
		assert.Same(t, user, te.User)
	})

	t.Run("nil user", func(t *testing.T) {
		err := token.AssertSessionMatches(token.Claims{SessionID: "s-1"}, nil)
		require.True(t, token.IsKind(err, token.KindOutdatedToken))
	})
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	te := token.NewError(token.KindRefreshFailed, nil, "upstream said no")
	assert.Equal(t, token.PublicText(token.KindRefreshFailed), te.Public)
	assert.Contains(t, te.Error(), "refresh_failed")
	assert.Contains(t, te.Error(), "upstream said no")
	// The public message must never include the diagnostic text.
	assert.NotContains(t, te.Public, "upstream")
}

func decodePayload(t *testing.T, bearer string) map[string]any {
	t.Helper()
	parts := strings.Split(bearer, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	return payload
}
