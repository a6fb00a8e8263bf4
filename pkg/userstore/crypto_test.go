package userstore_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpenko/backplane/pkg/userstore"
)

func testCipher(t *testing.T) *userstore.Cipher {
	t.Helper()
	appKey, err := userstore.GenerateKey()
	require.NoError(t, err)
	storeKey, err := userstore.GenerateKey()
	require.NoError(t, err)
	c, err := userstore.NewCipher(appKey, storeKey)
	require.NoError(t, err)
	return c
}

func TestNewCipher(t *testing.T) {
	t.Parallel()

	t.Run("rejects short app key", func(t *testing.T) {
		storeKey, err := userstore.GenerateKey()
		require.NoError(t, err)
		_, err = userstore.NewCipher([]byte("too-short"), storeKey)
		require.ErrorIs(t, err, userstore.ErrInvalidAppKey)
	})

	t.Run("rejects short store key", func(t *testing.T) {
		appKey, err := userstore.GenerateKey()
		require.NoError(t, err)
		_, err = userstore.NewCipher(appKey, []byte("too-short"))
		require.ErrorIs(t, err, userstore.ErrInvalidStoreKey)
	})
}

func TestCipherRoundTrip(t *testing.T) {
	t.Parallel()
	c := testCipher(t)

	t.Run("encrypt then decrypt", func(t *testing.T) {
		ciphertext, err := c.EncryptString("1//refresh-credential")
		require.NoError(t, err)
		require.NotEmpty(t, ciphertext)
		assert.NotContains(t, ciphertext, "refresh-credential")

		plaintext, err := c.DecryptString(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, "1//refresh-credential", plaintext)
	})

	t.Run("empty string passes through", func(t *testing.T) {
		ciphertext, err := c.EncryptString("")
		require.NoError(t, err)
		assert.Empty(t, ciphertext)

		plaintext, err := c.DecryptString("")
		require.NoError(t, err)
		assert.Empty(t, plaintext)
	})

	t.Run("nonces differ between encryptions", func(t *testing.T) {
		first, err := c.EncryptString("same input")
		require.NoError(t, err)
		second, err := c.EncryptString("same input")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

func TestCipherDecryptFailures(t *testing.T) {
	t.Parallel()
	c := testCipher(t)

	t.Run("not base64", func(t *testing.T) {
		_, err := c.DecryptString("!!! not base64 !!!")
		require.ErrorIs(t, err, userstore.ErrInvalidCiphertext)
	})

	t.Run("too short for a nonce", func(t *testing.T) {
		_, err := c.DecryptString(base64.StdEncoding.EncodeToString([]byte("tiny")))
		require.ErrorIs(t, err, userstore.ErrInvalidCiphertext)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		ciphertext, err := c.EncryptString("secret value")
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(ciphertext)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xff
		_, err = c.DecryptString(base64.StdEncoding.EncodeToString(raw))
		require.ErrorIs(t, err, userstore.ErrDecryptionFailed)
	})

	t.Run("different key pair cannot decrypt", func(t *testing.T) {
		ciphertext, err := c.EncryptString("secret value")
		require.NoError(t, err)

		other := testCipher(t)
		_, err = other.DecryptString(ciphertext)
		require.ErrorIs(t, err, userstore.ErrDecryptionFailed)
	})
}

func TestNewCipherFromConfig(t *testing.T) {
	t.Parallel()

	validKey := func(t *testing.T) string {
		t.Helper()
		key, err := userstore.GenerateKey()
		require.NoError(t, err)
		return base64.StdEncoding.EncodeToString(key)
	}

	t.Run("valid keys", func(t *testing.T) {
		c, err := userstore.NewCipherFromConfig(userstore.KeysConfig{
			AppKey:   validKey(t),
			StoreKey: validKey(t),
		})
		require.NoError(t, err)
		require.NotNil(t, c)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := userstore.NewCipherFromConfig(userstore.KeysConfig{
			AppKey:   "%%%",
			StoreKey: validKey(t),
		})
		require.ErrorIs(t, err, userstore.ErrInvalidAppKey)
	})

	t.Run("decoded key has wrong size", func(t *testing.T) {
		_, err := userstore.NewCipherFromConfig(userstore.KeysConfig{
			AppKey:   validKey(t),
			StoreKey: base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 16))),
		})
		require.ErrorIs(t, err, userstore.ErrInvalidStoreKey)
	})
}
