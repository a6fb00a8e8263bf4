package userstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the required size for both cipher keys (AES-256).
const KeySize = 32

// hkdfInfo provides domain separation for the derived storage key.
const hkdfInfo = "backplane-userstore-v1"

var (
	ErrInvalidAppKey     = errors.New("userstore: invalid app key: must be 32 bytes")
	ErrInvalidStoreKey   = errors.New("userstore: invalid store key: must be 32 bytes")
	ErrEncryptionFailed  = errors.New("userstore: encryption failed")
	ErrDecryptionFailed  = errors.New("userstore: decryption failed")
	ErrInvalidCiphertext = errors.New("userstore: invalid ciphertext format")
)

// Cipher encrypts refresh credentials before they hit the database.
// A compound key is derived via HKDF from the process-wide app key and the
// store-specific key, so leaking either one alone is not enough to decrypt
// stored credentials.
type Cipher struct {
	key []byte
}

// NewCipher derives the storage key from the two input keys.
// Both keys must be exactly KeySize bytes.
func NewCipher(appKey, storeKey []byte) (*Cipher, error) {
	if len(appKey) != KeySize {
		return nil, ErrInvalidAppKey
	}
	if len(storeKey) != KeySize {
		return nil, ErrInvalidStoreKey
	}

	r := hkdf.New(sha256.New, appKey, storeKey, []byte(hkdfInfo))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return &Cipher{key: key}, nil
}

// EncryptString encrypts plaintext with AES-256-GCM and returns base64
// ciphertext in the format nonce + sealed data. Empty input passes through
// unchanged so that cleared credentials stay recognizably empty.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	sealed := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString.
func (c *Cipher) DecryptString(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrInvalidCiphertext
	}
	nonce, sealed := raw[:nonceSize], raw[nonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// GenerateKey creates a new random 32-byte key suitable for either cipher key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
