package userstore

import (
	"encoding/base64"
	"errors"
)

// KeysConfig holds the base64-encoded cipher keys for credential encryption
// at rest.
type KeysConfig struct {
	AppKey   string `env:"APP_SECRET_KEY,required"`       // process-wide key, shared across stores
	StoreKey string `env:"USERSTORE_SECRET_KEY,required"` // key specific to the user store
}

// NewCipherFromConfig decodes the configured keys and builds the cipher.
func NewCipherFromConfig(cfg KeysConfig) (*Cipher, error) {
	appKey, err := base64.StdEncoding.DecodeString(cfg.AppKey)
	if err != nil {
		return nil, errors.Join(ErrInvalidAppKey, err)
	}
	storeKey, err := base64.StdEncoding.DecodeString(cfg.StoreKey)
	if err != nil {
		return nil, errors.Join(ErrInvalidStoreKey, err)
	}
	return NewCipher(appKey, storeKey)
}
