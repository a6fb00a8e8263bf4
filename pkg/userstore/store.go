package userstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("userstore: user not found")
	ErrInvalidUserID = errors.New("userstore: invalid user id")
)

// Store is the persistence contract consumed by the authentication core.
// Implementations must be safe for concurrent use; the core performs no
// cross-request locking and relies on last-write-wins semantics for
// concurrent session updates.
type Store interface {
	// FindByID returns the user with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*User, error)

	// Update applies the non-nil fields of patch to the user with the given
	// id and returns the updated record, or ErrNotFound.
	Update(ctx context.Context, id string, patch Patch) (*User, error)

	// FindOrCreate looks up a user by provider identity, creating the record
	// on first login. Provider tokens from the current handshake are written
	// either way.
	FindOrCreate(ctx context.Context, nu NewUser) (*User, error)
}
