package authn_test

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/akarpenko/backplane/pkg/provider"
	"github.com/akarpenko/backplane/pkg/userstore"
)

// mockStore is a testify mock implementation of userstore.Store.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindByID(ctx context.Context, id string) (*userstore.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userstore.User), args.Error(1)
}

func (m *mockStore) Update(ctx context.Context, id string, patch userstore.Patch) (*userstore.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userstore.User), args.Error(1)
}

func (m *mockStore) FindOrCreate(ctx context.Context, nu userstore.NewUser) (*userstore.User, error) {
	args := m.Called(ctx, nu)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userstore.User), args.Error(1)
}

// mockProvider is a testify mock implementation of provider.Provider.
type mockProvider struct {
	mock.Mock
	name string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Initialize(r chi.Router, issuer provider.TokenIssuer) {}

func (m *mockProvider) RefreshToken(ctx context.Context, refreshCredential string) (string, error) {
	args := m.Called(ctx, refreshCredential)
	return args.String(0), args.Error(1)
}

var (
	_ userstore.Store   = (*mockStore)(nil)
	_ provider.Provider = (*mockProvider)(nil)
)
