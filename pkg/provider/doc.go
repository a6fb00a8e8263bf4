// Package provider holds the identity-provider registry and its adapters.
//
// Each adapter implements a fixed capability surface: a name, route wiring
// for its own login/callback handshake, and a refresh call exchanging the
// user's stored refresh credential for a fresh provider access token.
// Providers are registered by name and can be added or removed at runtime,
// which the tests rely on.
package provider
