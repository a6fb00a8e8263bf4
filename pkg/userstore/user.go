package userstore

import "time"

// User represents an account authenticated through an external identity
// provider. Credential-bearing fields use the empty string as "revoked":
// a user with an empty SessionID has no live bearer token, and a user with
// an empty RefreshCredential cannot be refreshed and must log in again.
type User struct {
	ID                  string    `bson:"_id"`
	Provider            string    `bson:"provider"`
	ProviderID          string    `bson:"provider_id"`
	Email               string    `bson:"email"`
	Name                string    `bson:"name"`
	RefreshCredential   string    `bson:"refresh_credential"`
	ProviderAccessToken string    `bson:"provider_access_token"`
	SessionID           string    `bson:"session_id"`
	Verified            bool      `bson:"verified"`
	LastActiveAt        time.Time `bson:"last_active_at"`
	CreatedAt           time.Time `bson:"created_at"`
}

// NewUser carries the provider profile data needed to create or refresh an
// account during an OAuth callback.
type NewUser struct {
	Provider            string
	ProviderID          string
	Email               string
	Name                string
	RefreshCredential   string
	ProviderAccessToken string
	Verified            bool
}

// Patch is a field mask for partial updates. Nil fields are left unchanged;
// a pointer to the zero value writes the zero value, which is how a session
// reset clears credentials without touching the rest of the record.
type Patch struct {
	RefreshCredential   *string
	ProviderAccessToken *string
	SessionID           *string
	LastActiveAt        *time.Time
}

// String returns a pointer to s, for building patches inline.
func String(s string) *string { return &s }

// Time returns a pointer to t, for building patches inline.
func Time(t time.Time) *time.Time { return &t }

// ResetPatch clears every credential-bearing field, invalidating all issued
// bearer tokens and forcing a fresh login.
func ResetPatch() Patch {
	return Patch{
		RefreshCredential:   String(""),
		ProviderAccessToken: String(""),
		SessionID:           String(""),
	}
}
