package authn

import "time"

// Default lifetimes for the two token flavors.
const (
	DefaultTokenLifetime        = time.Hour
	DefaultOneTimeTokenLifetime = 2 * time.Minute
)

// Config holds the authenticator configuration.
//
// TokenLifetime is read as a string so a malformed value can degrade to the
// default with a logged warning instead of failing boot; the signing secret
// on the other hand is hard-required.
type Config struct {
	Secret               string        `env:"JWT_SECRET,required"`
	TokenLifetime        string        `env:"JWT_LIFETIME"` // seconds, non-negative integer
	OneTimeTokenLifetime time.Duration `env:"ONE_TIME_TOKEN_LIFETIME" envDefault:"120s"`
}
