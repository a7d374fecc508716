package entities

import "time"

// MinPollInterval is the shortest allowed tournament poll interval
const MinPollInterval = 2 * time.Second

// AccessTokenSkew is how long before expiry a cached access token is considered stale
const AccessTokenSkew = 60 * time.Second

// CMCredentials holds the bot-wide Challenger Mode API configuration
type CMCredentials struct {
	APIURL          string     `db:"api_url"`
	TokenURL        string     `db:"token_url"`
	RefreshKey      string     `db:"refresh_key"`
	AccessToken     string     `db:"access_token"`
	AccessExpiresAt *time.Time `db:"access_expires_at"`
	PollInterval    time.Duration
	DebugAPILogging bool `db:"debug_api_logging"`
}

// HasValidAccessToken reports whether the cached access token can still be used at now
func (c *CMCredentials) HasValidAccessToken(now time.Time) bool {
	if c.AccessToken == "" || c.AccessExpiresAt == nil {
		return false
	}
	return c.AccessExpiresAt.Sub(now) > AccessTokenSkew
}

// EffectivePollInterval clamps the poll interval to the allowed minimum
func (c *CMCredentials) EffectivePollInterval() time.Duration {
	if c.PollInterval < MinPollInterval {
		return MinPollInterval
	}
	return c.PollInterval
}
