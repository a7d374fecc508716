package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCMCredentials_HasValidAccessToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }

	tests := []struct {
		name      string
		token     string
		expiresAt *time.Time
		want      bool
	}{
		{name: "no token", token: "", expiresAt: at(time.Hour), want: false},
		{name: "no expiry", token: "abc", expiresAt: nil, want: false},
		{name: "expires well in the future", token: "abc", expiresAt: at(10 * time.Minute), want: true},
		{name: "inside the skew window", token: "abc", expiresAt: at(59 * time.Second), want: false},
		{name: "exactly at the skew", token: "abc", expiresAt: at(60 * time.Second), want: false},
		{name: "already expired", token: "abc", expiresAt: at(-time.Minute), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			creds := &CMCredentials{AccessToken: tt.token, AccessExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, creds.HasValidAccessToken(now))
		})
	}
}

func TestCMCredentials_EffectivePollInterval(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MinPollInterval, (&CMCredentials{PollInterval: 0}).EffectivePollInterval())
	assert.Equal(t, MinPollInterval, (&CMCredentials{PollInterval: time.Second}).EffectivePollInterval())
	assert.Equal(t, 5*time.Second, (&CMCredentials{PollInterval: 5 * time.Second}).EffectivePollInterval())
}
