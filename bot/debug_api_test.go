package bot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDebugTestBot(t *testing.T) *Bot {
	t.Helper()

	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "123", Name: "Test Guild", MemberCount: 7}))

	return &Bot{session: &discordgo.Session{State: state}}
}

func TestDebugAPI_Health(t *testing.T) {
	b := newDebugTestBot(t)

	rec := httptest.NewRecorder()
	b.debugHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestDebugAPI_Guilds(t *testing.T) {
	b := newDebugTestBot(t)

	rec := httptest.NewRecorder()
	b.debugHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/guilds", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool        `json:"success"`
		Data    []GuildInfo `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []GuildInfo{{ID: "123", Name: "Test Guild", MemberCount: 7}}, resp.Data)

	rec = httptest.NewRecorder()
	b.debugHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/debug/guilds", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDebugAPI_Command(t *testing.T) {
	b := newDebugTestBot(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"invalid body", "{", http.StatusBadRequest, "Invalid request body"},
		{"unknown action", `{"action":"explode"}`, http.StatusBadRequest, "Unknown action: explode"},
		{"replay without ids", `{"action":"replay","params":{"channel_id":"1"}}`, http.StatusBadRequest, "Missing channel_id or message_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/debug/command", strings.NewReader(tt.body))
			b.debugHandler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp DebugResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}
