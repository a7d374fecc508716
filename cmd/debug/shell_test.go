package debug

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeDebugAPI(t *testing.T) (*httptest.Server, *[]map[string]interface{}) {
	t.Helper()

	var received []map[string]interface{}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/debug/guilds", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[{"id":"1","name":"Cog Guild","member_count":3}]}`))
	})
	mux.HandleFunc("/debug/command", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received = append(received, body)

		params, _ := body["params"].(map[string]interface{})
		if params["message_id"] == "missing" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"success":false,"error":"Failed to replay message: not found"}`))
			return
		}
		w.Write([]byte(`{"success":true,"message":"Message replayed successfully"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &received
}

func TestDebugClient(t *testing.T) {
	server, received := newFakeDebugAPI(t)
	client := NewDebugClient(server.URL)

	require.NoError(t, client.CheckConnection())

	guilds, err := client.GetGuilds()
	require.NoError(t, err)
	assert.Equal(t, []GuildInfo{{ID: "1", Name: "Cog Guild", MemberCount: 3}}, guilds)

	require.NoError(t, client.ReplayMessage("10", "20"))
	require.Len(t, *received, 1)
	assert.Equal(t, "replay", (*received)[0]["action"])

	err = client.ReplayMessage("10", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestShell_Run(t *testing.T) {
	server, received := newFakeDebugAPI(t)
	var out bytes.Buffer
	shell := NewShell(NewDebugClient(server.URL), nil, &out)

	input := strings.Join([]string{
		"guilds",
		"replay 10 20",
		"replay 10",
		"verify abc 1",
		"bogus",
		"exit",
		"guilds",
	}, "\n")

	require.NoError(t, shell.Run(context.Background(), strings.NewReader(input)))

	text := out.String()
	assert.Contains(t, text, "1  Cog Guild (3 members)")
	assert.Contains(t, text, "Message replayed.")
	assert.Contains(t, text, "usage: replay <channel_id> <message_id>")
	assert.Contains(t, text, `invalid guild ID "abc"`)
	assert.Contains(t, text, "unknown command: bogus")
	assert.Equal(t, 1, strings.Count(text, "Cog Guild"))
	assert.Len(t, *received, 1)
}

func TestShell_Help(t *testing.T) {
	var out bytes.Buffer
	shell := NewShell(nil, nil, &out)

	shell.Execute(context.Background(), "help")

	for _, usage := range []string{"guilds", "replay <channel_id> <message_id>", "verify <guild_id> <user_id>", "links [limit]", "exit"} {
		assert.Contains(t, out.String(), usage)
	}
}
