package challengermode

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"cogbot/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	creds   entities.CMCredentials
	cleared int
}

func (s *memoryStore) Credentials(ctx context.Context) (*entities.CMCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.creds
	return &c, nil
}

func (s *memoryStore) StoreAccessToken(ctx context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.AccessToken = token
	s.creds.AccessExpiresAt = &expiresAt
	return nil
}

func (s *memoryStore) ClearAccessToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.AccessToken = ""
	s.creds.AccessExpiresAt = nil
	s.cleared++
	return nil
}

type fakeAPI struct {
	tokenCalls   atomic.Int32
	graphqlCalls atomic.Int32
	tokenStatus  []int
	tokenValue   func(call int32) string
	graphql      func(w http.ResponseWriter, r *http.Request, call int32)
}

func (f *fakeAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		call := f.tokenCalls.Add(1)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-key", body["refreshKey"])

		if int(call) <= len(f.tokenStatus) && f.tokenStatus[call-1] != http.StatusOK {
			w.WriteHeader(f.tokenStatus[call-1])
			return
		}
		value := "token-1"
		if f.tokenValue != nil {
			value = f.tokenValue(call)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"value":     value,
			"expiresAt": "2099-01-01T00:00:00.1234567Z",
		})
	})
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		call := f.graphqlCalls.Add(1)
		f.graphql(w, r, call)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) (*Client, *memoryStore) {
	store := &memoryStore{creds: entities.CMCredentials{
		APIURL:     srv.URL + "/graphql",
		TokenURL:   srv.URL + "/token",
		RefreshKey: "refresh-key",
	}}
	client := NewClient(store, "2024-01-01")
	client.retryInitial = time.Millisecond
	return client, store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Me(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{graphql: func(w http.ResponseWriter, r *http.Request, call int32) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-01-01", r.Header.Get("Api-Version"))
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{"me": map[string]any{"user": map[string]any{"userId": "u1", "username": "alice"}}},
		})
	}}
	client, store := newTestClient(api.server(t))

	user, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &entities.CMUser{UserID: "u1", Username: "alice"}, user)

	_, err = client.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), api.tokenCalls.Load(), "cached token should be reused")
	assert.Equal(t, "token-1", store.creds.AccessToken)
	require.NotNil(t, store.creds.AccessExpiresAt)
	assert.Equal(t, 2099, store.creds.AccessExpiresAt.Year())
}

func TestClient_NoRefreshKey(t *testing.T) {
	t.Parallel()

	store := &memoryStore{creds: entities.CMCredentials{APIURL: "http://unused", TokenURL: "http://unused"}}
	client := NewClient(store, "")

	_, err := client.Me(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshKey)
}

func TestClient_TokenExchangeRetries(t *testing.T) {
	t.Parallel()

	t.Run("retries server errors", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{
			tokenStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable},
			graphql: func(w http.ResponseWriter, r *http.Request, call int32) {
				writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"user": map[string]any{"userId": "u2"}}})
			},
		}
		client, _ := newTestClient(api.server(t))

		user, err := client.User(context.Background(), "u2")
		require.NoError(t, err)
		assert.Equal(t, "u2", user.UserID)
		assert.Equal(t, int32(3), api.tokenCalls.Load())
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{
			tokenStatus: []int{http.StatusInternalServerError, http.StatusInternalServerError, http.StatusInternalServerError, http.StatusOK},
		}
		client, _ := newTestClient(api.server(t))

		_, err := client.Me(context.Background())
		require.Error(t, err)
		assert.Equal(t, int32(3), api.tokenCalls.Load())
		assert.Equal(t, int32(0), api.graphqlCalls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{tokenStatus: []int{http.StatusBadRequest}}
		client, _ := newTestClient(api.server(t))

		_, err := client.Me(context.Background())
		require.Error(t, err)
		assert.Equal(t, int32(1), api.tokenCalls.Load())
	})
}

func TestClient_AuthRetry(t *testing.T) {
	t.Parallel()

	t.Run("refreshes token once on auth error", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{
			tokenValue: func(call int32) string {
				if call == 1 {
					return "stale"
				}
				return "fresh"
			},
			graphql: func(w http.ResponseWriter, r *http.Request, call int32) {
				if r.Header.Get("Authorization") == "Bearer stale" {
					writeJSON(w, http.StatusOK, map[string]any{
						"errors": []map[string]any{{"message": "denied", "extensions": map[string]any{"code": "AUTH_NOT_AUTHENTICATED"}}},
					})
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"me": map[string]any{"user": map[string]any{"userId": "u1"}}}})
			},
		}
		client, store := newTestClient(api.server(t))

		user, err := client.Me(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "u1", user.UserID)
		assert.Equal(t, 1, store.cleared)
		assert.Equal(t, int32(2), api.tokenCalls.Load())
		assert.Equal(t, "fresh", store.creds.AccessToken)
	})

	t.Run("second auth failure is returned", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{graphql: func(w http.ResponseWriter, r *http.Request, call int32) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"errors": []map[string]any{{"message": "Not authorized"}},
			})
		}}
		client, _ := newTestClient(api.server(t))

		_, err := client.Me(context.Background())
		var gqlErr *GraphQLError
		require.ErrorAs(t, err, &gqlErr)
		assert.Equal(t, http.StatusUnauthorized, gqlErr.Status)
		assert.Equal(t, int32(2), api.graphqlCalls.Load())
	})
}

func TestGraphQLError_Summary(t *testing.T) {
	t.Parallel()

	err := &GraphQLError{Status: 200, Errors: []GraphQLErrorEntry{
		{Message: "bad id", Extensions: map[string]any{"code": "BAD_USER_INPUT"}},
		{Message: "forbidden", Extensions: map[string]any{"errorCode": "E403"}},
		{Message: ""},
	}}

	assert.Equal(t, "bad id (code=BAD_USER_INPUT); forbidden (code=E403)", err.Summary(2))
	assert.Contains(t, err.Error(), "<no message>")
}

func TestClient_TournamentMatches(t *testing.T) {
	t.Parallel()

	const body = `{"data":{"tournament":{"id":"t1","name":"Cup","state":"RUNNING","matchSeries":[
		{"id":"abcdef0123456789","state":"RUNNING","ordinal":null,"lineupCount":2,"results":null,
		 "matches":[{"id":"g1","state":"RUNNING","lineups":[
			{"number":0,"members":[{"user":{"userId":"a","username":"A"}},{"user":null}]},
			{"number":1,"members":[{"user":{"userId":"b","username":"B"}}]}]},
			{"id":"g2","state":"WAITING","lineups":[]}]},
		{"id":"s2","state":"COMPLETED","ordinal":7,"lineupCount":2,
		 "results":{"final":true,"draw":false,"lineupResults":[{"lineupNumber":0,"position":1,"score":3},{"lineupNumber":1,"position":2,"score":null}]},
		 "matches":[]},
		{"id":"","state":"RUNNING"}
	]}}}`

	api := &fakeAPI{graphql: func(w http.ResponseWriter, r *http.Request, call int32) {
		var req struct {
			Query         string         `json:"query"`
			Variables     map[string]any `json:"variables"`
			OperationName string         `json:"operationName"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "t1", req.Variables["id"])
		assert.Equal(t, "TournamentMatches", req.OperationName)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}}
	client, _ := newTestClient(api.server(t))

	snapshot, err := client.TournamentMatches(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, "Cup", snapshot.Name)
	assert.Equal(t, entities.StateRunning, snapshot.State)
	require.Len(t, snapshot.Matches, 2)

	first := snapshot.Matches[0]
	assert.Equal(t, "abcdef01", first.ShortID)
	require.Len(t, first.Lineups, 2)
	assert.Equal(t, []entities.CMUser{{UserID: "a", Username: "A"}}, first.Lineups[0].Members)
	assert.Nil(t, first.Results)

	second := snapshot.Matches[1]
	assert.Equal(t, "7", second.ShortID)
	require.True(t, second.Results.HasLineupResults())
	result, ok := second.Results.ResultFor(1)
	require.True(t, ok)
	assert.Equal(t, 2, *result.Position)
	assert.Nil(t, result.Score)
}

func TestClient_TournamentNotFound(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{graphql: func(w http.ResponseWriter, r *http.Request, call int32) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"tournament": nil}})
	}}
	client, _ := newTestClient(api.server(t))

	_, err := client.TournamentMatches(context.Background(), "t1")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestClient_TournamentParticipants(t *testing.T) {
	t.Parallel()

	const body = `{"data":{"tournament":{"attendance":{
		"signups":[{"lineups":[{"members":[{"user":{"userId":"a","username":""}},{"user":{"userId":"b","username":"B"}}]}]}],
		"roster":[{"lineups":[{"members":[{"user":{"userId":"a","username":"A"}},{"user":{"userId":"c","username":"C"}}]}]}]
	}}}}`

	api := &fakeAPI{graphql: func(w http.ResponseWriter, r *http.Request, call int32) {
		_, _ = w.Write([]byte(body))
	}}
	client, _ := newTestClient(api.server(t))

	users, err := client.TournamentParticipants(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, []entities.CMUser{
		{UserID: "a", Username: "A"},
		{UserID: "b", Username: "B"},
		{UserID: "c", Username: "C"},
	}, users)
}

func TestClient_NonJSONResponse(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{graphql: func(w http.ResponseWriter, r *http.Request, call int32) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}}
	client, _ := newTestClient(api.server(t))

	_, err := client.Me(context.Background())
	require.Error(t, err)
	var gqlErr *GraphQLError
	assert.False(t, errors.As(err, &gqlErr))
	assert.Contains(t, err.Error(), "TestMe")
}

func TestClient_ServerErrorKeepsGraphQLErrors(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{graphql: func(w http.ResponseWriter, r *http.Request, call int32) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []map[string]any{{"message": "bad query", "extensions": map[string]any{"code": "GRAPHQL_VALIDATION_FAILED"}}},
		})
	}}
	client, store := newTestClient(api.server(t))

	_, err := client.User(context.Background(), "u1")
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, http.StatusBadRequest, gqlErr.Status)
	assert.Equal(t, "bad query (code=GRAPHQL_VALIDATION_FAILED)", gqlErr.Summary(5))
	assert.Equal(t, 0, store.cleared)
	assert.Equal(t, int32(1), api.graphqlCalls.Load())
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("a", 9) + strings.Repeat("é", 5)
	got := truncate(long, 10)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 9)+"..."))
	assert.Contains(t, got, "truncated, 19 chars")

	cjk := strings.Repeat("日本語", 400)
	got = truncate(cjk, debugBodyLimit)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(strings.SplitN(got, "...", 2)[0]), debugBodyLimit)
}
