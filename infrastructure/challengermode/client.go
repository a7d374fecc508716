package challengermode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"cogbot/domain/entities"
	"cogbot/infrastructure/observability"

	"github.com/Khan/genqlient/graphql"
	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const (
	requestTimeout       = 30 * time.Second
	tokenExchangeTimeout = 10 * time.Second
	fallbackTokenTTL     = 1100 * time.Second
	maxTokenAttempts     = 3
	debugBodyLimit       = 2000
	maxResponseBytes     = 4 << 20
)

// CredentialStore persists the API settings and the cached access token
type CredentialStore interface {
	Credentials(ctx context.Context) (*entities.CMCredentials, error)
	StoreAccessToken(ctx context.Context, token string, expiresAt time.Time) error
	ClearAccessToken(ctx context.Context) error
}

// Client talks to the Challenger Mode public GraphQL API
type Client struct {
	httpClient   *http.Client
	store        CredentialStore
	apiVersion   string
	now          func() time.Time
	retryInitial time.Duration

	tokenMu sync.Mutex
}

// NewClient creates a Challenger Mode client; apiVersion may be empty
func NewClient(store CredentialStore, apiVersion string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: requestTimeout},
		store:        store,
		apiVersion:   apiVersion,
		now:          time.Now,
		retryInitial: 500 * time.Millisecond,
	}
}

type tokenResponse struct {
	Value     string `json:"value"`
	ExpiresAt string `json:"expiresAt"`
}

// accessToken returns a cached token that is still valid or exchanges the refresh key for a new one
func (c *Client) accessToken(ctx context.Context) (string, *entities.CMCredentials, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	creds, err := c.store.Credentials(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	if creds.HasValidAccessToken(c.now()) {
		return creds.AccessToken, creds, nil
	}
	if creds.RefreshKey == "" {
		return "", creds, ErrNoRefreshKey
	}
	if creds.TokenURL == "" {
		return "", creds, ErrNotConfigured
	}

	token, expiresAt, err := c.exchange(ctx, creds)
	if err != nil {
		return "", creds, err
	}

	if err := c.store.StoreAccessToken(ctx, token, expiresAt); err != nil {
		log.WithError(err).Warn("Failed to cache Challenger Mode access token")
	}
	creds.AccessToken = token
	creds.AccessExpiresAt = &expiresAt

	return token, creds, nil
}

// exchange trades the refresh key for an access token, retrying transport errors and 5xx responses
func (c *Client) exchange(ctx context.Context, creds *entities.CMCredentials) (string, time.Time, error) {
	body, err := json.Marshal(map[string]string{"refreshKey": creds.RefreshKey})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to encode token request: %w", err)
	}

	var parsed tokenResponse
	operation := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, creds.TokenURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build token request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("token exchange request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("failed to read token response: %w", err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, truncate(string(raw), debugBodyLimit)))
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode token response: %w", err))
		}
		if parsed.Value == "" {
			return backoff.Permanent(errors.New("token exchange returned an empty token"))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInitial
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, maxTokenAttempts-1), ctx)

	if err := backoff.Retry(operation, retry); err != nil {
		observability.GetMetrics().RecordCMLinkAPIRequest("TokenExchange", observability.APIStatusError)
		return "", time.Time{}, err
	}
	observability.GetMetrics().RecordCMLinkAPIRequest("TokenExchange", observability.APIStatusOK)

	return parsed.Value, c.parseExpiry(parsed.ExpiresAt), nil
}

// parseExpiry parses an ISO 8601 expiry, falling back to a conservative lifetime
func (c *Client) parseExpiry(value string) time.Time {
	if value != "" {
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return t.UTC()
		}
	}
	return c.now().Add(fallbackTokenTTL).UTC()
}

type graphQLResult struct {
	status int
	errors []GraphQLErrorEntry
}

func (r *graphQLResult) hasAuthError() bool {
	if r.status == http.StatusUnauthorized {
		return true
	}
	if r.status != http.StatusOK {
		return false
	}
	for _, e := range r.errors {
		if e.isAuthError() {
			return true
		}
	}
	return false
}

// query runs a GraphQL operation and decodes its data into out.
// An authentication failure clears the cached token and retries once with a fresh one.
func (c *Client) query(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	token, creds, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	if creds.APIURL == "" {
		return ErrNotConfigured
	}
	if variables == nil {
		variables = map[string]any{}
	}

	result, err := c.post(ctx, creds, token, operation, query, variables, out)
	if err != nil {
		observability.GetMetrics().RecordCMLinkAPIRequest(operation, observability.APIStatusError)
		return err
	}

	if result.hasAuthError() {
		observability.GetMetrics().RecordCMLinkAPIRequest(operation, observability.APIStatusAuthRetry)
		log.WithField("operation", operation).Warn("Challenger Mode auth error, refreshing access token")

		if err := c.store.ClearAccessToken(ctx); err != nil {
			return fmt.Errorf("failed to clear access token: %w", err)
		}
		token, creds, err = c.accessToken(ctx)
		if err != nil {
			return err
		}
		result, err = c.post(ctx, creds, token, operation, query, variables, out)
		if err != nil {
			observability.GetMetrics().RecordCMLinkAPIRequest(operation, observability.APIStatusError)
			return err
		}
	}

	if result.status != http.StatusOK || len(result.errors) > 0 {
		observability.GetMetrics().RecordCMLinkAPIRequest(operation, observability.APIStatusError)
		return &GraphQLError{Status: result.status, Errors: result.errors}
	}
	observability.GetMetrics().RecordCMLinkAPIRequest(operation, observability.APIStatusOK)
	return nil
}

// post sends one GraphQL request through genqlient and decodes data into out.
// A non-200 status or GraphQL errors come back in the result, not as an error.
func (c *Client) post(ctx context.Context, creds *entities.CMCredentials, token, operation, query string, variables map[string]any, out any) (*graphQLResult, error) {
	logger := log.WithFields(log.Fields{
		"operation": operation,
		"url":       creds.APIURL,
	})
	if creds.DebugAPILogging {
		vars, _ := json.Marshal(variables)
		logger.WithField("variables", truncate(string(vars), debugBodyLimit)).Debug("Challenger Mode request")
	}

	if out == nil {
		out = new(json.RawMessage)
	}
	doer := &authDoer{
		client:     c.httpClient,
		token:      token,
		apiVersion: c.apiVersion,
	}
	resp := &graphql.Response{Data: out}
	err := graphql.NewClient(creds.APIURL, doer).MakeRequest(ctx, &graphql.Request{
		Query:     query,
		Variables: variables,
		OpName:    operation,
	}, resp)

	if doer.status == 0 {
		return nil, fmt.Errorf("%s request failed: %w", operation, err)
	}
	if creds.DebugAPILogging {
		logger.WithFields(log.Fields{
			"status": doer.status,
			"body":   truncate(string(doer.body), debugBodyLimit),
		}).Debug("Challenger Mode response")
	}

	if doer.status != http.StatusOK {
		// genqlient reports non-200 answers as a plain error, the body may still carry GraphQL errors
		var body graphql.Response
		if json.Unmarshal(doer.body, &body) == nil {
			return &graphQLResult{status: doer.status, errors: errorEntries(&body)}, nil
		}
		return &graphQLResult{status: doer.status}, nil
	}
	if err != nil && len(resp.Errors) == 0 {
		return nil, fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return &graphQLResult{status: doer.status, errors: errorEntries(resp)}, nil
}

func errorEntries(resp *graphql.Response) []GraphQLErrorEntry {
	if len(resp.Errors) == 0 {
		return nil
	}
	entries := make([]GraphQLErrorEntry, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		if e == nil {
			continue
		}
		entries = append(entries, GraphQLErrorEntry{Message: e.Message, Extensions: e.Extensions})
	}
	return entries
}

// authDoer is the graphql.Doer for one request: it sets the auth headers,
// caps the response body and keeps the status and body for the caller
type authDoer struct {
	client     *http.Client
	token      string
	apiVersion string

	status int
	body   []byte
}

func (d *authDoer) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+d.token)
	if d.apiVersion != "" {
		req.Header.Set("Api-Version", d.apiVersion)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	d.status = resp.StatusCode
	d.body = raw
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return resp, nil
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s... (truncated, %d chars)", s[:cut], len(s))
}
