package challengermode

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRefreshKey is returned when no refresh key is configured
	ErrNoRefreshKey = errors.New("no Challenger Mode refresh key configured")

	// ErrNotConfigured is returned when the API or token URL is missing
	ErrNotConfigured = errors.New("Challenger Mode API not configured")

	// ErrUserNotFound is returned when a user lookup returns no user
	ErrUserNotFound = errors.New("Challenger Mode user not found")

	// ErrTournamentNotFound is returned when a tournament lookup returns no tournament
	ErrTournamentNotFound = errors.New("Challenger Mode tournament not found")
)

// GraphQLErrorEntry is one entry of a GraphQL "errors" array
type GraphQLErrorEntry struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Code returns extensions.code, falling back to extensions.errorCode
func (e GraphQLErrorEntry) Code() string {
	for _, key := range []string{"code", "errorCode"} {
		if v, ok := e.Extensions[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// isAuthError reports whether the entry signals a missing or rejected access token
func (e GraphQLErrorEntry) isAuthError() bool {
	if e.Code() == "AUTH_NOT_AUTHENTICATED" {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "not authorized") || strings.Contains(msg, "auth")
}

// GraphQLError is returned when the API answers with GraphQL errors or a non-200 status
type GraphQLError struct {
	Status int
	Errors []GraphQLErrorEntry
}

func (e *GraphQLError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("graphql request failed with status %d", e.Status)
	}
	return fmt.Sprintf("graphql request failed with status %d: %s", e.Status, e.Summary(len(e.Errors)))
}

// Summary joins up to max error messages with their codes
func (e *GraphQLError) Summary(max int) string {
	msgs := make([]string, 0, max)
	for i, entry := range e.Errors {
		if i >= max {
			break
		}
		msg := entry.Message
		if msg == "" {
			msg = "<no message>"
		}
		if code := entry.Code(); code != "" {
			msg = fmt.Sprintf("%s (code=%s)", msg, code)
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}
