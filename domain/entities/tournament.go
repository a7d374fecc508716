package entities

import "time"

// Challenger Mode tournament and match states
const (
	StateWaiting   = "WAITING"
	StateRunning   = "RUNNING"
	StateCompleted = "COMPLETED"
	StateCancelled = "CANCELLED"
	StateNullified = "NULLIFIED"
)

// IsConcludedState reports whether a match state is terminal
func IsConcludedState(state string) bool {
	switch state {
	case StateCompleted, StateCancelled, StateNullified:
		return true
	}
	return false
}

// Tournament is a Challenger Mode tournament linked to a guild
type Tournament struct {
	GuildID      int64     `db:"guild_id"`
	TournamentID string    `db:"tournament_id"`
	ChannelID    int64     `db:"channel_id"` // Channel the tournament was linked from
	RoleID       *int64    `db:"role_id"`    // Nullable - role mentioned on tournament announcements
	LastState    string    `db:"last_state"` // Empty until the first poll
	CreatedAt    time.Time `db:"created_at"`
}

// HasRole checks if an announcement role is configured
func (t *Tournament) HasRole() bool {
	return t.RoleID != nil && *t.RoleID > 0
}

// CMUser is a Challenger Mode user
type CMUser struct {
	UserID   string
	Username string
}

// Lineup is one team in a match. Number is 0-based.
type Lineup struct {
	Number  int
	Members []CMUser
}

// LineupResult is one team's outcome in a match series
type LineupResult struct {
	LineupNumber int
	Position     *int
	Score        *float64
}

// MatchResults holds the reported results of a match series
type MatchResults struct {
	Final         bool
	Draw          bool
	LineupResults []LineupResult
}

// HasLineupResults reports whether any lineup results were reported
func (r *MatchResults) HasLineupResults() bool {
	return r != nil && len(r.LineupResults) > 0
}

// ResultFor returns the result of a lineup, if reported
func (r *MatchResults) ResultFor(lineupNumber int) (LineupResult, bool) {
	if r == nil {
		return LineupResult{}, false
	}
	for _, lr := range r.LineupResults {
		if lr.LineupNumber == lineupNumber {
			return lr, true
		}
	}
	return LineupResult{}, false
}

// MatchSnapshot is the normalized view of a match series at poll time
type MatchSnapshot struct {
	ID      string
	ShortID string // Series ordinal, or the first 8 characters of the ID
	State   string
	Lineups []Lineup
	Results *MatchResults
}

// MaxTeamSize returns the size of the largest lineup
func (m *MatchSnapshot) MaxTeamSize() int {
	size := 0
	for _, lineup := range m.Lineups {
		if len(lineup.Members) > size {
			size = len(lineup.Members)
		}
	}
	return size
}

// TournamentSnapshot is the normalized view of a tournament at poll time
type TournamentSnapshot struct {
	ID      string
	Name    string
	State   string
	Matches []MatchSnapshot
}

// DisplayName returns the tournament name, falling back to the ID
func (t *TournamentSnapshot) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// MatchVoiceChannel is a private voice channel created for a running match
type MatchVoiceChannel struct {
	GuildID      int64  `db:"guild_id"`
	MatchID      string `db:"match_id"`
	TournamentID string `db:"tournament_id"`
	ChannelID    int64  `db:"channel_id"`
	TeamNumber   *int   `db:"team_number"` // Nil for a shared channel
}
