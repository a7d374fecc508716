package challengermode

import (
	"context"
	"strconv"

	"cogbot/domain/entities"
)

const meQuery = `query TestMe { me { user { userId username } } }`

const userQuery = `query GetUser($id: UUID!) { user(userId: $id) { userId username } }`

const tournamentMatchesQuery = `query TournamentMatches($id: UUID!) {
  tournament(tournamentId: $id) {
    id
    name
    state
    matchSeries {
      id
      state
      ordinal
      lineupCount
      results { final draw lineupResults { lineupNumber position score } }
      matches(includeFailed: false) {
        id
        state
        lineups { number members { user { userId username } } }
      }
    }
  }
}`

const tournamentParticipantsQuery = `query TournamentParticipants($id: UUID!) {
  tournament(tournamentId: $id) {
    attendance {
      signups { lineups { members { user { userId username } } } }
      roster { lineups { members { user { userId username } } } }
    }
  }
}`

type rawUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type rawMember struct {
	User *rawUser `json:"user"`
}

type rawLineup struct {
	Number  int         `json:"number"`
	Members []rawMember `json:"members"`
}

type rawMatch struct {
	ID      string      `json:"id"`
	State   string      `json:"state"`
	Lineups []rawLineup `json:"lineups"`
}

type rawLineupResult struct {
	LineupNumber int      `json:"lineupNumber"`
	Position     *int     `json:"position"`
	Score        *float64 `json:"score"`
}

type rawResults struct {
	Final         bool              `json:"final"`
	Draw          bool              `json:"draw"`
	LineupResults []rawLineupResult `json:"lineupResults"`
}

type rawMatchSeries struct {
	ID          string      `json:"id"`
	State       string      `json:"state"`
	Ordinal     *int        `json:"ordinal"`
	LineupCount int         `json:"lineupCount"`
	Results     *rawResults `json:"results"`
	Matches     []rawMatch  `json:"matches"`
}

type rawTournament struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	State       string           `json:"state"`
	MatchSeries []rawMatchSeries `json:"matchSeries"`
}

type rawAttendanceGroup struct {
	Lineups []rawLineup `json:"lineups"`
}

type rawAttendance struct {
	Signups []rawAttendanceGroup `json:"signups"`
	Roster  []rawAttendanceGroup `json:"roster"`
}

// Me returns the user the configured refresh key belongs to
func (c *Client) Me(ctx context.Context) (*entities.CMUser, error) {
	var data struct {
		Me *struct {
			User *rawUser `json:"user"`
		} `json:"me"`
	}
	if err := c.query(ctx, "TestMe", meQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.Me == nil || data.Me.User == nil {
		return nil, ErrUserNotFound
	}
	return &entities.CMUser{UserID: data.Me.User.UserID, Username: data.Me.User.Username}, nil
}

// User looks up a Challenger Mode user by ID
func (c *Client) User(ctx context.Context, userID string) (*entities.CMUser, error) {
	var data struct {
		User *rawUser `json:"user"`
	}
	if err := c.query(ctx, "GetUser", userQuery, map[string]any{"id": userID}, &data); err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, ErrUserNotFound
	}
	return &entities.CMUser{UserID: data.User.UserID, Username: data.User.Username}, nil
}

// TournamentMatches fetches the tournament state and the lineups of every match series
func (c *Client) TournamentMatches(ctx context.Context, tournamentID string) (*entities.TournamentSnapshot, error) {
	var data struct {
		Tournament *rawTournament `json:"tournament"`
	}
	if err := c.query(ctx, "TournamentMatches", tournamentMatchesQuery, map[string]any{"id": tournamentID}, &data); err != nil {
		return nil, err
	}
	if data.Tournament == nil {
		return nil, ErrTournamentNotFound
	}
	return normalizeTournament(tournamentID, data.Tournament), nil
}

// TournamentParticipants returns the distinct users signed up or rostered in a tournament
func (c *Client) TournamentParticipants(ctx context.Context, tournamentID string) ([]entities.CMUser, error) {
	var data struct {
		Tournament *struct {
			Attendance *rawAttendance `json:"attendance"`
		} `json:"tournament"`
	}
	if err := c.query(ctx, "TournamentParticipants", tournamentParticipantsQuery, map[string]any{"id": tournamentID}, &data); err != nil {
		return nil, err
	}
	if data.Tournament == nil {
		return nil, ErrTournamentNotFound
	}
	if data.Tournament.Attendance == nil {
		return []entities.CMUser{}, nil
	}

	groups := append(append([]rawAttendanceGroup{}, data.Tournament.Attendance.Signups...), data.Tournament.Attendance.Roster...)
	return collectParticipants(groups), nil
}

func normalizeTournament(requestedID string, raw *rawTournament) *entities.TournamentSnapshot {
	snapshot := &entities.TournamentSnapshot{
		ID:      raw.ID,
		Name:    raw.Name,
		State:   raw.State,
		Matches: make([]entities.MatchSnapshot, 0, len(raw.MatchSeries)),
	}
	if snapshot.ID == "" {
		snapshot.ID = requestedID
	}

	for _, series := range raw.MatchSeries {
		if series.ID == "" {
			continue
		}
		match := entities.MatchSnapshot{
			ID:      series.ID,
			ShortID: shortID(series),
			State:   series.State,
		}
		if len(series.Matches) > 0 {
			match.Lineups = normalizeLineups(series.Matches[0].Lineups)
		}
		if series.Results != nil {
			results := &entities.MatchResults{
				Final: series.Results.Final,
				Draw:  series.Results.Draw,
			}
			for _, lr := range series.Results.LineupResults {
				results.LineupResults = append(results.LineupResults, entities.LineupResult{
					LineupNumber: lr.LineupNumber,
					Position:     lr.Position,
					Score:        lr.Score,
				})
			}
			match.Results = results
		}
		snapshot.Matches = append(snapshot.Matches, match)
	}

	return snapshot
}

func shortID(series rawMatchSeries) string {
	if series.Ordinal != nil {
		return strconv.Itoa(*series.Ordinal)
	}
	if len(series.ID) > 8 {
		return series.ID[:8]
	}
	return series.ID
}

func normalizeLineups(raw []rawLineup) []entities.Lineup {
	lineups := make([]entities.Lineup, 0, len(raw))
	for _, l := range raw {
		lineup := entities.Lineup{Number: l.Number}
		for _, m := range l.Members {
			if m.User == nil || m.User.UserID == "" {
				continue
			}
			lineup.Members = append(lineup.Members, entities.CMUser{UserID: m.User.UserID, Username: m.User.Username})
		}
		lineups = append(lineups, lineup)
	}
	return lineups
}

func collectParticipants(groups []rawAttendanceGroup) []entities.CMUser {
	index := make(map[string]int)
	users := []entities.CMUser{}
	for _, group := range groups {
		for _, lineup := range group.Lineups {
			for _, m := range lineup.Members {
				if m.User == nil || m.User.UserID == "" {
					continue
				}
				if i, ok := index[m.User.UserID]; ok {
					if users[i].Username == "" {
						users[i].Username = m.User.Username
					}
					continue
				}
				index[m.User.UserID] = len(users)
				users = append(users, entities.CMUser{UserID: m.User.UserID, Username: m.User.Username})
			}
		}
	}
	return users
}
