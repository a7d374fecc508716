package services

import (
	"fmt"
	"strconv"
	"strings"

	"cogbot/domain/entities"
)

const (
	winnerMarker       = "🏆 "
	resultsUnavailable = "Results unavailable."
)

// MentionFunc returns a Discord mention for a Challenger Mode user, or "" when not linked
type MentionFunc func(cmUserID string) string

// WinningLineup picks the lineup with position 0, else the lowest reported position
func WinningLineup(results *entities.MatchResults) (int, bool) {
	if !results.HasLineupResults() {
		return 0, false
	}

	best := -1
	var bestPos int
	for _, lr := range results.LineupResults {
		if lr.Position == nil {
			continue
		}
		if *lr.Position == 0 {
			return lr.LineupNumber, true
		}
		if best == -1 || *lr.Position < bestPos {
			best = lr.LineupNumber
			bestPos = *lr.Position
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// FormatMatchResults renders one line per lineup with members, score and position
func FormatMatchResults(match *entities.MatchSnapshot, mention MentionFunc) string {
	return formatLineups(match, mention, false, "Unknown players")
}

// FormatTournamentWinners renders the final results of a tournament from the last match
// that reported lineup results, marking the winning lineup
func FormatTournamentWinners(snapshot *entities.TournamentSnapshot, mention MentionFunc) string {
	for i := len(snapshot.Matches) - 1; i >= 0; i-- {
		match := snapshot.Matches[i]
		if match.Results.HasLineupResults() {
			return formatLineups(&match, mention, true, "Unknown")
		}
	}
	return "No match results available to determine winners."
}

func formatLineups(match *entities.MatchSnapshot, mention MentionFunc, markWinner bool, emptyTeam string) string {
	winner, hasWinner := WinningLineup(match.Results)

	lines := make([]string, 0, len(match.Lineups))
	for _, lineup := range match.Lineups {
		members := make([]string, 0, len(lineup.Members))
		for _, member := range lineup.Members {
			members = append(members, formatMember(member, mention))
		}
		team := strings.Join(members, ", ")
		if team == "" {
			team = emptyTeam
		}

		score, pos := "?", "?"
		if result, ok := match.Results.ResultFor(lineup.Number); ok {
			if result.Score != nil {
				score = strconv.FormatFloat(*result.Score, 'f', -1, 64)
			}
			if result.Position != nil {
				pos = strconv.Itoa(*result.Position)
			}
		}

		marker := ""
		if markWinner && hasWinner && lineup.Number == winner {
			marker = winnerMarker
		}
		lines = append(lines, fmt.Sprintf("%sTeam %d: %s — score=%s — pos=%s", marker, lineup.Number+1, team, score, pos))
	}

	if len(lines) == 0 {
		return resultsUnavailable
	}
	return strings.Join(lines, "\n")
}

func formatMember(member entities.CMUser, mention MentionFunc) string {
	name := member.Username
	if name == "" {
		name = "<unknown>"
	}
	if mention != nil && member.UserID != "" {
		if m := mention(member.UserID); m != "" {
			return fmt.Sprintf("%s (%s)", name, m)
		}
	}
	return name
}
