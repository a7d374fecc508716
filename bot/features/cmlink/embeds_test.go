package cmlink

import (
	"fmt"
	"testing"
	"time"

	"cogbot/application/dto"
	"cogbot/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnlinkedEmbed(t *testing.T) {
	t.Parallel()

	t.Run("all linked", func(t *testing.T) {
		t.Parallel()
		embed := unlinkedEmbed([]entities.CMUser{{UserID: "a", Username: "alice"}}, map[string]int64{"a": 1})
		assert.Equal(t, "All Linked", embed.Title)
	})

	t.Run("lists unlinked with overflow", func(t *testing.T) {
		t.Parallel()
		var participants []entities.CMUser
		for n := 0; n < 23; n++ {
			participants = append(participants, entities.CMUser{UserID: fmt.Sprintf("u%d", n), Username: fmt.Sprintf("p%d", n)})
		}
		participants = append(participants, entities.CMUser{UserID: "nameless"})

		embed := unlinkedEmbed(participants, map[string]int64{"u0": 1})
		assert.Equal(t, "Unlinked participants (23)", embed.Title)
		assert.Contains(t, embed.Description, "p1 (u1)")
		assert.NotContains(t, embed.Description, "p0 (u0)")
		assert.Contains(t, embed.Description, "\n... and 3 more.")
		assert.NotContains(t, embed.Description, "Unknown (nameless)")
	})
}

func TestLinkedUsersEmbed(t *testing.T) {
	t.Parallel()

	links := []*entities.AccountLink{
		{CMUserID: "cm1", DiscordUserID: 1},
		{CMUserID: "cm2", DiscordUserID: 2},
		{CMUserID: "cm3", DiscordUserID: 3},
	}
	members := map[int64]bool{1: true, 3: true}
	isMember := func(id int64) bool { return members[id] }

	embed := linkedUsersEmbed(links, isMember, 1, 10)
	assert.Equal(t, "Linked users in this server: **2** (global total: 10)\ncm1 -> <@1>\n... and 1 more.", embed.Description)

	embed = linkedUsersEmbed(links, func(int64) bool { return false }, 5, 3)
	assert.Equal(t, "No linked users found in this server. (global total: 3)", embed.Description)
}

func TestTournamentsEmbed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "No Tournaments", tournamentsEmbed(nil).Title)

	role := int64(9)
	embed := tournamentsEmbed([]*entities.Tournament{
		{TournamentID: "t1", ChannelID: 5, RoleID: &role, LastState: entities.StateRunning},
		{TournamentID: "t2"},
	})
	assert.Equal(t, "t1 -> channel: <#5>, role: <@&9>, state: RUNNING\nt2 -> channel: unset, role: unset, state: not polled yet", embed.Description)
}

func TestGuildSettingsEmbed(t *testing.T) {
	t.Parallel()

	settings := entities.NewGuildSettings(1)
	update, lobby := int64(10), int64(11)
	settings.UpdateChannelID = &update
	settings.LobbyVoiceID = &lobby

	embed := guildSettingsEmbed(settings, &entities.CMCredentials{PollInterval: 5 * time.Second}, func(id int64) string {
		return fmt.Sprintf("vc-%d", id)
	})
	assert.Equal(t, "- Update channel: <#10>\n- Lobby voice: vc-11\n- Category: unset\n- Poll interval: 5s", embed.Description)
}

func TestMatchConcludedEmbed(t *testing.T) {
	t.Parallel()

	pos0, pos1 := 0, 1
	score := 2.0
	transition := dto.MatchTransitionDTO{
		TournamentContext: dto.TournamentContext{
			TournamentID:   "t1",
			TournamentName: "Cup",
			DiscordIDs:     map[string]int64{"cm-a": 42},
		},
		Match: entities.MatchSnapshot{
			ID:      "m1",
			ShortID: "3",
			State:   entities.StateCompleted,
			Lineups: []entities.Lineup{
				{Number: 0, Members: []entities.CMUser{{UserID: "cm-a", Username: "alice"}}},
				{Number: 1, Members: []entities.CMUser{{UserID: "cm-b", Username: "bob"}}},
			},
			Results: &entities.MatchResults{LineupResults: []entities.LineupResult{
				{LineupNumber: 0, Position: &pos0, Score: &score},
				{LineupNumber: 1, Position: &pos1},
			}},
		},
	}

	embed := matchConcludedEmbed(transition)
	assert.Equal(t, "Match Concluded", embed.Title)
	assert.Equal(t, "**Cup** — Match **3** concluded.", embed.Description)
	require.Len(t, embed.Fields, 1)
	assert.Contains(t, embed.Fields[0].Value, "alice (<@42>)")
	assert.Contains(t, embed.Fields[0].Value, "bob")
	assert.Equal(t, footerText, embed.Footer.Text)
}

func TestTournamentStartedEmbed(t *testing.T) {
	t.Parallel()

	embed := tournamentStartedEmbed(dto.TournamentAnnouncementDTO{
		TournamentContext: dto.TournamentContext{TournamentID: "t1"},
		NewState:          entities.StateRunning,
	})
	assert.Equal(t, "**t1** has started.", embed.Description)
}
