package botshield

import (
	"testing"
	"time"

	"cogbot/domain/entities"
	"cogbot/domain/services"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reaction(userID, emoji string) *discordgo.MessageReaction {
	return &discordgo.MessageReaction{
		UserID:    userID,
		MessageID: "captcha",
		ChannelID: "chan",
		Emoji:     discordgo.Emoji{Name: emoji},
	}
}

func TestWaitForAnswer(t *testing.T) {
	t.Parallel()

	challenge := entities.CaptchaChallenge{A: 2, B: 3, Choices: []int{5, 1, 7, 9}}

	tests := []struct {
		name     string
		events   []*discordgo.MessageReaction
		passed   bool
		reason   entities.CaptchaFailReason
		chosen   int
		foreigns int
	}{
		{
			name:   "correct answer",
			events: []*discordgo.MessageReaction{reaction("member", services.DigitEmoji(5))},
			passed: true,
		},
		{
			name:   "wrong digit",
			events: []*discordgo.MessageReaction{reaction("member", services.DigitEmoji(7))},
			reason: entities.CaptchaFailIncorrectAnswer,
			chosen: 7,
		},
		{
			name:   "non digit",
			events: []*discordgo.MessageReaction{reaction("member", "👍")},
			reason: entities.CaptchaFailInvalidReaction,
		},
		{
			name: "bot and foreign reactions are skipped",
			events: []*discordgo.MessageReaction{
				reaction("bot", services.DigitEmoji(1)),
				reaction("someone", services.DigitEmoji(5)),
				reaction("member", services.DigitEmoji(5)),
			},
			passed:   true,
			foreigns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reactions := make(chan *discordgo.MessageReaction, len(tt.events))
			for _, ev := range tt.events {
				reactions <- ev
			}

			var removed []*discordgo.MessageReaction
			outcome := waitForAnswer(challenge, reactions, "member", "bot", time.Second, time.Now, func(r *discordgo.MessageReaction) {
				removed = append(removed, r)
			})

			assert.Equal(t, tt.passed, outcome.Passed)
			assert.Equal(t, tt.reason, outcome.Reason)
			assert.Equal(t, 5, outcome.Expected)
			assert.Equal(t, tt.chosen, outcome.Chosen)
			assert.Len(t, removed, tt.foreigns)
		})
	}
}

func TestWaitForAnswer_Timeout(t *testing.T) {
	t.Parallel()

	challenge := entities.CaptchaChallenge{A: 1, B: 1, Choices: []int{2, 3, 4, 5}}
	reactions := make(chan *discordgo.MessageReaction)

	start := time.Now()
	outcome := waitForAnswer(challenge, reactions, "member", "bot", 20*time.Millisecond, time.Now, func(*discordgo.MessageReaction) {})

	assert.False(t, outcome.Passed)
	assert.Equal(t, entities.CaptchaFailTimeout, outcome.Reason)
	assert.Equal(t, "Timeout (no valid reaction within time limit).", outcome.ReasonText())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWaitForAnswer_Elapsed(t *testing.T) {
	t.Parallel()

	challenge := entities.CaptchaChallenge{A: 0, B: 4, Choices: []int{4, 0, 1, 2}}
	reactions := make(chan *discordgo.MessageReaction, 1)
	reactions <- reaction("member", services.DigitEmoji(4))

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	now := func() time.Time {
		calls++
		return clock.Add(time.Duration(calls-1) * 3 * time.Second)
	}

	outcome := waitForAnswer(challenge, reactions, "member", "bot", time.Second, now, func(*discordgo.MessageReaction) {})
	require.True(t, outcome.Passed)
	assert.Equal(t, 3*time.Second, outcome.Elapsed)
	assert.False(t, outcome.SuspiciouslyFast())
}
