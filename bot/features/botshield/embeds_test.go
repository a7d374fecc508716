package botshield

import (
	"testing"
	"time"

	"cogbot/domain/entities"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldValue(t *testing.T, embed *discordgo.MessageEmbed, name string) string {
	t.Helper()
	for _, f := range embed.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("field %q not found", name)
	return ""
}

func hasField(embed *discordgo.MessageEmbed, name string) bool {
	for _, f := range embed.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func TestCaptchaEmbed(t *testing.T) {
	t.Parallel()

	embed := captchaEmbed(entities.CaptchaChallenge{A: 4, B: 2}, 60*time.Second, true)
	assert.Equal(t, "Captcha Verification", embed.Title)
	assert.Equal(t, "Please react with the sum of **4 and 2**.\nYou have 60 seconds.", embed.Description)
	require.NotNil(t, embed.Image)
	assert.Equal(t, "attachment://captcha.png", embed.Image.URL)

	assert.Nil(t, captchaEmbed(entities.CaptchaChallenge{}, time.Minute, false).Image)
}

func TestCaptchaFailedLogEmbed(t *testing.T) {
	t.Parallel()

	entry := captchaLog{
		User:      &discordgo.User{ID: "42", Username: "spammer"},
		ChannelID: "7",
		Outcome: entities.CaptchaOutcome{
			Reason:   entities.CaptchaFailIncorrectAnswer,
			Chosen:   3,
			Expected: 8,
		},
		Attachments: []string{"https://cdn/a.png"},
		At:          time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	embed := captchaFailedLogEmbed(entry)
	assert.Equal(t, "Captcha Failed", embed.Title)
	assert.Equal(t, "spammer (ID: 42)", fieldValue(t, embed, "User"))
	assert.Equal(t, "Incorrect answer selected (3). Expected: 8.", fieldValue(t, embed, "Reason"))
	assert.Equal(t, "[empty]", fieldValue(t, embed, "Original message"))
	assert.Equal(t, "https://cdn/a.png", fieldValue(t, embed, "Attachments"))
	assert.Equal(t, "Time: 2026-03-01T10:00:00Z", embed.Footer.Text)

	entry.Attachments = nil
	entry.Content = "hello"
	embed = captchaFailedLogEmbed(entry)
	assert.Equal(t, "hello", fieldValue(t, embed, "Original message"))
	assert.False(t, hasField(embed, "Attachments"))
}

func TestCaptchaCompletedLogEmbed(t *testing.T) {
	t.Parallel()

	entry := captchaLog{
		User:      &discordgo.User{ID: "42", Username: "human"},
		ChannelID: "7",
		Outcome:   entities.CaptchaOutcome{Passed: true, Elapsed: 1500 * time.Millisecond},
		Progress:  &entities.CaptchaProgress{Progress: 3, Required: 3, Verified: true},
	}

	embed := captchaCompletedLogEmbed(entry)
	assert.Equal(t, "Captcha Completed", embed.Title)
	assert.Equal(t, "1.50s (suspiciously fast)", fieldValue(t, embed, "Time taken"))
	assert.Equal(t, "Now verified (required 3)", fieldValue(t, embed, "Status"))

	entry.Outcome.Elapsed = 4 * time.Second
	entry.Progress = &entities.CaptchaProgress{Progress: 1, Required: 3}
	embed = captchaCompletedLogEmbed(entry)
	assert.Equal(t, "Captcha Completed (Progress)", embed.Title)
	assert.Equal(t, "4.00s", fieldValue(t, embed, "Time taken"))
	assert.Equal(t, "1/3", fieldValue(t, embed, "Progress"))
}

func TestScamAlertEmbed(t *testing.T) {
	t.Parallel()

	msg := &discordgo.Message{
		ChannelID: "7",
		Content:   "free nitro at scam.com",
		Author:    &discordgo.User{ID: "42"},
	}
	analysis := entities.ScamAnalysis{Score: 7.5, Matches: map[string]int{"tld": 1, "free nitro": 1}}

	embed := scamAlertEmbed(msg, analysis, 5)
	assert.Equal(t, "Possible Scam Detected", embed.Title)
	assert.Equal(t, "7.5 (threshold 5)", fieldValue(t, embed, "Score"))
	assert.Equal(t, "`free nitro` ×1, `tld` ×1", fieldValue(t, embed, "Matched tokens"))
	assert.Contains(t, fieldValue(t, embed, "Message"), "free nitro at scam.com")
}

func TestStatusEmbed(t *testing.T) {
	t.Parallel()

	settings := entities.NewGuildSettings(1)
	embed := statusEmbed(settings)
	assert.Equal(t, "Disabled", fieldValue(t, embed, "Protection"))
	assert.Equal(t, "None", fieldValue(t, embed, "Log channel"))
	assert.Equal(t, "None", fieldValue(t, embed, "Alert role"))

	logChannel := int64(55)
	role := int64(66)
	settings.Protect(2, 0, &logChannel, time.Unix(1700000000, 0))
	settings.SetAlertRole(&role)
	settings.ScamProtectionEnabled = true

	embed = statusEmbed(settings)
	assert.Equal(t, "Enabled since <t:1700000000:f>", fieldValue(t, embed, "Protection"))
	assert.Equal(t, "2", fieldValue(t, embed, "Captchas required"))
	assert.Equal(t, "Everyone who joined before setup", fieldValue(t, embed, "Auto-verify rule"))
	assert.Equal(t, "<#55>", fieldValue(t, embed, "Log channel"))
	assert.Equal(t, "<@&66>", fieldValue(t, embed, "Alert role"))
	assert.Equal(t, "Enabled (threshold 5)", fieldValue(t, embed, "Scam protection"))
}
