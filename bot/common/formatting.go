package common

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in user's local timezone
// Format types: "t" = short time, "T" = long time, "d" = short date, "D" = long date,
// "f" = short date/time, "F" = long date/time, "R" = relative time
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}

// FormatSeconds formats a duration as seconds with two decimals, e.g. "3.42s"
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// FormatAutoVerifyRule describes the auto-verify setting of a protected guild
func FormatAutoVerifyRule(days int) string {
	switch {
	case days < 0:
		return "Disabled"
	case days == 0:
		return "Everyone who joined before setup"
	case days == 1:
		return "Members who joined at least 1 day before setup"
	default:
		return fmt.Sprintf("Members who joined at least %d days before setup", days)
	}
}

// FormatScore formats a scam score without trailing zeros
func FormatScore(score float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", score), "0"), ".")
}

// Truncate shortens text to at most max runes, marking the cut with an ellipsis
func Truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	if max <= 1 {
		return string([]rune(text)[:max])
	}
	return string([]rune(text)[:max-1]) + "…"
}

// CodeBlock wraps text in a code block that fits into an embed field
func CodeBlock(text string) string {
	text = strings.ReplaceAll(text, "```", "'''")
	return "```\n" + Truncate(text, MaxEmbedFieldValue-8) + "\n```"
}
