package services

import (
	"math/rand/v2"
	"strings"

	"cogbot/domain/entities"
)

// digitEmojis are the keycap emojis for 0-9, indexed by digit
var digitEmojis = [10]string{
	"0️⃣", "1️⃣", "2️⃣", "3️⃣", "4️⃣",
	"5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣",
}

// NewCaptchaChallenge generates a sum challenge whose answer is a single digit.
// Choices hold the answer plus distinct wrong digits, shuffled.
func NewCaptchaChallenge(r *rand.Rand) entities.CaptchaChallenge {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	sum := r.IntN(10)
	a := r.IntN(sum + 1)
	b := sum - a

	wrong := make([]int, 0, 9)
	for d := 0; d <= 9; d++ {
		if d != sum {
			wrong = append(wrong, d)
		}
	}
	r.Shuffle(len(wrong), func(i, j int) { wrong[i], wrong[j] = wrong[j], wrong[i] })

	choices := append([]int{sum}, wrong[:entities.CaptchaChoiceCount-1]...)
	r.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })

	return entities.CaptchaChallenge{A: a, B: b, Choices: choices}
}

// DigitEmoji returns the keycap emoji for a digit
func DigitEmoji(digit int) string {
	if digit < 0 || digit > 9 {
		return ""
	}
	return digitEmojis[digit]
}

// EmojiDigit maps a keycap emoji back to its digit. The variation selector is optional.
func EmojiDigit(emoji string) (int, bool) {
	bare := strings.ReplaceAll(emoji, "\ufe0f", "")
	for digit, e := range digitEmojis {
		if strings.ReplaceAll(e, "\ufe0f", "") == bare {
			return digit, true
		}
	}
	return 0, false
}

// EvaluateReaction turns the member's reaction into a challenge outcome
func EvaluateReaction(challenge entities.CaptchaChallenge, emoji string) entities.CaptchaOutcome {
	outcome := entities.CaptchaOutcome{Expected: challenge.Answer()}

	digit, ok := EmojiDigit(emoji)
	switch {
	case !ok:
		outcome.Reason = entities.CaptchaFailInvalidReaction
	case digit == challenge.Answer():
		outcome.Passed = true
	default:
		outcome.Reason = entities.CaptchaFailIncorrectAnswer
		outcome.Chosen = digit
	}
	return outcome
}
